package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetMenuItemsForOrder returns the subset of ids that exist and are available.
func (q *Queries) GetMenuItemsForOrder(ctx context.Context, ids []uuid.UUID) ([]MenuItem, error) {
	if len(ids) == 0 {
		return []MenuItem{}, nil
	}
	cursor, err := q.menuItems().Find(ctx, bson.M{
		"_id":         bson.M{"$in": ids},
		"isAvailable": true,
	})
	if err != nil {
		return nil, fmt.Errorf("find menu items: %w", err)
	}
	defer cursor.Close(ctx)

	result := []MenuItem{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode menu items: %w", err)
	}
	return result, nil
}

type ListMenuItemsParams struct {
	CanteenProfileID uuid.UUID
	AvailableOnly    bool
}

func (q *Queries) ListMenuItems(ctx context.Context, arg ListMenuItemsParams) ([]MenuItem, error) {
	filter := bson.M{"canteenProfileId": arg.CanteenProfileID}
	if arg.AvailableOnly {
		filter["isAvailable"] = true
	}

	cursor, err := q.menuItems().Find(ctx, filter, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find menu items: %w", err)
	}
	defer cursor.Close(ctx)

	result := []MenuItem{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode menu items: %w", err)
	}
	return result, nil
}

// UpsertMenuItem inserts m, or replaces the item with the same canteen and name.
func (q *Queries) UpsertMenuItem(ctx context.Context, m MenuItem) (MenuItem, error) {
	now := time.Now().UTC()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.UpdatedAt = now

	filter := bson.M{"canteenProfileId": m.CanteenProfileID, "name": m.Name}
	update := bson.M{
		"$set": bson.M{
			"description": m.Description,
			"price":       m.Price,
			"category":    m.Category,
			"imageUrl":    m.ImageURL,
			"isAvailable": m.IsAvailable,
			"updatedAt":   now,
		},
		"$setOnInsert": bson.M{"_id": m.ID, "createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out MenuItem
	if err := q.menuItems().FindOneAndUpdate(ctx, filter, update, opts).Decode(&out); err != nil {
		return MenuItem{}, fmt.Errorf("upsert menu item: %w", err)
	}
	return out, nil
}
