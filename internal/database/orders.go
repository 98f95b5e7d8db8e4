package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/enum"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// CreateOrder inserts o, stamping createdAt/updatedAt.
func (q *Queries) CreateOrder(ctx context.Context, o Order) (Order, error) {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	if _, err := q.orders().InsertOne(ctx, o); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// GetOrder returns ErrNoDocuments when id is unknown.
func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	if err := q.orders().FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return Order{}, err
	}
	return o, nil
}

type GetOrderForUserParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// GetOrderForUser matches on both id and owner, so another user's order reads as missing.
func (q *Queries) GetOrderForUser(ctx context.Context, arg GetOrderForUserParams) (Order, error) {
	var o Order
	err := q.orders().FindOne(ctx, bson.M{"_id": arg.ID, "userId": arg.UserID}).Decode(&o)
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	cursor, err := q.orders().Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, fmt.Errorf("find orders by user: %w", err)
	}
	defer cursor.Close(ctx)

	result := []Order{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return result, nil
}

type ListOrdersParams struct {
	// Status filters on an exact match when non-empty.
	Status enum.OrderStatus
}

// ListOrders returns orders newest first with the owner joined from users.
func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]OrderWithUser, error) {
	match := bson.M{}
	if arg.Status != "" {
		match["status"] = arg.Status
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: newestFirst}},
		{{Key: "$lookup", Value: bson.M{
			"from":         usersCollection,
			"localField":   "userId",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$user", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{"user.passwordHash": 0}}},
	}

	cursor, err := q.orders().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate orders: %w", err)
	}
	defer cursor.Close(ctx)

	result := []OrderWithUser{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return result, nil
}

type UpdateOrderItemsParams struct {
	ID      uuid.UUID
	Version int64
	// Status the stored order must still be in.
	Status enum.OrderStatus
	Items  []OrderItem
	Total  primitive.Decimal128
}

// UpdateOrderItems replaces items and total if the stored version and status
// still match. A stale version yields ErrNoDocuments.
func (q *Queries) UpdateOrderItems(ctx context.Context, arg UpdateOrderItemsParams) (Order, error) {
	filter := bson.M{"_id": arg.ID, "version": arg.Version, "status": arg.Status}
	update := bson.M{
		"$set": bson.M{
			"items":     arg.Items,
			"total":     arg.Total,
			"updatedAt": time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}
	return q.findOneAndUpdate(ctx, filter, update)
}

type UpdateOrderStatusParams struct {
	ID      uuid.UUID
	Version int64
	From    enum.OrderStatus
	To      enum.OrderStatus
	At      time.Time
}

// UpdateOrderStatus moves the order From -> To and appends one history entry.
// A stale version or status yields ErrNoDocuments.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	filter := bson.M{"_id": arg.ID, "version": arg.Version, "status": arg.From}
	update := bson.M{
		"$set": bson.M{
			"status":    arg.To,
			"updatedAt": time.Now().UTC(),
		},
		"$push": bson.M{"statusHistory": StatusEntry{Status: arg.To, At: arg.At}},
		"$inc":  bson.M{"version": 1},
	}
	return q.findOneAndUpdate(ctx, filter, update)
}

func (q *Queries) findOneAndUpdate(ctx context.Context, filter, update bson.M) (Order, error) {
	var o Order
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := q.orders().FindOneAndUpdate(ctx, filter, update, opts).Decode(&o); err != nil {
		return Order{}, err
	}
	return o, nil
}
