package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// GetActiveCanteen returns ErrNoDocuments when no profile is active.
func (q *Queries) GetActiveCanteen(ctx context.Context) (CanteenProfile, error) {
	var c CanteenProfile
	if err := q.canteens().FindOne(ctx, bson.M{"isActive": true}).Decode(&c); err != nil {
		return CanteenProfile{}, err
	}
	return c, nil
}

func (q *Queries) CreateCanteenProfile(ctx context.Context, c CanteenProfile) (CanteenProfile, error) {
	now := time.Now().UTC()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	if _, err := q.canteens().InsertOne(ctx, c); err != nil {
		return CanteenProfile{}, fmt.Errorf("insert canteen profile: %w", err)
	}
	return c, nil
}
