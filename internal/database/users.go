package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/enum"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	if err := q.users().FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	var u User
	if err := q.users().FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}

// CreateUser inserts u. A taken email fails the unique index; check with IsDuplicateKey.
func (q *Queries) CreateUser(ctx context.Context, u User) (User, error) {
	now := time.Now().UTC()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := q.users().InsertOne(ctx, u); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (q *Queries) ListUsersByRole(ctx context.Context, role enum.Role) ([]User, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetProjection(bson.M{"passwordHash": 0})
	cursor, err := q.users().Find(ctx, bson.M{"role": role}, opts)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	result := []User{}
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return result, nil
}

type SetUserActiveParams struct {
	ID       uuid.UUID
	Role     enum.Role
	IsActive bool
}

// SetUserActive returns ErrNoDocuments when no user with that id and role exists.
func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) (User, error) {
	filter := bson.M{"_id": arg.ID, "role": arg.Role}
	update := bson.M{"$set": bson.M{"isActive": arg.IsActive, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"passwordHash": 0})

	var u User
	if err := q.users().FindOneAndUpdate(ctx, filter, update, opts).Decode(&u); err != nil {
		return User{}, err
	}
	return u, nil
}
