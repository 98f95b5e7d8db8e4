package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	ordersCollection    = "orders"
	menuItemsCollection = "menuitems"
	canteenCollection   = "canteenprofiles"
	usersCollection     = "users"
)

// ErrNoDocuments is returned by single-document queries that match nothing.
var ErrNoDocuments = mongo.ErrNoDocuments

// Connect opens a client against uri, pings it and returns the named database.
func Connect(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second).
		SetTimeout(15 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	return client, client.Database(name), nil
}

// EnsureIndexes creates the indexes the queries in this package rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		menuItemsCollection: {
			{Keys: bson.D{{Key: "canteenProfileId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		canteenCollection: {
			{
				Keys: bson.D{{Key: "isActive", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"isActive": true}),
			},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Queries runs the application's document queries against one database.
type Queries struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Queries {
	return &Queries{db: db}
}

// Ping checks the underlying connection.
func (q *Queries) Ping(ctx context.Context) error {
	return q.db.Client().Ping(ctx, nil)
}

func (q *Queries) orders() *mongo.Collection    { return q.db.Collection(ordersCollection) }
func (q *Queries) menuItems() *mongo.Collection { return q.db.Collection(menuItemsCollection) }
func (q *Queries) canteens() *mongo.Collection  { return q.db.Collection(canteenCollection) }
func (q *Queries) users() *mongo.Collection     { return q.db.Collection(usersCollection) }

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
