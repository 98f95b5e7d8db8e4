package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/database"
)

const activeCanteenKey = "active"

// CanteenStore is the read the resolver needs. Satisfied by *database.Queries.
type CanteenStore interface {
	GetActiveCanteen(ctx context.Context) (database.CanteenProfile, error)
}

// Cache is a string key/value cache. Satisfied by cache.Cache.
type Cache interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Key(parts ...string) string
}

// ActiveCanteen resolves the canteen new orders are scoped to.
type ActiveCanteen struct {
	store CanteenStore
	cache Cache
	ttl   time.Duration
}

// NewActiveCanteen creates a resolver. cache may be nil.
func NewActiveCanteen(store CanteenStore, cache Cache, ttl time.Duration) *ActiveCanteen {
	return &ActiveCanteen{store: store, cache: cache, ttl: ttl}
}

// ActiveCanteenID returns ErrNoActiveCanteen when no canteen profile is active.
func (a *ActiveCanteen) ActiveCanteenID(ctx context.Context) (uuid.UUID, error) {
	var key string
	if a.cache != nil {
		key = a.cache.Key("canteen", activeCanteenKey)
		cached, err := a.cache.Get(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "read active canteen from cache", "err", err)
		} else if cached != "" {
			if id, err := uuid.Parse(cached); err == nil {
				return id, nil
			}
		}
	}

	canteen, err := a.store.GetActiveCanteen(ctx)
	if err != nil {
		if errors.Is(err, database.ErrNoDocuments) {
			return uuid.Nil, ErrNoActiveCanteen
		}
		return uuid.Nil, fmt.Errorf("get active canteen: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, canteen.ID.String(), a.ttl); err != nil {
			slog.WarnContext(ctx, "cache active canteen", "err", err)
		}
	}
	return canteen.ID, nil
}
