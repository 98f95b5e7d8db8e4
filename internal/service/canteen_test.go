package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smart-canteen/api/internal/database"
)

type countingCanteenStore struct {
	canteen database.CanteenProfile
	err     error
	calls   int
}

func (s *countingCanteenStore) GetActiveCanteen(context.Context) (database.CanteenProfile, error) {
	s.calls++
	return s.canteen, s.err
}

type mapCache struct {
	values map[string]string
	getErr error
}

func (c *mapCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *mapCache) Get(_ context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	return c.values[key], nil
}

func (c *mapCache) Key(parts ...string) string {
	return "test:" + strings.Join(parts, ":")
}

func TestActiveCanteen_NoCache(t *testing.T) {
	id := uuid.New()
	store := &countingCanteenStore{canteen: database.CanteenProfile{ID: id, IsActive: true}}
	r := NewActiveCanteen(store, nil, 0)

	for i := 0; i < 2; i++ {
		got, err := r.ActiveCanteenID(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != id {
			t.Errorf("id: got %s, want %s", got, id)
		}
	}
	if store.calls != 2 {
		t.Errorf("store calls: got %d, want 2", store.calls)
	}
}

func TestActiveCanteen_CachesLookup(t *testing.T) {
	id := uuid.New()
	store := &countingCanteenStore{canteen: database.CanteenProfile{ID: id, IsActive: true}}
	cache := &mapCache{values: map[string]string{}}
	r := NewActiveCanteen(store, cache, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := r.ActiveCanteenID(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != id {
			t.Errorf("id: got %s, want %s", got, id)
		}
	}
	if store.calls != 1 {
		t.Errorf("store calls: got %d, want 1", store.calls)
	}
}

func TestActiveCanteen_CacheErrorFallsBack(t *testing.T) {
	id := uuid.New()
	store := &countingCanteenStore{canteen: database.CanteenProfile{ID: id, IsActive: true}}
	cache := &mapCache{values: map[string]string{}, getErr: errors.New("connection refused")}
	r := NewActiveCanteen(store, cache, time.Minute)

	got, err := r.ActiveCanteenID(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != id {
		t.Errorf("id: got %s, want %s", got, id)
	}
}

func TestActiveCanteen_NoneActive(t *testing.T) {
	store := &countingCanteenStore{err: database.ErrNoDocuments}
	cache := &mapCache{values: map[string]string{}}
	r := NewActiveCanteen(store, cache, time.Minute)

	_, err := r.ActiveCanteenID(context.Background())
	if !errors.Is(err, ErrNoActiveCanteen) {
		t.Fatalf("expected ErrNoActiveCanteen, got %v", err)
	}
	if len(cache.values) != 0 {
		t.Error("missing canteen was cached")
	}
}

func TestActiveCanteen_StoreError(t *testing.T) {
	store := &countingCanteenStore{err: errors.New("db down")}
	r := NewActiveCanteen(store, nil, 0)

	_, err := r.ActiveCanteenID(context.Background())
	if err == nil || errors.Is(err, ErrNoActiveCanteen) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
