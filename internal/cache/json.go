package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// JSON stores values as JSON documents on top of a byte Store.
type JSON struct {
	store Store
}

func NewJSON(store Store) *JSON {
	return &JSON{store: store}
}

func (j *JSON) Get(ctx context.Context, key string, value interface{}) error {
	data, err := j.store.Get(ctx, key)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("decode cached %s: %w", key, err)
	}
	return nil
}

func (j *JSON) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	return j.store.Set(ctx, key, data, ttl)
}
