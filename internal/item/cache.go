package item

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "offers:item:"

// Cache keeps items in Redis under both their id and their code. A nil Cache
// or one without a client caches nothing.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func idKey(id string) string     { return cachePrefix + "id:" + id }
func codeKey(code string) string { return cachePrefix + "code:" + code }

func (c *Cache) enabled() bool { return c != nil && c.client != nil }

// Lookup returns the item cached under key. A miss is (Item{}, false, nil).
func (c *Cache) Lookup(ctx context.Context, key string) (Item, bool, error) {
	if !c.enabled() {
		return Item{}, false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	var it Item
	if err := json.Unmarshal(data, &it); err != nil {
		// drop undecodable entries so the next read repopulates them
		_ = c.client.Del(ctx, key).Err()
		return Item{}, false, err
	}
	return it, true, nil
}

// Store writes it under its id and code keys in one round trip.
func (c *Cache) Store(ctx context.Context, it Item) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(it)
	if err != nil {
		return err
	}
	_, err = c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		if it.ID != "" {
			p.Set(ctx, idKey(it.ID), data, c.ttl)
		}
		if it.Code != "" {
			p.Set(ctx, codeKey(it.Code), data, c.ttl)
		}
		return nil
	})
	return err
}
