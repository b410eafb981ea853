package healthcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// healthyNodesKey holds the cached ids as a JSON array.
const healthyNodesKey = "optimusddc:healthy_nodes"

// Cache remembers the last known healthy node set in redis so freshly
// started replicas can route before their first probe round completes.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New wraps the given redis client. Entries expire after ttl.
func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// NewClient connects to the given redis address. Both bare host:port pairs
// and redis:// URLs are accepted.
func NewClient(addr string) *redis.Client {
	if opt, err := redis.ParseURL(addr); err == nil {
		return redis.NewClient(opt)
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Ping verifies the redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Store saves the ids of the currently healthy nodes.
func (c *Cache) Store(ctx context.Context, ids []int) error {
	payload, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal healthy node ids: %w", err)
	}

	if err := c.client.Set(ctx, healthyNodesKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("store healthy node ids: %w", err)
	}

	return nil
}

// Lookup returns the cached healthy node ids. The second return value is
// false on a cache miss.
func (c *Cache) Lookup(ctx context.Context) ([]int, bool, error) {
	payload, err := c.client.Get(ctx, healthyNodesKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup healthy node ids: %w", err)
	}

	var ids []int
	if err := json.Unmarshal([]byte(payload), &ids); err != nil {
		return nil, false, fmt.Errorf("decode healthy node ids: %w", err)
	}

	return ids, true, nil
}

// Clear drops the cached entry.
func (c *Cache) Clear(ctx context.Context) error {
	return c.client.Del(ctx, healthyNodesKey).Err()
}

// Close releases the underlying redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
