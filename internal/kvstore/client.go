// Package kvstore emulates the two-table keyspace (places, admin_areas)
// the query service hydrates from, over Redis hashes (spec §4.9). Each
// table is a single Redis hash: field = id, value = JSON payload.
package kvstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	placesTable     = "places"
	adminAreasTable = "admin_areas"
)

// Client wraps a Redis connection scoped to one keyspace.
type Client struct {
	rdb      *redis.Client
	keyspace string
}

// New connects to Redis and verifies it's reachable. keyspace prefixes
// both hash keys so multiple regions/environments can share one Redis
// instance without collision.
func New(ctx context.Context, addr, password string, db int, keyspace string) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("kvstore: connect to redis: %w", err)
	}
	return &Client{rdb: rdb, keyspace: keyspace}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) hashKey(table string) string {
	return fmt.Sprintf("%s:%s", c.keyspace, table)
}

// UpsertPlace writes a place's JSON payload under id in the places
// table.
func (c *Client) UpsertPlace(ctx context.Context, id, data string) error {
	return c.upsert(ctx, placesTable, id, data)
}

// UpsertAdminArea writes an admin area's JSON payload under id in the
// admin_areas table.
func (c *Client) UpsertAdminArea(ctx context.Context, id, data string) error {
	return c.upsert(ctx, adminAreasTable, id, data)
}

func (c *Client) upsert(ctx context.Context, table, id, data string) error {
	if err := c.rdb.HSet(ctx, c.hashKey(table), id, data).Err(); err != nil {
		return fmt.Errorf("kvstore: upsert %s/%s: %w", table, id, err)
	}
	return nil
}

// GetPlace returns the JSON payload for a place id, or ("", false) if
// it isn't present. A caller must tolerate this miss: text-index and KV
// writes are only eventually consistent (spec §5).
func (c *Client) GetPlace(ctx context.Context, id string) (string, bool, error) {
	return c.get(ctx, placesTable, id)
}

func (c *Client) get(ctx context.Context, table, id string) (string, bool, error) {
	data, err := c.rdb.HGet(ctx, c.hashKey(table), id).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: get %s/%s: %w", table, id, err)
	}
	return data, true, nil
}

// AllPlaces returns every id -> JSON payload pair in the places table,
// for the post-ingest consistency walk (SPEC_FULL.md §3 "cmd/validate").
func (c *Client) AllPlaces(ctx context.Context) (map[string]string, error) {
	out, err := c.rdb.HGetAll(ctx, c.hashKey(placesTable)).Result()
	if err != nil {
		return nil, fmt.Errorf("kvstore: scan places: %w", err)
	}
	return out, nil
}

// AdminAreaExists reports whether id has a live record in the
// admin_areas table, without paying for the JSON payload.
func (c *Client) AdminAreaExists(ctx context.Context, id string) (bool, error) {
	ok, err := c.rdb.HExists(ctx, c.hashKey(adminAreasTable), id).Result()
	if err != nil {
		return false, fmt.Errorf("kvstore: check admin area %s: %w", id, err)
	}
	return ok, nil
}

// maxAdminBatch is the safe cap on a single hierarchy lookup (spec
// §4.9: "hierarchy lookups ≤ 9 per place are always safe").
const maxAdminBatch = 9

// GetAdminAreas batch-fetches admin area JSON payloads by id. Callers
// must keep len(ids) <= 9; larger batches should be chunked by the
// caller.
func (c *Client) GetAdminAreas(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	if len(ids) > maxAdminBatch {
		return nil, fmt.Errorf("kvstore: admin area batch of %d exceeds safe cap of %d", len(ids), maxAdminBatch)
	}

	values, err := c.rdb.HMGet(ctx, c.hashKey(adminAreasTable), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("kvstore: batch get admin areas: %w", err)
	}

	out := make(map[string]string, len(ids))
	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[ids[i]] = s
	}
	return out, nil
}
