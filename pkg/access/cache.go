package access

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type grantCache interface {
	get(ctx context.Context, viewerID, tipsterID uuid.UUID) (grant, bool)
	put(ctx context.Context, viewerID, tipsterID uuid.UUID, g grant)
}

type noopGrantCache struct{}

func (noopGrantCache) get(context.Context, uuid.UUID, uuid.UUID) (grant, bool) { return grant{}, false }
func (noopGrantCache) put(context.Context, uuid.UUID, uuid.UUID, grant)        {}

// redisGrantCache is a best-effort cache: read and write failures degrade
// to recomputing the grant, never to an error for the caller.
type redisGrantCache struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisGrantCache(client *redis.Client, ttl time.Duration) *redisGrantCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &redisGrantCache{client: client, ttl: ttl}
}

func grantKey(viewerID, tipsterID uuid.UUID) string {
	return "access:grant:" + tipsterID.String() + ":" + viewerID.String()
}

func (c *redisGrantCache) get(ctx context.Context, viewerID, tipsterID uuid.UUID) (grant, bool) {
	raw, err := c.client.Get(ctx, grantKey(viewerID, tipsterID)).Bytes()
	if err != nil {
		return grant{}, false
	}
	var g grant
	if err := json.Unmarshal(raw, &g); err != nil {
		return grant{}, false
	}
	return g, true
}

func (c *redisGrantCache) put(ctx context.Context, viewerID, tipsterID uuid.UUID, g grant) {
	raw, err := json.Marshal(g)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, grantKey(viewerID, tipsterID), raw, c.ttl).Err()
}
