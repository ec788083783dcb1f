package tokencache

import (
	"context"
	"encoding/json"
	"time"

	"fieldtrack/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type redisToken struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"` // ms since epoch
}

// redisCache shares tokens between processes through Redis.
// Entries expire in Redis at the token's own expiry.
type redisCache struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// OpenRedis opens a Redis client, nil when no address is configured.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

// NewRedisCache wraps a Redis client as a token cache.
func NewRedisCache(client *redis.Client, prefix string) service.TokenCache {
	return &redisCache{client: client, prefix: prefix, now: time.Now}
}

func (c *redisCache) key(key string) string {
	return c.prefix + key
}

func (c *redisCache) Get(ctx context.Context, key string) (*service.AccessToken, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "redis get token")
	}

	var stored redisToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, errors.Wrap(err, "decode cached token")
	}

	token := &service.AccessToken{Value: stored.Value, ExpiresAt: time.UnixMilli(stored.ExpiresAt)}
	if !token.Valid(c.now()) {
		return nil, nil
	}

	return token, nil
}

func (c *redisCache) Set(ctx context.Context, key string, token *service.AccessToken) error {
	if token == nil {
		return nil
	}

	ttl := token.ExpiresAt.Sub(c.now())
	if ttl <= 0 {
		return nil
	}

	raw, err := json.Marshal(redisToken{Value: token.Value, ExpiresAt: token.ExpiresAt.UnixMilli()})
	if err != nil {
		return errors.Wrap(err, "encode token")
	}

	if err := c.client.Set(ctx, c.key(key), raw, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set token")
	}

	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return errors.Wrap(err, "redis delete token")
	}

	return nil
}
