package tokencache

import (
	"context"
	"sync"
	"time"

	"fieldtrack/internal/domain/service"
)

// memoryCache keeps tokens in process memory. Tokens are lost on restart,
// which only costs one extra authentication round trip.
type memoryCache struct {
	mu     sync.RWMutex
	tokens map[string]service.AccessToken
	now    func() time.Time
}

// NewMemoryCache creates an empty in-process token cache.
func NewMemoryCache() service.TokenCache {
	return newMemoryCache(time.Now)
}

func newMemoryCache(now func() time.Time) *memoryCache {
	return &memoryCache{
		tokens: make(map[string]service.AccessToken),
		now:    now,
	}
}

func (c *memoryCache) Get(_ context.Context, key string) (*service.AccessToken, error) {
	c.mu.RLock()
	token, ok := c.tokens[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if !token.Valid(c.now()) {
		c.mu.Lock()
		delete(c.tokens, key)
		c.mu.Unlock()

		return nil, nil
	}

	return &token, nil
}

func (c *memoryCache) Set(_ context.Context, key string, token *service.AccessToken) error {
	if token == nil {
		return nil
	}

	c.mu.Lock()
	c.tokens[key] = *token
	c.mu.Unlock()

	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.tokens, key)
	c.mu.Unlock()

	return nil
}
