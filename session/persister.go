package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// TokenPersister stores the active bearer token across restarts.
type TokenPersister interface {
	Save(ctx context.Context, token string) error
	// Load returns the persisted token, or "" when none exists.
	Load(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// MemoryPersister keeps the token in memory only. Used in tests and as
// the fallback when no Redis is configured.
type MemoryPersister struct {
	mu    sync.Mutex
	token string
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{}
}

func (p *MemoryPersister) Save(ctx context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	return nil
}

func (p *MemoryPersister) Load(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token, nil
}

func (p *MemoryPersister) Clear(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	return nil
}

// RedisPersister stores the token under a caller-chosen key (one key per
// device installation), expiring alongside the token itself.
type RedisPersister struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisPersister(client *redis.Client, key string) *RedisPersister {
	return &RedisPersister{client: client, key: key, ttl: defaultTTL}
}

func (p *RedisPersister) Save(ctx context.Context, token string) error {
	if err := p.client.Set(ctx, p.key, token, p.ttl).Err(); err != nil {
		return errors.Wrap(err, "fail to persist session token")
	}
	return nil
}

func (p *RedisPersister) Load(ctx context.Context) (string, error) {
	token, err := p.client.Get(ctx, p.key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "fail to load session token")
	}
	return token, nil
}

func (p *RedisPersister) Clear(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return errors.Wrap(err, "fail to clear session token")
	}
	return nil
}
