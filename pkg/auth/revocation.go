package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// RevocationList records token ids that must no longer be accepted
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevocationList keeps revoked token ids in an expiring LRU.
// Entries outlive their token by at most the cache TTL.
type MemoryRevocationList struct {
	cache *lru.LRU[string, time.Time]
	now   func() time.Time
}

// NewMemoryRevocationList creates an in-process revocation list
func NewMemoryRevocationList(size int, ttl time.Duration) *MemoryRevocationList {
	if size <= 0 {
		size = 10000
	}
	return &MemoryRevocationList{
		cache: lru.NewLRU[string, time.Time](size, nil, ttl),
		now:   time.Now,
	}
}

func (l *MemoryRevocationList) Revoke(_ context.Context, tokenID string, until time.Time) error {
	l.cache.Add(tokenID, until)
	return nil
}

func (l *MemoryRevocationList) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	until, ok := l.cache.Get(tokenID)
	if !ok {
		return false, nil
	}
	return l.now().Before(until), nil
}

// RedisRevocationList stores revoked token ids as expiring redis keys so
// every replica sees a logout.
type RedisRevocationList struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationList creates a redis-backed revocation list
func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{
		client: client,
		prefix: "taskforge:revoked:",
	}
}

func (l *RedisRevocationList) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	if err := l.client.Set(ctx, l.prefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (l *RedisRevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := l.client.Exists(ctx, l.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}
