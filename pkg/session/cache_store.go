package session

import (
	"context"
	"errors"

	"reward-core/pkg/cache"
)

// CacheStore keeps credentials under one key of a cache.Cache (memory or Redis).
type CacheStore struct {
	cache cache.Cache
	key   string
}

func NewCacheStore(c cache.Cache, key string) *CacheStore {
	return &CacheStore{cache: c, key: key}
}

func (s *CacheStore) Load(ctx context.Context) (*Credentials, error) {
	var c Credentials
	if err := s.cache.Get(ctx, s.key, &c); err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}
	return &c, nil
}

func (s *CacheStore) Save(ctx context.Context, c *Credentials) error {
	return s.cache.Set(ctx, s.key, c, 0)
}

func (s *CacheStore) Clear(ctx context.Context) error {
	return s.cache.Delete(ctx, s.key)
}
