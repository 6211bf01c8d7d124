// Package cachetest provides an in-memory cache.Store for tests.
package cachetest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps values in a map and reports misses with redis.Nil.
type Store struct {
	mu   sync.Mutex
	data map[string]string
	Gets int
	Dels int
}

func NewStore() *Store {
	return &Store{data: map[string]string{}}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Gets++
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := value.(type) {
	case string:
		s.data[key] = v
	case []byte:
		s.data[key] = string(v)
	}
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Dels++
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) CacheKey(parts ...string) string {
	return "test:cache:" + strings.Join(parts, ":")
}

// Has reports whether key currently holds a value.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// Put seeds a raw value.
func (s *Store) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}
