package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockCacheService is an in-memory CacheService without TTL handling,
// for tests that only care about hit/miss behavior.
type MockCacheService struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMockCacheService creates a mock cache service.
func NewMockCacheService() *MockCacheService {
	return &MockCacheService{entries: make(map[string][]byte)}
}

func (m *MockCacheService) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	return value, ok
}

func (m *MockCacheService) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *MockCacheService) Invalidate(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

var _ CacheService = (*MockCacheService)(nil)
