package gencache

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain"
)

type mockGenerator struct {
	out   string
	err   error
	calls int
}

func (m *mockGenerator) Generate(_ context.Context, _ domain.Prompt) (string, error) {
	m.calls++
	return m.out, m.err
}

// mockKVStore is an in-memory KV with optional failure injection.
type mockKVStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
	delErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockKVStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return m.delErr
	}
	delete(m.data, key)
	delete(m.ttls, key)
	return nil
}
