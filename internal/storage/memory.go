package storage

import (
	"context"
	"sync"
)

// Memory is a process-local Store, used for tests and archive inspection.
type Memory struct {
	mu    sync.Mutex
	items map[string]string
	saves int
}

func NewMemory() *Memory { return &Memory{items: map[string]string{}} }

func (m *Memory) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *Memory) Save(_ context.Context, key, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = payload
	m.saves++
	return nil
}

// Saves reports how many Save calls have landed.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *Memory) Close() error { return nil }
