package store

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process KV store. Used by tests and by single-surface
// setups that do not share state with other processes.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]json.RawMessage)}
}

// Get implements KV.
func (m *Memory) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		if raw, ok := m.values[key]; ok {
			cp := make(json.RawMessage, len(raw))
			copy(cp, raw)
			out[key] = cp
		}
	}
	return out, nil
}

// Set implements KV.
func (m *Memory) Set(ctx context.Context, entries map[string]json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, raw := range entries {
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		m.values[key] = cp
	}
	return nil
}

// Remove implements KV.
func (m *Memory) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}
