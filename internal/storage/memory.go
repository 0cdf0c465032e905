package storage

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMemorySize bounds the in-memory seen set.
const DefaultMemorySize = 1024

// Memory is a bounded, expiring seen set that does not survive restarts.
type Memory struct {
	lru *expirable.LRU[string, struct{}]
}

// NewMemory creates a Memory store holding at most size ids for ttl each.
func NewMemory(size int, ttl time.Duration) *Memory {
	return &Memory{lru: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

// Seen reports whether postID was marked within the TTL.
func (m *Memory) Seen(_ context.Context, postID string) (bool, error) {
	_, ok := m.lru.Get(postID)
	return ok, nil
}

// MarkSeen records postID.
func (m *Memory) MarkSeen(_ context.Context, postID string) error {
	m.lru.Add(postID, struct{}{})
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
