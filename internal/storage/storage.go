// Package storage remembers which posts have already triggered a notification.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"power_alert/internal/config"
)

// Store is the interface for seen-post persistence.
type Store interface {
	Seen(ctx context.Context, postID string) (bool, error)
	MarkSeen(ctx context.Context, postID string) error
	Close() error
}

// Open returns the store selected by mode, or nil when mode is config.SeenOff.
func Open(mode, dbPath string, ttl time.Duration) (Store, error) {
	switch mode {
	case config.SeenOff:
		return nil, nil
	case config.SeenMemory:
		return NewMemory(DefaultMemorySize, ttl), nil
	case config.SeenSQLite:
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
		return NewSQLite(dbPath, ttl)
	default:
		return nil, fmt.Errorf("unknown seen cache mode %q", mode)
	}
}
