package port

import (
	"context"
	"time"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
)

// JournalRepository persists completed operations
type JournalRepository interface {
	// Record stores an entry. ID and CreatedAt are filled when empty.
	Record(ctx context.Context, entry *domain.JournalEntry) error

	// Recent returns the newest entries first
	Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error)

	// DeleteOlderThan removes entries older than age
	// Returns the number of entries removed
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)

	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
}
