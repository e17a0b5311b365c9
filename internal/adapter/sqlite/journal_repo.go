package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/vertextoedge/mediafs-sidecar/internal/domain"
	"github.com/vertextoedge/mediafs-sidecar/internal/port"
)

// Ensure Store implements port.JournalRepository
var _ port.JournalRepository = (*Store)(nil)

// Record inserts an operation entry
func (s *Store) Record(ctx context.Context, entry *domain.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = ksuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO operations (id, op, path, status, transport, bytes, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID, entry.Op, entry.Path, entry.Status, entry.Transport,
		entry.Bytes, entry.Error, entry.DurationMs, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, op, path, status, transport, bytes, error, duration_ms, created_at
		FROM operations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		e := &domain.JournalEntry{}
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Op, &e.Path, &e.Status, &e.Transport,
			&e.Bytes, &e.Error, &e.DurationMs, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteOlderThan removes entries created before now minus age
func (s *Store) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UnixNano()

	result, err := s.db.ExecContext(ctx, `DELETE FROM operations WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old operations: %w", err)
	}
	return result.RowsAffected()
}

// NopJournal discards entries. Used when the journal is disabled.
type NopJournal struct{}

// Ensure NopJournal implements port.JournalRepository
var _ port.JournalRepository = NopJournal{}

func (NopJournal) Record(context.Context, *domain.JournalEntry) error { return nil }

func (NopJournal) Recent(context.Context, int) ([]*domain.JournalEntry, error) { return nil, nil }

func (NopJournal) DeleteOlderThan(context.Context, time.Duration) (int64, error) { return 0, nil }

func (NopJournal) Ping(context.Context) error { return nil }
