package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.QueueStore = (*QueueRepo)(nil)

// QueueRepo is the SQLite implementation of the QueueStore port. The seq
// column preserves insertion order for FIFO drains; the mutex makes the
// capacity-check-then-insert sequence (and the other read-modify-write
// paths) atomic under concurrent callers, on top of the single writer
// connection.
type QueueRepo struct {
	mu      sync.Mutex
	db      *DB
	maxSize int
}

// NewQueueRepo creates a QueueRepo bounded at maxSize events.
func NewQueueRepo(db *DB, maxSize int) *QueueRepo {
	return &QueueRepo{db: db, maxSize: maxSize}
}

// Enqueue appends a new unsynced event and persists it. Returns ErrQueueFull
// without mutating state when the queue is at capacity; nothing is evicted.
func (r *QueueRepo) Enqueue(ctx context.Context, payload model.OfflineAttendance) (model.QueuedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return model.QueuedEvent{}, fmt.Errorf("enqueue: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM offline_queue`).Scan(&count); err != nil {
		return model.QueuedEvent{}, fmt.Errorf("enqueue: count: %w", err)
	}
	if count >= r.maxSize {
		return model.QueuedEvent{}, fmt.Errorf("enqueue: %d events stored: %w", count, driven.ErrQueueFull)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return model.QueuedEvent{}, fmt.Errorf("enqueue: marshal payload: %w", err)
	}

	event := model.QueuedEvent{
		ID:        model.NewEventID(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	const query = `INSERT INTO offline_queue (id, payload, created_at, synced) VALUES (?, ?, ?, 0)`
	if _, err := tx.ExecContext(ctx, query, event.ID, string(raw), event.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return model.QueuedEvent{}, fmt.Errorf("enqueue %s: %w", event.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return model.QueuedEvent{}, fmt.Errorf("enqueue: commit: %w", err)
	}

	return event, nil
}

// Pending returns unsynced events in insertion order, oldest first.
func (r *QueueRepo) Pending(ctx context.Context) ([]model.QueuedEvent, error) {
	return r.list(ctx, `SELECT id, payload, created_at, synced, sync_error FROM offline_queue WHERE synced = 0 ORDER BY seq`)
}

// All returns every queued event, synced or not, in insertion order.
func (r *QueueRepo) All(ctx context.Context) ([]model.QueuedEvent, error) {
	return r.list(ctx, `SELECT id, payload, created_at, synced, sync_error FROM offline_queue ORDER BY seq`)
}

func (r *QueueRepo) list(ctx context.Context, query string) ([]model.QueuedEvent, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	events := []model.QueuedEvent{}
	for rows.Next() {
		raw, err := scanRawEvent(rows)
		if err != nil {
			return nil, err
		}
		event, err := raw.decode()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue: %w", err)
	}

	return events, nil
}

// MarkSynced transitions the event to synced and clears any recorded error.
// Monotonic: marking an already-synced event changes nothing.
func (r *QueueRepo) MarkSynced(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	const query = `UPDATE offline_queue SET synced = 1, sync_error = NULL WHERE id = ?`
	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark synced %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark synced %s: rows affected: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("mark synced %s: %w", id, driven.ErrEventNotFound)
	}
	return nil
}

// RecordError stores the delivery error for an unsynced event. Synced events
// are left untouched so the synced flag never reverts.
func (r *QueueRepo) RecordError(ctx context.Context, id, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	const query = `UPDATE offline_queue SET sync_error = ? WHERE id = ? AND synced = 0`
	result, err := r.db.Writer.ExecContext(ctx, query, message, id)
	if err != nil {
		return fmt.Errorf("record error %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("record error %s: rows affected: %w", id, err)
	}
	if rows == 0 {
		var exists int
		err := r.db.Reader.QueryRowContext(ctx, `SELECT 1 FROM offline_queue WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("record error %s: %w", id, driven.ErrEventNotFound)
		}
		if err != nil {
			return fmt.Errorf("record error %s: %w", id, err)
		}
		// Event already synced; nothing to record.
	}
	return nil
}

// Compact removes all synced events. Idempotent.
func (r *QueueRepo) Compact(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.Writer.ExecContext(ctx, `DELETE FROM offline_queue WHERE synced = 1`)
	if err != nil {
		return 0, fmt.Errorf("compact queue: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("compact queue: rows affected: %w", err)
	}
	return int(rows), nil
}

// Load validates persisted state at startup and returns the number of
// pending events. Rows whose payload or timestamp no longer decode are
// dropped with a warning instead of failing startup.
func (r *QueueRepo) Load(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Reader.QueryContext(ctx, `SELECT id, payload, created_at, synced, sync_error FROM offline_queue ORDER BY seq`)
	if err != nil {
		return 0, fmt.Errorf("load queue: %w", err)
	}

	var pending int
	var corrupt []string
	for rows.Next() {
		raw, err := scanRawEvent(rows)
		if err != nil {
			iterErr := rows.Err()
			_ = rows.Close()
			if iterErr != nil {
				return 0, fmt.Errorf("load queue: %w", iterErr)
			}
			return 0, fmt.Errorf("load queue: %w", err)
		}
		event, err := raw.decode()
		if err != nil {
			slog.Warn("dropping corrupt offline queue entry", "id", raw.id, "error", err)
			corrupt = append(corrupt, raw.id)
			continue
		}
		if !event.Synced {
			pending++
		}
	}
	iterErr := rows.Err()
	_ = rows.Close()
	if iterErr != nil {
		return 0, fmt.Errorf("load queue: %w", iterErr)
	}

	for _, id := range corrupt {
		if _, err := r.db.Writer.ExecContext(ctx, `DELETE FROM offline_queue WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("load queue: drop corrupt entry %s: %w", id, err)
		}
	}

	return pending, nil
}

// rawEvent holds one offline_queue row before payload and timestamp decoding,
// so corrupt rows can still be identified by id.
type rawEvent struct {
	id        string
	payload   string
	createdAt string
	synced    bool
	syncErr   sql.NullString
}

func scanRawEvent(rows *sql.Rows) (rawEvent, error) {
	var raw rawEvent
	if err := rows.Scan(&raw.id, &raw.payload, &raw.createdAt, &raw.synced, &raw.syncErr); err != nil {
		return rawEvent{}, fmt.Errorf("scan queue event: %w", err)
	}
	return raw, nil
}

func (raw rawEvent) decode() (model.QueuedEvent, error) {
	event := model.QueuedEvent{
		ID:        raw.id,
		Synced:    raw.synced,
		SyncError: raw.syncErr.String,
	}

	if err := json.Unmarshal([]byte(raw.payload), &event.Payload); err != nil {
		return model.QueuedEvent{}, fmt.Errorf("decode payload for %s: %w", raw.id, err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, raw.createdAt)
	if err != nil {
		return model.QueuedEvent{}, fmt.Errorf("parse created_at for %s: %w", raw.id, err)
	}
	event.CreatedAt = parsed

	return event, nil
}
