package driven

import (
	"context"
	"errors"

	"github.com/fieldclock/fieldclock/internal/domain/model"
)

// Sentinel errors returned by QueueStore implementations.
var (
	// ErrQueueFull indicates the offline queue is at capacity. Nothing is
	// evicted and nothing is dropped; the caller decides what to do (for
	// example force an immediate sync attempt first).
	ErrQueueFull = errors.New("offline queue is full")

	// ErrEventNotFound indicates the referenced queue event does not exist.
	ErrEventNotFound = errors.New("queued event not found")
)

// QueueStore is the driven port for the bounded, persisted offline queue.
// Implementations must make every read-modify-write sequence (capacity check
// plus insert, mark-synced, compaction) atomic under concurrent callers.
type QueueStore interface {
	// Enqueue appends a new unsynced event for the payload and persists it.
	// Returns ErrQueueFull without mutating state when the queue (synced
	// entries included, until compaction removes them) is at capacity.
	Enqueue(ctx context.Context, payload model.OfflineAttendance) (model.QueuedEvent, error)

	// Pending returns unsynced events in insertion order, oldest first.
	Pending(ctx context.Context) ([]model.QueuedEvent, error)

	// All returns every queued event, synced or not, in insertion order.
	All(ctx context.Context) ([]model.QueuedEvent, error)

	// MarkSynced transitions the event to synced. The transition is
	// monotonic: marking an already-synced event is a no-op.
	MarkSynced(ctx context.Context, id string) error

	// RecordError stores the delivery error for an unsynced event. It never
	// touches synced events.
	RecordError(ctx context.Context, id, message string) error

	// Compact removes all synced events and returns how many were removed.
	// Idempotent.
	Compact(ctx context.Context) (int, error)

	// Load validates persisted state at startup and returns the number of
	// pending events. Corrupt entries are dropped, not fatal.
	Load(ctx context.Context) (int, error)
}
