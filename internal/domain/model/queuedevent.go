package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueuedEvent is one not-yet-delivered attendance submission in the offline
// queue. ID is generated client-side and stable for the event's lifetime; it
// is distinct from the integrity token computed over Payload at drain time.
// Synced transitions false to true exactly once and never reverts.
type QueuedEvent struct {
	ID        string
	Payload   OfflineAttendance
	CreatedAt time.Time
	Synced    bool
	SyncError string
}

// NewEventID returns a queue event identifier: millisecond timestamp plus a
// random suffix. The timestamp prefix keeps IDs roughly sortable in logs;
// ordering guarantees come from the store, not from the ID.
func NewEventID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// SyncReport summarises one drain pass over the offline queue.
type SyncReport struct {
	SyncedCount int `json:"synced_count"`
	FailedCount int `json:"failed_count"`
}
