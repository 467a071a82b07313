package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fieldclock/fieldclock/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the JSON representation of the logged-in user.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// ClockInResponse is the outcome of a clock-in attempt. Outcome is "recorded"
// when the backend accepted the submission and "queued" when it was stored
// offline; Record and EventID are set accordingly.
type ClockInResponse struct {
	Outcome string                  `json:"outcome"`
	Record  *model.AttendanceRecord `json:"record,omitempty"`
	EventID string                  `json:"event_id,omitempty"`
}

// QueuedEventResponse is the JSON representation of one offline queue event.
type QueuedEventResponse struct {
	ID        string `json:"id"`
	ShiftID   string `json:"shift_id"`
	Date      string `json:"date"`
	CreatedAt string `json:"created_at"`
	Synced    bool   `json:"synced"`
	SyncError string `json:"sync_error,omitempty"`
}

// CompactResponse reports how many synced events a compaction removed.
type CompactResponse struct {
	Removed int `json:"removed"`
}

// LastSyncResponse is the most recent drain outcome.
type LastSyncResponse struct {
	Report model.SyncReport `json:"report"`
	At     time.Time        `json:"at"`
}

// StatusResponse is the one-call state summary for the capture UI header.
type StatusResponse struct {
	Online             bool              `json:"online"`
	HasSession         bool              `json:"has_session"`
	SessionState       string            `json:"session_state"`
	PendingCount       int               `json:"pending_count"`
	MaxQueueSize       int               `json:"max_queue_size"`
	MaxOfflinePerShift int               `json:"max_offline_per_shift"`
	LastSync           *LastSyncResponse `json:"last_sync,omitempty"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// toUserResponse converts a domain User to its JSON response representation.
func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// toQueuedEventResponse converts a queue event to its JSON representation.
// The payload selfie is deliberately not exposed; the UI only needs metadata.
func toQueuedEventResponse(e model.QueuedEvent) QueuedEventResponse {
	return QueuedEventResponse{
		ID:        e.ID,
		ShiftID:   e.Payload.ShiftID,
		Date:      e.Payload.Date,
		CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		Synced:    e.Synced,
		SyncError: e.SyncError,
	}
}
