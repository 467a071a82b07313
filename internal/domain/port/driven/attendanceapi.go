// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"
	"fmt"

	"github.com/fieldclock/fieldclock/internal/domain/model"
)

// Sentinel errors returned by AttendanceAPI implementations.
var (
	// ErrUnreachable indicates the backend could not be reached at all:
	// transport failure or timeout, with no HTTP response. Callers use it to
	// decide whether an attendance submission should be queued offline.
	ErrUnreachable = errors.New("backend unreachable")

	// ErrAuthRequired indicates the session is invalid and a new login is
	// needed: either a request was rejected twice, or the refresh exchange
	// itself failed. Never retried locally.
	ErrAuthRequired = errors.New("authentication required")
)

// ValidationError carries a backend rejection of a payload (failed geofence,
// liveness, duplicate offline record, ...). It is surfaced to the user
// unmodified and never queued or retried.
type ValidationError struct {
	Code   int
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("backend rejected payload (%d): %s", e.Code, e.Detail)
}

// AttendanceAPI is the driven port for the tenant-scoped attendance backend.
// Every method classifies failures into ErrUnreachable, ErrAuthRequired, or
// *ValidationError; anything else is an unexpected protocol error.
type AttendanceAPI interface {
	// Login exchanges credentials for a token pair and the user profile.
	Login(ctx context.Context, email, password string) (model.TokenPair, *model.User, error)

	// Logout asks the backend to blacklist the refresh token. Best-effort;
	// callers ignore the error beyond logging.
	Logout(ctx context.Context, refreshToken string) error

	ClockIn(ctx context.Context, req model.ClockInRequest) (*model.AttendanceRecord, error)
	ClockOut(ctx context.Context, req model.ClockOutRequest) (*model.AttendanceRecord, error)

	// SyncOffline delivers one queued offline submission together with its
	// integrity token so the backend can deduplicate redelivery.
	SyncOffline(ctx context.Context, payload model.OfflineAttendance, integrityToken string) (*model.AttendanceRecord, error)

	// FetchRecords lists the employee's attendance records for the history
	// screen. Responses are cacheable.
	FetchRecords(ctx context.Context) ([]model.AttendanceRecord, error)
}
