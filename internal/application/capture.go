package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// CaptureService submits attendance events from the capture UI through the
// request gateway, falling back to the offline queue when the backend is
// unreachable.
type CaptureService struct {
	api      driven.AttendanceAPI
	queue    driven.QueueStore
	deviceID string
}

// NewCaptureService creates a CaptureService. deviceID, when non-empty, is
// stamped on payloads that do not carry one.
func NewCaptureService(api driven.AttendanceAPI, queue driven.QueueStore, deviceID string) *CaptureService {
	return &CaptureService{api: api, queue: queue, deviceID: deviceID}
}

// ClockInResult is the outcome of a clock-in attempt: exactly one of Record
// (delivered) or Queued (stored offline) is set.
type ClockInResult struct {
	Record *model.AttendanceRecord
	Queued *model.QueuedEvent
}

// ClockIn submits a clock-in. An unreachable backend converts the submission
// into an offline payload and enqueues it; every other failure (validation,
// authentication, queue full) is surfaced to the caller untouched.
func (s *CaptureService) ClockIn(ctx context.Context, req model.ClockInRequest) (ClockInResult, error) {
	if req.ClientTimestamp.IsZero() {
		req.ClientTimestamp = time.Now().UTC()
	}
	if req.DeviceID == "" {
		req.DeviceID = s.deviceID
	}

	record, err := s.api.ClockIn(ctx, req)
	if err == nil {
		return ClockInResult{Record: record}, nil
	}
	if !errors.Is(err, driven.ErrUnreachable) {
		return ClockInResult{}, err
	}

	event, qErr := s.queue.Enqueue(ctx, req.Offline())
	if qErr != nil {
		return ClockInResult{}, qErr
	}

	slog.Info("clock-in queued offline", "event_id", event.ID, "shift_id", req.ShiftID)
	return ClockInResult{Queued: &event}, nil
}

// ClockOut submits a clock-out. Clock-outs reference a server-side record
// and have no offline representation, so an unreachable backend is surfaced
// to the caller rather than queued.
func (s *CaptureService) ClockOut(ctx context.Context, req model.ClockOutRequest) (*model.AttendanceRecord, error) {
	if req.ClientTimestamp.IsZero() {
		req.ClientTimestamp = time.Now().UTC()
	}
	return s.api.ClockOut(ctx, req)
}
