package application_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldclock/fieldclock/internal/application"
	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

func testClockIn() model.ClockInRequest {
	return model.ClockInRequest{
		ShiftID:         "shift-42",
		Selfie:          "ZmFrZS1zZWxmaWU=",
		Latitude:        -6.2001,
		Longitude:       106.8166,
		GPSAccuracy:     8.5,
		WifiSSID:        "site-ap",
		ClientTimestamp: time.Date(2026, 3, 14, 7, 55, 0, 0, time.UTC),
		LivenessPassed:  true,
	}
}

func TestCaptureClockInOnline(t *testing.T) {
	api := &mockAPI{
		clockInFn: func(req model.ClockInRequest) (*model.AttendanceRecord, error) {
			assert.Equal(t, "shift-42", req.ShiftID)
			assert.Equal(t, "device-1", req.DeviceID, "device id must be stamped on")
			return &model.AttendanceRecord{ID: "rec-7", Status: "present"}, nil
		},
	}
	queue := newMemQueueStore(50)
	svc := application.NewCaptureService(api, queue, "device-1")

	result, err := svc.ClockIn(context.Background(), testClockIn())
	require.NoError(t, err)

	require.NotNil(t, result.Record)
	assert.Nil(t, result.Queued)
	assert.Equal(t, "rec-7", result.Record.ID)
	assert.Empty(t, queue.snapshot(), "online success must not touch the queue")
}

func TestCaptureClockInUnreachableQueues(t *testing.T) {
	api := &mockAPI{
		clockInFn: func(model.ClockInRequest) (*model.AttendanceRecord, error) {
			return nil, fmt.Errorf("post clock-in: %w", driven.ErrUnreachable)
		},
	}
	queue := newMemQueueStore(50)
	svc := application.NewCaptureService(api, queue, "device-1")

	result, err := svc.ClockIn(context.Background(), testClockIn())
	require.NoError(t, err)

	require.NotNil(t, result.Queued)
	assert.Nil(t, result.Record)
	assert.Equal(t, "2026-03-14", result.Queued.Payload.Date)
	assert.Equal(t, "shift-42", result.Queued.Payload.ShiftID)

	events := queue.snapshot()
	require.Len(t, events, 1)
	assert.False(t, events[0].Synced)
}

func TestCaptureClockInQueueFullSurfaced(t *testing.T) {
	api := &mockAPI{
		clockInFn: func(model.ClockInRequest) (*model.AttendanceRecord, error) {
			return nil, driven.ErrUnreachable
		},
	}
	queue := newMemQueueStore(1)
	svc := application.NewCaptureService(api, queue, "device-1")
	ctx := context.Background()

	_, err := svc.ClockIn(ctx, testClockIn())
	require.NoError(t, err)

	_, err = svc.ClockIn(ctx, testClockIn())
	require.ErrorIs(t, err, driven.ErrQueueFull)
	assert.Len(t, queue.snapshot(), 1, "a full queue must not accept the event")
}

func TestCaptureClockInValidationNotQueued(t *testing.T) {
	api := &mockAPI{
		clockInFn: func(model.ClockInRequest) (*model.AttendanceRecord, error) {
			return nil, &driven.ValidationError{Code: 422, Detail: "you are 412m from the site"}
		},
	}
	queue := newMemQueueStore(50)
	svc := application.NewCaptureService(api, queue, "device-1")

	_, err := svc.ClockIn(context.Background(), testClockIn())

	var vErr *driven.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 422, vErr.Code)
	assert.Empty(t, queue.snapshot(), "a backend rejection must never be queued")
}

func TestCaptureClockInAuthErrorNotQueued(t *testing.T) {
	api := &mockAPI{
		clockInFn: func(model.ClockInRequest) (*model.AttendanceRecord, error) {
			return nil, driven.ErrAuthRequired
		},
	}
	queue := newMemQueueStore(50)
	svc := application.NewCaptureService(api, queue, "device-1")

	_, err := svc.ClockIn(context.Background(), testClockIn())
	require.ErrorIs(t, err, driven.ErrAuthRequired)
	assert.Empty(t, queue.snapshot())
}

func TestCaptureClockOutNoOfflineFallback(t *testing.T) {
	api := &mockAPI{
		clockOutFn: func(req model.ClockOutRequest) (*model.AttendanceRecord, error) {
			return nil, driven.ErrUnreachable
		},
	}
	queue := newMemQueueStore(50)
	svc := application.NewCaptureService(api, queue, "device-1")

	_, err := svc.ClockOut(context.Background(), model.ClockOutRequest{RecordID: "rec-7"})
	require.ErrorIs(t, err, driven.ErrUnreachable)
	assert.Empty(t, queue.snapshot(), "clock-outs are never queued")
}

func TestCaptureClockOutOnline(t *testing.T) {
	api := &mockAPI{
		clockOutFn: func(req model.ClockOutRequest) (*model.AttendanceRecord, error) {
			assert.Equal(t, "rec-7", req.RecordID)
			assert.False(t, req.ClientTimestamp.IsZero(), "timestamp must be defaulted")
			return &model.AttendanceRecord{ID: "rec-7"}, nil
		},
	}
	svc := application.NewCaptureService(api, newMemQueueStore(50), "device-1")

	record, err := svc.ClockOut(context.Background(), model.ClockOutRequest{RecordID: "rec-7"})
	require.NoError(t, err)
	assert.Equal(t, "rec-7", record.ID)
}
