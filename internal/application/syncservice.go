package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
	"github.com/fieldclock/fieldclock/internal/integrity"
)

// ErrSyncInProgress is returned by Drain when another drain is already
// running. Drains never overlap; the caller can simply try again later.
var ErrSyncInProgress = errors.New("a sync is already in progress")

// SyncService decides when to drain the offline queue and performs the
// drain: periodic timer while online, immediately on an offline-to-online
// transition with pending events, and on explicit request.
type SyncService struct {
	api      driven.AttendanceAPI
	queue    driven.QueueStore
	monitor  driven.ConnectivityMonitor
	interval time.Duration

	drainMu sync.Mutex // Held for the duration of one drain.

	mu         sync.Mutex
	lastReport model.SyncReport
	lastSyncAt time.Time
}

// NewSyncService creates a SyncService draining every interval while online.
func NewSyncService(api driven.AttendanceAPI, queue driven.QueueStore, monitor driven.ConnectivityMonitor, interval time.Duration) *SyncService {
	return &SyncService{
		api:      api,
		queue:    queue,
		monitor:  monitor,
		interval: interval,
	}
}

// Start runs the drain scheduler until the context is canceled. An immediate
// drain runs first when the backend is reachable and events are pending.
func (s *SyncService) Start(ctx context.Context) {
	if s.monitor.Online() {
		s.drainIfPending(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sync service stopped")
			return
		case <-ticker.C:
			if s.monitor.Online() {
				s.drainIfPending(ctx)
			}
		case online := <-s.monitor.Transitions():
			if online {
				slog.Info("connectivity regained, draining offline queue")
				s.drainIfPending(ctx)
			}
		}
	}
}

// drainIfPending runs a drain when at least one event is pending. Overlap
// with a concurrent explicit Drain is not an error here.
func (s *SyncService) drainIfPending(ctx context.Context) {
	pending, err := s.queue.Pending(ctx)
	if err != nil {
		slog.Error("failed to read pending events", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	if _, err := s.Drain(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
		slog.Error("drain failed", "error", err)
	}
}

// Drain attempts delivery of every pending event in insertion order, oldest
// first. One event's failure is recorded and does not block the rest. A
// drain that synced at least one event compacts the queue afterwards.
// Single-flight: a Drain invoked while another runs returns
// ErrSyncInProgress without touching the queue.
func (s *SyncService) Drain(ctx context.Context) (model.SyncReport, error) {
	if !s.drainMu.TryLock() {
		return model.SyncReport{}, ErrSyncInProgress
	}
	defer s.drainMu.Unlock()

	start := time.Now()

	events, err := s.queue.Pending(ctx)
	if err != nil {
		return model.SyncReport{}, err
	}

	var report model.SyncReport
	for _, event := range events {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		if err := s.deliver(ctx, event); err != nil {
			report.FailedCount++
			if recErr := s.queue.RecordError(ctx, event.ID, err.Error()); recErr != nil {
				slog.Error("failed to record sync error", "event_id", event.ID, "error", recErr)
			}
			slog.Warn("offline event delivery failed", "event_id", event.ID, "error", err)
			continue
		}

		if err := s.queue.MarkSynced(ctx, event.ID); err != nil {
			slog.Error("failed to mark event synced", "event_id", event.ID, "error", err)
		}
		report.SyncedCount++
	}

	if report.SyncedCount > 0 {
		removed, err := s.queue.Compact(ctx)
		if err != nil {
			slog.Error("compaction after drain failed", "error", err)
		} else {
			slog.Debug("queue compacted", "removed", removed)
		}
	}

	s.mu.Lock()
	s.lastReport = report
	s.lastSyncAt = time.Now().UTC()
	s.mu.Unlock()

	slog.Info("drain complete",
		"synced", report.SyncedCount,
		"failed", report.FailedCount,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return report, nil
}

// deliver pushes one event through the gateway with its integrity token.
func (s *SyncService) deliver(ctx context.Context, event model.QueuedEvent) error {
	token, err := integrity.Token(event.Payload)
	if err != nil {
		return err
	}

	_, err = s.api.SyncOffline(ctx, event.Payload, token)
	return err
}

// Compact removes synced events from the queue on explicit request.
func (s *SyncService) Compact(ctx context.Context) (int, error) {
	return s.queue.Compact(ctx)
}

// LastReport returns the most recent drain outcome, and whether a drain has
// completed at all.
func (s *SyncService) LastReport() (model.SyncReport, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReport, s.lastSyncAt, !s.lastSyncAt.IsZero()
}
