// Package httphandler is the HTTP driving adapter serving the loopback REST
// API consumed by the capture UI.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fieldclock/fieldclock/internal/application"
	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// Limits carries the policy constants the capture UI needs to render queue
// state without asking the backend.
type Limits struct {
	MaxQueueSize       int
	MaxOfflinePerShift int
}

// Handler is the HTTP driving adapter. It never talks to the backend
// directly; everything goes through the application services so the offline
// fallback and token handling stay in one place.
type Handler struct {
	sessions *application.SessionService
	capture  *application.CaptureService
	sync     *application.SyncService
	queue    driven.QueueStore
	api      driven.AttendanceAPI
	monitor  driven.ConnectivityMonitor
	limits   Limits
	logger   *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	sessions *application.SessionService,
	capture *application.CaptureService,
	sync *application.SyncService,
	queue driven.QueueStore,
	api driven.AttendanceAPI,
	monitor driven.ConnectivityMonitor,
	limits Limits,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		sessions: sessions,
		capture:  capture,
		sync:     sync,
		queue:    queue,
		api:      api,
		monitor:  monitor,
		limits:   limits,
		logger:   logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/login", h.Login)
	mux.HandleFunc("POST /api/v1/logout", h.Logout)
	mux.HandleFunc("POST /api/v1/clock-in", h.ClockIn)
	mux.HandleFunc("POST /api/v1/clock-out", h.ClockOut)
	mux.HandleFunc("POST /api/v1/sync", h.Sync)
	mux.HandleFunc("GET /api/v1/queue", h.ListQueue)
	mux.HandleFunc("POST /api/v1/queue/compact", h.CompactQueue)
	mux.HandleFunc("GET /api/v1/records", h.ListRecords)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Login authenticates against the backend and installs the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeBackendError(w, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout blacklists the refresh token (best-effort) and clears the session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ClockIn submits a clock-in. A delivered submission returns 201 with the
// backend record; one queued because the backend was unreachable returns 202
// with the queue event id.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req model.ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ShiftID == "" || req.Selfie == "" {
		writeError(w, http.StatusBadRequest, "shift_id and selfie are required")
		return
	}

	result, err := h.capture.ClockIn(r.Context(), req)
	if err != nil {
		if errors.Is(err, driven.ErrQueueFull) {
			writeError(w, http.StatusInsufficientStorage, "offline queue is full")
			return
		}
		h.writeBackendError(w, "clock-in failed", err)
		return
	}

	if result.Queued != nil {
		writeJSON(w, http.StatusAccepted, ClockInResponse{
			Outcome: "queued",
			EventID: result.Queued.ID,
		})
		return
	}

	writeJSON(w, http.StatusCreated, ClockInResponse{
		Outcome: "recorded",
		Record:  result.Record,
	})
}

// ClockOut submits a clock-out. There is no offline fallback; an unreachable
// backend is reported to the caller.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req model.ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RecordID == "" {
		writeError(w, http.StatusBadRequest, "record_id is required")
		return
	}

	record, err := h.capture.ClockOut(r.Context(), req)
	if err != nil {
		h.writeBackendError(w, "clock-out failed", err)
		return
	}

	writeJSON(w, http.StatusOK, record)
}

// Sync triggers an immediate drain of the offline queue.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	report, err := h.sync.Drain(r.Context())
	if err != nil {
		if errors.Is(err, application.ErrSyncInProgress) {
			writeError(w, http.StatusConflict, "a sync is already in progress")
			return
		}
		h.logger.Error("manual sync failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ListQueue returns every event in the offline queue, synced or not.
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	events, err := h.queue.All(r.Context())
	if err != nil {
		h.logger.Error("failed to list queue", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]QueuedEventResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, toQueuedEventResponse(event))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CompactQueue removes synced events on explicit request.
func (h *Handler) CompactQueue(w http.ResponseWriter, r *http.Request) {
	removed, err := h.sync.Compact(r.Context())
	if err != nil {
		h.logger.Error("compaction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, CompactResponse{Removed: removed})
}

// ListRecords proxies the backend attendance history for the history screen.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.api.FetchRecords(r.Context())
	if err != nil {
		h.writeBackendError(w, "failed to fetch records", err)
		return
	}

	if records == nil {
		records = []model.AttendanceRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Status reports connectivity, session, and queue state in one call so the
// capture UI can render its header from a single poll.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	pending, err := h.queue.Pending(r.Context())
	if err != nil {
		h.logger.Error("failed to read pending events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := StatusResponse{
		Online:             h.monitor.Online(),
		HasSession:         h.sessions.HasSession(),
		SessionState:       string(h.sessions.SessionState()),
		PendingCount:       len(pending),
		MaxQueueSize:       h.limits.MaxQueueSize,
		MaxOfflinePerShift: h.limits.MaxOfflinePerShift,
	}

	if report, at, ok := h.sync.LastReport(); ok {
		resp.LastSync = &LastSyncResponse{
			Report: report,
			At:     at,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// writeBackendError maps the gateway error taxonomy onto loopback HTTP
// statuses: auth failures ask the UI to re-login, backend rejections keep
// their code and detail, and an unreachable backend is 503.
func (h *Handler) writeBackendError(w http.ResponseWriter, msg string, err error) {
	var vErr *driven.ValidationError
	switch {
	case errors.Is(err, driven.ErrAuthRequired):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.As(err, &vErr):
		status := vErr.Code
		if status < 400 || status > 599 {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, vErr.Detail)
	case errors.Is(err, driven.ErrUnreachable):
		writeError(w, http.StatusServiceUnavailable, "backend unreachable")
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusBadGateway, "unexpected backend response")
	}
}
