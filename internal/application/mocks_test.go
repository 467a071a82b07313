package application_test

import (
	"context"
	"sync"

	"github.com/fieldclock/fieldclock/internal/domain/model"
	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// --- Mock backend API ---

type syncCall struct {
	Payload model.OfflineAttendance
	Token   string
}

// mockAPI scripts per-method behavior and records calls.
type mockAPI struct {
	mu sync.Mutex

	loginFn    func(email, password string) (model.TokenPair, *model.User, error)
	refreshFn  func(refreshToken string) (model.TokenPair, error)
	clockInFn  func(req model.ClockInRequest) (*model.AttendanceRecord, error)
	clockOutFn func(req model.ClockOutRequest) (*model.AttendanceRecord, error)
	syncFn     func(payload model.OfflineAttendance, token string) (*model.AttendanceRecord, error)

	refreshCalls int
	logoutCalls  []string
	syncCalls    []syncCall
}

var (
	_ driven.AttendanceAPI  = (*mockAPI)(nil)
	_ driven.TokenRefresher = (*mockAPI)(nil)
)

func (m *mockAPI) Login(_ context.Context, email, password string) (model.TokenPair, *model.User, error) {
	return m.loginFn(email, password)
}

func (m *mockAPI) Logout(_ context.Context, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logoutCalls = append(m.logoutCalls, refreshToken)
	return nil
}

func (m *mockAPI) RefreshSession(_ context.Context, refreshToken string) (model.TokenPair, error) {
	m.mu.Lock()
	m.refreshCalls++
	m.mu.Unlock()
	return m.refreshFn(refreshToken)
}

func (m *mockAPI) ClockIn(_ context.Context, req model.ClockInRequest) (*model.AttendanceRecord, error) {
	return m.clockInFn(req)
}

func (m *mockAPI) ClockOut(_ context.Context, req model.ClockOutRequest) (*model.AttendanceRecord, error) {
	return m.clockOutFn(req)
}

func (m *mockAPI) SyncOffline(_ context.Context, payload model.OfflineAttendance, token string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	m.syncCalls = append(m.syncCalls, syncCall{Payload: payload, Token: token})
	m.mu.Unlock()
	return m.syncFn(payload, token)
}

func (m *mockAPI) FetchRecords(_ context.Context) ([]model.AttendanceRecord, error) {
	return []model.AttendanceRecord{}, nil
}

func (m *mockAPI) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls
}

func (m *mockAPI) recordedSyncCalls() []syncCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]syncCall(nil), m.syncCalls...)
}

// --- In-memory credential store ---

type memCredStore struct {
	mu     sync.Mutex
	values map[string]string
	noKey  bool
}

var _ driven.CredentialStore = (*memCredStore)(nil)

func newMemCredStore() *memCredStore {
	return &memCredStore{values: map[string]string{}}
}

func (s *memCredStore) Set(_ context.Context, key, plaintext string) error {
	if s.noKey {
		return driven.ErrEncryptionKeyNotSet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = plaintext
	return nil
}

func (s *memCredStore) Get(_ context.Context, key string) (string, error) {
	if s.noKey {
		return "", driven.ErrEncryptionKeyNotSet
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *memCredStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memCredStore) get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// --- In-memory queue store ---

type memQueueStore struct {
	mu      sync.Mutex
	events  []model.QueuedEvent
	maxSize int
}

var _ driven.QueueStore = (*memQueueStore)(nil)

func newMemQueueStore(maxSize int) *memQueueStore {
	return &memQueueStore{maxSize: maxSize}
}

func (s *memQueueStore) Enqueue(_ context.Context, payload model.OfflineAttendance) (model.QueuedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) >= s.maxSize {
		return model.QueuedEvent{}, driven.ErrQueueFull
	}
	event := model.QueuedEvent{ID: model.NewEventID(), Payload: payload}
	s.events = append(s.events, event)
	return event, nil
}

func (s *memQueueStore) Pending(_ context.Context) ([]model.QueuedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := []model.QueuedEvent{}
	for _, e := range s.events {
		if !e.Synced {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

func (s *memQueueStore) All(_ context.Context) ([]model.QueuedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.QueuedEvent(nil), s.events...), nil
}

func (s *memQueueStore) MarkSynced(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Synced = true
			s.events[i].SyncError = ""
			return nil
		}
	}
	return driven.ErrEventNotFound
}

func (s *memQueueStore) RecordError(_ context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			if !s.events[i].Synced {
				s.events[i].SyncError = message
			}
			return nil
		}
	}
	return driven.ErrEventNotFound
}

func (s *memQueueStore) Compact(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0]
	removed := 0
	for _, e := range s.events {
		if e.Synced {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

func (s *memQueueStore) Load(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := 0
	for _, e := range s.events {
		if !e.Synced {
			pending++
		}
	}
	return pending, nil
}

func (s *memQueueStore) snapshot() []model.QueuedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.QueuedEvent(nil), s.events...)
}

// --- Mock connectivity monitor ---

type mockMonitor struct {
	mu          sync.Mutex
	online      bool
	transitions chan bool
}

var _ driven.ConnectivityMonitor = (*mockMonitor)(nil)

func newMockMonitor(online bool) *mockMonitor {
	return &mockMonitor{online: online, transitions: make(chan bool, 1)}
}

func (m *mockMonitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *mockMonitor) Transitions() <-chan bool {
	return m.transitions
}

func (m *mockMonitor) setOnline(online bool) {
	m.mu.Lock()
	m.online = online
	m.mu.Unlock()
	m.transitions <- online
}
