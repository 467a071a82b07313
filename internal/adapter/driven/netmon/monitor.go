// Package netmon implements the ConnectivityMonitor port by probing the
// backend on an interval. Any HTTP response, including an error status,
// counts as online; only a transport-level failure counts as offline.
package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fieldclock/fieldclock/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConnectivityMonitor = (*Monitor)(nil)

const probeTimeout = 3 * time.Second

// Monitor probes a URL on a fixed interval and publishes edge-triggered
// online/offline transitions.
type Monitor struct {
	probeURL string
	interval time.Duration
	client   *http.Client

	mu     sync.Mutex
	online bool
	known  bool // False until the first probe completes.

	transitions chan bool
}

// New creates a Monitor that probes probeURL every interval.
func New(probeURL string, interval time.Duration) *Monitor {
	return &Monitor{
		probeURL:    probeURL,
		interval:    interval,
		client:      &http.Client{Timeout: probeTimeout},
		transitions: make(chan bool, 1),
	}
}

// NewWithClient creates a Monitor with a custom http.Client, for testing.
func NewWithClient(client *http.Client, probeURL string, interval time.Duration) *Monitor {
	return &Monitor{
		probeURL:    probeURL,
		interval:    interval,
		client:      client,
		transitions: make(chan bool, 1),
	}
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Transitions delivers edge-triggered state changes. The channel is buffered
// by one: an unread transition is superseded by the next edge rather than
// blocking the probe loop.
func (m *Monitor) Transitions() <-chan bool {
	return m.transitions
}

// Start runs the probe loop until the context is canceled. The first probe
// fires immediately and establishes the initial state without emitting a
// transition.
func (m *Monitor) Start(ctx context.Context) {
	m.observe(m.probe(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("connectivity monitor stopped")
			return
		case <-ticker.C:
			m.observe(m.probe(ctx))
		}
	}
}

// probe performs one connectivity check.
func (m *Monitor) probe(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// observe folds one probe result into the state and emits an edge when the
// state changed.
func (m *Monitor) observe(online bool) {
	m.mu.Lock()
	changed := m.known && online != m.online
	first := !m.known
	m.online = online
	m.known = true
	m.mu.Unlock()

	if first {
		slog.Info("connectivity established", "online", online)
		return
	}
	if !changed {
		return
	}

	slog.Info("connectivity changed", "online", online)

	// Drop a stale unread edge so the latest state wins.
	select {
	case <-m.transitions:
	default:
	}
	select {
	case m.transitions <- online:
	default:
	}
}
