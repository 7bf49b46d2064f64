package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

// Manager owns one Session per user and runs the periodic staleness check.
type Manager struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty Manager.
func NewManager(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for userID, creating it on first use.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = New(m.clock, m.logger.With("user_id", userID), m.metrics)
		m.sessions[userID] = s
	}
	return s
}

// Lookup returns the existing session for userID without creating one.
func (m *Manager) Lookup(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Forget drops the session for userID, e.g. on sign-out.
func (m *Manager) Forget(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// RunStalenessCheck checks every session each interval and marks ready
// snapshots older than maxAge as stale. It returns when ctx is cancelled.
func (m *Manager) RunStalenessCheck(ctx context.Context, interval, maxAge time.Duration) {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.checkAll(maxAge)
		}
	}
}

func (m *Manager) checkAll(maxAge time.Duration) {
	m.mu.Lock()
	sessions := make(map[string]*Session, len(m.sessions))
	for id, s := range m.sessions {
		sessions[id] = s
	}
	m.mu.Unlock()

	for id, s := range sessions {
		if s.CheckStale(maxAge) {
			m.metrics.SnapshotStaleness.Inc()
			m.logger.Info("snapshot stale", "user_id", id, "max_age", maxAge)
		}
	}
}
