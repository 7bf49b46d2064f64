// Package monitor periodically checks watched locations for notifiable
// alerts and e-mails them through the notification dispatcher.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-dashboard-service/internal/config"
	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 4
)

// SnapshotFetcher builds a weather snapshot for a point.
type SnapshotFetcher interface {
	GetSnapshot(ctx context.Context, c domain.Coordinate) (domain.WeatherSnapshot, error)
}

// AlertNotifier dispatches the notifiable alerts of one scope.
type AlertNotifier interface {
	Notify(ctx context.Context, scope, recipient string, alerts []domain.AlertRecord) int
}

// QueueFlusher re-publishes notifications queued while the broker was down.
type QueueFlusher interface {
	FlushPending(ctx context.Context) (int, error)
}

// Monitor runs the watchlist loop.
type Monitor struct {
	locations []config.WatchLocation
	snapshots SnapshotFetcher
	notifier  AlertNotifier
	flusher   QueueFlusher
	clock     clockwork.Clock
	interval  time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Monitor over locations that runs a cycle every interval.
func New(
	locations []config.WatchLocation,
	snapshots SnapshotFetcher,
	notifier AlertNotifier,
	flusher QueueFlusher,
	clock clockwork.Clock,
	interval time.Duration,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Monitor {
	return &Monitor{
		locations: locations,
		snapshots: snapshots,
		notifier:  notifier,
		flusher:   flusher,
		clock:     clock,
		interval:  interval,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the monitor has completed a cycle.
func (m *Monitor) CheckReadiness(_ context.Context) error {
	if !m.ready.Load() {
		return errors.New("monitor has not completed a cycle yet")
	}
	return nil
}

// Run checks the watchlist immediately and then every interval until ctx is
// cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started", "locations", len(m.locations), "interval", m.interval)
	m.metrics.MonitorRunning.Set(1)
	defer m.metrics.MonitorRunning.Set(0)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		m.runCycle(ctx)
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
		}
	}
}

// runCycle flushes the offline queue and then checks every location.
func (m *Monitor) runCycle(ctx context.Context) {
	start := m.clock.Now()

	if flushed, err := m.flusher.FlushPending(ctx); err != nil {
		m.logger.Warn("flush pending notifications failed", "error", err, "flushed", flushed)
	} else if flushed > 0 {
		m.logger.Info("pending notifications flushed", "count", flushed)
	}

	for _, loc := range m.locations {
		if ctx.Err() != nil {
			return
		}
		m.checkLocation(ctx, loc)
	}

	m.metrics.MonitorCycleDuration.Observe(m.clock.Since(start).Seconds())
	m.ready.Store(true)
}

func (m *Monitor) checkLocation(ctx context.Context, loc config.WatchLocation) {
	snap, err := m.fetchWithRetry(ctx, loc.Coordinate())
	if err != nil {
		if ctx.Err() == nil {
			m.logger.Error("watch location check failed", "error", err, "location", loc.Name)
		}
		return
	}

	sent := m.notifier.Notify(ctx, "watch:"+loc.Name, loc.Recipient, snap.Alerts)
	m.logger.Debug("watch location checked",
		"location", loc.Name,
		"alerts", len(snap.Alerts),
		"notified", sent,
	)
}

// fetchWithRetry retries transient snapshot failures with exponential
// backoff. Other errors are returned immediately.
func (m *Monitor) fetchWithRetry(ctx context.Context, c domain.Coordinate) (domain.WeatherSnapshot, error) {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var snap domain.WeatherSnapshot
		snap, err = m.snapshots.GetSnapshot(ctx, c)
		if err == nil {
			return snap, nil
		}
		if !domain.Retryable(err) || attempt == maxAttempts {
			break
		}
		m.logger.Warn("snapshot fetch failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !m.sleep(ctx, backoff) {
			return domain.WeatherSnapshot{}, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return domain.WeatherSnapshot{}, err
}

func (m *Monitor) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := m.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
