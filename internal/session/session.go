// Package session tracks per-user dashboard state: the selected location, the
// latest snapshot, and which tornado warnings have already been surfaced.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

// State is a dashboard session's lifecycle state.
type State int

const (
	Idle State = iota
	LoadingSnapshot
	SnapshotReady
	SnapshotFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingSnapshot:
		return "loading"
	case SnapshotReady:
		return "ready"
	case SnapshotFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Fetcher builds a snapshot for a coordinate.
type Fetcher func(ctx context.Context, c domain.Coordinate) (domain.WeatherSnapshot, error)

// Update is the result of a completed snapshot request.
type Update struct {
	State                 State                   `json:"state"`
	Location              domain.ResolvedLocation `json:"location"`
	Snapshot              *domain.WeatherSnapshot `json:"snapshot,omitempty"`
	Classified            domain.ClassifiedAlerts `json:"classified"`
	SurfaceTornadoWarning bool                    `json:"surfaceTornadoWarning"`
	Stale                 bool                    `json:"stale"`
	Err                   error                   `json:"-"`
}

// Session holds one user's dashboard state. Only the most recent request's
// result is applied; results of superseded requests are discarded.
type Session struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	state    State
	seq      uint64
	location domain.ResolvedLocation
	snapshot *domain.WeatherSnapshot
	readyAt  time.Time
	stale    bool
	lastErr  error
	surfaced []string // sorted tornado warning IDs last surfaced
}

// New creates an idle session.
func New(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Session {
	return &Session{clock: clock, logger: logger, metrics: metrics}
}

// Begin starts a snapshot request for loc and returns its sequence number.
// The session's location is replaced wholesale.
func (s *Session) Begin(loc domain.ResolvedLocation) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.state = LoadingSnapshot
	s.location = loc
	return s.seq
}

// Complete applies the result of request seq. It returns false and leaves the
// session untouched when a newer request has begun since.
func (s *Session) Complete(seq uint64, snap domain.WeatherSnapshot, err error) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		s.metrics.StaleResponses.Inc()
		s.logger.Debug("discarding superseded snapshot", "seq", seq, "current_seq", s.seq)
		return Update{}, false
	}

	if err != nil {
		s.state = SnapshotFailed
		s.lastErr = err
		return s.updateLocked(false), true
	}

	s.state = SnapshotReady
	s.snapshot = &snap
	s.readyAt = s.clock.Now()
	s.stale = false
	s.lastErr = nil

	ids := domain.TornadoWarningIDs(snap.Alerts)
	surface := len(ids) > 0 && !slices.Equal(ids, s.surfaced)
	s.surfaced = ids
	if surface {
		s.metrics.TornadoSurfaced.Inc()
		s.logger.Info("tornado warning surfaced", "location", s.location.DisplayName, "alert_ids", ids)
	}
	return s.updateLocked(surface), true
}

// Refresh runs one complete request for loc with fetch. The boolean is false
// when a newer request superseded this one.
func (s *Session) Refresh(ctx context.Context, loc domain.ResolvedLocation, fetch Fetcher) (Update, bool) {
	seq := s.Begin(loc)
	snap, err := fetch(ctx, loc.Coordinate)
	return s.Complete(seq, snap, err)
}

// View returns the current state without surfacing anything.
func (s *Session) View() Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(false)
}

// CheckStale marks the session stale when its ready snapshot is older than
// maxAge and reports whether it just became stale.
func (s *Session) CheckStale(maxAge time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SnapshotReady || s.stale {
		return false
	}
	if s.clock.Since(s.readyAt) <= maxAge {
		return false
	}
	s.stale = true
	return true
}

func (s *Session) updateLocked(surface bool) Update {
	u := Update{
		State:                 s.state,
		Location:              s.location,
		SurfaceTornadoWarning: surface,
		Stale:                 s.stale,
		Err:                   s.lastErr,
	}
	if s.state == SnapshotReady && s.snapshot != nil {
		snap := *s.snapshot
		u.Snapshot = &snap
		u.Classified = domain.Classify(snap.Alerts)
	} else {
		u.Classified = domain.Classify(nil)
	}
	return u
}
