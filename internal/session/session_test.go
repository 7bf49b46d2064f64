package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/observability"
)

var (
	moore  = domain.ResolvedLocation{Coordinate: domain.Coordinate{Lat: 35.34, Lon: -97.49}, DisplayName: "Moore, OK"}
	joplin = domain.ResolvedLocation{Coordinate: domain.Coordinate{Lat: 37.08, Lon: -94.51}, DisplayName: "Joplin, MO"}
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(clock clockwork.Clock) *Session {
	return New(clock, discardLogger(), observability.NewMetricsForTesting())
}

func snapshotWith(alerts ...domain.AlertRecord) domain.WeatherSnapshot {
	return domain.WeatherSnapshot{
		Location:          moore,
		CurrentConditions: domain.ForecastPeriod{Number: 1},
		Forecast:          []domain.ForecastPeriod{},
		Alerts:            alerts,
	}
}

func tornadoWarning(id string) domain.AlertRecord {
	return domain.AlertRecord{ID: id, Event: "Tornado Warning", Severity: domain.SeverityExtreme}
}

func TestSession_Transitions(t *testing.T) {
	s := newTestSession(clockwork.NewFakeClock())
	assert.Equal(t, Idle, s.View().State)

	seq := s.Begin(moore)
	assert.Equal(t, LoadingSnapshot, s.View().State)

	u, ok := s.Complete(seq, snapshotWith(), nil)
	require.True(t, ok)
	assert.Equal(t, SnapshotReady, u.State)
	require.NotNil(t, u.Snapshot)

	seq = s.Begin(moore)
	u, ok = s.Complete(seq, domain.WeatherSnapshot{}, domain.ErrTransientNetwork)
	require.True(t, ok)
	assert.Equal(t, SnapshotFailed, u.State)
	assert.ErrorIs(t, u.Err, domain.ErrTransientNetwork)
	assert.Nil(t, u.Snapshot)

	seq = s.Begin(moore)
	u, ok = s.Complete(seq, snapshotWith(), nil)
	require.True(t, ok)
	assert.Equal(t, SnapshotReady, u.State)
	assert.NoError(t, u.Err)
}

func TestSession_DiscardsSupersededResult(t *testing.T) {
	s := newTestSession(clockwork.NewFakeClock())

	first := s.Begin(moore)
	second := s.Begin(joplin)

	_, ok := s.Complete(first, snapshotWith(tornadoWarning("old")), nil)
	assert.False(t, ok)
	assert.Equal(t, LoadingSnapshot, s.View().State)

	u, ok := s.Complete(second, snapshotWith(), nil)
	require.True(t, ok)
	assert.Equal(t, joplin, u.Location)
	assert.Empty(t, u.Snapshot.Alerts)
}

func TestSession_SurfacesTornadoWarningOnChange(t *testing.T) {
	s := newTestSession(clockwork.NewFakeClock())
	refresh := func(alerts ...domain.AlertRecord) Update {
		t.Helper()
		u, ok := s.Complete(s.Begin(moore), snapshotWith(alerts...), nil)
		require.True(t, ok)
		return u
	}

	assert.True(t, refresh(tornadoWarning("a")).SurfaceTornadoWarning, "first warning surfaces")
	assert.False(t, refresh(tornadoWarning("a")).SurfaceTornadoWarning, "same warning does not re-surface")
	assert.True(t, refresh(tornadoWarning("a"), tornadoWarning("b")).SurfaceTornadoWarning, "new warning in set surfaces")
	assert.False(t, refresh(tornadoWarning("b"), tornadoWarning("a")).SurfaceTornadoWarning, "order does not matter")
	assert.False(t, refresh().SurfaceTornadoWarning, "empty set never surfaces")
	assert.True(t, refresh(tornadoWarning("a")).SurfaceTornadoWarning, "empty set resets tracking")
}

func TestSession_FailureKeepsSurfacedSet(t *testing.T) {
	s := newTestSession(clockwork.NewFakeClock())

	u, _ := s.Complete(s.Begin(moore), snapshotWith(tornadoWarning("a")), nil)
	require.True(t, u.SurfaceTornadoWarning)

	_, _ = s.Complete(s.Begin(moore), domain.WeatherSnapshot{}, errors.New("boom"))

	u, _ = s.Complete(s.Begin(moore), snapshotWith(tornadoWarning("a")), nil)
	assert.False(t, u.SurfaceTornadoWarning)
}

func TestSession_ClassifiesAlerts(t *testing.T) {
	s := newTestSession(clockwork.NewFakeClock())
	watch := domain.AlertRecord{ID: "w", Event: "Tornado Watch", Severity: domain.SeveritySevere}
	heat := domain.AlertRecord{ID: "h", Event: "Heat Advisory", Severity: domain.SeverityModerate}

	u, _ := s.Complete(s.Begin(moore), snapshotWith(watch, heat), nil)

	require.NotNil(t, u.Classified.TornadoWatch)
	assert.Equal(t, "w", u.Classified.TornadoWatch.ID)
	assert.Equal(t, []domain.AlertRecord{heat}, u.Classified.Others)
	assert.False(t, u.SurfaceTornadoWarning)
}

func TestSession_Refresh(t *testing.T) {
	s := newTestSession(clockwork.NewFakeClock())
	var got domain.Coordinate

	u, ok := s.Refresh(context.Background(), joplin, func(_ context.Context, c domain.Coordinate) (domain.WeatherSnapshot, error) {
		got = c
		return snapshotWith(), nil
	})

	require.True(t, ok)
	assert.Equal(t, joplin.Coordinate, got)
	assert.Equal(t, SnapshotReady, u.State)
	assert.Equal(t, joplin, s.View().Location)
}

func TestSession_Refresh_SupersededByConcurrentRequest(t *testing.T) {
	s := newTestSession(clockwork.NewFakeClock())
	release := make(chan struct{})
	started := make(chan struct{})

	slow := make(chan bool, 1)
	go func() {
		_, ok := s.Refresh(context.Background(), moore, func(context.Context, domain.Coordinate) (domain.WeatherSnapshot, error) {
			close(started)
			<-release
			return snapshotWith(tornadoWarning("slow")), nil
		})
		slow <- ok
	}()

	<-started
	u, ok := s.Refresh(context.Background(), joplin, func(context.Context, domain.Coordinate) (domain.WeatherSnapshot, error) {
		return snapshotWith(), nil
	})
	require.True(t, ok)
	assert.Equal(t, joplin, u.Location)

	close(release)
	assert.False(t, <-slow)
	assert.Equal(t, joplin, s.View().Location)
	assert.Empty(t, s.View().Snapshot.Alerts)
}

func TestSession_CheckStale(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newTestSession(clock)

	assert.False(t, s.CheckStale(time.Minute), "idle session is never stale")

	s.Complete(s.Begin(moore), snapshotWith(), nil)
	clock.Advance(30 * time.Second)
	assert.False(t, s.CheckStale(time.Minute))

	clock.Advance(31 * time.Second)
	assert.True(t, s.CheckStale(time.Minute))
	assert.False(t, s.CheckStale(time.Minute), "reports only the transition")
	assert.True(t, s.View().Stale)

	s.Complete(s.Begin(moore), snapshotWith(), nil)
	assert.False(t, s.View().Stale, "a fresh snapshot clears staleness")
}

func TestManager_GetReturnsSameSession(t *testing.T) {
	m := NewManager(clockwork.NewFakeClock(), discardLogger(), observability.NewMetricsForTesting())

	a := m.Get("user-1")
	assert.Same(t, a, m.Get("user-1"))
	assert.NotSame(t, a, m.Get("user-2"))

	got, ok := m.Lookup("user-1")
	require.True(t, ok)
	assert.Same(t, a, got)

	m.Forget("user-1")
	_, ok = m.Lookup("user-1")
	assert.False(t, ok)
	assert.NotSame(t, a, m.Get("user-1"))

	_, ok = m.Lookup("never-seen")
	assert.False(t, ok, "lookup does not create sessions")
}

func TestManager_RunStalenessCheck(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(clock, discardLogger(), observability.NewMetricsForTesting())
	s := m.Get("user-1")
	s.Complete(s.Begin(moore), snapshotWith(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunStalenessCheck(ctx, 15*time.Second, time.Minute)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	for range 5 {
		clock.Advance(15 * time.Second)
	}

	require.Eventually(t, func() bool { return s.View().Stale }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("staleness check did not stop on cancel")
	}
}
