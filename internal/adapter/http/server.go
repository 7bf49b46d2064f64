package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
	"github.com/couchcryptid/weather-dashboard-service/internal/location"
	"github.com/couchcryptid/weather-dashboard-service/internal/session"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker = sharedobs.ReadinessChecker

// readinessGroup is ready when every checker is.
type readinessGroup []ReadinessChecker

func (g readinessGroup) CheckReadiness(ctx context.Context) error {
	for _, c := range g {
		if err := c.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}

// LocationResolver turns queries, coordinates, and device fixes into named
// locations.
type LocationResolver interface {
	ResolveByText(ctx context.Context, query string) (domain.ResolvedLocation, error)
	ResolveByCoordinate(ctx context.Context, c domain.Coordinate) (domain.ResolvedLocation, error)
	ResolveDevice(ctx context.Context, fix location.DeviceFix, fallback domain.ResolvedLocation) (domain.ResolvedLocation, error)
}

// SnapshotService builds weather snapshots.
type SnapshotService interface {
	GetSnapshot(ctx context.Context, c domain.Coordinate) (domain.WeatherSnapshot, error)
}

// AlertSource lists the active alerts for a point.
type AlertSource interface {
	ActiveAlerts(ctx context.Context, c domain.Coordinate) ([]domain.AlertRecord, error)
}

// PreferenceStore loads and updates user preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (domain.Preferences, error)
	Update(ctx context.Context, userID string, u domain.ProfileUpdate) (domain.Preferences, error)
}

// UserNotifier e-mails a user's notifiable alerts.
type UserNotifier interface {
	NotifyUser(ctx context.Context, prefs domain.Preferences, alerts []domain.AlertRecord) int
}

// TestMailer sends the fixed test alert e-mail.
type TestMailer interface {
	SendTestEmail(ctx context.Context, recipient string) bool
}

// Deps are the services behind the API routes.
type Deps struct {
	Ready            []ReadinessChecker
	Resolver         LocationResolver
	Snapshots        SnapshotService
	Alerts           AlertSource
	Preferences      PreferenceStore
	Sessions         *session.Manager
	Notifier         UserNotifier
	Mailer           TestMailer
	FallbackLocation string
}

// Server exposes the dashboard API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the operational and /v1 API routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(readinessGroup(deps.Ready)))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(25 * time.Second))

		r.Get("/locations/search", s.handleSearch)
		r.Get("/locations/reverse", s.handleReverse)
		r.Get("/locations/device", s.handleDevice)
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/alerts", s.handleAlerts)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/preferences", s.handleGetPreferences)
			r.Put("/preferences", s.handlePutPreferences)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/session", s.handleGetSession)
			r.Delete("/session", s.handleDeleteSession)
			r.Post("/alerts/test-email", s.handleTestEmail)
		})
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// --- locations ---

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	loc, err := s.deps.Resolver.ResolveByText(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, loc)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	c, err := parseCoordinate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.deps.Resolver.ResolveByCoordinate(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, loc)
}

// handleDevice resolves a browser geolocation result. denied=true stands for
// a refused or failed fix and resolves to the fallback location.
func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		fix      location.DeviceFix
		fallback domain.ResolvedLocation
		err      error
	)
	if denied, _ := strconv.ParseBool(r.URL.Query().Get("denied")); denied {
		fix.Denied = true
		fallback, err = s.deps.Resolver.ResolveByText(ctx, s.deps.FallbackLocation)
	} else {
		fix.Coordinate, err = parseCoordinate(r)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	loc, err := s.deps.Resolver.ResolveDevice(ctx, fix, fallback)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, loc)
}

// --- weather ---

type snapshotResponse struct {
	Snapshot   domain.WeatherSnapshot  `json:"snapshot"`
	Classified domain.ClassifiedAlerts `json:"classified"`
	Tiers      map[string]domain.Tier  `json:"tiers"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	c, err := parseCoordinate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.deps.Snapshots.GetSnapshot(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snapshotResponse{
		Snapshot:   snap,
		Classified: domain.Classify(snap.Alerts),
		Tiers:      alertTiers(snap.Alerts),
	})
}

type alertsResponse struct {
	Classified domain.ClassifiedAlerts `json:"classified"`
	Notifiable []domain.AlertRecord    `json:"notifiable"`
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	c, err := parseCoordinate(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	alerts, err := s.deps.Alerts.ActiveAlerts(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, alertsResponse{
		Classified: domain.Classify(alerts),
		Notifiable: domain.NotifiableAlerts(alerts),
	})
}

// --- users ---

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.deps.Preferences.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, prefs)
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var u domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeError(w, r, fmt.Errorf("decode profile update: %v: %w", err, domain.ErrInvalidInput))
		return
	}
	prefs, err := s.deps.Preferences.Update(r.Context(), chi.URLParam(r, "userID"), u)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, prefs)
}

type dashboardResponse struct {
	session.Update
	Tiers    map[string]domain.Tier `json:"tiers"`
	Notified int                    `json:"notified"`
}

// handleDashboard refreshes the user's session for their stored location
// and e-mails newly notifiable alerts when the user opted in.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	prefs, err := s.deps.Preferences.Get(ctx, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.deps.Resolver.ResolveByText(ctx, prefs.Location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	upd, ok := s.deps.Sessions.Get(userID).Refresh(ctx, loc, s.deps.Snapshots.GetSnapshot)
	if !ok {
		sharedobs.WriteJSON(w, http.StatusConflict, errorResponse{Error: "superseded by a newer request", Retryable: true})
		return
	}
	if upd.State == session.SnapshotFailed {
		s.writeError(w, r, upd.Err)
		return
	}

	resp := dashboardResponse{Update: upd, Tiers: map[string]domain.Tier{}}
	if upd.Snapshot != nil {
		resp.Tiers = alertTiers(upd.Snapshot.Alerts)
		resp.Notified = s.deps.Notifier.NotifyUser(ctx, prefs, upd.Snapshot.Alerts)
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

// handleGetSession returns the user's current dashboard state without
// refreshing it.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.deps.Sessions.Lookup(chi.URLParam(r, "userID"))
	if !ok {
		s.writeError(w, r, fmt.Errorf("no dashboard session: %w", domain.ErrNotFound))
		return
	}
	upd := sess.View()
	resp := dashboardResponse{Update: upd, Tiers: map[string]domain.Tier{}}
	if upd.Snapshot != nil {
		resp.Tiers = alertTiers(upd.Snapshot.Alerts)
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

// handleDeleteSession drops the user's session on sign-out.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	s.deps.Sessions.Forget(chi.URLParam(r, "userID"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTestEmail(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.deps.Preferences.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !s.deps.Mailer.SendTestEmail(r.Context(), prefs.AlertRecipient()) {
		sharedobs.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"sent": false, "retryable": true})
		return
	}
	sharedobs.WriteJSON(w, http.StatusAccepted, map[string]any{"sent": true})
}

// --- helpers ---

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrTransientNetwork):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrIncompleteData):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", "path", r.URL.Path, "status", status, "error", err,
			"request_id", middleware.GetReqID(r.Context()))
	}
	sharedobs.WriteJSON(w, status, errorResponse{Error: err.Error(), Retryable: domain.Retryable(err)})
}

func parseCoordinate(r *http.Request) (domain.Coordinate, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("lat %q: %w", q.Get("lat"), domain.ErrInvalidInput)
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("lon %q: %w", q.Get("lon"), domain.ErrInvalidInput)
	}
	c := domain.Coordinate{Lat: lat, Lon: lon}
	return c, c.Validate()
}

// alertTiers maps alert IDs to their presentation tier.
func alertTiers(alerts []domain.AlertRecord) map[string]domain.Tier {
	tiers := make(map[string]domain.Tier, len(alerts))
	for _, a := range alerts {
		tiers[a.ID] = domain.SeverityTier(a.Severity)
	}
	return tiers
}

// requestLogger logs one line per request with its status and latency.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
