// Package fetcher exposes the extraction pipeline over a small HTTP
// trigger API: one bounded fetch per request, nothing scheduled.
package fetcher

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/itsmrval/willitbemax/lib/f1"
	"github.com/itsmrval/willitbemax/lib/scrapers/f1web"
	"github.com/itsmrval/willitbemax/services/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/fetcher")

// SeasonSource lists seasons from the structured results API.
type SeasonSource interface {
	Seasons(ctx context.Context) ([]f1.Season, error)
	Health(ctx context.Context) bool
}

// RoundSource runs the website extraction pipeline for one season.
type RoundSource interface {
	FetchSeason(ctx context.Context, season int, opts f1web.FetchOptions) ([]f1.Round, error)
	Health(ctx context.Context) bool
}

// Store is the downstream write collaborator.
type Store interface {
	WriteSeasons(ctx context.Context, seasons []f1.Season) (scheduler.WriteResponse, error)
	WriteRounds(ctx context.Context, rounds []f1.Round) (scheduler.WriteResponse, error)
	Health(ctx context.Context) bool
}

// HealthChecker is any collaborator that can report reachability.
type HealthChecker interface {
	Health(ctx context.Context) bool
}

type Service struct {
	seasons  SeasonSource
	rounds   RoundSource
	store    Store
	browser  HealthChecker
	registry *prometheus.Registry
}

type ServiceOptions struct {
	Seasons SeasonSource
	Rounds  RoundSource
	Store   Store
	Browser HealthChecker
	// Registry serves /metrics; nil disables the endpoint.
	Registry *prometheus.Registry
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		seasons:  opts.Seasons,
		rounds:   opts.Rounds,
		store:    opts.Store,
		browser:  opts.Browser,
		registry: opts.Registry,
	}
}

// FetchSeasons pulls the season list from the results API and writes
// it downstream.
func (s *Service) FetchSeasons(ctx context.Context) (scheduler.WriteResponse, int, error) {
	ctx, span := tracer.Start(ctx, "service:FetchSeasons")
	defer span.End()

	seasons, err := s.seasons.Seasons(ctx)
	if err != nil {
		return scheduler.WriteResponse{}, 0, err
	}
	slog.InfoContext(ctx, "fetched seasons", "count", len(seasons))

	response, err := s.store.WriteSeasons(ctx, seasons)
	if err != nil {
		return scheduler.WriteResponse{}, 0, err
	}
	return response, len(seasons), nil
}

// FetchRounds runs the full pipeline for one season and, only when
// every round extracted cleanly, writes the batch downstream.
func (s *Service) FetchRounds(ctx context.Context, season int, opts f1web.FetchOptions) (scheduler.WriteResponse, int, error) {
	ctx, span := tracer.Start(ctx, "service:FetchRounds")
	defer span.End()

	rounds, err := s.rounds.FetchSeason(ctx, season, opts)
	if err != nil {
		slog.ErrorContext(ctx, "season batch abandoned", "season", season, "err", err)
		return scheduler.WriteResponse{}, 0, err
	}

	response, err := s.store.WriteRounds(ctx, rounds)
	if err != nil {
		return scheduler.WriteResponse{}, 0, err
	}
	slog.InfoContext(ctx, "synced rounds",
		"season", season,
		"count", len(rounds),
		"records_affected", response.RecordsAffected,
	)
	return response, len(rounds), nil
}

// Status reports each upstream and the write collaborator as
// independent boolean checks.
func (s *Service) Status(ctx context.Context) map[string]bool {
	checks := map[string]bool{
		"jolpica":   s.seasons.Health(ctx),
		"website":   s.rounds.Health(ctx),
		"scheduler": s.store.Health(ctx),
	}
	if s.browser != nil {
		checks["browser"] = s.browser.Health(ctx)
	}
	return checks
}

// Router mounts the trigger API.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Post("/fetch/seasons", s.handleFetchSeasons)
	r.Post("/fetch/rounds/{season}", s.handleFetchRounds)
	r.Get("/status", s.handleStatus)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func (s *Service) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "fetcher_service",
		"status":  "running",
	})
}

func (s *Service) handleFetchSeasons(w http.ResponseWriter, r *http.Request) {
	response, count, err := s.FetchSeasons(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	if !response.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": response.Message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"source":    "jolpica",
		"count":     count,
		"timestamp": time.Now().Unix(),
	})
}

func (s *Service) handleFetchRounds(w http.ResponseWriter, r *http.Request) {
	season, err := strconv.Atoi(chi.URLParam(r, "season"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "season must be a year"})
		return
	}

	var opts f1web.FetchOptions
	if raw := r.URL.Query().Get("round"); raw != "" {
		roundID, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "round must be an integer"})
			return
		}
		opts.OnlyRound = &roundID
	}
	if raw := r.URL.Query().Get("live"); raw != "" {
		sessionType := f1.SessionType(raw)
		if !sessionType.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unknown live session type"})
			return
		}
		opts.LiveOverride = sessionType
	}

	response, count, err := s.FetchRounds(r.Context(), season, opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	if !response.Success {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": response.Message})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"season":           season,
		"count":            count,
		"records_affected": response.RecordsAffected,
		"timestamp":        time.Now().Unix(),
	})
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	checks := s.Status(r.Context())

	ready := true
	for _, ok := range checks {
		ready = ready && ok
	}

	body := map[string]any{
		"status":    "ready",
		"timestamp": time.Now().Unix(),
	}
	for name, ok := range checks {
		body[name] = ok
	}

	status := http.StatusOK
	if !ready {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, body)
}
