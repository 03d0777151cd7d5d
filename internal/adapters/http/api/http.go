// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/lichhen/internal/domain/model"
	"github.com/okian/lichhen/internal/domain/nlp"
	"github.com/okian/lichhen/pkg/logger"
	"github.com/okian/lichhen/pkg/metrics"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Parse(ctx context.Context, text string) nlp.EventCandidate
	ParseAndCreate(ctx context.Context, owner int64, text string) (model.Event, nlp.EventCandidate, error)

	CreateEvent(ctx context.Context, e model.Event) (model.Event, error)
	GetEvent(ctx context.Context, id string) (model.Event, error)
	UpdateEvent(ctx context.Context, id string, p model.Patch) (model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context) ([]model.Event, error)
	ListUserEvents(ctx context.Context, owner int64) ([]model.Event, error)

	DefaultReminderMinutes() int
	Location() *time.Location
	Now() time.Time
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	parseHandler    *ParseHandler
	eventsHandler   *EventsHandler
	calendarHandler *CalendarHandler
	parseLimiter    *clientLimiter
	trustForwarded  bool
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		parseHandler:    NewParseHandler(deps, cfg.maxTextLength),
		eventsHandler:   NewEventsHandler(deps, cfg.maxTextLength),
		calendarHandler: NewCalendarHandler(deps),
		parseLimiter:    newClientLimiter(cfg.parseRate, cfg.parseBurst),
		trustForwarded:  cfg.trustForwarded,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	limited := func(next http.HandlerFunc, endpoint string) http.HandlerFunc {
		return MetricsMiddleware(RateLimitMiddleware(s.parseLimiter, endpoint, s.trustForwarded, next), endpoint)
	}

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /nlp/parse", limited(s.parseHandler.HandleParse, "nlp_parse"))
	mux.HandleFunc("POST /events/parse", limited(s.eventsHandler.HandleParseEvent, "events_parse"))

	mux.HandleFunc("GET /events", MetricsMiddleware(s.eventsHandler.HandleList, "events"))
	mux.HandleFunc("POST /events", MetricsMiddleware(s.eventsHandler.HandleCreate, "events"))
	mux.HandleFunc("GET /events/{id}", MetricsMiddleware(s.eventsHandler.HandleGet, "event"))
	mux.HandleFunc("PUT /events/{id}", MetricsMiddleware(s.eventsHandler.HandleUpdate, "event"))
	mux.HandleFunc("DELETE /events/{id}", MetricsMiddleware(s.eventsHandler.HandleDelete, "event"))
	mux.HandleFunc("GET /events/user/{user_id}", MetricsMiddleware(s.eventsHandler.HandleListByUser, "user_events"))
	mux.HandleFunc("GET /events/user/{user_id}/calendar.ics",
		MetricsMiddleware(s.calendarHandler.HandleCalendar, "user_calendar"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// bodyLimit bounds a JSON body carrying a text of up to maxText runes. A
// rune may take six bytes once escaped; the rest covers the other fields.
func bodyLimit(maxText int) int64 {
	const overhead = 4 << 10
	return int64(maxText)*6 + overhead
}

// decodeJSON reads one JSON value of at most limit bytes from r into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &tooLarge):
		return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
	default:
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status its kind maps to. Server faults are logged.
func fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(ctx, "request failed", logger.Error(err))
		metrics.RecordErrorByComponent("api", code)
	}
	writeError(w, status, code, err)
}
