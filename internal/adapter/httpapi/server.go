// Package httpapi exposes the exposure engine over HTTP alongside health,
// readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// RowPublisher forwards computed exposure tables to a downstream sink.
type RowPublisher interface {
	PublishTable(ctx context.Context, table *exposure.Table) error
}

// Server exposes exposure queries plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	engine     *exposure.Engine
	publisher  RowPublisher // nil disables publishing
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Pass a nil publisher to disable the
// exposure sink.
func NewServer(addr string, engine *exposure.Engine, ready ReadinessChecker, publisher RowPublisher, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/exposure/county", s.handleCounty)
	mux.HandleFunc("POST /v1/exposure/community", s.handleCommunity)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func (s *Server) handleCounty(w http.ResponseWriter, r *http.Request) {
	req, err := parseCountyRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	table, err := s.engine.CountyMetric(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.publish(r.Context(), table)
	writeJSON(w, http.StatusOK, newTableResponse(table))
}

// communityRequestBody is the JSON shape of a community exposure query.
type communityRequestBody struct {
	Communities map[string][]string `json:"communities"`
	Metric      string              `json:"metric"`
	StartYear   int                 `json:"start_year"`
	EndYear     int                 `json:"end_year"`
	Threshold   float64             `json:"threshold"`
	WindVar     string              `json:"wind_var,omitempty"`
	RainDays    []int               `json:"rain_days,omitempty"`
	DistLimit   *float64            `json:"dist_limit,omitempty"`
}

func (s *Server) handleCommunity(w http.ResponseWriter, r *http.Request) {
	var body communityRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if len(body.Communities) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("communities is required"))
		return
	}

	metric, err := domain.ParseMetricKind(body.Metric)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	windVar, err := domain.ParseWindVar(body.WindVar)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var assignments []domain.CommunityAssignment
	for name, members := range body.Communities {
		for _, fips := range members {
			assignments = append(assignments, domain.CommunityAssignment{Community: name, FIPS: fips})
		}
	}

	table, err := s.engine.CommunityMetric(r.Context(), exposure.CommunityRequest{
		Assignments:   assignments,
		StartYear:     body.StartYear,
		EndYear:       body.EndYear,
		Threshold:     body.Threshold,
		Metric:        metric,
		WindVar:       windVar,
		RainDays:      body.RainDays,
		DistanceLimit: body.DistLimit,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	s.publish(r.Context(), table)
	writeJSON(w, http.StatusOK, newTableResponse(table))
}

// publish forwards the table to the sink, best effort: a publish failure
// never fails the query that produced the table.
func (s *Server) publish(ctx context.Context, table *exposure.Table) {
	if s.publisher == nil || table.Empty() {
		return
	}
	if err := s.publisher.PublishTable(ctx, table); err != nil {
		s.logger.Warn("publish exposure table failed", "error", err)
	}
}

func parseCountyRequest(r *http.Request) (exposure.CountyRequest, error) {
	q := r.URL.Query()

	fips := splitList(q.Get("fips"))
	if len(fips) == 0 {
		return exposure.CountyRequest{}, errors.New("fips is required")
	}

	metric, err := domain.ParseMetricKind(q.Get("metric"))
	if err != nil {
		return exposure.CountyRequest{}, err
	}
	windVar, err := domain.ParseWindVar(q.Get("wind_var"))
	if err != nil {
		return exposure.CountyRequest{}, err
	}

	startYear, err := intParam(q.Get("start_year"), "start_year")
	if err != nil {
		return exposure.CountyRequest{}, err
	}
	endYear, err := intParam(q.Get("end_year"), "end_year")
	if err != nil {
		return exposure.CountyRequest{}, err
	}

	threshold, err := strconv.ParseFloat(q.Get("threshold"), 64)
	if err != nil {
		return exposure.CountyRequest{}, errors.New("threshold must be a number")
	}

	var rainDays []int
	for _, p := range splitList(q.Get("rain_days")) {
		d, err := strconv.Atoi(p)
		if err != nil {
			return exposure.CountyRequest{}, errors.New("rain_days must be a comma-separated list of integers")
		}
		rainDays = append(rainDays, d)
	}

	var distLimit *float64
	if v := q.Get("dist_limit"); v != "" {
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return exposure.CountyRequest{}, errors.New("dist_limit must be a number")
		}
		distLimit = &d
	}

	return exposure.CountyRequest{
		FIPS:          fips,
		StartYear:     startYear,
		EndYear:       endYear,
		Threshold:     threshold,
		Metric:        metric,
		WindVar:       windVar,
		RainDays:      rainDays,
		DistanceLimit: distLimit,
	}, nil
}

// statusFor maps engine errors to HTTP statuses: bad caller input is 400,
// anything else (including suspect source data) is 500.
func statusFor(err error) int {
	var invalidLoc *domain.InvalidLocationError
	var invalidWin *exposure.InvalidWindowError
	if errors.As(err, &invalidLoc) || errors.As(err, &invalidWin) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// tableResponse is the JSON envelope around a computed exposure table.
type tableResponse struct {
	Metric      string         `json:"metric"`
	Scope       string         `json:"scope"`
	GeneratedAt time.Time      `json:"generated_at"`
	Columns     []string       `json:"columns"`
	RowCount    int            `json:"row_count"`
	Rows        []exposure.Row `json:"rows"`
}

func newTableResponse(table *exposure.Table) tableResponse {
	scope := "county"
	if table.Community {
		scope = "community"
	}
	return tableResponse{
		Metric:      table.Metric.String(),
		Scope:       scope,
		GeneratedAt: table.GeneratedAt,
		Columns:     table.Columns(),
		RowCount:    len(table.Rows),
		Rows:        table.Rows,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intParam(s, name string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response body
}
