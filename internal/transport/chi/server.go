// Package chi exposes the search API over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Frischifrisch/mediathekviewweb/internal/domain"
	"github.com/Frischifrisch/mediathekviewweb/internal/domain/entry"
	"github.com/Frischifrisch/mediathekviewweb/internal/metrics"
	"github.com/Frischifrisch/mediathekviewweb/internal/query"
	healthuc "github.com/Frischifrisch/mediathekviewweb/internal/usecase/health"
	searchuc "github.com/Frischifrisch/mediathekviewweb/internal/usecase/search"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest      = "bad_request"
	codeInvalidSyntax   = "invalid_syntax"
	codeUnknownSelector = "unknown_selector"
	codeInvalidValue    = "invalid_value"
	codeImportRunning   = "import_running"
	codeInternalError   = "internal_error"
	codeUnauthorized    = "unauthorized"
)

// Searcher answers raw search strings from the index.
type Searcher interface {
	Search(ctx context.Context, raw string) (searchuc.Page, error)
	Count(ctx context.Context) (uint64, error)
}

// Reindexer rebuilds the full-text index from the entry store.
type Reindexer interface {
	Reindex(ctx context.Context) (int64, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server carries the HTTP handlers of the search API.
type Server struct {
	search        Searcher
	reindexer     Reindexer
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, reindexer Reindexer, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{
		search:    search,
		reindexer: reindexer,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(query.ErrBadSyntax, http.StatusBadRequest, codeInvalidSyntax),
		sentinelHandler(query.ErrUnknownSelector, http.StatusBadRequest, codeUnknownSelector),
		sentinelHandler(query.ErrBadValue, http.StatusBadRequest, codeInvalidValue),
		sentinelHandler(domain.ErrLockHeld, http.StatusConflict, codeImportRunning),
	}
	return s
}

// RegisterRoutes mounts all handlers on r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/api/query", s.Query)
	r.Get("/api/entries/count", s.EntryCount)
	r.Post("/api/admin/reindex", s.Reindex)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type queryRequest struct {
	Query string `json:"query"`
}

type queryResponse struct {
	Results     []entryResponse `json:"results"`
	ResultCount uint64          `json:"resultCount"`
	Took        int64           `json:"took"` // milliseconds
}

type entryResponse struct {
	ID          string `json:"id"`
	Channel     string `json:"channel"`
	Topic       string `json:"topic"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	Duration    int64  `json:"duration"`
	Size        int64  `json:"size,omitempty"`
	URLVideo    string `json:"url_video"`
	URLVideoLow string `json:"url_video_low,omitempty"`
	URLVideoHD  string `json:"url_video_hd,omitempty"`
	URLSubtitle string `json:"url_subtitle,omitempty"`
	URLWebsite  string `json:"url_website,omitempty"`
}

type countResponse struct {
	Count uint64 `json:"count"`
}

type reindexResponse struct {
	Indexed int64 `json:"indexed"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Query handles POST /api/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	page, err := s.search.Search(r.Context(), req.Query)
	if err != nil {
		recordQueryError(err)
		s.handleDomainError(w, err)
		return
	}

	results := make([]entryResponse, len(page.Entries))
	for i, e := range page.Entries {
		results[i] = entryToResponse(e)
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Results:     results,
		ResultCount: page.Total,
		Took:        time.Since(start).Milliseconds(),
	})
}

// EntryCount handles GET /api/entries/count.
func (s *Server) EntryCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.search.Count(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// Reindex handles POST /api/admin/reindex. The rebuild runs within the
// request, a 409 means an import currently holds the leader lock.
func (s *Server) Reindex(w http.ResponseWriter, r *http.Request) {
	indexed, err := s.reindexer.Reindex(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reindexResponse{Indexed: indexed})
}

// HealthCheck handles GET /healthz.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func entryToResponse(e entry.Entry) entryResponse {
	return entryResponse{
		ID:          e.ID(),
		Channel:     e.Channel(),
		Topic:       e.Topic(),
		Title:       e.Title(),
		Description: e.Description(),
		Timestamp:   e.Timestamp(),
		Duration:    e.Duration(),
		Size:        e.Size(),
		URLVideo:    e.VideoURL(),
		URLVideoLow: e.VideoLowURL(),
		URLVideoHD:  e.VideoHDURL(),
		URLSubtitle: e.SubtitleURL(),
		URLWebsite:  e.Website(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns an error message for the client without
// exposing internals. Query errors carry their full text, it names the
// part of the search string the user has to fix.
func safeDomainMessage(err error) string {
	querySentinels := []error{
		query.ErrBadSyntax,
		query.ErrUnknownSelector,
		query.ErrBadValue,
	}
	for _, s := range querySentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	if errors.Is(err, domain.ErrLockHeld) {
		return "an import is currently running"
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

func recordQueryError(err error) {
	switch {
	case errors.Is(err, query.ErrBadSyntax):
		metrics.QueryErrorsTotal.WithLabelValues("syntax").Inc()
	case errors.Is(err, query.ErrUnknownSelector):
		metrics.QueryErrorsTotal.WithLabelValues("selector").Inc()
	case errors.Is(err, query.ErrBadValue):
		metrics.QueryErrorsTotal.WithLabelValues("value").Inc()
	}
}
