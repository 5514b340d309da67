// Package api exposes the grid and the validation engine over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/grid"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/llm"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/logging"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/ratelimit"
	"github.com/Kelompok-5-PPL-A/MAAMS-NG-BE-sub000/internal/types"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server wires HTTP routes to the grid service.
type Server struct {
	grid       *grid.Service
	limiter    *ratelimit.Limiter
	metrics    http.Handler
	userHeader string
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithUserHeader trusts the named header as the authenticated user id set by
// an upstream proxy. Empty disables it.
func WithUserHeader(name string) Option {
	return func(s *Server) { s.userHeader = name }
}

// New returns a Server. A nil limiter disables rate limiting.
func New(g *grid.Service, limiter *ratelimit.Limiter, opts ...Option) *Server {
	s := &Server{grid: g, limiter: limiter}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if s.userHeader != "" {
		r.Use(s.upstreamUser)
	}
	if s.limiter != nil {
		r.Use(ratelimit.Middleware(s.limiter))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/question", func(r chi.Router) {
		r.Post("/", s.createQuestion)
		r.Get("/recent", s.recentQuestions)
		r.Get("/{question_id}", s.getQuestion)
		r.Delete("/{question_id}", s.deleteQuestion)
	})
	r.Route("/cause", func(r chi.Router) {
		r.Post("/", s.createCause)
		r.Patch("/{question_id}/{cause_id}", s.updateCause)
	})
	r.Patch("/validator/validate/{question_id}", s.validate)
	return r
}

func (s *Server) upstreamUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(s.userHeader); id != "" {
			r = r.WithContext(ratelimit.WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.API("%s %s -> %d in %v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in grid.NewProblem
	if !decode(w, r, &in) {
		return
	}
	p, err := s.grid.CreateProblem(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) getQuestion(w http.ResponseWriter, r *http.Request) {
	d, err := s.grid.Get(r.Context(), chi.URLParam(r, "question_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// defaultRecent bounds /question/recent when no limit is given.
const defaultRecent = 10

func (s *Server) recentQuestions(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecent
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	problems, err := s.grid.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, problems)
}

func (s *Server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := s.grid.DeleteProblem(r.Context(), chi.URLParam(r, "question_id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createCause(w http.ResponseWriter, r *http.Request) {
	var in grid.NewCause
	if !decode(w, r, &in) {
		return
	}
	c, err := s.grid.AddCause(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateCause(w http.ResponseWriter, r *http.Request) {
	var in grid.CauseUpdate
	if !decode(w, r, &in) {
		return
	}
	c, err := s.grid.SetCause(r.Context(), chi.URLParam(r, "question_id"), chi.URLParam(r, "cause_id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	cells, err := s.grid.Validate(r.Context(), chi.URLParam(r, "question_id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if cells == nil {
		cells = []types.Cell{}
	}
	writeJSON(w, http.StatusOK, cells)
}

// =============================================================================
// ENCODING
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.APIError("encode response: %v", err)
	}
}

// writeError maps the error taxonomy onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var dup types.ErrDuplicateCell
	switch {
	case types.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case llm.IsServiceError(err):
		logging.APIError("llm unavailable: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": types.MsgAIServiceError})
	case errors.Is(err, types.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": types.MsgRateLimitExceeded})
	case grid.IsInputError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		logging.APIError("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
