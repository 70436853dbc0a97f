package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"city-weather/models"
	"city-weather/query"
	"city-weather/web"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
)

// SessionCookie names the cookie that ties a browser to its view state
const SessionCookie = "cw_session"

// Dependencies are the collaborators a Server needs
type Dependencies struct {
	Searcher *query.Searcher
	Sessions *SessionStore
	Renderer *web.Renderer
	Limiter  *ClientLimiter
	Logger   *slog.Logger

	// BreakerState reports the upstream circuit breaker for /api/health
	BreakerState func() string
}

// Server represents the HTTP front end: the search page and its JSON API
type Server struct {
	searcher     *query.Searcher
	sessions     *SessionStore
	renderer     *web.Renderer
	limiter      *ClientLimiter
	logger       *slog.Logger
	breakerState func() string
	router       chi.Router
	server       *http.Server
}

// NewServer creates a new server listening on port
func NewServer(deps Dependencies, port int) (*Server, error) {
	if deps.Searcher == nil || deps.Sessions == nil || deps.Renderer == nil {
		return nil, errors.New("searcher, sessions and renderer are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Limiter == nil {
		deps.Limiter = NewClientLimiter(1, 5)
	}
	if deps.BreakerState == nil {
		deps.BreakerState = func() string { return "unknown" }
	}

	s := &Server{
		searcher:     deps.Searcher,
		sessions:     deps.Sessions,
		renderer:     deps.Renderer,
		limiter:      deps.Limiter,
		logger:       deps.Logger,
		breakerState: deps.BreakerState,
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(Recoverer(s.logger))

	r.Get("/", s.handleIndex)
	r.With(s.limiter.ThrottlePage(s.renderer.Strings().TooManySearches)).Post("/search", s.handleSearchForm)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	r.Route("/api", func(r chi.Router) {
		r.With(s.limiter.Throttle).Get("/search", s.handleSearchJSON)
		r.Get("/state", s.handleState)
		r.Get("/health", s.handleHealthCheck)
	})

	return r
}

// Handler returns the compressed router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.router)
}

// Start begins serving and blocks until the server stops
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// sessionID returns the caller's session id, issuing a cookie when create is
// set and the caller has none
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request, create bool) string {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if !create {
		return ""
	}

	id := s.sessions.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return id
}

// handleIndex renders the page for the caller's current view state
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.State(s.sessionID(w, r, false))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.renderer.Render(w, state); err != nil {
		s.logger.Error("failed to render page",
			slog.String("request_id", RequestIDFromContext(r.Context())),
			slog.Any("error", err),
		)
	}
}

// handleSearchForm runs a search attempt for the form's city, publishes it
// to the session unless a newer attempt superseded it, and redirects back
// to the page
func (s *Server) handleSearchForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	id := s.sessionID(w, r, true)

	attempt, ctx := s.sessions.Begin(r.Context(), id)
	defer attempt.Done()

	outcome := s.searcher.Search(ctx, r.PostForm.Get("city"))
	s.sessions.Commit(attempt, outcome)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SearchResponse is the JSON form of one search or of a session's state
type SearchResponse struct {
	City     string        `json:"city"`
	Current  PanelResponse `json:"current"`
	Forecast PanelResponse `json:"forecast"`
	NextDays []web.DayView `json:"nextDays"`
	Attempt  uint64        `json:"attempt,omitempty"`
}

// PanelResponse is one lookup's data or error
type PanelResponse struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// handleSearchJSON runs a stateless search. It answers 200 when at least one
// lookup succeeded and the current-conditions error otherwise.
func (s *Server) handleSearchJSON(w http.ResponseWriter, r *http.Request) {
	outcome := s.searcher.Search(r.Context(), r.URL.Query().Get("city"))
	if outcome.Failed() {
		Error(w, r, outcome.Current.Err)
		return
	}

	resp := SearchResponse{City: outcome.City, NextDays: []web.DayView{}}
	if outcome.Current.OK() {
		resp.Current.Data = s.renderer.Current(outcome.Current.Value)
	} else {
		resp.Current.Error = s.errorDetail(r, string(outcome.Current.Err.Code), outcome.Current.Err.Message)
	}
	if outcome.Forecast.OK() {
		series := outcome.Forecast.Value
		resp.Forecast.Data = series
		resp.NextDays = s.renderer.Days(&series)
	} else {
		resp.Forecast.Error = s.errorDetail(r, string(outcome.Forecast.Err.Code), outcome.Forecast.Err.Message)
	}

	JSON(w, r, http.StatusOK, resp)
}

// handleState returns the caller's session state as JSON
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := s.sessions.State(s.sessionID(w, r, false))
	JSON(w, r, http.StatusOK, s.stateResponse(r, state))
}

func (s *Server) stateResponse(r *http.Request, state models.ViewState) SearchResponse {
	resp := SearchResponse{City: state.City, Attempt: state.Attempt, NextDays: []web.DayView{}}
	if state.Current.Data != nil {
		resp.Current.Data = s.renderer.Current(*state.Current.Data)
	}
	if state.Current.Error != "" {
		resp.Current.Error = s.errorDetail(r, state.Current.ErrorCode, state.Current.Error)
	}
	if state.Forecast.Data != nil {
		resp.Forecast.Data = state.Forecast.Data
		resp.NextDays = s.renderer.Days(state.Forecast.Data)
	}
	if state.Forecast.Error != "" {
		resp.Forecast.Error = s.errorDetail(r, state.Forecast.ErrorCode, state.Forecast.Error)
	}
	return resp
}

func (s *Server) errorDetail(r *http.Request, code, message string) *ErrorDetail {
	return &ErrorDetail{Code: code, Message: message, RequestID: RequestIDFromContext(r.Context())}
}

// handleHealthCheck provides a simple health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]any{
		"status":    "ok",
		"breaker":   s.breakerState(),
		"sessions":  s.sessions.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
