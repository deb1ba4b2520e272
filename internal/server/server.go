// Package server exposes the extraction and save operations over a local HTTP API
// for the browser extension.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ibeckermayer/x2notion/internal/app"
	"github.com/ibeckermayer/x2notion/internal/types"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 8 << 20

// Backend is the subset of app.Service served over HTTP
type Backend interface {
	ExtractContext(ctx context.Context, pageURL string) (*types.ThreadContext, error)
	ExtractFullThread(ctx context.Context, pageURL string) ([]types.ExtractedPost, error)
	ExtractComments(ctx context.Context, pageURL string) ([]types.CommentItem, error)
	SubmitPost(ctx context.Context, post *types.ExtractedPost, creds types.Credentials) (*app.SaveResult, error)
	SubmitThread(ctx context.Context, req app.ThreadRequest, creds types.Credentials) (*app.SaveResult, error)
	SavePost(ctx context.Context, pageURL string, opts app.SaveOptions) (*app.SaveResult, error)
	SaveThread(ctx context.Context, pageURL string, opts app.SaveOptions) (*app.SaveResult, error)
}

// Options configures the server
type Options struct {
	AllowedOrigins []string

	// SubmitRPS limits page creation requests; zero disables the limit
	SubmitRPS float64

	// Credentials are used when a submit request carries none
	Credentials types.Credentials
}

// Server routes API requests to a backend
type Server struct {
	backend Backend
	opts    Options
	limiter *rate.Limiter
	router  chi.Router
}

// New creates a server for backend
func New(backend Backend, opts Options) *Server {
	s := &Server{backend: backend, opts: opts, limiter: rate.NewLimiter(rate.Inf, 1)}
	if opts.SubmitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.SubmitRPS), 1)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}).Handler)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("req_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("took", d).
			Msg("request")
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/context", s.handleContext)
		r.Post("/thread", s.handleThread)
		r.Post("/comments", s.handleComments)

		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/posts", s.handleSubmitPost)
			r.Post("/threads", s.handleSubmitThread)
			r.Post("/save", s.handleSave)
		})
	})

	return r
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("component", "server").Str("addr", addr).Msg("listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "too many save requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string `json:"error"`
	Status int    `json:"notion_status,omitempty"`
	Body   string `json:"notion_body,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps domain errors to HTTP statuses
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var subErr *types.SubmissionError
	switch {
	case types.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case types.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrSaveInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &subErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Status: subErr.Status, Body: subErr.Body})
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// logger returns the request logger tagged for this package
func logger(r *http.Request) *zerolog.Logger {
	l := hlog.FromRequest(r).With().Str("component", "server").Logger()
	return &l
}
