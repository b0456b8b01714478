// Package server exposes the layout engine over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	bettercover "github.com/menta2k/better-cover"
	"github.com/menta2k/better-cover/pkg/source"
	"github.com/menta2k/better-cover/pkg/types"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Server serves the HTTP API
type Server struct {
	engine *bettercover.Engine
	logger *log.Logger
	router chi.Router
}

// New creates a server around engine. A nil logger uses log.Default().
func New(engine *bettercover.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/solve", s.handleSolve)
		r.Post("/layout", s.handleLayout)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "address", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// SolveRequest is the body of POST /v1/solve
type SolveRequest struct {
	CoverZone  types.Rectangle `json:"coverZone"`
	TargetZone types.Rectangle `json:"targetZone"`
	ImageSize  types.Size      `json:"imageSize"`
	FocusZone  types.Rectangle `json:"focusZone"`
}

// LayoutRequest is the body of POST /v1/layout
type LayoutRequest struct {
	bettercover.Picture
	// Screen is optional; without it the first valid source is used.
	Screen *types.Screen `json:"screen,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": bettercover.Version,
	})
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	var req SolveRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if req.ImageSize.Width <= 0 || req.ImageSize.Height <= 0 {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("imageSize must be positive"))
		return
	}
	if req.CoverZone.Width <= 0 || req.CoverZone.Height <= 0 {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("coverZone size must be positive"))
		return
	}

	res := s.engine.Solve(req.CoverZone, req.TargetZone, req.ImageSize, req.FocusZone)
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}

	var screen *types.Screen
	if req.Screen != nil {
		sc := types.NewScreen(req.Screen.Width, req.Screen.Height, req.Screen.DPR)
		screen = &sc
	}

	layout, err := s.engine.Layout(req.Picture, screen)
	if errors.Is(err, source.ErrNoValidSources) {
		s.writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, layout)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	s.writeJSON(w, statusCode, errorResponse{
		Error:     err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// logRequests logs one line per request at debug level, or warn for errors
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		logf := s.logger.Debug
		if ww.Status() >= http.StatusBadRequest {
			logf = s.logger.Warn
		}
		logf("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
