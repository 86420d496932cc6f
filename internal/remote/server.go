package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/klauern/snapsync/internal/logging"
	"github.com/klauern/snapsync/internal/model"
	"github.com/klauern/snapsync/internal/status"
)

const maxBodyBytes = 16 << 20

// Server hosts the remote replica over HTTP.
type Server struct {
	repo   Repository
	token  string
	router *chi.Mux
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithRequiredToken rejects requests that do not carry token as a bearer
// credential. The health check stays open.
func WithRequiredToken(token string) ServerOption {
	return func(s *Server) { s.token = token }
}

// NewServer creates a server backed by repo.
func NewServer(repo Repository, opts ...ServerOption) *Server {
	s := &Server{repo: repo}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/projects", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/", s.handleList)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handlePut)
		r.Get("/{id}/status", s.handleStatus)
	})

	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("remote server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logging.Info("stopping remote server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.repo.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"projects": ids})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := projectParam(w, r)
	if !ok {
		return
	}
	rec, err := s.repo.Get(r.Context(), id)
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec.Snapshot)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	id, ok := projectParam(w, r)
	if !ok {
		return
	}

	var snap model.Snapshot
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&snap); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("decode snapshot: %w", err))
		return
	}
	if err := snap.Validate(); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err)
		return
	}
	if err := s.repo.Put(r.Context(), id, snap); err != nil {
		writeRepoError(w, r, err)
		return
	}

	logging.Debug("snapshot stored", logging.Project(id), logging.Count(snap.ItemCount()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := projectParam(w, r)
	if !ok {
		return
	}
	rec, err := s.repo.Get(r.Context(), id)
	if err != nil {
		writeRepoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		ProjectID: id,
		Status:    status.Synced,
		UpdatedAt: rec.Snapshot.UpdatedAt,
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, r, http.StatusUnauthorized, errors.New("missing or invalid token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func projectParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := model.ParseProjectID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return id, true
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.Debug("http request",
			slog.String("method", r.Method),
			logging.Path(r.URL.Path),
			slog.Int("code", ww.Status()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func writeRepoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, ErrStale):
		writeError(w, r, http.StatusConflict, err)
	default:
		var vErr *model.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, r, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, r, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	if code >= http.StatusInternalServerError {
		logging.Error("request failed", logging.Path(r.URL.Path), logging.Err(err))
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
