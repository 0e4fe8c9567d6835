// Package server exposes the store over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nick-dorsch/tracker/internal/store"
	"github.com/nick-dorsch/tracker/pkg/models"
)

const requestIDHeader = "X-Request-ID"

type Server struct {
	store  *store.Store
	logger *slog.Logger
	server *http.Server
}

func NewServer(st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{store: st, logger: logger}
}

// resource binds one item kind to its store operations.
type resource struct {
	kind      models.Kind
	create    func(context.Context, *models.Task) error
	update    func(context.Context, *models.Task) error
	get       func(context.Context, int) (*models.Task, error)
	delete    func(context.Context, int) error
	list      func(context.Context) []*models.Task
	deleteAll func(context.Context)
}

// Handler returns the routed API with request-id and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	resources := map[string]resource{
		"tasks": {
			kind:      models.KindTask,
			create:    s.store.CreateTask,
			update:    s.store.UpdateTask,
			get:       s.store.GetTask,
			delete:    s.store.DeleteTask,
			list:      s.store.ListTasks,
			deleteAll: s.store.DeleteAllTasks,
		},
		"epics": {
			kind:      models.KindEpic,
			create:    s.store.CreateEpic,
			update:    s.store.UpdateEpic,
			get:       s.store.GetEpic,
			delete:    s.store.DeleteEpic,
			list:      s.store.ListEpics,
			deleteAll: s.store.DeleteAllEpics,
		},
		"subtasks": {
			kind:      models.KindSubTask,
			create:    s.store.CreateSubTask,
			update:    s.store.UpdateSubTask,
			get:       s.store.GetSubTask,
			delete:    s.store.DeleteSubTask,
			list:      s.store.ListSubTasks,
			deleteAll: s.store.DeleteAllSubTasks,
		},
	}

	for path, res := range resources {
		mux.HandleFunc("GET /"+path, s.handleList(res))
		mux.HandleFunc("POST /"+path, s.handleCreate(res))
		mux.HandleFunc("DELETE /"+path, s.handleDeleteAll(res))
		mux.HandleFunc("GET /"+path+"/{id}", s.handleGet(res))
		mux.HandleFunc("PUT /"+path+"/{id}", s.handleUpdate(res))
		mux.HandleFunc("DELETE /"+path+"/{id}", s.handleDelete(res))
	}

	mux.HandleFunc("GET /epics/{id}/subtasks", s.handleEpicSubTasks)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /prioritized", s.handlePrioritized)

	return s.withRequestID(mux)
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http server listening", "addr", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleList(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, r, http.StatusOK, res.list(r.Context()), nil)
	}
}

func (s *Server) handleCreate(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := decodeTask(r)
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		t.Kind = res.kind
		if err := res.create(r.Context(), t); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		s.respond(w, r, http.StatusCreated, t, nil)
	}
}

func (s *Server) handleGet(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		t, err := res.get(r.Context(), id)
		s.respond(w, r, http.StatusOK, t, err)
	}
}

func (s *Server) handleUpdate(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		t, err := decodeTask(r)
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		t.ID = id
		t.Kind = res.kind
		// t holds the stored item after a successful update.
		err = res.update(r.Context(), t)
		s.respond(w, r, http.StatusOK, t, err)
	}
}

func (s *Server) handleDelete(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		if err := res.delete(r.Context(), id); err != nil {
			s.respond(w, r, 0, nil, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteAll(res resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res.deleteAll(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleEpicSubTasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respond(w, r, 0, nil, err)
		return
	}
	subs, err := s.store.EpicSubTasks(r.Context(), id)
	s.respond(w, r, http.StatusOK, subs, err)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.store.History(r.Context()), nil)
}

func (s *Server) handlePrioritized(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.store.Prioritized(r.Context()), nil)
}

// errBadRequest marks malformed input that never reached the store.
var errBadRequest = errors.New("bad request")

func decodeTask(r *http.Request) (*models.Task, error) {
	var t models.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return nil, errors.Join(errBadRequest, err)
	}
	return &t, nil
}

func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return 0, errors.Join(errBadRequest, err)
	}
	return id, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, store.ErrValidation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status = statusFor(err)
		if status == http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "request failed", "error", err, "request_id", w.Header().Get(requestIDHeader))
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withRequestID tags every response with a request id, reusing the caller's
// when present, and logs the outcome.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)

		s.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
			"request_id", id,
		)
	})
}
