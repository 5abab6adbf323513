// Package sandbox serves the notes REST contract for local development,
// together with a websocket change feed and Prometheus metrics.
package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Ratio1/notes_sdk_go/internal/logger"
	"github.com/Ratio1/notes_sdk_go/internal/metrics"
	"github.com/Ratio1/notes_sdk_go/internal/notesapi"
	"github.com/Ratio1/notes_sdk_go/pkg/notes"
)

const (
	notesPath   = "/api/notes"
	eventsPath  = "/api/notes/events"
	metricsPath = "/metrics"
)

// Store is the note model behind the server. Both the in-memory mock and
// storage.BoltStore satisfy it.
type Store interface {
	List(ctx context.Context) ([]notes.Note, error)
	Create(ctx context.Context, text string) (notes.Note, error)
	Vote(ctx context.Context, id int64, dir notes.VoteDirection) (notes.Note, error)
	Delete(ctx context.Context, id int64) error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithLatency delays every API request by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.latency = d
	}
}

// WithFailure enables failure injection.
func WithFailure(cfg FailConfig) Option {
	return func(s *Server) {
		s.fail = cfg
	}
}

// WithRegistry registers the server metrics on reg and exposes reg on /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.registry = reg
		}
	}
}

// Server implements http.Handler.
type Server struct {
	store    Store
	hub      *Hub
	log      *logrus.Entry
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	latency  time.Duration
	fail     FailConfig
	mux      *http.ServeMux
}

// New builds a server over store.
func New(store Store, opts ...Option) *Server {
	s := &Server{
		store: store,
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.metrics = metrics.New("sandbox", s.registry)
	s.hub = newHub(s.log)

	s.mux = http.NewServeMux()
	s.mux.HandleFunc(notesPath, s.handleCollection)
	s.mux.HandleFunc(notesPath+"/", s.handleNote)
	s.mux.HandleFunc(eventsPath, s.hub.serveWS)
	s.mux.Handle(metricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Hub returns the change feed hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.instrument("list", s.handleList)(w, r)
	case http.MethodPost:
		s.instrument("create", s.handleCreate)(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleNote routes /api/notes/{id} and /api/notes/{id}/vote.
func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, notesPath+"/"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "vote") {
		http.NotFound(w, r)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid note id", http.StatusBadRequest)
		return
	}

	if len(parts) == 2 {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		s.instrument("vote", func(w http.ResponseWriter, r *http.Request) {
			s.handleVote(w, r, id)
		})(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}
	s.instrument("delete", func(w http.ResponseWriter, r *http.Request) {
		s.handleDelete(w, r, id)
	})(w, r)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []notes.Note{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req notesapi.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := notesapi.Validate(req); err != nil || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	n, err := s.store.Create(r.Context(), req.Text)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.hub.Broadcast(notes.Event{Type: notes.EventCreated, Note: n})
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request, id int64) {
	dir, err := notes.ParseVoteDirection(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, "type must be up or down", http.StatusBadRequest)
		return
	}
	n, err := s.store.Vote(r.Context(), id, dir)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	s.hub.Broadcast(notes.Event{Type: notes.EventVoted, Note: n})
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	s.hub.Broadcast(notes.Event{Type: notes.EventDeleted, Note: notes.Note{ID: id}})
	w.WriteHeader(http.StatusNoContent)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, notes.ErrNotFound):
		http.Error(w, "note not found", http.StatusNotFound)
	case errors.Is(err, notes.ErrEmptyText), errors.Is(err, notes.ErrInvalidVoteDirection):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := notesapi.Encode(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
