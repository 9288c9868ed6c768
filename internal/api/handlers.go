package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jmswain/chat-relay/internal/model"
	"github.com/jmswain/chat-relay/internal/relay"
)

// DefaultMessageLimit bounds GET /rooms/{id}/messages when no limit is given.
const DefaultMessageLimit = 50

// ChatStore is the persistence surface the API needs.
type ChatStore interface {
	Ping(ctx context.Context) error
	CreateRoom(ctx context.Context) (model.Room, error)
	Rooms(ctx context.Context) ([]model.Room, error)
	UserRooms(ctx context.Context, userID string) ([]model.Room, error)
	RoomMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error)
}

// RegistryStats reports live connection counts for the health endpoint.
type RegistryStats interface {
	Stats() relay.RegistryStats
}

// New creates the HTTP API handler.
func New(store ChatStore, registry RegistryStats, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{store: store, registry: registry, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.health)
	mux.HandleFunc("GET /rooms", s.listRooms)
	mux.HandleFunc("POST /rooms", s.createRoom)
	mux.HandleFunc("GET /rooms/{id}/messages", s.roomMessages)
	mux.HandleFunc("GET /users/{id}/rooms", s.userRooms)
	return mux
}

type server struct {
	store    ChatStore
	registry RegistryStats
	logger   *slog.Logger
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := struct {
		Status      string `json:"status"`
		Database    string `json:"database"`
		Connections int    `json:"connections"`
		Rooms       int    `json:"rooms"`
	}{Status: "healthy", Database: "connected"}

	if err := s.store.Ping(ctx); err != nil {
		health.Status = "unhealthy"
		health.Database = "disconnected"
	}

	stats := s.registry.Stats()
	health.Connections = stats.Connections
	health.Rooms = stats.Rooms

	code := http.StatusOK
	if health.Status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *server) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.Rooms(r.Context())
	if err != nil {
		s.serverError(w, "list rooms", err)
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *server) createRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.CreateRoom(r.Context())
	if err != nil {
		s.serverError(w, "create room", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *server) roomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")

	limit := DefaultMessageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	msgs, err := s.store.RoomMessages(r.Context(), roomID, limit)
	if err != nil {
		s.serverError(w, "room messages", err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *server) userRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.store.UserRooms(r.Context(), r.PathValue("id"))
	if err != nil {
		s.serverError(w, "user rooms", err)
		return
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (s *server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
