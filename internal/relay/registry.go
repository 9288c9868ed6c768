package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jmswain/chat-relay/internal/model"
	"github.com/jmswain/chat-relay/internal/protocol"
)

// ErrMissingUserID rejects a handshake with no user identifier.
var ErrMissingUserID = errors.New("missing user id")

// Store is the persistence collaborator. CreateMessage returns the stored
// row carrying the canonical id and timestamp used for fan-out;
// AddParticipant records a durable room membership.
type Store interface {
	CreateMessage(ctx context.Context, senderID, content, roomID string) (model.Message, error)
	AddParticipant(ctx context.Context, roomID, userID string) error
}

// Registry owns the set of live connections and the room membership index.
type Registry struct {
	store  Store
	logger *slog.Logger

	mu    sync.RWMutex
	conns map[string]*conn
	rooms map[string]map[string]struct{} // room id -> set of user ids
}

// RegistryStats provides statistics about the registry.
type RegistryStats struct {
	Connections int
	Rooms       int
}

// NewRegistry creates a Connection Registry.
func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		logger: logger,
		conns:  make(map[string]*conn),
		rooms:  make(map[string]map[string]struct{}),
	}
}

// Accept registers a new connection for userID. A second handshake for the
// same user replaces the previous connection, which is closed.
func (r *Registry) Accept(userID string, t Transport) error {
	_, err := r.accept(userID, t)
	return err
}

func (r *Registry) accept(userID string, t Transport) (*conn, error) {
	if userID == "" {
		t.Close()
		return nil, ErrMissingUserID
	}

	c := newConn(userID, t)

	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = c
	r.mu.Unlock()

	if old != nil {
		old.close()
		r.logger.Info("connection replaced", "user_id", userID)
	} else {
		r.logger.Info("connection accepted", "user_id", userID)
	}

	return c, nil
}

// HandleInbound dispatches one inbound frame from userID. Malformed frames
// are logged and dropped; they never terminate the connection.
func (r *Registry) HandleInbound(ctx context.Context, userID string, data []byte) {
	evt, err := protocol.Decode(data)
	if err != nil {
		r.logger.Warn("dropping malformed event", "user_id", userID, "error", err)
		return
	}

	switch evt.Type {
	case protocol.EventMessage:
		r.handleMessage(ctx, userID, evt)
	case protocol.EventJoinRoom:
		r.handleJoin(ctx, userID, evt)
	case protocol.EventLeaveRoom:
		r.handleLeave(userID, evt)
	default:
		r.logger.Warn("dropping event of unknown type", "user_id", userID, "type", evt.Type)
	}
}

// HandleDisconnect removes the user's connection, removes the user from
// every room, and announces offline presence to the remaining members.
// This is the only path that announces offline status.
func (r *Registry) HandleDisconnect(userID string) {
	r.disconnect(userID, nil)
}

// disconnect tears down a session. When expect is non-nil, the registry
// entry is removed only if it is still that conn: a read loop ending after
// its connection was replaced must not tear down the replacement.
func (r *Registry) disconnect(userID string, expect *conn) {
	r.mu.Lock()
	c, ok := r.conns[userID]
	if ok && expect != nil && c != expect {
		r.mu.Unlock()
		expect.close()
		return
	}
	if ok {
		delete(r.conns, userID)
	}

	var affected []string
	for roomID, members := range r.rooms {
		if _, in := members[userID]; !in {
			continue
		}
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
		affected = append(affected, roomID)
	}
	r.mu.Unlock()

	if c != nil {
		c.close()
	}
	if expect != nil {
		expect.close()
	}
	if !ok && len(affected) == 0 {
		return
	}

	r.logger.Info("connection closed", "user_id", userID, "rooms", len(affected))

	for _, roomID := range affected {
		evt, err := protocol.NewPresenceEvent(userID, protocol.StatusOffline, roomID)
		if err != nil {
			r.logger.Error("encode presence event", "error", err)
			continue
		}
		r.broadcast(roomID, evt, userID)
	}
}

// Stats returns current registry statistics.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{
		Connections: len(r.conns),
		Rooms:       len(r.rooms),
	}
}

// handleMessage persists the message, then fans the stored row out to every
// member of the room, including the sender. A persistence failure is logged
// and the event dropped; other members see nothing.
func (r *Registry) handleMessage(ctx context.Context, userID string, evt protocol.Event) {
	p, err := evt.MessagePayload()
	if err != nil {
		r.logger.Warn("dropping malformed MESSAGE", "user_id", userID, "error", err)
		return
	}

	msg, err := r.store.CreateMessage(ctx, p.SenderID, p.Content, p.RoomID)
	if err != nil {
		r.logger.Error("create message failed",
			"user_id", userID,
			"room_id", p.RoomID,
			"error", err,
		)
		return
	}

	out, err := protocol.NewMessageEvent(msg)
	if err != nil {
		r.logger.Error("encode message event", "error", err)
		return
	}

	// Sender included: its UI reconciles via the broadcast, not a local echo.
	r.broadcast(p.RoomID, out, "")
}

// handleJoin adds the user to the room and announces online presence to the
// other current members. The joining user gets no echo. The durable
// membership row is best-effort: a write failure never blocks the join.
func (r *Registry) handleJoin(ctx context.Context, userID string, evt protocol.Event) {
	p, err := evt.RoomPayload()
	if err != nil {
		r.logger.Warn("dropping malformed JOIN_ROOM", "user_id", userID, "error", err)
		return
	}

	if err := r.store.AddParticipant(ctx, p.RoomID, userID); err != nil {
		r.logger.Warn("persist participant failed",
			"user_id", userID,
			"room_id", p.RoomID,
			"error", err,
		)
	}

	r.mu.Lock()
	members, ok := r.rooms[p.RoomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[p.RoomID] = members
	}
	members[userID] = struct{}{}
	r.mu.Unlock()

	r.logger.Debug("user joined room", "user_id", userID, "room_id", p.RoomID)

	out, err := protocol.NewPresenceEvent(userID, protocol.StatusOnline, p.RoomID)
	if err != nil {
		r.logger.Error("encode presence event", "error", err)
		return
	}
	r.broadcast(p.RoomID, out, userID)
}

// handleLeave removes the user from the room and prunes the entry if it is
// now empty. An explicit leave announces no presence; only disconnect does.
func (r *Registry) handleLeave(userID string, evt protocol.Event) {
	p, err := evt.RoomPayload()
	if err != nil {
		r.logger.Warn("dropping malformed LEAVE_ROOM", "user_id", userID, "error", err)
		return
	}

	r.mu.Lock()
	if members, ok := r.rooms[p.RoomID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, p.RoomID)
		}
	}
	r.mu.Unlock()

	r.logger.Debug("user left room", "user_id", userID, "room_id", p.RoomID)
}

// broadcast pushes one event to every member of the room except exclude.
// Members without a live, writable connection are skipped; there is no
// queueing or retry.
func (r *Registry) broadcast(roomID string, evt protocol.Event, exclude string) {
	data, err := protocol.Encode(evt)
	if err != nil {
		r.logger.Error("encode broadcast frame", "room_id", roomID, "error", err)
		return
	}

	// Snapshot targets under the read lock, send outside it.
	r.mu.RLock()
	members := r.rooms[roomID]
	targets := make([]*conn, 0, len(members))
	for userID := range members {
		if userID == exclude {
			continue
		}
		if c, ok := r.conns[userID]; ok {
			targets = append(targets, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range targets {
		if !c.send(data) {
			r.logger.Debug("skipping unwritable connection",
				"user_id", c.userID,
				"room_id", roomID,
			)
		}
	}
}
