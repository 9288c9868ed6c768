package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/jmswain/chat-relay/internal/model"
)

// EventType tags an Event envelope.
type EventType string

const (
	EventMessage   EventType = "MESSAGE"
	EventJoinRoom  EventType = "JOIN_ROOM"
	EventLeaveRoom EventType = "LEAVE_ROOM"
	EventPresence  EventType = "PRESENCE"
)

// PresenceStatus is the reachability announced by a PRESENCE event.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

// Event is the wire envelope for every frame in both directions.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MessagePayload is the client-to-relay MESSAGE payload. It carries no id or
// timestamp; those are assigned by the persistence layer before fan-out.
type MessagePayload struct {
	SenderID string `json:"senderId"`
	Content  string `json:"content"`
	RoomID   string `json:"roomId"`
}

// RoomPayload is the JOIN_ROOM / LEAVE_ROOM payload.
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// PresencePayload is the relay-to-client PRESENCE payload.
type PresencePayload struct {
	UserID string         `json:"userId"`
	Status PresenceStatus `json:"status"`
	RoomID string         `json:"roomId"`
}

// Decode parses a raw frame into an Event envelope.
func Decode(data []byte) (Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return evt, nil
}

// NewEvent builds an Event envelope around an arbitrary payload.
func NewEvent(typ EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{Type: typ, Payload: data}, nil
}

// NewMessageEvent builds the relay-to-client MESSAGE frame for a persisted
// message.
func NewMessageEvent(msg model.Message) (Event, error) {
	return NewEvent(EventMessage, msg)
}

// NewPresenceEvent builds a PRESENCE frame.
func NewPresenceEvent(userID string, status PresenceStatus, roomID string) (Event, error) {
	return NewEvent(EventPresence, PresencePayload{
		UserID: userID,
		Status: status,
		RoomID: roomID,
	})
}

// Encode serializes an Event for the wire.
func Encode(evt Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", evt.Type, err)
	}
	return data, nil
}

// MessagePayload extracts the client-to-relay MESSAGE payload.
func (e Event) MessagePayload() (MessagePayload, error) {
	var p MessagePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return MessagePayload{}, fmt.Errorf("decode MESSAGE payload: %w", err)
	}
	return p, nil
}

// RoomPayload extracts a JOIN_ROOM / LEAVE_ROOM payload.
func (e Event) RoomPayload() (RoomPayload, error) {
	var p RoomPayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return RoomPayload{}, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	if p.RoomID == "" {
		return RoomPayload{}, fmt.Errorf("decode %s payload: missing roomId", e.Type)
	}
	return p, nil
}

// PresencePayload extracts a PRESENCE payload.
func (e Event) PresencePayload() (PresencePayload, error) {
	var p PresencePayload
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return PresencePayload{}, fmt.Errorf("decode PRESENCE payload: %w", err)
	}
	return p, nil
}

// Message extracts a full relay-to-client MESSAGE payload.
func (e Event) Message() (model.Message, error) {
	var m model.Message
	if err := json.Unmarshal(e.Payload, &m); err != nil {
		return model.Message{}, fmt.Errorf("decode MESSAGE payload: %w", err)
	}
	return m, nil
}
