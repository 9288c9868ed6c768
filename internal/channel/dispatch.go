package channel

import (
	"time"

	"github.com/google/uuid"

	"github.com/jmswain/chat-relay/internal/model"
	"github.com/jmswain/chat-relay/internal/protocol"
)

// InboundEvent is one relay-to-client event as delivered to listeners.
// Exactly one of Message and Presence is meaningful, selected by Type.
type InboundEvent struct {
	Type     protocol.EventType
	Message  model.Message
	Presence protocol.PresencePayload
}

// Listener receives inbound events for the lifetime of its subscription.
type Listener func(InboundEvent)

// Subscribe registers a listener for every inbound event and returns its
// deregistration handle. Listeners are invoked in registration order and
// survive reconnects.
func (c *Channel) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	token := c.nextToken
	c.nextToken++
	c.listeners = append(c.listeners, listenerEntry{token: token, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, e := range c.listeners {
			if e.token == token {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// dispatch adapts one inbound frame and notifies listeners. Relay MESSAGE
// payloads carry no id or timestamp on this leg; the channel stamps a local
// id and receipt time before delivery. Malformed frames are logged and
// dropped.
func (c *Channel) dispatch(data []byte) {
	evt, err := protocol.Decode(data)
	if err != nil {
		c.logger.Warn("dropping malformed inbound event", "error", err)
		return
	}

	var in InboundEvent
	switch evt.Type {
	case protocol.EventMessage:
		p, err := evt.MessagePayload()
		if err != nil {
			c.logger.Warn("dropping malformed inbound MESSAGE", "error", err)
			return
		}
		in = InboundEvent{
			Type: protocol.EventMessage,
			Message: model.Message{
				ID:        uuid.NewString(),
				SenderID:  p.SenderID,
				Content:   p.Content,
				RoomID:    p.RoomID,
				Timestamp: time.Now(),
			},
		}
	case protocol.EventPresence:
		p, err := evt.PresencePayload()
		if err != nil {
			c.logger.Warn("dropping malformed inbound PRESENCE", "error", err)
			return
		}
		in = InboundEvent{Type: protocol.EventPresence, Presence: p}
	default:
		c.logger.Debug("ignoring inbound event of unknown type", "type", evt.Type)
		return
	}

	c.mu.Lock()
	entries := make([]listenerEntry, len(c.listeners))
	copy(entries, c.listeners)
	c.mu.Unlock()

	for _, e := range entries {
		e.fn(in)
	}
}

// SendMessage publishes a chat message to a room.
func (c *Channel) SendMessage(senderID, content, roomID string) {
	evt, err := protocol.NewEvent(protocol.EventMessage, protocol.MessagePayload{
		SenderID: senderID,
		Content:  content,
		RoomID:   roomID,
	})
	if err != nil {
		c.logger.Error("encode MESSAGE", "error", err)
		return
	}
	c.Publish(evt)
}

// JoinRoom subscribes this user to a room's traffic.
func (c *Channel) JoinRoom(roomID string) {
	evt, err := protocol.NewEvent(protocol.EventJoinRoom, protocol.RoomPayload{RoomID: roomID})
	if err != nil {
		c.logger.Error("encode JOIN_ROOM", "error", err)
		return
	}
	c.Publish(evt)
}

// LeaveRoom unsubscribes this user from a room's traffic.
func (c *Channel) LeaveRoom(roomID string) {
	evt, err := protocol.NewEvent(protocol.EventLeaveRoom, protocol.RoomPayload{RoomID: roomID})
	if err != nil {
		c.logger.Error("encode LEAVE_ROOM", "error", err)
		return
	}
	c.Publish(evt)
}
