package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jmswain/chat-relay/internal/model"
)

// CreateMessage inserts a message and returns the persisted row, including
// the generated id and the database-assigned timestamp.
func (s *Store) CreateMessage(ctx context.Context, senderID, content, roomID string) (model.Message, error) {
	msg := model.Message{
		ID:       uuid.NewString(),
		SenderID: senderID,
		Content:  content,
		RoomID:   roomID,
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, content, room_id)
		VALUES ($1, $2, $3, $4)
		RETURNING timestamp
	`, msg.ID, senderID, content, roomID).Scan(&msg.Timestamp)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}

	return msg, nil
}

// RoomMessages returns up to limit most recent messages for a room in
// chronological order.
func (s *Store) RoomMessages(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, sender_id, content, room_id, timestamp
		FROM (
			SELECT id, sender_id, content, room_id, timestamp
			FROM messages
			WHERE room_id = $1
			ORDER BY timestamp DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC
	`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query room messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.Content, &m.RoomID, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate room messages: %w", err)
	}

	return msgs, nil
}
