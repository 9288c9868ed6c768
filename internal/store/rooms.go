package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmswain/chat-relay/internal/model"
)

// CreateRoom inserts a new room and returns it.
func (s *Store) CreateRoom(ctx context.Context) (model.Room, error) {
	room := model.Room{ID: uuid.NewString()}

	err := s.db.QueryRow(ctx, `
		INSERT INTO chat_rooms (id) VALUES ($1)
		RETURNING created_at
	`, room.ID).Scan(&room.CreatedAt)
	if err != nil {
		return model.Room{}, fmt.Errorf("insert room: %w", err)
	}

	return room, nil
}

// AddParticipant records a persisted (room, user) membership. Re-adding an
// existing participant is a no-op.
func (s *Store) AddParticipant(ctx context.Context, roomID, userID string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO room_participants (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`, roomID, userID)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// Rooms lists all rooms with their participants, newest first.
func (s *Store) Rooms(ctx context.Context) ([]model.Room, error) {
	return s.queryRooms(ctx, `
		SELECT cr.id, cr.created_at, rp.user_id
		FROM chat_rooms cr
		LEFT JOIN room_participants rp ON cr.id = rp.room_id
		ORDER BY cr.created_at DESC, cr.id
	`)
}

// UserRooms lists the rooms a user participates in, with the full
// participant list of each.
func (s *Store) UserRooms(ctx context.Context, userID string) ([]model.Room, error) {
	return s.queryRooms(ctx, `
		SELECT cr.id, cr.created_at, rp.user_id
		FROM chat_rooms cr
		JOIN room_participants rp ON cr.id = rp.room_id
		WHERE cr.id IN (
			SELECT room_id FROM room_participants WHERE user_id = $1
		)
		ORDER BY cr.created_at DESC, cr.id
	`, userID)
}

func (s *Store) queryRooms(ctx context.Context, sql string, args ...any) ([]model.Room, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var flat []roomRow
	for rows.Next() {
		var r roomRow
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.UserID); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}

	return groupRooms(flat), nil
}

// roomRow is one row of a room/participant join.
type roomRow struct {
	ID        string
	CreatedAt time.Time
	UserID    *string // nil when the room has no participants
}

// groupRooms collapses join rows into one Room per id, preserving row order.
func groupRooms(rows []roomRow) []model.Room {
	var rooms []model.Room
	index := make(map[string]int)

	for _, r := range rows {
		i, ok := index[r.ID]
		if !ok {
			index[r.ID] = len(rooms)
			rooms = append(rooms, model.Room{ID: r.ID, CreatedAt: r.CreatedAt})
			i = len(rooms) - 1
		}
		if r.UserID != nil {
			rooms[i].Participants = append(rooms[i].Participants, *r.UserID)
		}
	}

	return rooms
}
