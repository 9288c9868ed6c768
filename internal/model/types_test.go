package model

import (
	"encoding/json"
	"testing"
	"time"
)

// TestJSONKeys validates the camelCase wire representation of the model types.
func TestJSONKeys(t *testing.T) {
	t.Run("Message", func(t *testing.T) {
		m := Message{
			ID:        "m1",
			SenderID:  "alice",
			Content:   "hello",
			RoomID:    "r1",
			Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}

		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for _, key := range []string{"id", "senderId", "content", "roomId", "timestamp"} {
			if _, ok := keys[key]; !ok {
				t.Errorf("missing key %q", key)
			}
		}
	})

	t.Run("Room", func(t *testing.T) {
		r := Room{
			ID:           "r1",
			Participants: []string{"alice", "bob"},
			CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		}

		data, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var keys map[string]json.RawMessage
		if err := json.Unmarshal(data, &keys); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for _, key := range []string{"id", "participants", "createdAt"} {
			if _, ok := keys[key]; !ok {
				t.Errorf("missing key %q", key)
			}
		}
	})
}

func TestMessageRoundTrip(t *testing.T) {
	data := `{"id":"m1","senderId":"bob","content":"hey","roomId":"general","timestamp":"2025-06-01T12:00:00Z"}`

	var m Message
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if m.ID != "m1" || m.SenderID != "bob" || m.Content != "hey" || m.RoomID != "general" {
		t.Errorf("message = %+v", m)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !m.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", m.Timestamp, want)
	}
}
