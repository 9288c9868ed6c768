// Package protocol defines the JSON wire events exchanged between the relay
// and its clients.
//
// Every frame is an Event envelope: {"type": ..., "payload": ...}.
//
// Client to relay:
//   - MESSAGE    {senderId, content, roomId}
//   - JOIN_ROOM  {roomId}
//   - LEAVE_ROOM {roomId}
//
// Relay to client:
//   - MESSAGE  {id, senderId, content, roomId, timestamp}
//   - PRESENCE {userId, status, roomId}
package protocol
