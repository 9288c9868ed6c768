// Package relay implements the Connection Registry component.
//
// The Connection Registry:
//   - Holds at most one live connection per user id
//   - Tracks which users are currently in which room
//   - Fans out MESSAGE and PRESENCE events to room members
//   - Cleans up membership and announces offline presence on disconnect
//
// Registry state is guarded by a single registry-wide mutex; broadcast
// iteration snapshots the member set and tolerates connections disappearing
// between snapshot and send.
package relay
