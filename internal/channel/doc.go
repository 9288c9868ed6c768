// Package channel implements the Reconnecting Client Channel component.
//
// A Channel presents one logical connection to the relay over a sequence of
// physical WebSocket connections:
//   - Reconnects with exponential backoff after a drop (floor delay doubling
//     per attempt, bounded attempt count, then Exhausted)
//   - Publishes events best-effort: writes happen only while Open
//   - Dispatches inbound events to subscribed listeners in registration
//     order, surviving reconnects
//
// At most one physical connection is active per channel at a time.
package channel
