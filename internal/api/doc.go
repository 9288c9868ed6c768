// Package api serves the HTTP surface next to the WebSocket endpoint:
// room/message CRUD plus a health check covering the database and the
// connection registry.
package api
