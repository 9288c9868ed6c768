// Package store persists chat messages, rooms, and room participants in
// PostgreSQL.
//
// The relay calls CreateMessage synchronously while handling an inbound
// MESSAGE event: the returned row carries the canonical message id and
// database timestamp that are fanned out to room members. Everything else is
// request/response glue for the HTTP API.
package store
