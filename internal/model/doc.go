// Package model defines shared chat data types used across the relay.
//
// Conventions:
//   - IDs: uuid strings for rooms and messages, opaque strings for users
//   - Timestamps: time.Time, produced by the database for persisted rows
package model
