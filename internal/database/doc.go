// Package database constructs the pgx connection pool used by the store.
package database
