package database

import (
	"fmt"
	"net/url"

	"github.com/jmswain/chat-relay/internal/config"
)

// BuildConnString renders cfg as a postgres:// URL for pgxpool.ParseConfig.
// The password is query-escaped so symbols in secrets survive the URL form;
// an unset ssl_mode falls back to the config default.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = config.DefaultDBSSLMode
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, url.QueryEscape(cfg.Password),
		cfg.Host, cfg.Port, cfg.Name, sslMode)
}
