package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-relay
server:
  host: 127.0.0.1
  port: 4001
  ws_path: /socket
database:
  postgres:
    host: localhost
    port: 5432
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-relay" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-relay")
	}
	if cfg.Server.Port != 4001 {
		t.Errorf("Server.Port = %d, want 4001", cfg.Server.Port)
	}
	if cfg.Server.WSPath != "/socket" {
		t.Errorf("Server.WSPath = %q, want %q", cfg.Server.WSPath, "/socket")
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: test-relay
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-relay
database:
  postgres:
    host: localhost
    name: test_db
    user: testuser
    password: testpass
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
	if cfg.Server.WSPath != DefaultWSPath {
		t.Errorf("Server.WSPath = %q, want default %q", cfg.Server.WSPath, DefaultWSPath)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Database.Postgres.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Postgres.MaxConns = %d, want default %d", cfg.Database.Postgres.MaxConns, DefaultMaxConns)
	}
	if cfg.Channel.ReconnectBaseDelay != DefaultReconnectBaseDelay {
		t.Errorf("Channel.ReconnectBaseDelay = %v, want default %v", cfg.Channel.ReconnectBaseDelay, DefaultReconnectBaseDelay)
	}
	if cfg.Channel.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("Channel.MaxReconnectAttempts = %d, want default %d", cfg.Channel.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
}

func TestValidate(t *testing.T) {
	valid := func() RelayConfig {
		return RelayConfig{
			Instance: InstanceConfig{ID: "test"},
			Server:   ServerConfig{Host: "0.0.0.0", Port: 3001, WSPath: "/ws"},
			Database: DatabaseConfig{
				Postgres: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2},
			},
			Channel: ChannelConfig{
				URL:                  "ws://localhost:3001/ws",
				ReconnectBaseDelay:   time.Second,
				MaxReconnectAttempts: 5,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*RelayConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(*RelayConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *RelayConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "port out of range",
			mutate:  func(c *RelayConfig) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "ws_path without leading slash",
			mutate:  func(c *RelayConfig) { c.Server.WSPath = "ws" },
			wantErr: `server.ws_path must start with /, got "ws"`,
		},
		{
			name:    "missing postgres host",
			mutate:  func(c *RelayConfig) { c.Database.Postgres.Host = "" },
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "missing postgres password",
			mutate:  func(c *RelayConfig) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password is required",
		},
		{
			name: "min_conns exceeds max_conns",
			mutate: func(c *RelayConfig) {
				c.Database.Postgres.MaxConns = 5
				c.Database.Postgres.MinConns = 10
			},
			wantErr: "database.postgres.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "zero reconnect attempts",
			mutate:  func(c *RelayConfig) { c.Channel.MaxReconnectAttempts = 0 },
			wantErr: "channel.max_reconnect_attempts must be >= 1",
		},
		{
			name:    "non-positive base delay",
			mutate:  func(c *RelayConfig) { c.Channel.ReconnectBaseDelay = 0 },
			wantErr: "channel.reconnect_base_delay must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
