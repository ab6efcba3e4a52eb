package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigMissingFile(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadServerConfig(t *testing.T) {
	content := `
server {
  address   = "0.0.0.0"
  port      = 9000
  log_level = "debug"
}

rooms {
  max_players  = 6
  bot_delay_ms = 500
  no_stacking  = true
}

history {
  database_path = "games.db"
}
`
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 6, cfg.Rooms.MaxPlayers)
	assert.Equal(t, "games.db", cfg.History.DatabasePath)

	// Unset fields fall back to defaults.
	assert.Equal(t, 7, cfg.Rooms.InitialHandSize)
	assert.Equal(t, 3, cfg.Rooms.BotLimit)

	room := cfg.RoomConfig()
	assert.Equal(t, 6, room.MaxPlayers)
	assert.False(t, room.StackingAllowed)
	assert.Equal(t, 500*time.Millisecond, room.BotDelay)
}

func TestServerConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{"bad port", func(c *ServerConfig) { c.Server.Port = 0 }},
		{"too few players", func(c *ServerConfig) { c.Rooms.MaxPlayers = 1 }},
		{"bots crowd out humans", func(c *ServerConfig) { c.Rooms.BotLimit = 4 }},
		{"negative bot delay", func(c *ServerConfig) { c.Rooms.BotDelayMs = -1 }},
		{"bad log level", func(c *ServerConfig) { c.Server.LogLevel = "loud" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
