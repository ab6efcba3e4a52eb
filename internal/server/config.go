package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/playone/oneserver/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server  ServerSettings `hcl:"server,block"`
	Rooms   RoomSettings   `hcl:"rooms,block"`
	History HistoryConfig  `hcl:"history,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// RoomSettings holds the defaults applied to newly created rooms. The
// boolean knobs are phrased so the zero value is the default behavior.
type RoomSettings struct {
	MaxPlayers      int  `hcl:"max_players,optional"`
	InitialHandSize int  `hcl:"initial_hand_size,optional"`
	NoStacking      bool `hcl:"no_stacking,optional"`
	BotDelayMs      int  `hcl:"bot_delay_ms,optional"`
	BotLimit        int  `hcl:"bot_limit,optional"`
	PointsToWin     int  `hcl:"points_to_win,optional"`
}

// HistoryConfig configures the finished-game history store.
type HistoryConfig struct {
	Disabled     bool   `hcl:"disabled,optional"`
	DatabasePath string `hcl:"database_path,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
			LogFile:  "oneserver.log",
		},
		Rooms: RoomSettings{
			MaxPlayers:      4,
			InitialHandSize: 7,
			BotDelayMs:      3500,
			BotLimit:        3,
			PointsToWin:     500,
		},
		History: HistoryConfig{
			DatabasePath: "oneserver-history.db",
		},
	}
}

// LoadServerConfig loads server configuration from an HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	def := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = def.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = def.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = def.Server.LogLevel
	}
	if config.Server.LogFile == "" {
		config.Server.LogFile = def.Server.LogFile
	}
	if config.Rooms.MaxPlayers == 0 {
		config.Rooms.MaxPlayers = def.Rooms.MaxPlayers
	}
	if config.Rooms.InitialHandSize == 0 {
		config.Rooms.InitialHandSize = def.Rooms.InitialHandSize
	}
	if config.Rooms.BotDelayMs == 0 {
		config.Rooms.BotDelayMs = def.Rooms.BotDelayMs
	}
	if config.Rooms.BotLimit == 0 {
		config.Rooms.BotLimit = def.Rooms.BotLimit
	}
	if config.Rooms.PointsToWin == 0 {
		config.Rooms.PointsToWin = def.Rooms.PointsToWin
	}
	if config.History.DatabasePath == "" {
		config.History.DatabasePath = def.History.DatabasePath
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Rooms.MaxPlayers < 2 || c.Rooms.MaxPlayers > 10 {
		return fmt.Errorf("max players must be between 2 and 10, got %d", c.Rooms.MaxPlayers)
	}
	if c.Rooms.InitialHandSize < 1 {
		return fmt.Errorf("initial hand size must be positive, got %d", c.Rooms.InitialHandSize)
	}
	if c.Rooms.BotLimit < 0 || c.Rooms.BotLimit >= c.Rooms.MaxPlayers {
		return fmt.Errorf("bot limit must leave room for a human, got %d of %d seats",
			c.Rooms.BotLimit, c.Rooms.MaxPlayers)
	}
	if c.Rooms.BotDelayMs < 0 {
		return fmt.Errorf("bot delay must not be negative, got %d", c.Rooms.BotDelayMs)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// RoomConfig converts the room defaults into a game config.
func (c *ServerConfig) RoomConfig() game.Config {
	return game.Config{
		MaxPlayers:      c.Rooms.MaxPlayers,
		InitialHandSize: c.Rooms.InitialHandSize,
		StackingAllowed: !c.Rooms.NoStacking,
		PointsToWin:     c.Rooms.PointsToWin,
		BotDelay:        time.Duration(c.Rooms.BotDelayMs) * time.Millisecond,
		BotLimit:        c.Rooms.BotLimit,
	}
}
