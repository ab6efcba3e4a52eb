package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/playone/oneserver/cmd/oneserver/shared"
	"github.com/playone/oneserver/internal/game"
	"github.com/playone/oneserver/internal/history"
	"github.com/playone/oneserver/internal/randutil"
	"github.com/playone/oneserver/internal/server"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config    string `short:"c" default:"oneserver.hcl" help:"Path to HCL configuration file"`
	Addr      string `short:"a" help:"Server address to bind to (overrides config, host:port)"`
	Debug     bool   `help:"Enable debug logging"`
	Seed      *int64 `help:"Deterministic RNG seed for the server (optional)"`
	NoHistory bool   `help:"Disable the finished-game history store"`
}

func (c *ServerCmd) Run() error {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Apply command line overrides
	if c.Addr != "" {
		host, portStr, err := net.SplitHostPort(c.Addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", c.Addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid port in --addr %q: %w", c.Addr, err)
		}
		cfg.Server.Address = host
		cfg.Server.Port = port
	}
	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if c.NoHistory {
		cfg.History.Disabled = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Transport logging goes through charmbracelet, the game core and
	// history store log structured zerolog lines.
	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	gameLogger := shared.SetupLogger(cfg.Server.LogLevel == "debug")

	// Setup RNG and seed
	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		gameLogger.Info().Int64("seed", seed).Msg("Using deterministic seed")
	} else {
		seed = time.Now().UnixNano()
		gameLogger.Info().Int64("seed", seed).Msg("Using random seed")
	}
	rng := randutil.New(seed)

	roomCfg := cfg.RoomConfig()
	roomCfg.Seed = seed

	var hooks game.LifecycleHooks
	if !cfg.History.Disabled {
		store, err := history.Open(cfg.History.DatabasePath, gameLogger)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()
		hooks = store
		gameLogger.Info().Str("path", cfg.History.DatabasePath).Msg("Game history enabled")
	}

	srv := server.NewServer(cfg.GetServerAddress(), logger)
	registry := server.NewRegistry(roomCfg, server.RegistryDeps{
		Fanout:     srv,
		Hooks:      hooks,
		Logger:     gameLogger,
		RandSource: rng,
	})
	srv.SetRegistry(registry)

	logger.Info("Starting ONE server",
		"addr", cfg.GetServerAddress(),
		"maxPlayers", cfg.Rooms.MaxPlayers,
		"initialHandSize", cfg.Rooms.InitialHandSize,
		"stacking", !cfg.Rooms.NoStacking,
		"pointsToWin", cfg.Rooms.PointsToWin,
		"botDelay", roomCfg.BotDelay,
		"botLimit", cfg.Rooms.BotLimit)

	// Setup graceful shutdown
	ctx := shared.SetupSignalHandlerWithLogger(gameLogger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
		return srv.Stop()
	case err := <-serverErr:
		return err
	}
}
