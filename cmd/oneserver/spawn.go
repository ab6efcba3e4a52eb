package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/playone/oneserver/cmd/oneserver/shared"
	"github.com/playone/oneserver/internal/client"
	"github.com/playone/oneserver/internal/game"
	"github.com/playone/oneserver/internal/randutil"
	"github.com/playone/oneserver/internal/server"
)

type SpawnCmd struct {
	Addr       string `kong:"default='localhost:0',help='Server address, defaults to random port on localhost'"`
	Rooms      int    `kong:"default='1',help='Number of rooms to run concurrently'"`
	Bots       int    `kong:"default='3',help='Server-driven bots per room'"`
	BotDelayMs int    `kong:"default='0',help='Bot think delay in milliseconds'"`
	Seed       int64  `kong:"help='Seed for deterministic testing (0 for random)'"`
	LogLevel   string `kong:"default='info',enum='debug,info,warn,error',help='Log level'"`
}

func (c *SpawnCmd) Run() error {
	level := zerolog.InfoLevel
	switch c.LogLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	// The transport and the wire clients log through charmbracelet; keep
	// them at warn so the zerolog game narrative stays readable.
	wsLogger := log.New(os.Stderr)
	wsLogger.SetLevel(log.WarnLevel)
	if c.LogLevel == "debug" {
		wsLogger.SetLevel(log.DebugLevel)
	}

	if c.Rooms < 1 {
		return fmt.Errorf("need at least one room, got %d", c.Rooms)
	}
	if c.Bots < 1 {
		return fmt.Errorf("need at least one bot per room, got %d", c.Bots)
	}

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Every room holds one wire client plus the requested bots.
	roomCfg := game.DefaultConfig()
	roomCfg.Seed = seed
	roomCfg.BotDelay = time.Duration(c.BotDelayMs) * time.Millisecond
	roomCfg.BotLimit = c.Bots
	if roomCfg.MaxPlayers < c.Bots+1 {
		roomCfg.MaxPlayers = c.Bots + 1
	}

	listener, err := net.Listen("tcp", c.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	wsURL := fmt.Sprintf("ws://%s/ws", listener.Addr())

	srv := server.NewServer(listener.Addr().String(), wsLogger)
	registry := server.NewRegistry(roomCfg, server.RegistryDeps{
		Fanout:     srv,
		Logger:     logger,
		RandSource: randutil.New(seed),
	})
	srv.SetRegistry(registry)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Serve(listener)
	}()
	defer srv.Stop()

	serverURL := fmt.Sprintf("http://%s", listener.Addr())
	if err := waitForHealthy(ctx, serverURL); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	logger.Info().
		Str("url", wsURL).
		Int("rooms", c.Rooms).
		Int("bots_per_room", c.Bots).
		Int64("seed", seed).
		Msg("Server started, spawning rooms")

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.Rooms; i++ {
		roomNum := i + 1
		g.Go(func() error {
			return c.runRoom(gctx, wsURL, wsLogger, logger, roomNum, seed+int64(roomNum))
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().
		Int("rooms", c.Rooms).
		Dur("duration", time.Since(start)).
		Msg("All rooms finished")
	return nil
}

// runRoom drives one full game over a real WebSocket: a host client
// creates the room, fills it with bots, starts the game, and autoplays
// its own seat until the game ends. The host cannot simply leave and
// watch; a room closes when its last human departs.
func (c *SpawnCmd) runRoom(ctx context.Context, wsURL string, wsLogger *log.Logger, logger zerolog.Logger, roomNum int, seed int64) error {
	host := client.NewClient(wsURL, wsLogger)
	state := client.TrackState(host)
	auto := client.NewAutoPlayer(host, state, randutil.New(seed), wsLogger)

	if err := host.Connect(); err != nil {
		return fmt.Errorf("room %d: connect: %w", roomNum, err)
	}
	defer host.Disconnect()

	if err := host.Handshake(fmt.Sprintf("host-%d", roomNum), 5*time.Second); err != nil {
		return fmt.Errorf("room %d: hello: %w", roomNum, err)
	}

	if err := host.CreateRoom(server.CreateRoomData{}); err != nil {
		return fmt.Errorf("room %d: create: %w", roomNum, err)
	}
	if err := waitFor(ctx, 5*time.Second, func() bool { return host.RoomCode() != "" }); err != nil {
		return fmt.Errorf("room %d: no room code: %w", roomNum, err)
	}

	// The connection delivers these in order, so the start lands after
	// every bot has taken a seat.
	for i := 0; i < c.Bots; i++ {
		if err := host.AddBot(); err != nil {
			return fmt.Errorf("room %d: add bot: %w", roomNum, err)
		}
	}
	if err := host.StartGame(); err != nil {
		return fmt.Errorf("room %d: start: %w", roomNum, err)
	}

	logger.Info().
		Int("room", roomNum).
		Str("code", host.RoomCode()).
		Int("bots", c.Bots).
		Msg("Room started")

	select {
	case <-auto.GameOver():
	case <-ctx.Done():
		return ctx.Err()
	}

	winner := ""
	for _, seat := range state.Public().Seats {
		if seat.HandSize == 0 {
			winner = seat.Nickname
		}
	}
	logger.Info().
		Int("room", roomNum).
		Str("code", host.RoomCode()).
		Str("winner", winner).
		Msg("Game finished")
	return nil
}

func waitFor(ctx context.Context, timeout time.Duration, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}
	return fmt.Errorf("condition not met within %s", timeout)
}

func waitForHealthy(ctx context.Context, baseURL string) error {
	healthURL := fmt.Sprintf("%s/health", baseURL)
	httpClient := &http.Client{Timeout: 100 * time.Millisecond}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}

		resp, err := httpClient.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	return fmt.Errorf("server failed to become healthy within timeout")
}
