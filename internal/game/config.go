package game

import "time"

const (
	// Default bot "thinking" delay before an autoplay action.
	defaultBotDelay = 3500 * time.Millisecond

	// Cap on consecutive bot actions processed per scheduler tick, so a
	// two-seat REVERSE oscillation between bots cannot wedge the writer.
	defaultMaxBotRun = 20

	defaultMaxPlayers      = 4
	defaultInitialHandSize = 7
	defaultBotLimit        = 3
)

// Config describes a session's rule and pacing parameters. A zero
// BotDelay is valid and means bots act immediately (tests use it).
type Config struct {
	MaxPlayers      int
	InitialHandSize int
	StackingAllowed bool
	PointsToWin     int
	BotDelay        time.Duration
	MaxBotRun       int
	BotLimit        int
	Seed            int64
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:      defaultMaxPlayers,
		InitialHandSize: defaultInitialHandSize,
		StackingAllowed: true,
		PointsToWin:     500,
		BotDelay:        defaultBotDelay,
		MaxBotRun:       defaultMaxBotRun,
		BotLimit:        defaultBotLimit,
	}
}

// withDefaults fills zero values in from DefaultConfig. BotDelay is
// left untouched so an explicit zero survives.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = def.MaxPlayers
	}
	if c.InitialHandSize <= 0 {
		c.InitialHandSize = def.InitialHandSize
	}
	if c.MaxBotRun <= 0 {
		c.MaxBotRun = def.MaxBotRun
	}
	if c.BotLimit <= 0 {
		c.BotLimit = def.BotLimit
	}
	if c.PointsToWin <= 0 {
		c.PointsToWin = def.PointsToWin
	}
	return c
}
