package client

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/playone/oneserver/internal/tui"
)

// Config are the effective settings for an interactive session; CLI
// flags overlay the HCL client config.
type Config struct {
	Server     string // WebSocket URL
	Name       string // display name, defaults to $USER
	Room       string // room code to join on connect, empty for lobby
	ConfigPath string
	Debug      bool
}

// Run connects to the server and hands the terminal to the TUI until
// the user quits or the connection drops.
func Run(cfg Config) error {
	fileCfg, err := LoadClientConfig(cfg.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Server == "" {
		cfg.Server = fileCfg.Server.URL
	}
	if cfg.Name == "" {
		cfg.Name = fileCfg.Player.Name
	}
	if cfg.Name == "" {
		cfg.Name = os.Getenv("USER")
	}
	if cfg.Name == "" {
		cfg.Name = "Player"
	}

	// The TUI owns the terminal, so logs go to a file.
	logOutput := io.Discard
	if fileCfg.UI.LogFile != "" {
		if f, err := os.OpenFile(fileCfg.UI.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			logOutput = f
		}
	}
	logger := log.New(logOutput)
	switch {
	case cfg.Debug:
		logger.SetLevel(log.DebugLevel)
	case fileCfg.UI.LogLevel == "debug":
		logger.SetLevel(log.DebugLevel)
	case fileCfg.UI.LogLevel == "info":
		logger.SetLevel(log.InfoLevel)
	case fileCfg.UI.LogLevel == "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}

	model := tui.NewModel(logger)
	c := NewClient(cfg.Server, logger)
	state := TrackState(c)
	bridge := NewBridge(c, state, model, logger)

	if err := c.Connect(); err != nil {
		return err
	}
	defer c.Disconnect()

	if err := c.Handshake(cfg.Name, 5*time.Second); err != nil {
		return fmt.Errorf("server did not answer hello: %w", err)
	}

	if room := strings.TrimSpace(cfg.Room); room != "" {
		if err := c.JoinRoom(strings.ToUpper(room)); err != nil {
			return err
		}
	}

	program := tea.NewProgram(model, tea.WithAltScreen())

	go bridge.CommandLoop()
	go func() {
		<-c.Done()
		model.SendQuitSignal()
	}()

	model.AddLogEntry(fmt.Sprintf("Welcome, %s. 'help' lists commands.", cfg.Name))

	_, err = program.Run()
	return err
}
