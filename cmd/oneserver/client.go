package main

import (
	"strings"

	"github.com/playone/oneserver/internal/client"
)

type ClientCmd struct {
	Server string `kong:"default='',help='WebSocket server URL (overrides config)'"`
	Name   string `kong:"default='',help='Display name (defaults to $USER or \"Player\")'"`
	Room   string `kong:"default='',help='Room code to join on connect (optional)'"`
	Config string `kong:"default='oneclient.hcl',help='Path to HCL configuration file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	config := client.Config{
		Server:     strings.TrimSpace(c.Server),
		Name:       strings.TrimSpace(c.Name),
		Room:       strings.TrimSpace(c.Room),
		ConfigPath: strings.TrimSpace(c.Config),
		Debug:      c.Debug,
	}

	return client.Run(config)
}
