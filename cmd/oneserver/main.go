package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the ONE game server"`
	Client  ClientCmd        `cmd:"" help:"Connect as an interactive player"`
	Spawn   SpawnCmd         `cmd:"" help:"Spawn a server with bot-filled rooms for testing/demos"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("oneserver"),
		kong.Description("Authoritative server for real-time ONE card games"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
