// Command redis-cli is a small demonstration client for the pool/conn
// packages: ping, publish, subscribe, and send against a single pool.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:  "redis-cli",
		Usage: "talk to a Redis-compatible server through the mredis pool",
		Flags: globalFlags(),
		Commands: []*cli.Command{
			pingCommand(),
			publishCommand(),
			subscribeCommand(),
			sendCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "addr",
			Aliases: []string{"a"},
			Usage:   "server address (host:port)",
			EnvVars: []string{"MREDIS_ADDRESS"},
			Value:   "127.0.0.1:6379",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML config file (see config.File)",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "output format: text or json",
			Value: "text",
		},
	}
}
