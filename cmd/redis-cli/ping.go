package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"
)

func pingCommand() *cli.Command {
	return &cli.Command{
		Name:      "ping",
		Usage:     "ping the server",
		ArgsUsage: "[payload]",
		Action:    pingAction,
	}
}

func pingAction(c *cli.Context) error {
	p, err := openPool(c)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var payload []byte
	if arg := c.Args().First(); arg != "" {
		payload = []byte(arg)
	}

	conn, err := p.Lease(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)

	v, err := conn.Ping(ctx, payload)
	if err != nil {
		return err
	}
	return printReply(c, v)
}
