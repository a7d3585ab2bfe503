package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "publish a message to a channel",
		ArgsUsage: "CHANNEL MESSAGE",
		Action:    publishAction,
	}
}

func publishAction(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("publish requires a channel and a message")
	}
	channel := c.Args().Get(0)
	message := c.Args().Get(1)

	p, err := openPool(c)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := p.Lease(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)

	count, err := conn.Publish(ctx, []byte(channel), []byte(message))
	if err != nil {
		return err
	}
	fmt.Printf("%d subscriber(s) received the message\n", count)
	return nil
}
