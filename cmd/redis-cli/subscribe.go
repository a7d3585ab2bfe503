package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/urfave/cli/v2"
)

func subscribeCommand() *cli.Command {
	return &cli.Command{
		Name:      "subscribe",
		Usage:     "subscribe to one or more channels and print messages until interrupted",
		ArgsUsage: "CHANNEL [CHANNEL...]",
		Action:    subscribeAction,
	}
}

func subscribeAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("subscribe requires at least one channel")
	}

	p, err := openPool(c)
	if err != nil {
		return err
	}
	defer p.Close()

	channels := make([][]byte, c.Args().Len())
	for i, name := range c.Args().Slice() {
		channels[i] = []byte(name)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fut, err := p.Subscribe(ctx, channels,
		func(name, channel, payload []byte) {
			fmt.Printf("%s: %s\n", channel, payload)
		},
		func(name []byte, count int64) {
			fmt.Printf("subscribed to %s (%d total)\n", name, count)
		},
		func(name []byte, count int64) {
			fmt.Printf("unsubscribed from %s (%d total)\n", name, count)
		},
	)
	if err != nil {
		return err
	}
	if _, err := fut.Wait(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	_, err = p.Unsubscribe(nil)
	return err
}
