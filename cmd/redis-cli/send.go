package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "send an arbitrary command and print its reply",
		ArgsUsage: "COMMAND [ARG...]",
		Action:    sendAction,
	}
}

func sendAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return fmt.Errorf("send requires a command name")
	}
	command := c.Args().Get(0)
	args := make([][]byte, 0, c.Args().Len()-1)
	for _, a := range c.Args().Slice()[1:] {
		args = append(args, []byte(a))
	}

	p, err := openPool(c)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	v, err := p.Do(ctx, command, args...)
	if err != nil {
		return err
	}
	return printReply(c, v)
}
