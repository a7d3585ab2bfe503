package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"mredis/config"
	"mredis/lib/jsonfmt"
	"mredis/pool"
	"mredis/resp"
)

// openPool builds a pool.Pool from the --config file (if given) and the
// --addr flag, which always overrides the config file's address.
func openPool(c *cli.Context) (*pool.Pool, error) {
	cfg := pool.Config{}
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Address = addr
	}
	return pool.New(pool.DefaultConfig(cfg), nil), nil
}

// printReply renders v per the --format flag: "json" builds a JSON
// document with jsonfmt.Format, anything else prints jsonfmt.PlainText
// of that same document so both code paths exercise the same renderer.
func printReply(c *cli.Context, v resp.Value) error {
	doc, err := jsonfmt.Format(v)
	if err != nil {
		return fmt.Errorf("formatting reply: %w", err)
	}
	if c.String("format") == "json" {
		fmt.Println(doc)
		return nil
	}
	fmt.Println(jsonfmt.PlainText(doc))
	return nil
}
