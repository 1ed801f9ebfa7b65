package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Run with `go run ./tools/shard-cli`

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "Shard Toolbox",
		HelpName:  "shard",
		Usage:     "A set of utilities to create and inspect bounded mapping shards",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags: []cli.Flag{
			&verboseFlag,
		},
		Commands: []*cli.Command{
			&initCommand,
			&createCommand,
			&insertCommand,
			&getCommand,
			&removeCommand,
			&resizeCommand,
			&statsCommand,
			&listCommand,
			&deleteCommand,
			&estimateCommand,
		},
	}
}
