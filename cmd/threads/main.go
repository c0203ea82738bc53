package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "threads",
		Usage: "Read and write comment threads on notes and decks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
			&cli.StringFlag{Name: "url", Usage: "API base `URL` (overrides client.url)"},
			&cli.StringFlag{Name: "token", Usage: "Access `TOKEN` (overrides client.token)"},
		},
		Commands: []*cli.Command{
			showCommand(),
			postCommand(),
			replyCommand(),
			deleteCommand(),
			voteCommand(),
			watchCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
