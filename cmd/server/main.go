package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/UkralStul/mountainmerge-comments/internal/api"
	"github.com/UkralStul/mountainmerge-comments/internal/auth"
	"github.com/UkralStul/mountainmerge-comments/internal/config"
	"github.com/UkralStul/mountainmerge-comments/internal/events"
	"github.com/UkralStul/mountainmerge-comments/internal/logging"
	"github.com/UkralStul/mountainmerge-comments/internal/storage"
	"github.com/UkralStul/mountainmerge-comments/internal/storage/inmemory"
	"github.com/UkralStul/mountainmerge-comments/internal/storage/postgres"
)

func main() {
	app := &cli.App{
		Name:  "mountainmerge-comments",
		Usage: "Comment threads and upvotes backend for notes and decks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides server.addr)"},
			&cli.StringFlag{Name: "storage", Usage: "Storage driver: memory or postgres (overrides storage.driver)"},
			&cli.BoolFlag{Name: "seed", Usage: "Fill in-memory storage with demo data"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.IsSet("addr") {
				cfg.Server.Addr = c.String("addr")
			}
			if c.IsSet("storage") {
				cfg.Storage.Driver = c.String("storage")
			}
			if c.IsSet("seed") {
				cfg.Server.Seed = c.Bool("seed")
			}
			if err := cfg.ValidateServer(); err != nil {
				return err
			}

			logger := logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

			store, err := openStorage(c.Context, cfg)
			if err != nil {
				return err
			}

			server := api.NewServer(
				store,
				auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TTL),
				events.NewBroker(16),
				logger,
				api.Options{RPS: cfg.Limits.RPS, Burst: cfg.Limits.Burst},
			)

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	log.Info().Str("driver", cfg.Storage.Driver).Msg("opening storage")

	if cfg.Storage.Driver == "postgres" {
		store, err := postgres.New(cfg.Storage.DSN, cfg.Storage.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return store, nil
	}

	store := inmemory.New()
	if cfg.Server.Seed {
		if err := fillWithMockData(ctx, store); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Print a development access token for a user",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "User `ID`", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if cfg.Auth.Secret == "" {
				return fmt.Errorf("auth.secret is required")
			}
			token, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TTL).Issue(c.String("user"))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
}
