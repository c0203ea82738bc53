package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/UkralStul/mountainmerge-comments/internal/auth"
	"github.com/UkralStul/mountainmerge-comments/internal/client"
	"github.com/UkralStul/mountainmerge-comments/internal/config"
	"github.com/UkralStul/mountainmerge-comments/internal/domain"
	"github.com/UkralStul/mountainmerge-comments/internal/logging"
	"github.com/UkralStul/mountainmerge-comments/internal/view"
)

// session - клиент и зритель, собранные из конфигурации и флагов.
type session struct {
	client *client.Client
	viewer string
	log    zerolog.Logger
}

func newSession(c *cli.Context) (*session, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("url") {
		cfg.Client.URL = c.String("url")
	}
	if c.IsSet("token") {
		cfg.Client.Token = c.String("token")
	}

	logger := logging.New(cfg.Log.Level, true, os.Stderr)

	var viewer string
	if cfg.Client.Token != "" {
		viewer, err = auth.Subject(cfg.Client.Token)
		if err != nil {
			return nil, fmt.Errorf("client.token: %w", err)
		}
	}

	return &session{
		client: client.New(cfg.Client.URL, cfg.Client.Token,
			client.WithTimeout(cfg.Client.Timeout),
			client.WithRateLimit(cfg.Client.RPS, 1),
		),
		viewer: viewer,
		log:    logger,
	}, nil
}

func (s *session) thread(c *cli.Context) *view.ThreadView {
	return view.New(s.client, targetType(c), c.String("target"), s.viewer, s.log)
}

var targetFlags = []cli.Flag{
	&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "Note or deck `ID`", Required: true},
	&cli.StringFlag{Name: "type", Usage: "Target type: note or deck", Value: string(domain.TargetNote)},
}

func withTargetFlags(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, targetFlags...), flags...)
}

func targetType(c *cli.Context) domain.TargetType {
	return domain.TargetType(c.String("type"))
}
