package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediactl/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("failed to load .env", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})
	app := newApp(runner)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted", "error", err)
			os.Exit(130)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "mediactl",
		Usage:    "Manage media, playlists and uploads on a media catalogue",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "base-url",
			Usage: "API root, overrides api.base_url",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API bearer token, overrides api.token",
		},
		&cli.BoolFlag{
			Name:  "metrics",
			Usage: "Serve /metrics and /healthz on the configured server address",
		},
		&cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "Serve /metrics and /healthz on this address",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}
