package main

import (
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/divtracker/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "divtracker",
		Usage: "track tiered dividends of Stellar asset holders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tier-table",
				Usage:   "YAML tier schedule (built-in when empty)",
				EnvVars: []string{"TIER_TABLE_PATH"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "text or json",
				EnvVars: []string{"LOG_FORMAT"},
				Value:   "text",
			},
		},
		Before: func(c *cli.Context) error {
			cfg := config.Config{LogLevel: c.String("log-level"), LogFormat: c.String("log-format")}
			setupLogging(cfg)
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			tiersCommand(),
			projectCommand(),
			anchorCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("divtracker: %v", err)
	}
}

// loadConfig reads the environment and applies global flag overrides.
func loadConfig(c *cli.Context) config.Config {
	cfg := config.Load()
	if c.IsSet("tier-table") {
		cfg.TierTablePath = c.String("tier-table")
	}
	return cfg
}

func setupLogging(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
