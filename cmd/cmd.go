package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/webitel/im-discord-relay/config"
	"github.com/webitel/im-discord-relay/internal/service/replay"
)

const (
	ServiceName      = "im-discord-relay"
	ServiceNamespace = "webitel"
)

var (
	version        = "0.0.0"
	commit         = "hash"
	commitDate     = time.Now().String()
	branch         = "branch"
	buildTimestamp = ""
)

// overridable lists the config keys that may also be set on the command line.
var overridable = []string{"log.level", "admin.addr", "replay.enabled"}

func Run() error {
	app := &cli.App{
		Name:    ServiceName,
		Usage:   "Reliable relay between a Discord gateway session and the message bus",
		Version: fmt.Sprintf("%s (%s, %s@%s) %s", version, commit, branch, commitDate, buildTimestamp),
		Commands: []*cli.Command{
			serverCmd(),
			replayCmd(),
		},
	}

	return app.Run(os.Args)
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "secrets_dir",
			Usage:   "Directory holding the secrets bundle (secrets.json|yaml|toml)",
			EnvVars: []string{"RELAY_SECRETS_DIR"},
		},
		&cli.StringFlag{Name: "log.level", Usage: "Log level (debug, info, warn, error)"},
		&cli.StringFlag{Name: "admin.addr", Usage: "Admin HTTP listen address"},
		&cli.BoolFlag{Name: "replay.enabled", Usage: "Enable the archive replay safety switch"},
	}
}

// loadConfig resolves the secrets directory from the flag or the first
// positional argument and applies explicitly set flags on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	flags := config.Flags()
	for _, name := range overridable {
		if !c.IsSet(name) {
			continue
		}
		if err := flags.Set(name, c.String(name)); err != nil {
			return nil, fmt.Errorf("flag %s: %w", name, err)
		}
	}

	dir := c.String("secrets_dir")
	if dir == "" && c.Args().Present() {
		dir = c.Args().First()
	}
	return config.LoadConfig(dir, flags)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:      "server",
		Aliases:   []string{"s"},
		Usage:     "Run the relay",
		ArgsUsage: "[secrets_dir]",
		Flags:     commonFlags(),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			app := NewApp(cfg)

			if err := app.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("Shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return app.Stop(ctx)
		},
	}
}

func replayCmd() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Re-publish the whole event archive (downstream consumers will see duplicates)",
		ArgsUsage: "[secrets_dir]",
		Flags: append(commonFlags(), &cli.BoolFlag{
			Name:  "confirm",
			Usage: "Acknowledge that every archived event is published again",
		}),
		Action: func(c *cli.Context) error {
			if !c.Bool("confirm") {
				return errors.New("replay: refusing to run without --confirm")
			}

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			var (
				engine *replay.Engine
				logger *slog.Logger
			)
			app := NewReplayApp(cfg, &engine, &logger)
			if err := app.Start(c.Context); err != nil {
				return err
			}

			res, runErr := engine.Run(c.Context)
			logger.Info("REPLAY_FINISHED", "published", res.Published, "skipped", res.Skipped)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return errors.Join(runErr, app.Stop(ctx))
		},
	}
}
