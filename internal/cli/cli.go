// Package cli provides the command-line interface for skillkit.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/config"
	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/tracking"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Run executes the CLI application with the given context and arguments.
func Run(ctx context.Context, args []string) error {
	app := &cli.Command{
		Name:    "skillkit",
		Usage:   "Discover, validate, install and export agent skills",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output (info level logging)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug output (debug level logging, implies verbose)",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to a YAML or TOML configuration file (default: ~/.skillkit/config.yaml)",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureColors(cmd)
			return ctx, configureLogging(cmd)
		},
		Commands: []*cli.Command{
			listCommand(),
			validateCommand(),
			showCommand(),
			initCommand(),
			packCommand(),
			marketplaceCommand(),
			addCommand(),
			exportCommand(),
			doctorCommand(),
			infoCommand(),
			versionCommand(),
			configCommand(),
		},
	}
	return app.Run(ctx, args)
}

// configureColors sets up color output based on CLI flags.
func configureColors(cmd *cli.Command) {
	if cmd.Bool("no-color") || os.Getenv("NO_COLOR") != "" {
		ui.DisableColors()
	}
}

// configureLogging sets up the logging level based on CLI flags.
func configureLogging(cmd *cli.Command) error {
	opts := logging.DefaultOptions()

	if cmd.Bool("debug") {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	} else if cmd.Bool("verbose") {
		opts.Level = slog.LevelInfo
	}

	logger := logging.New(opts)
	logging.SetDefault(logger)

	logging.Debug("logging configured", slog.String("level", opts.Level.String()))

	return nil
}

// env is what every command needs: configuration, the agent table and the
// two directories agent paths are resolved against. tracking is shared by
// every installer the command builds.
type env struct {
	cfg      *config.Config
	agents   model.AgentTable
	tracking *tracking.Log
	home     string
	cwd      string
}

func loadEnv(cmd *cli.Command) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadFromPath(util.ExpandPath(path, ""))
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Output.Color == "never" {
		ui.DisableColors()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:      cfg,
		agents:   model.DefaultAgents(),
		tracking: tracking.New(util.TrackingLogPath()),
		home:     util.HomeDir(),
		cwd:      cwd,
	}, nil
}
