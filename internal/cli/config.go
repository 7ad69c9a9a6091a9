package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/config"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
)

func configCommand() *cli.Command {
	// Without a subcommand, config behaves like config show.
	def := configShowCommand()
	return &cli.Command{
		Name:   "config",
		Usage:  "Manage skillkit configuration",
		Flags:  def.Flags,
		Action: def.Action,
		Commands: []*cli.Command{
			configShowCommand(),
			configPathCommand(),
			configInitCommand(),
			configEditCommand(),
		},
	}
}

// configFile is the file --config points at, or the default location.
func configFile(cmd *cli.Command) string {
	if p := cmd.String("config"); p != "" {
		return util.ExpandPath(p, "")
	}
	return config.FilePath()
}

func configShowCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Display the effective configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "yaml",
				Usage:   "Output format: yaml, json",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			format, err := parseOutputFormat(cmd.String("format"), formatYAML, formatJSON)
			if err != nil {
				return err
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return printJSON(e.cfg)
			}

			path := configFile(cmd)
			fmt.Println("# skillkit configuration")
			if util.FileExists(path) {
				fmt.Printf("# Loaded from: %s\n", path)
			} else {
				fmt.Println("# Using defaults (no config file found)")
			}
			fmt.Println()
			return printYAML(e.cfg)
		},
	}
}

func configPathCommand() *cli.Command {
	return &cli.Command{
		Name:  "path",
		Usage: "Show configuration and data paths",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := configFile(cmd)
			status := ui.Dim("(not found)")
			if util.FileExists(path) {
				status = ui.Success("(exists)")
			}

			fmt.Println("Configuration paths:")
			fmt.Printf("  Config file: %s %s\n", path, status)
			fmt.Printf("  Home:        %s\n", util.SkillkitHome())

			fmt.Println("\nAgent paths:")
			for _, a := range model.DefaultAgents().All() {
				fmt.Printf("  %-16s ./%s  ~/%s\n", a.DisplayName+":", a.ProjectDir, a.GlobalDir)
			}

			fmt.Println("\nData paths:")
			fmt.Printf("  Global skills: %s\n", util.GlobalSkillsPath())
			fmt.Printf("  Tracking log:  %s\n", util.TrackingLogPath())
			fmt.Printf("  Marketplace:   %s\n", util.MarketplaceConfigPath())
			fmt.Printf("  Cache:         %s\n", util.CachePath())
			return nil
		},
	}
}

func configInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a configuration file with the default settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Overwrite an existing config file",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := configFile(cmd)
			if util.FileExists(path) && !cmd.Bool("force") {
				return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
			}
			if err := config.Default().SaveToPath(path); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Printf("Created config file: %s\n", path)
			return nil
		},
	}
}

func configEditCommand() *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Show how to open the config file in $EDITOR",
		Action: func(_ context.Context, cmd *cli.Command) error {
			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = os.Getenv("VISUAL")
			}
			if editor == "" {
				return errors.New("no editor found: set $EDITOR or $VISUAL")
			}

			path := configFile(cmd)
			if !util.FileExists(path) {
				fmt.Println("No config file found. Creating default configuration...")
				if err := config.Default().SaveToPath(path); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
			}
			fmt.Printf("Opening %s with %s\n", path, editor)
			fmt.Printf("Run: %s %s\n", editor, path)
			return nil
		},
	}
}
