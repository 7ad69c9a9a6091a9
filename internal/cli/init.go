package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/template"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a new skill from a template",
		UsageText: `skillkit init <skill-name> [options]
   skillkit init pdf-tools --description "Work with PDF files"
   skillkit init deploy --template workflow --scripts
   skillkit init review --agent claude`,
		Description: `Create a new skill directory with a SKILL.md scaffold.

   Built-in templates:
     basic            Minimal skill with instructions and examples
     command-wrapper  Wrap an external command or tool
     workflow         Orchestrate multiple steps

   The skill is created under --dir, or under an agent's skills directory
   when --agent is given.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "template",
				Aliases: []string{"t"},
				Value:   string(template.Basic),
				Usage:   "Template type (basic, command-wrapper, workflow)",
			},
			&cli.StringFlag{
				Name:  "template-file",
				Usage: "Path to a custom template file",
			},
			&cli.StringFlag{
				Name:    "description",
				Aliases: []string{"d"},
				Usage:   "What the skill does and when to use it",
			},
			&cli.StringFlag{
				Name:  "license",
				Usage: "License identifier for the skill",
			},
			&cli.StringFlag{
				Name:  "author",
				Usage: "Author recorded in the skill metadata",
			},
			&cli.StringFlag{
				Name:  "dir",
				Value: ".",
				Usage: "Parent directory for the new skill",
			},
			&cli.StringFlag{
				Name:    "agent",
				Aliases: []string{"a"},
				Usage:   "Create the skill in this agent's skills directory",
			},
			globalFlag(),
			&cli.BoolFlag{Name: "scripts", Usage: "Create a scripts/ directory"},
			&cli.BoolFlag{Name: "references", Usage: "Create a references/ directory"},
			&cli.BoolFlag{Name: "assets", Usage: "Create an assets/ directory"},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing SKILL.md",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the generated SKILL.md without writing files",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("skill name is required")
			}
			return runInit(cmd, cmd.Args().First())
		},
	}
}

func runInit(cmd *cli.Command, name string) error {
	logging.Debug("creating new skill", slog.String("name", name))

	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	gen, err := template.New()
	if err != nil {
		return err
	}
	typ, err := template.ParseTemplateType(cmd.String("template"))
	if err != nil {
		return err
	}
	if path := cmd.String("template-file"); path != "" {
		typ = template.TemplateType("custom")
		if err := gen.LoadCustomTemplate(string(typ), util.ExpandPath(path, e.cwd)); err != nil {
			return err
		}
	}

	description := strings.TrimSpace(cmd.String("description"))
	if description == "" {
		description = fmt.Sprintf("Describe what %s does and when to use it.", name)
	}
	data := template.TemplateData{
		Name:        name,
		Description: description,
		License:     cmd.String("license"),
		Author:      cmd.String("author"),
		Scripts:     cmd.Bool("scripts"),
		References:  cmd.Bool("references"),
		Assets:      cmd.Bool("assets"),
	}

	if cmd.Bool("dry-run") {
		content, err := gen.Generate(typ, data)
		if err != nil {
			return err
		}
		if err := gen.ValidateGenerated(content); err != nil {
			return fmt.Errorf("invalid skill: %w", err)
		}
		fmt.Print(content)
		return nil
	}

	parent := util.ExpandPath(cmd.String("dir"), e.cwd)
	if a := cmd.String("agent"); a != "" {
		key, err := e.agents.ParseAgentKey(a)
		if err != nil {
			return err
		}
		target, _ := e.agents.Get(key)
		parent = target.Dir(model.ScopeFor(isGlobal(cmd, e)), e.cwd, e.home)
	}

	path, err := gen.Scaffold(typ, data, parent, cmd.Bool("force"))
	if err != nil {
		if errors.Is(err, template.ErrSkillExists) {
			return fmt.Errorf("%w (use --force to overwrite)", err)
		}
		return err
	}

	fmt.Println(ui.StatusSuccess(fmt.Sprintf("Created %s", path)))
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("  1. Edit %s\n", path)
	fmt.Printf("  2. Run: skillkit validate %s\n", filepath.Dir(path))
	return nil
}
