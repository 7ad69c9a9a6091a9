package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/ui/tui"
)

type outputFormat string

const (
	formatTable    outputFormat = "table"
	formatJSON     outputFormat = "json"
	formatYAML     outputFormat = "yaml"
	formatMarkdown outputFormat = "markdown"
	formatQuiet    outputFormat = "quiet"
)

func parseOutputFormat(s string, allowed ...outputFormat) (outputFormat, error) {
	f := outputFormat(strings.ToLower(strings.TrimSpace(s)))
	if f == "md" {
		f = formatMarkdown
	}
	if f == "" {
		f = formatTable
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		if a == f {
			return f, nil
		}
		names[i] = string(a)
	}
	return "", fmt.Errorf("invalid format %q (valid: %s)", s, strings.Join(names, ", "))
}

// resolveFormat reads --format, falling back to the configured default when
// the flag was not given.
func resolveFormat(cmd *cli.Command, e *env, allowed ...outputFormat) (outputFormat, error) {
	value := cmd.String("format")
	if !cmd.IsSet("format") && e.cfg.Output.Format != "" {
		if f, err := parseOutputFormat(e.cfg.Output.Format, allowed...); err == nil {
			return f, nil
		}
	}
	return parseOutputFormat(value, allowed...)
}

func formatFlag(usage string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   string(formatTable),
		Usage:   usage,
	}
}

func agentFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "agent",
		Aliases: []string{"a"},
		Usage:   "Target agents (comma list or repeated, \"all\" for every agent)",
	}
}

func globalFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "global",
		Aliases: []string{"g"},
		Usage:   "Install into home-directory agent folders instead of the project",
	}
}

func yesFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Skip prompts and select everything",
	}
}

func skillFlag() *cli.StringSliceFlag {
	return &cli.StringSliceFlag{
		Name:    "skill",
		Aliases: []string{"s"},
		Usage:   "Only install skills with these names (repeatable)",
	}
}

// agentKeys resolves --agent, then the configured default. Empty means
// "prompt or all", decided by the caller.
func agentKeys(cmd *cli.Command, e *env) ([]model.AgentKey, error) {
	values := cmd.StringSlice("agent")
	if len(values) == 0 {
		values = e.cfg.Install.Agents
	}
	return e.agents.ParseAgentList(values)
}

func isGlobal(cmd *cli.Command, e *env) bool {
	if cmd.IsSet("global") {
		return cmd.Bool("global")
	}
	return e.cfg.Install.Global
}

// prompter returns the interactive checklist when both ends are a terminal
// and prompts were not turned off.
func prompter(cmd *cli.Command, e *env) func(string, []string) ([]int, error) {
	if cmd.Bool("yes") || e.cfg.Install.Yes {
		return nil
	}
	if !ui.IsTerminal(os.Stdin) || !ui.IsTerminal(os.Stdout) {
		return nil
	}
	return tui.Checklist
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printYAML(v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
