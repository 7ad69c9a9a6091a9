package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/config"
	"github.com/klauern/skillkit/internal/discovery"
	"github.com/klauern/skillkit/internal/export"
	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/parser"
	"github.com/klauern/skillkit/internal/security"
	"github.com/klauern/skillkit/internal/similarity"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
	"github.com/klauern/skillkit/internal/validation"
)

// roots returns the discovery roots. With agents given only their project
// and global directories are searched.
func (e *env) roots(agents []model.AgentKey, extra []string) []string {
	var roots []string
	if len(agents) == 0 {
		roots = discovery.DefaultRoots(e.agents, e.home, e.cwd)
		roots = append(roots, e.cfg.ExtraDiscoveryPaths(e.cwd)...)
	} else {
		targets, _ := e.agents.Lookup(agents)
		for _, a := range targets {
			roots = append(roots, a.Dir(model.ScopeProject, e.cwd, e.home), a.Dir(model.ScopeGlobal, e.cwd, e.home))
		}
	}
	return append(roots, util.ExpandPaths(extra, e.cwd)...)
}

// discover lists skills visible from the command's roots, later roots
// shadowing earlier ones unless --all is set.
func discover(cmd *cli.Command, e *env) ([]model.SkillRef, error) {
	agents, err := e.agents.ParseAgentList(cmd.StringSlice("agent"))
	if err != nil {
		return nil, err
	}
	refs := discovery.Discover(e.roots(agents, cmd.StringSlice("path")))
	if !cmd.Bool("all") {
		refs = discovery.Merge(refs)
	}
	return refs, nil
}

func loadSkills(refs []model.SkillRef) ([]model.Skill, error) {
	skills := make([]model.Skill, 0, len(refs))
	for _, ref := range refs {
		skill, err := parser.LoadSkill(ref.Path)
		if err != nil {
			return nil, err
		}
		skills = append(skills, *skill)
	}
	return skills, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List installed skills",
		UsageText: `skillkit list [options]
   skillkit list --agent claude,cursor
   skillkit list --format json`,
		Flags: []cli.Flag{
			formatFlag("Output format: table, json, yaml, markdown, quiet"),
			&cli.StringSliceFlag{
				Name:    "agent",
				Aliases: []string{"a"},
				Usage:   "Only list skills in these agents' directories",
			},
			&cli.StringSliceFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Additional directories to search",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Show every copy of a skill instead of the one that takes precedence",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := resolveFormat(cmd, e, formatTable, formatJSON, formatYAML, formatMarkdown, formatQuiet)
			if err != nil {
				return err
			}
			refs, err := discover(cmd, e)
			if err != nil {
				return err
			}
			logging.Debug("listing skills", logging.Count(len(refs)))

			switch format {
			case formatJSON:
				return printJSON(refs)
			case formatYAML:
				return printYAML(refs)
			case formatMarkdown:
				skills, err := loadSkills(refs)
				if err != nil {
					return err
				}
				return export.New(export.Options{Format: export.FormatMarkdown}).Export(skills, os.Stdout)
			case formatQuiet:
				for _, ref := range refs {
					fmt.Println(ref.Name)
				}
				return nil
			}

			if len(refs) == 0 {
				fmt.Println("No skills found.")
				return nil
			}
			fmt.Printf("%s %s %s\n", ui.Header(fmt.Sprintf("%-30s", "NAME")), ui.Header(fmt.Sprintf("%-50s", "DESCRIPTION")), ui.Header("PATH"))
			for _, ref := range refs {
				fmt.Printf("%-30s %-50s %s\n", ui.Truncate(ref.Name, 30), ui.Truncate(ref.Description, 50), ui.Dim(ref.Path))
			}
			fmt.Printf("\nTotal: %d skill(s)\n", len(refs))
			return nil
		},
	}
}

type validationReport struct {
	Path     string   `json:"path"`
	Name     string   `json:"name,omitempty"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Tokens   int      `json:"descriptionTokens"`
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate skill directories against the skill format",
		UsageText: `skillkit validate [path...]
   skillkit validate ./skills/pdf
   skillkit validate --format json
   skillkit validate --secrets ./skills/deploy`,
		Description: `Validate one or more skill directories (or SKILL.md files).
   Without arguments every discovered skill is validated.
   With --secrets every text file in the skill folder is also scanned for
   credentials; keys and private keys fail validation, weaker matches warn.`,
		Flags: []cli.Flag{
			formatFlag("Output format: table, json"),
			&cli.BoolFlag{
				Name:  "secrets",
				Usage: "Scan skill files for credentials",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON)
			if err != nil {
				return err
			}

			paths := cmd.Args().Slice()
			if len(paths) == 0 {
				for _, ref := range discovery.Merge(discovery.Discover(e.roots(nil, nil))) {
					paths = append(paths, ref.Path)
				}
			}
			if len(paths) == 0 {
				return errors.New("no skills found to validate")
			}

			var scanner *security.Scanner
			if cmd.Bool("secrets") {
				scanner = security.NewScanner()
			}

			reports := make([]validationReport, 0, len(paths))
			failed := 0
			for _, p := range paths {
				full := util.ExpandPath(p, e.cwd)
				result := validation.ValidatePath(full)
				if scanner != nil {
					scanSecrets(scanner, full, result)
				}
				rep := validationReport{
					Path:     p,
					Name:     result.Name,
					Valid:    result.Valid,
					Warnings: result.Warnings,
					Tokens:   result.DescriptionTokens,
				}
				for _, err := range result.Errors {
					rep.Errors = append(rep.Errors, err.Error())
				}
				if !result.Valid {
					failed++
				}
				reports = append(reports, rep)

				if format != formatTable {
					continue
				}
				label := p
				if result.Name != "" {
					label = fmt.Sprintf("%s (%s)", result.Name, p)
				}
				if result.Valid {
					fmt.Println(ui.StatusSuccess(label))
				} else {
					fmt.Println(ui.StatusError(label))
				}
				for _, msg := range rep.Errors {
					fmt.Printf("    %s %s\n", ui.Error("error:"), msg)
				}
				for _, w := range rep.Warnings {
					fmt.Printf("    %s %s\n", ui.Warning("warning:"), w)
				}
			}

			if format == formatJSON {
				if err := printJSON(reports); err != nil {
					return err
				}
			} else {
				fmt.Printf("\n%d valid, %d invalid\n", len(paths)-failed, failed)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d skill(s) failed validation", failed, len(paths))
			}
			return nil
		},
	}
}

// scanSecrets scans the folder holding the skill at path.
func scanSecrets(s *security.Scanner, path string, result *validation.Result) {
	dir := path
	if !util.DirExists(dir) {
		dir = filepath.Dir(path)
	}
	if !util.DirExists(dir) {
		return
	}
	findings, err := s.ScanDir(dir)
	if err != nil {
		result.AddWarning(fmt.Sprintf("secret scan: %v", err))
		return
	}
	security.Apply(result, findings)
}

// findSkill loads arg as a path when it is one, otherwise by discovered name.
func findSkill(e *env, arg string) (*model.Skill, error) {
	if p := util.ExpandPath(arg, e.cwd); util.DirExists(p) || util.FileExists(p) {
		return parser.LoadSkill(p)
	}
	refs := discovery.Merge(discovery.Discover(e.roots(nil, nil)))
	ref, ok := discovery.Find(refs, arg)
	if !ok {
		return nil, fmt.Errorf("skill %q not found%s", arg, similarity.Hint(arg, refNames(refs)))
	}
	return parser.LoadSkill(ref.Path)
}

func refNames(refs []model.SkillRef) []string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	return names
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one skill's details and instructions",
		UsageText: "skillkit show <name|path> [options]",
		Flags: []cli.Flag{
			formatFlag("Output format: table, json, yaml, markdown"),
			&cli.BoolFlag{
				Name:  "no-body",
				Usage: "Omit the instruction body",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("show requires exactly one skill name or path")
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON, formatYAML, formatMarkdown)
			if err != nil {
				return err
			}
			skill, err := findSkill(e, cmd.Args().First())
			if err != nil {
				return err
			}

			if format != formatTable {
				ef, err := export.ParseFormat(string(format))
				if err != nil {
					return err
				}
				return export.New(export.Options{
					Format:          ef,
					Pretty:          true,
					IncludeMetadata: true,
					IncludeBody:     !cmd.Bool("no-body"),
				}).ExportSingle(*skill, os.Stdout)
			}

			fmt.Println(ui.Bold(skill.Name))
			fmt.Printf("  %-14s %s\n", "Description:", skill.Description)
			for _, row := range [][2]string{
				{"Version:", skill.Version()},
				{"License:", skill.License},
				{"Compatibility:", skill.Compatibility},
			} {
				if row[1] != "" {
					fmt.Printf("  %-14s %s\n", row[0], row[1])
				}
			}
			fmt.Printf("  %-14s %s\n", "Path:", skill.Path)
			for _, res := range []struct {
				label string
				files []string
			}{{"Scripts:", skill.Scripts}, {"References:", skill.References}, {"Assets:", skill.Assets}} {
				if len(res.files) > 0 {
					fmt.Printf("  %-14s %s\n", res.label, strings.Join(res.files, ", "))
				}
			}
			if !cmd.Bool("no-body") && strings.TrimSpace(skill.Body) != "" {
				fmt.Println()
				fmt.Println(strings.TrimRight(skill.Body, "\n"))
			}
			return nil
		},
	}
}

type infoReport struct {
	Version         string              `json:"version"`
	Commit          string              `json:"commit"`
	Go              string              `json:"go"`
	Home            string              `json:"home"`
	ConfigFile      string              `json:"configFile"`
	ConfigExists    bool                `json:"configExists"`
	GlobalSkills    string              `json:"globalSkills"`
	TrackingLog     string              `json:"trackingLog"`
	Marketplace     string              `json:"marketplaceConfig"`
	Cache           string              `json:"cache"`
	Registry        string              `json:"registry"`
	Agents          []model.AgentTarget `json:"agents"`
	InstalledSkills int                 `json:"installedSkills"`
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show skillkit paths, supported agents and install counts",
		Flags: []cli.Flag{
			formatFlag("Output format: table, json"),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON)
			if err != nil {
				return err
			}

			rep := infoReport{
				Version:         Version,
				Commit:          Commit,
				Go:              runtime.Version(),
				Home:            util.SkillkitHome(),
				ConfigFile:      config.FilePath(),
				ConfigExists:    config.Exists(),
				GlobalSkills:    util.GlobalSkillsPath(),
				TrackingLog:     util.TrackingLogPath(),
				Marketplace:     util.MarketplaceConfigPath(),
				Cache:           util.CachePath(),
				Registry:        e.cfg.Registry.URL,
				Agents:          e.agents.All(),
				InstalledSkills: len(discovery.Merge(discovery.Discover(e.roots(nil, nil)))),
			}
			if cmd.String("config") != "" {
				rep.ConfigFile = util.ExpandPath(cmd.String("config"), "")
				rep.ConfigExists = util.FileExists(rep.ConfigFile)
			}
			if format == formatJSON {
				return printJSON(rep)
			}

			fmt.Printf("skillkit %s (%s, %s)\n\n", rep.Version, rep.Commit, rep.Go)
			fmt.Println(ui.Header("Paths:"))
			configStatus := ui.Dim("(not created)")
			if rep.ConfigExists {
				configStatus = ui.Success("(exists)")
			}
			fmt.Printf("  %-20s %s\n", "Home:", rep.Home)
			fmt.Printf("  %-20s %s %s\n", "Config:", rep.ConfigFile, configStatus)
			fmt.Printf("  %-20s %s\n", "Global skills:", rep.GlobalSkills)
			fmt.Printf("  %-20s %s\n", "Tracking log:", rep.TrackingLog)
			fmt.Printf("  %-20s %s\n", "Marketplace config:", rep.Marketplace)
			fmt.Printf("  %-20s %s\n", "Cache:", rep.Cache)
			fmt.Printf("  %-20s %s\n", "Registry:", rep.Registry)

			fmt.Println()
			fmt.Println(ui.Header("Agents:"))
			fmt.Printf("  %-10s %-16s %-24s %s\n", "KEY", "NAME", "PROJECT DIR", "GLOBAL DIR")
			for _, a := range rep.Agents {
				fmt.Printf("  %-10s %-16s %-24s ~/%s\n", a.Key, a.DisplayName, a.ProjectDir, a.GlobalDir)
			}
			fmt.Printf("\nInstalled skills: %d\n", rep.InstalledSkills)
			return nil
		},
	}
}
