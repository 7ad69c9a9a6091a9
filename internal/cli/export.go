package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/adapter"
	"github.com/klauern/skillkit/internal/discovery"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/similarity"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:    "export",
		Aliases: []string{"sync"},
		Usage:   "Write installed skills into each agent's project layout",
		UsageText: `skillkit export [name...] [options]
   skillkit export
   skillkit export pdf docx --agent cursor,windsurf
   skillkit sync --dir ../other-project`,
		Description: `Export discovered skills for other agents. claude, cursor, codex and
   copilot get <dir>/<agent skills dir>/<name>/SKILL.md with the front-matter
   reduced to name and description; windsurf gets a workflow file under
   .windsurf/workflows. Existing exports are replaced.`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "agent",
				Aliases: []string{"a"},
				Usage:   "Export only for these agents (default: all export targets)",
			},
			&cli.StringFlag{
				Name:  "dir",
				Value: ".",
				Usage: "Project root to export into",
			},
			&cli.StringSliceFlag{
				Name:    "path",
				Aliases: []string{"p"},
				Usage:   "Only export skills found in these directories",
			},
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

			adapters := adapter.Default(e.agents)
			keys, err := e.agents.ParseAgentList(cmd.StringSlice("agent"))
			if err != nil {
				return err
			}
			if len(keys) > 0 {
				if adapters, err = adapter.Select(adapters, keys); err != nil {
					return err
				}
			}

			var refs []model.SkillRef
			if paths := cmd.StringSlice("path"); len(paths) > 0 {
				refs = discovery.Discover(util.ExpandPaths(paths, e.cwd))
			} else {
				refs = discovery.Discover(e.roots(nil, nil))
			}
			refs = discovery.Merge(refs)
			if names := cmd.Args().Slice(); len(names) > 0 {
				refs, err = pickRefs(refs, names)
				if err != nil {
					return err
				}
			}
			if len(refs) == 0 {
				fmt.Println("No skills to export.")
				return nil
			}
			skills, err := loadSkills(refs)
			if err != nil {
				return err
			}

			root := util.ExpandPath(cmd.String("dir"), e.cwd)
			results := adapter.Sync(adapters, root, skills)
			if format == formatJSON {
				if err := printJSON(exportReports(results)); err != nil {
					return err
				}
			} else {
				printExportResults(results)
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("export failed for %d of %d agent(s)", failed, len(results))
			}
			return nil
		},
	}
}

func pickRefs(refs []model.SkillRef, names []string) ([]model.SkillRef, error) {
	var out []model.SkillRef
	var missing []string
	for _, n := range names {
		ref, ok := discovery.Find(refs, n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		out = append(out, ref)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("skill(s) not found: %s%s", strings.Join(missing, ", "), similarity.Hint(missing[0], refNames(refs)))
	}
	return out, nil
}

type exportReport struct {
	adapter.Result
	Error string `json:"error,omitempty"`
}

func exportReports(results []adapter.Result) []exportReport {
	out := make([]exportReport, len(results))
	for i, r := range results {
		out[i] = exportReport{Result: r}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func printExportResults(results []adapter.Result) {
	total := 0
	for _, r := range results {
		total += len(r.Written)
		line := fmt.Sprintf("%s: %d skill(s) written", r.Agent, len(r.Written))
		if len(r.Skipped) > 0 {
			line += ui.Dim(fmt.Sprintf(" (%d already in place)", len(r.Skipped)))
		}
		if r.Err != nil {
			fmt.Println(ui.StatusError(line))
			fmt.Printf("    %v\n", r.Err)
			continue
		}
		fmt.Println(ui.StatusSuccess(line))
	}
	fmt.Printf("\nWrote %d file(s) for %d agent(s)\n", total, len(results))
}
