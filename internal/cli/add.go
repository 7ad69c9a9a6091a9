package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/archive"
	"github.com/klauern/skillkit/internal/gitsource"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
	"github.com/klauern/skillkit/internal/validation"
)

// newCloner is replaced in tests to avoid network clones.
var newCloner = func(cmd *cli.Command) gitsource.Cloner {
	c := gitsource.GoGitCloner{}
	if cmd.Bool("debug") {
		c.Progress = os.Stderr
	}
	return c
}

func newInstaller(cmd *cli.Command, e *env) *gitsource.Installer {
	return &gitsource.Installer{
		Agents:      e.agents,
		Cloner:      newCloner(cmd),
		Tracking:    e.tracking,
		Prompt:      prompter(cmd, e),
		Home:        e.home,
		ProjectRoot: e.cwd,
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Install skills from a git repository or skill archive",
		UsageText: `skillkit add <source> [options]
   skillkit add anthropics/skills
   skillkit add anthropics/skills/skills/pdf --agent claude,cursor
   skillkit add https://github.com/o/r/tree/main/skills --skill pdf -y
   skillkit add https://gitlab.com/group/repo.git --global
   skillkit add ./pdf.tar.gz --agent claude`,
		Description: `Clone a repository, find every folder holding a SKILL.md and copy the
   selected skills into each selected agent's skills directory.

   Sources may be GitHub URLs (optionally /tree/<branch>/<path>), GitLab URLs,
   owner/repo[/path] shorthand, or any other git remote. A local .tar.gz or
   .tgz made by "skillkit pack" is unpacked instead of cloned.`,
		Flags: []cli.Flag{
			agentFlag(),
			globalFlag(),
			yesFlag(),
			skillFlag(),
			formatFlag("Output format: table, json"),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("add requires exactly one source")
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON)
			if err != nil {
				return err
			}
			agents, err := agentKeys(cmd, e)
			if err != nil {
				return err
			}
			if err := checkHome(); err != nil {
				return err
			}

			src := cmd.Args().First()
			origin := "git"
			if archive.IsArchive(src) {
				src = util.ExpandPath(src, e.cwd)
				origin = "archive"
			}
			result, err := newInstaller(cmd, e).Install(ctx, gitsource.Request{
				Source: src,
				Skills: cmd.StringSlice("skill"),
				Agents: agents,
				Global: isGlobal(cmd, e),
				Origin: origin,
			})
			if result == nil {
				return err
			}
			if format == formatJSON {
				if perr := printJSON(result); perr != nil {
					return perr
				}
			} else {
				printGitResult(src, result)
			}
			if n := len(result.Failed()); n > 0 {
				return fmt.Errorf("%d of %d install(s) failed", n, len(result.Pairs))
			}
			return err
		},
	}
}

// checkHome fails when the skillkit state directory cannot be written, the
// one failure that stops an install before anything is attempted.
func checkHome() error {
	if err := validation.CheckWritable(util.SkillkitHome()); err != nil {
		return fmt.Errorf("skillkit home is not usable: %w", err)
	}
	return nil
}

func printGitResult(src string, result *gitsource.Result) {
	if len(result.Candidates) == 0 {
		fmt.Println(ui.StatusWarning(fmt.Sprintf("No skills found in %s", src)))
		return
	}
	fmt.Printf("Found %d skill(s) in %s\n", len(result.Candidates), src)
	for _, p := range result.Pairs {
		if p.Err != nil {
			fmt.Println(ui.StatusError(fmt.Sprintf("%s -> %s: %v", p.Skill, p.Agent, p.Err)))
			continue
		}
		fmt.Println(ui.StatusSuccess(fmt.Sprintf("%s -> %s %s", p.Skill, p.Agent, ui.Dim(p.Path))))
	}
	ok := len(result.Pairs) - len(result.Failed())
	fmt.Printf("\nInstalled %d skill(s) into %d location(s)\n", len(result.Selected), ok)
}
