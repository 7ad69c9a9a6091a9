package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/detector"
	"github.com/klauern/skillkit/internal/discovery"
	"github.com/klauern/skillkit/internal/registry"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
	"github.com/klauern/skillkit/internal/validation"
)

type check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	// Fatal checks make doctor exit non-zero.
	Fatal bool `json:"fatal"`
}

type doctorReport struct {
	Agents []detector.Detection `json:"agents"`
	Checks []check              `json:"checks"`
}

func doctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Detect installed agents and check the skillkit environment",
		Flags: []cli.Flag{
			formatFlag("Output format: table, json"),
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Skip the skills database connectivity check",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON)
			if err != nil {
				return err
			}

			det := detector.New(e.agents)
			det.Home, det.ProjectRoot = e.home, e.cwd
			rep := doctorReport{Agents: det.DetectAll()}
			rep.Checks = append(rep.Checks, writableCheck("skillkit home", util.SkillkitHome(), true))
			rep.Checks = append(rep.Checks, writableCheck("global skills", util.GlobalSkillsPath(), true))
			rep.Checks = append(rep.Checks, skillsCheck(e))
			if !cmd.Bool("offline") {
				rep.Checks = append(rep.Checks, registryCheck(ctx, e))
			}

			if format == formatJSON {
				if err := printJSON(rep); err != nil {
					return err
				}
			} else {
				printDoctor(rep)
			}

			for _, c := range rep.Checks {
				if !c.OK && c.Fatal {
					return errors.New("environment check failed")
				}
			}
			return nil
		},
	}
}

func writableCheck(name, dir string, fatal bool) check {
	c := check{Name: name, OK: true, Detail: dir, Fatal: fatal}
	if err := validation.CheckWritable(dir); err != nil {
		c.OK = false
		c.Detail = err.Error()
	}
	return c
}

func skillsCheck(e *env) check {
	refs := discovery.Merge(discovery.Discover(e.roots(nil, nil)))
	invalid := 0
	for _, ref := range refs {
		if !validation.ValidatePath(ref.Path).Valid {
			invalid++
		}
	}
	c := check{Name: "installed skills", OK: invalid == 0}
	c.Detail = fmt.Sprintf("%d found, %d invalid", len(refs), invalid)
	return c
}

func registryCheck(ctx context.Context, e *env) check {
	c := check{Name: "skills database", OK: true, Detail: e.cfg.Registry.URL}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	reg, err := newRegistry(e)
	if err == nil {
		_, err = reg.Fetch(ctx, registry.FetchOptions{Limit: 1})
	}
	if err != nil {
		c.OK = false
		c.Detail = fmt.Sprintf("%s (installs will use the legacy marketplace)", err)
	}
	return c
}

func printDoctor(rep doctorReport) {
	fmt.Println(ui.Header("Agents:"))
	if len(rep.Agents) == 0 {
		fmt.Println("  No agents detected.")
	}
	for _, d := range rep.Agents {
		fmt.Printf("  %s %-16s %-8s %3d skill(s)  %s\n",
			ui.Success(ui.SymbolSuccess), d.DisplayName, fmt.Sprintf("%.0f%%", d.Confidence*100), d.SkillCount, ui.Dim(d.Path))
	}

	fmt.Println()
	fmt.Println(ui.Header("Checks:"))
	for _, c := range rep.Checks {
		line := fmt.Sprintf("%-18s %s", c.Name, c.Detail)
		switch {
		case c.OK:
			fmt.Println(ui.StatusSuccess(line))
		case c.Fatal:
			fmt.Println(ui.StatusError(line))
		default:
			fmt.Println(ui.StatusWarning(line))
		}
	}
}
