package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/archive"
	"github.com/klauern/skillkit/internal/security"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/util"
	"github.com/klauern/skillkit/internal/validation"
)

func packCommand() *cli.Command {
	return &cli.Command{
		Name:  "pack",
		Usage: "Pack a skill into a .tar.gz archive",
		UsageText: `skillkit pack <name|path> [options]
   skillkit pack pdf
   skillkit pack ./skills/pdf -o dist/pdf-1.2.0.tgz`,
		Description: `Validate a skill, scan it for credentials and write it with a checksummed
   manifest to <name>.tar.gz. Install the result with "skillkit add <file>".`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Archive path (default: <name>.tar.gz)",
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing archive",
			},
			formatFlag("Output format: table, json"),
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("pack requires exactly one skill name or path")
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON)
			if err != nil {
				return err
			}
			skill, err := findSkill(e, cmd.Args().First())
			if err != nil {
				return err
			}

			result := validation.ValidatePath(skill.Dir)
			scanSecrets(security.NewScanner(), skill.Dir, result)
			if !result.Valid {
				return fmt.Errorf("%s cannot be packed: %w", skill.Name, result.Error())
			}

			out := cmd.String("output")
			if out == "" {
				out = skill.Name + ".tar.gz"
			}
			out = util.ExpandPath(out, e.cwd)
			if !archive.IsArchive(out) {
				return fmt.Errorf("output %s must end in .tar.gz or .tgz", out)
			}
			if util.FileExists(out) && !cmd.Bool("force") {
				return fmt.Errorf("%s already exists (use --force to overwrite)", out)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
				return fmt.Errorf("create %s: %w", filepath.Dir(out), err)
			}

			manifest, err := archive.PackFile(skill.Dir, out)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return printJSON(struct {
					Path     string            `json:"path"`
					Manifest *archive.Manifest `json:"manifest"`
				}{out, manifest})
			}
			for _, w := range result.Warnings {
				fmt.Println(ui.StatusWarning(w))
			}
			fmt.Println(ui.StatusSuccess(fmt.Sprintf("Packed %s (%d files, %d bytes) -> %s",
				manifest.Name, len(manifest.Files), manifest.Size(), out)))
			return nil
		},
	}
}
