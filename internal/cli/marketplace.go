package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/cache"
	"github.com/klauern/skillkit/internal/gitsource"
	"github.com/klauern/skillkit/internal/install"
	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/marketplace"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/progress"
	"github.com/klauern/skillkit/internal/registry"
	"github.com/klauern/skillkit/internal/ui"
)

func newRegistry(e *env) (*registry.Client, error) {
	sortBy, err := registry.ParseSortBy(e.cfg.Registry.SortBy)
	if err != nil {
		return nil, err
	}
	return registry.New(e.cfg.Registry.URL,
		registry.WithTimeout(e.cfg.Registry.Timeout),
		registry.WithSortBy(sortBy),
		registry.WithLimit(e.cfg.Registry.Limit),
	), nil
}

// newMarketplace builds the legacy client. refresh drops cached listings.
func newMarketplace(e *env, refresh bool) (*marketplace.Client, error) {
	opts := marketplace.Options{
		Tracking:     e.tracking,
		GitHubAPIURL: e.cfg.Marketplace.GitHubAPIURL,
		RawBaseURL:   e.cfg.Marketplace.RawBaseURL,
		Token:        e.cfg.Marketplace.Token,
	}
	if e.cfg.Marketplace.CacheEnabled {
		c, err := cache.New("marketplace", "", e.cfg.Marketplace.CacheTTL)
		if err != nil {
			logging.Warn("marketplace cache unavailable", logging.Err(err))
		} else {
			if refresh {
				if err := c.Clear(); err != nil {
					logging.Warn("failed to clear marketplace cache", logging.Err(err))
				}
			}
			opts.Cache = c
		}
	}
	return marketplace.New(opts)
}

func marketplaceCommand() *cli.Command {
	return &cli.Command{
		Name:    "marketplace",
		Aliases: []string{"mp"},
		Usage:   "Browse, install and manage skills from the skills database",
		Commands: []*cli.Command{
			marketplaceBrowseCommand(),
			marketplaceSearchCommand(),
			marketplaceInstallCommand(),
			marketplaceUninstallCommand(),
			marketplaceUpdatesCommand(),
			marketplaceSourcesCommand(),
		},
	}
}

func browseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "author", Usage: "Only skills by this author"},
		&cli.StringFlag{Name: "category", Usage: "Only skills in this category"},
		&cli.StringFlag{Name: "sort", Usage: "Sort by stars, recent or name"},
		&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Results per page"},
		&cli.IntFlag{Name: "page", Value: 1, Usage: "Page number, starting at 1"},
		&cli.BoolFlag{Name: "legacy", Usage: "Query the GitHub source marketplace directly"},
		&cli.BoolFlag{Name: "refresh", Usage: "Ignore cached marketplace listings"},
		formatFlag("Output format: table, json, yaml, quiet"),
	}
}

func marketplaceBrowseCommand() *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Browse the skills database",
		UsageText: `skillkit marketplace browse [options]
   skillkit marketplace browse --sort recent --limit 10
   skillkit marketplace browse --author anthropics --page 2`,
		Flags: browseFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runBrowse(ctx, cmd, "")
		},
	}
}

func marketplaceSearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search the skills database",
		UsageText: "skillkit marketplace search <query> [options]",
		Flags:     browseFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
			if query == "" {
				return errors.New("search requires a query")
			}
			return runBrowse(ctx, cmd, query)
		},
	}
}

// runBrowse queries the database and falls back to the legacy marketplace
// once when it cannot be reached.
func runBrowse(ctx context.Context, cmd *cli.Command, query string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON, formatYAML, formatQuiet)
	if err != nil {
		return err
	}

	if !cmd.Bool("legacy") {
		page, err := fetchPage(ctx, cmd, e, query)
		switch {
		case err == nil:
			return printRemote(page, format)
		case !errors.Is(err, registry.ErrUnreachable):
			return err
		}
		logging.Warn("skills database unreachable, using legacy marketplace", logging.Err(err))
		if format == formatTable {
			fmt.Println(ui.StatusWarning("Skills database unreachable; showing the legacy marketplace"))
		}
	}

	mp, err := newMarketplace(e, cmd.Bool("refresh"))
	if err != nil {
		return err
	}
	skills, err := mp.Search(ctx, query)
	if err != nil {
		return err
	}
	return printLegacy(skills, format)
}

func fetchPage(ctx context.Context, cmd *cli.Command, e *env, query string) (*registry.Page, error) {
	reg, err := newRegistry(e)
	if err != nil {
		return nil, err
	}
	sortBy, err := registry.ParseSortBy(cmd.String("sort"))
	if err != nil {
		return nil, err
	}
	if !cmd.IsSet("sort") {
		sortBy = ""
	}
	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = e.cfg.Registry.Limit
	}
	page := max(cmd.Int("page"), 1)

	return reg.Fetch(ctx, registry.FetchOptions{
		Search:   query,
		Author:   strings.TrimPrefix(cmd.String("author"), "@"),
		Category: cmd.String("category"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
		SortBy:   sortBy,
	})
}

func printRemote(page *registry.Page, format outputFormat) error {
	switch format {
	case formatJSON:
		return printJSON(page)
	case formatYAML:
		return printYAML(page)
	case formatQuiet:
		for _, s := range page.Skills {
			fmt.Println(s.DisplayName())
		}
		return nil
	}

	if len(page.Skills) == 0 {
		fmt.Println("No skills found.")
		return nil
	}
	fmt.Printf("%s %s %s\n", ui.Header(fmt.Sprintf("%-36s", "NAME")), ui.Header(fmt.Sprintf("%6s", "STARS")), ui.Header("DESCRIPTION"))
	for _, s := range page.Skills {
		fmt.Printf("%-36s %6d %s\n", ui.Truncate(s.DisplayName(), 36), s.Stars, ui.Truncate(s.Description, 60))
	}
	fmt.Printf("\nShowing %d of %d skill(s)\n", len(page.Skills), page.Total)
	return nil
}

func printLegacy(skills []model.MarketplaceSkill, format outputFormat) error {
	switch format {
	case formatJSON:
		return printJSON(skills)
	case formatYAML:
		return printYAML(skills)
	case formatQuiet:
		for _, s := range skills {
			fmt.Println(s.Name)
		}
		return nil
	}

	if len(skills) == 0 {
		fmt.Println("No skills found.")
		return nil
	}
	fmt.Printf("%s %s %s %s\n", ui.Header(fmt.Sprintf("%-30s", "NAME")), ui.Header(fmt.Sprintf("%-14s", "SOURCE")), ui.Header(fmt.Sprintf("%-10s", "VERSION")), ui.Header("DESCRIPTION"))
	for _, s := range skills {
		name := s.Name
		if s.Verified {
			name += " " + ui.Success(ui.SymbolSuccess)
		}
		fmt.Printf("%-30s %-14s %-10s %s\n", name, s.SourceID, s.Version, ui.Truncate(s.Description, 50))
	}
	fmt.Printf("\nTotal: %d skill(s)\n", len(skills))
	return nil
}

func marketplaceInstallCommand() *cli.Command {
	return &cli.Command{
		Name:  "install",
		Usage: "Install skills by name from the skills database",
		UsageText: `skillkit marketplace install <name>... [options]
   skillkit marketplace install @anthropics/pdf
   skillkit marketplace install pdf docx --agent claude -y`,
		Description: `Resolve each name (name, author/name or @author/name) in the skills
   database and install it from its git repository. When the database cannot
   be reached, the name is installed from the legacy marketplace instead.
   All names are installed concurrently.`,
		Flags: []cli.Flag{
			agentFlag(),
			globalFlag(),
			yesFlag(),
			formatFlag("Output format: table, json"),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			names := cmd.Args().Slice()
			if len(names) == 0 {
				return errors.New("install requires at least one skill name")
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(cmd.String("format"), formatTable, formatJSON)
			if err != nil {
				return err
			}
			if err := checkHome(); err != nil {
				return err
			}

			agents, err := agentKeys(cmd, e)
			if err != nil {
				return err
			}
			// Prompt once up front; the installs run concurrently.
			if prompt := prompter(cmd, e); len(agents) == 0 && prompt != nil {
				targets, err := gitsource.SelectAgents(e.agents, nil, prompt)
				if err != nil {
					return err
				}
				for _, t := range targets {
					agents = append(agents, t.Key)
				}
			}

			reg, err := newRegistry(e)
			if err != nil {
				return err
			}
			mp, err := newMarketplace(e, false)
			if err != nil {
				return err
			}
			git := newInstaller(cmd, e)
			git.Prompt = nil

			bar := progress.New(progress.Options{Max: len(names), Description: "Installing"})
			svc := &install.Service{Registry: reg, Git: git, Marketplace: mp, Progress: bar}
			results := svc.InstallNames(ctx, names, install.Options{Agents: agents, Global: isGlobal(cmd, e)})
			if err := bar.Finish(); err != nil {
				logging.Debug("progress bar finish failed", logging.Err(err))
			}

			if format == formatJSON {
				if err := printJSON(installReports(results)); err != nil {
					return err
				}
			} else {
				printInstallResults(results)
			}

			failed := 0
			for _, r := range results {
				if !r.OK() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d skill(s) failed to install", failed, len(results))
			}
			return nil
		},
	}
}

type installReport struct {
	install.ItemResult
	Error string `json:"error,omitempty"`
}

func installReports(results []install.ItemResult) []installReport {
	out := make([]installReport, len(results))
	for i, r := range results {
		out[i] = installReport{ItemResult: r}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
		}
	}
	return out
}

func printInstallResults(results []install.ItemResult) {
	for _, r := range results {
		switch {
		case r.Err != nil && r.Git != nil:
			// Some pairs landed; list them before the failure.
			printItemPairs(r)
			fmt.Println(ui.StatusError(fmt.Sprintf("%s: %v", r.Name, r.Err)))
		case r.Err != nil:
			fmt.Println(ui.StatusError(fmt.Sprintf("%s: %v", r.Name, r.Err)))
		case r.Method == install.MethodMarketplace:
			fmt.Println(ui.StatusSuccess(fmt.Sprintf("%s %s", r.Name, ui.Dim("(legacy marketplace) "+r.Legacy.Path))))
		default:
			printItemPairs(r)
		}
	}
}

func printItemPairs(r install.ItemResult) {
	label := r.Name
	if r.Remote != nil {
		label = r.Remote.DisplayName()
	}
	if len(r.Git.Candidates) == 0 {
		fmt.Println(ui.StatusWarning(fmt.Sprintf("%s: no skills found in repository", label)))
		return
	}
	for _, p := range r.Git.Pairs {
		if p.Err == nil {
			fmt.Println(ui.StatusSuccess(fmt.Sprintf("%s -> %s %s", label, p.Agent, ui.Dim(p.Path))))
		}
	}
}

func marketplaceUninstallCommand() *cli.Command {
	return &cli.Command{
		Name:      "uninstall",
		Aliases:   []string{"remove", "rm"},
		Usage:     "Remove a skill installed from the legacy marketplace",
		UsageText: "skillkit marketplace uninstall <name>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("uninstall requires exactly one skill name")
			}
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			mp, err := newMarketplace(e, false)
			if err != nil {
				return err
			}
			name := cmd.Args().First()
			if err := mp.Uninstall(name); err != nil {
				return err
			}
			fmt.Println(ui.StatusSuccess(fmt.Sprintf("Uninstalled %s", name)))
			return nil
		},
	}
}

func marketplaceUpdatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "updates",
		Usage: "Check installed skills for newer upstream versions",
		Flags: []cli.Flag{
			formatFlag("Output format: table, json"),
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
			mp, err := newMarketplace(e, false)
			if err != nil {
				return err
			}
			infos, err := mp.CheckUpdates(ctx)
			if err != nil {
				return err
			}
			if format == formatJSON {
				return printJSON(infos)
			}

			if len(infos) == 0 {
				fmt.Println("No tracked skills.")
				return nil
			}
			available := 0
			fmt.Printf("%s %s %s %s\n", ui.Header(fmt.Sprintf("%-30s", "NAME")), ui.Header(fmt.Sprintf("%-12s", "INSTALLED")), ui.Header(fmt.Sprintf("%-12s", "LATEST")), ui.Header("STATUS"))
			for _, info := range infos {
				var status string
				switch {
				case info.Error != "":
					status = ui.Warning(info.Error)
				case info.HasUpdate:
					status = ui.Info("update available")
					available++
				default:
					status = ui.Success("up to date")
				}
				fmt.Printf("%-30s %-12s %-12s %s\n", ui.Truncate(info.Name, 30), orDash(info.Installed), orDash(info.Latest), status)
			}
			fmt.Printf("\n%d update(s) available\n", available)
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func marketplaceSourcesCommand() *cli.Command {
	list := func(_ context.Context, cmd *cli.Command) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		mp, err := newMarketplace(e, false)
		if err != nil {
			return err
		}
		sources, err := mp.Sources()
		if err != nil {
			return err
		}
		if cmd.String("format") == string(formatJSON) {
			return printJSON(sources)
		}
		fmt.Printf("%s %s %s\n", ui.Header(fmt.Sprintf("%-16s", "ID")), ui.Header(fmt.Sprintf("%-40s", "REPOSITORY")), ui.Header("PATH"))
		for _, s := range sources {
			id := s.ID
			if s.Verified {
				id += " " + ui.Success(ui.SymbolSuccess)
			}
			fmt.Printf("%-16s %-40s %s\n", id, s.Owner+"/"+s.Repo+"@"+s.Branch, orDash(s.SkillsPath))
		}
		return nil
	}

	return &cli.Command{
		Name:   "sources",
		Usage:  "Manage legacy marketplace sources",
		Flags:  []cli.Flag{formatFlag("Output format: table, json")},
		Action: list,
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List configured sources",
				Flags:  []cli.Flag{formatFlag("Output format: table, json")},
				Action: list,
			},
			{
				Name:      "add",
				Usage:     "Add a GitHub repository as a source",
				UsageText: "skillkit marketplace sources add <id> --owner <owner> --repo <repo> [--branch main] [--path skills]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Required: true, Usage: "GitHub owner"},
					&cli.StringFlag{Name: "repo", Required: true, Usage: "Repository name"},
					&cli.StringFlag{Name: "branch", Value: "main", Usage: "Branch to read"},
					&cli.StringFlag{Name: "path", Usage: "Directory holding the skill folders"},
					&cli.StringFlag{Name: "name", Usage: "Display name"},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return errors.New("sources add requires exactly one source id")
					}
					e, err := loadEnv(cmd)
					if err != nil {
						return err
					}
					mp, err := newMarketplace(e, false)
					if err != nil {
						return err
					}
					src := model.MarketplaceSource{
						ID:         cmd.Args().First(),
						Name:       cmd.String("name"),
						Owner:      cmd.String("owner"),
						Repo:       cmd.String("repo"),
						Branch:     cmd.String("branch"),
						SkillsPath: cmd.String("path"),
					}
					if err := mp.AddSource(src); err != nil {
						return err
					}
					fmt.Println(ui.StatusSuccess(fmt.Sprintf("Added source %s (%s)", src.ID, src.RepoURL())))
					return nil
				},
			},
		},
	}
}
