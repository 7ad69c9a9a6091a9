// Package marketplace implements the legacy skill marketplace: a list of
// GitHub repositories whose skills directories are scanned through the
// contents API, with raw SKILL.md files fetched for metadata.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/go-github/v59/github"

	"github.com/klauern/skillkit/internal/cache"
	"github.com/klauern/skillkit/internal/gitsource"
	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/parser"
	"github.com/klauern/skillkit/internal/similarity"
	"github.com/klauern/skillkit/internal/tracking"
	"github.com/klauern/skillkit/internal/util"
)

// DefaultRawBaseURL serves raw repository content.
const DefaultRawBaseURL = "https://raw.githubusercontent.com"

const (
	rawAttempts    = 3
	maxRawSize     = 10 << 20
	defaultDelay   = 250 * time.Millisecond
	sourcePrefix   = "marketplace:"
	globalPlatform = "skillkit"
)

var (
	// ErrSkillNotFound is returned when no source lists the requested skill.
	ErrSkillNotFound = errors.New("skill not found in marketplace")

	// ErrNotInstalled is returned when uninstalling a skill that is neither
	// on disk nor tracked.
	ErrNotInstalled = errors.New("skill is not installed")

	errRawNotFound = errors.New("raw file not found")
)

// Options configures a Client. Zero values fall back to the skillkit home
// layout and the public GitHub endpoints.
type Options struct {
	ConfigPath   string
	SkillsDir    string
	Tracking     *tracking.Log
	Cache        *cache.Cache
	GitHubAPIURL string
	RawBaseURL   string
	Token        string
	HTTPClient   *http.Client
	RetryDelay   time.Duration
}

// Client lists, installs and checks skills from configured sources.
type Client struct {
	configPath string
	skillsDir  string
	gh         *github.Client
	http       *http.Client
	rawBase    string
	token      string
	tracking   *tracking.Log
	cache      *cache.Cache
	retryDelay time.Duration
}

// New builds a client from opts.
func New(opts Options) (*Client, error) {
	c := &Client{
		configPath: opts.ConfigPath,
		skillsDir:  opts.SkillsDir,
		http:       opts.HTTPClient,
		rawBase:    strings.TrimRight(opts.RawBaseURL, "/"),
		token:      opts.Token,
		tracking:   opts.Tracking,
		cache:      opts.Cache,
		retryDelay: opts.RetryDelay,
	}
	if c.configPath == "" {
		c.configPath = util.MarketplaceConfigPath()
	}
	if c.skillsDir == "" {
		c.skillsDir = util.GlobalSkillsPath()
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.rawBase == "" {
		c.rawBase = DefaultRawBaseURL
	}
	if c.tracking == nil {
		c.tracking = tracking.New(util.TrackingLogPath())
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultDelay
	}

	c.gh = github.NewClient(c.http)
	if opts.Token != "" {
		c.gh = c.gh.WithAuthToken(opts.Token)
	}
	if opts.GitHubAPIURL != "" {
		base := opts.GitHubAPIURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", opts.GitHubAPIURL, err)
		}
		c.gh.BaseURL = u
	}
	return c, nil
}

// SkillsDir is where marketplace installs land.
func (c *Client) SkillsDir() string {
	return c.skillsDir
}

// List returns the skills of every source, in source order. Sources that
// cannot be listed are logged and skipped.
func (c *Client) List(ctx context.Context) ([]model.MarketplaceSkill, error) {
	sources, err := c.Sources()
	if err != nil {
		return nil, err
	}
	defer logging.Timer("marketplace list")()

	var all []model.MarketplaceSkill
	dirty := false
	for _, src := range sources {
		if c.cache != nil {
			if skills, ok := c.cache.Get(src.ID); ok {
				logging.Debug("marketplace cache hit", logging.Source(src.ID), logging.Count(len(skills)))
				all = append(all, skills...)
				continue
			}
		}

		skills, err := c.listSource(ctx, src)
		if err != nil {
			logging.Warn("skipping marketplace source", logging.Source(src.ID), logging.Err(err))
			continue
		}
		if c.cache != nil {
			c.cache.Set(src.ID, skills)
			dirty = true
		}
		all = append(all, skills...)
	}

	if dirty {
		if err := c.cache.Save(); err != nil {
			logging.Warn("failed to save marketplace cache", logging.Path(c.cache.Path()), logging.Err(err))
		}
	}
	return all, nil
}

// Search filters List by a case-insensitive substring of name or description.
func (c *Client) Search(ctx context.Context, query string) ([]model.MarketplaceSkill, error) {
	skills, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return skills, nil
	}
	var out []model.MarketplaceSkill
	for _, s := range skills {
		if strings.Contains(strings.ToLower(s.Name), q) || strings.Contains(strings.ToLower(s.Description), q) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Client) listSource(ctx context.Context, src model.MarketplaceSource) ([]model.MarketplaceSkill, error) {
	_, entries, _, err := c.gh.Repositories.GetContents(ctx, src.Owner, src.Repo, src.SkillsPath, c.ref(src))
	if err != nil {
		return nil, fmt.Errorf("list %s/%s/%s: %w", src.Owner, src.Repo, src.SkillsPath, err)
	}
	if entries == nil {
		return nil, fmt.Errorf("%s/%s/%s is not a directory", src.Owner, src.Repo, src.SkillsPath)
	}

	var skills []model.MarketplaceSkill
	for _, e := range entries {
		if e.GetType() != "dir" {
			continue
		}
		dirPath := joinRepoPath(src.SkillsPath, e.GetName())
		body, err := c.fetchRaw(ctx, c.rawURL(src, dirPath+"/"+model.SkillFileName))
		if err != nil {
			logging.Debug("no marker file in marketplace entry", logging.Path(dirPath), logging.Err(err))
			continue
		}
		skill, err := parser.ParseSkillContent(body)
		if err != nil {
			logging.Debug("unparseable marker file", logging.Path(dirPath), logging.Err(err))
			continue
		}
		name := skill.Name
		if name == "" {
			name = e.GetName()
		}
		skills = append(skills, model.MarketplaceSkill{
			Name:        name,
			Description: skill.Description,
			Version:     skill.Version(),
			SourceID:    src.ID,
			Path:        dirPath,
			Verified:    src.Verified,
		})
	}
	return skills, nil
}

// Install downloads the first listed skill matching name into the global
// skills directory and records it.
func (c *Client) Install(ctx context.Context, name string) (*model.InstalledSkill, error) {
	skills, err := c.List(ctx)
	if err != nil {
		return nil, err
	}

	var found *model.MarketplaceSkill
	for i := range skills {
		if strings.EqualFold(skills[i].Name, strings.TrimSpace(name)) {
			found = &skills[i]
			break
		}
	}
	if found == nil {
		names := make([]string, len(skills))
		for i, sk := range skills {
			names[i] = sk.Name
		}
		return nil, fmt.Errorf("%s: %w%s", name, ErrSkillNotFound, similarity.Hint(name, names))
	}
	src, ok := c.sourceByID(found.SourceID)
	if !ok {
		return nil, fmt.Errorf("source %q for %s is no longer configured: %w", found.SourceID, found.Name, ErrSkillNotFound)
	}

	defer logging.Timer("marketplace install")()
	dest := filepath.Join(c.skillsDir, filepath.Base(found.Name))
	err = gitsource.WithScratchDir(func(scratch string) error {
		stage := filepath.Join(scratch, "skill")
		if err := c.download(ctx, src, found.Path, stage); err != nil {
			return err
		}
		return gitsource.CopySkill(stage, dest)
	})
	if err != nil {
		return nil, fmt.Errorf("install %s: %w", found.Name, err)
	}

	rec := model.InstalledSkill{
		Name:      found.Name,
		Source:    sourcePrefix + src.ID,
		SourceURL: src.RepoURL() + "/tree/" + src.Branch + "/" + found.Path,
		Version:   found.Version,
		Platforms: []string{globalPlatform},
		Scope:     string(model.ScopeGlobal),
		Path:      dest,
	}
	if err := c.tracking.Append(rec); err != nil {
		return nil, err
	}
	logging.Info("installed marketplace skill", logging.Skill(found.Name), logging.Source(src.ID), logging.Path(dest))
	return &rec, nil
}

// download mirrors a repository directory into dest.
func (c *Client) download(ctx context.Context, src model.MarketplaceSource, dir, dest string) error {
	_, entries, _, err := c.gh.Repositories.GetContents(ctx, src.Owner, src.Repo, dir, c.ref(src))
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return err
	}

	for _, e := range entries {
		name := e.GetName()
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
			continue
		}
		target := filepath.Join(dest, name)
		entryPath := joinRepoPath(dir, name)

		switch e.GetType() {
		case "dir":
			if err := c.download(ctx, src, entryPath, target); err != nil {
				return err
			}
		case "file":
			u := e.GetDownloadURL()
			if u == "" {
				u = c.rawURL(src, entryPath)
			}
			data, err := c.fetchRaw(ctx, u)
			if err != nil {
				return fmt.Errorf("download %s: %w", entryPath, err)
			}
			// #nosec G306 - skill files are user-readable
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}

// Uninstall removes the skill folder and its marketplace tracking entries.
// Records left by git or registry installs are kept.
func (c *Client) Uninstall(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%q: %w", name, ErrNotInstalled)
	}

	dir := filepath.Join(c.skillsDir, name)
	onDisk := util.DirExists(dir)
	if onDisk {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}

	removed, err := c.tracking.RemoveFunc(func(r model.InstalledSkill) bool {
		return strings.EqualFold(r.Name, name) && strings.HasPrefix(r.Source, sourcePrefix)
	})
	if err != nil {
		return err
	}
	if !onDisk && removed == 0 {
		return fmt.Errorf("%s: %w", name, ErrNotInstalled)
	}
	logging.Info("uninstalled skill", logging.Skill(name), logging.Count(removed))
	return nil
}

func (c *Client) ref(src model.MarketplaceSource) *github.RepositoryContentGetOptions {
	branch := src.Branch
	if branch == "" {
		branch = "main"
	}
	return &github.RepositoryContentGetOptions{Ref: branch}
}

func (c *Client) rawURL(src model.MarketplaceSource, repoPath string) string {
	branch := src.Branch
	if branch == "" {
		branch = "main"
	}
	return c.rawBase + "/" + src.Owner + "/" + src.Repo + "/" + branch + "/" + strings.TrimLeft(repoPath, "/")
}

// fetchRaw GETs a raw file, retrying network errors, 429 and 5xx.
func (c *Client) fetchRaw(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if c.token != "" && strings.HasPrefix(rawURL, c.rawBase) {
				req.Header.Set("Authorization", "token "+c.token)
			}

			resp, err := c.http.Do(req)
			if err != nil {
				return err
			}
			defer func() { _ = resp.Body.Close() }()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(fmt.Errorf("%s: %w", rawURL, errRawNotFound))
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("%s: status %d", rawURL, resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode > 299:
				return retry.Unrecoverable(fmt.Errorf("%s: status %d", rawURL, resp.StatusCode))
			}

			body, err = io.ReadAll(io.LimitReader(resp.Body, maxRawSize))
			return err
		},
		retry.Attempts(rawAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Debug("retrying raw fetch", logging.URL(rawURL), slog.Int("attempt", int(n)+1), logging.Err(err))
		}),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func joinRepoPath(elem ...string) string {
	return strings.Trim(path.Join(elem...), "/")
}
