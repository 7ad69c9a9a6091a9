package gitsource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	cp "github.com/otiai10/copy"

	"github.com/klauern/skillkit/internal/archive"
	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/source"
	"github.com/klauern/skillkit/internal/tracking"
)

// ErrSubpathNotFound means the requested path does not exist in the clone.
var ErrSubpathNotFound = errors.New("path not found in repository")

// Installer clones sources and copies skills into agent directories.
type Installer struct {
	Agents model.AgentTable
	Cloner Cloner
	// Tracking receives one record per skill installed to at least one agent.
	Tracking *tracking.Log
	// Prompt enables interactive selection; nil selects everything.
	Prompt      Prompter
	Home        string
	ProjectRoot string

	copyFn func(src, dest string) error
}

// Request describes one install.
type Request struct {
	Source string
	// Skills filters candidates by name; empty means prompt or all.
	Skills []string
	// Agents selects targets; empty means prompt or all.
	Agents []model.AgentKey
	Global bool
	// ScopedName and Origin are written to the tracking record.
	ScopedName string
	Origin     string
}

// PairResult is the outcome of copying one skill into one agent directory.
type PairResult struct {
	Skill string `json:"skill"`
	Agent string `json:"agent"`
	Path  string `json:"path"`
	Err   error  `json:"-"`
}

// Result reports everything an install attempted.
type Result struct {
	Source     source.Source `json:"-"`
	Candidates []Candidate   `json:"candidates"`
	Selected   []Candidate   `json:"selected"`
	Pairs      []PairResult  `json:"pairs"`
}

// Failed returns the pairs that did not install.
func (r *Result) Failed() []PairResult {
	var out []PairResult
	for _, p := range r.Pairs {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// Install clones req.Source (or unpacks a skill archive) into a scratch
// directory, selects skills and agents, and copies every (skill, agent) pair. A failing pair does not stop
// the others; pair failures come back joined in the returned error alongside
// a complete Result. Clone and selection failures abort with a nil Result.
func (i *Installer) Install(ctx context.Context, req Request) (*Result, error) {
	src, err := source.Parse(req.Source)
	if err != nil {
		return nil, err
	}
	defer logging.Timer("git install")()

	var result *Result
	err = WithScratchDir(func(scratch string) error {
		cloneDir := filepath.Join(scratch, "repo")
		if err := i.fetch(ctx, src, cloneDir); err != nil {
			return err
		}
		if src.Kind != source.KindArchive && (src.Branch == "" || src.Branch == source.DefaultRef) {
			if branch := checkedOutBranch(cloneDir); branch != "" {
				src.Branch = branch
			}
		}

		root := cloneDir
		if src.Subpath != "" {
			root = filepath.Join(cloneDir, filepath.FromSlash(src.Subpath))
			if info, err := os.Stat(root); err != nil || !info.IsDir() {
				return fmt.Errorf("%s: %w", src.Subpath, ErrSubpathNotFound)
			}
		}

		cands := Scan(root, i.Agents)
		result = &Result{Source: src, Candidates: cands}
		if len(cands) == 0 {
			return nil
		}

		selected, err := SelectSkills(cands, req.Skills, i.Prompt)
		if err != nil {
			return err
		}
		agents, err := SelectAgents(i.Agents, req.Agents, i.Prompt)
		if err != nil {
			return err
		}
		result.Selected = selected

		return i.copyAll(src, root, req, selected, agents, result)
	})
	if err != nil && result == nil {
		return nil, err
	}
	if err != nil && len(result.Pairs) == 0 {
		return nil, err
	}
	return result, err
}

// fetch clones src into dest, or unpacks it when it is a skill archive.
func (i *Installer) fetch(ctx context.Context, src source.Source, dest string) error {
	if src.Kind == source.KindArchive {
		_, err := archive.UnpackFile(src.CloneURL, dest)
		return err
	}
	return i.Cloner.Clone(ctx, src, dest)
}

func (i *Installer) copyAll(src source.Source, root string, req Request, skills []Candidate, agents []model.AgentTarget, result *Result) error {
	scope := model.ScopeFor(req.Global)
	var errs *multierror.Error

	for _, skill := range skills {
		var okAgents []string
		var firstPath string
		for _, agent := range agents {
			dest := filepath.Join(agent.Dir(scope, i.ProjectRoot, i.Home), installDirName(skill))
			pair := PairResult{Skill: skill.Name, Agent: string(agent.Key), Path: dest}
			if err := i.copy(skill.Path, dest); err != nil {
				pair.Err = fmt.Errorf("%s -> %s: %w", skill.Name, agent.Key, err)
				errs = multierror.Append(errs, pair.Err)
				logging.Warn("skill copy failed", logging.Skill(skill.Name), logging.Agent(string(agent.Key)), logging.Err(err))
			} else {
				okAgents = append(okAgents, string(agent.Key))
				if firstPath == "" {
					firstPath = dest
				}
			}
			result.Pairs = append(result.Pairs, pair)
		}

		if len(okAgents) > 0 && i.Tracking != nil {
			rec := model.InstalledSkill{
				Name:       skill.Name,
				ScopedName: req.ScopedName,
				Source:     originOr(req.Origin, "git"),
				SourceURL:  sourceURL(src, root, skill.Path),
				Version:    skill.Version,
				Platforms:  okAgents,
				Scope:      string(scope),
				Path:       firstPath,
			}
			if err := i.Tracking.Append(rec); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("track %s: %w", skill.Name, err))
			}
		}
	}

	return errs.ErrorOrNil()
}

func (i *Installer) copy(src, dest string) error {
	if i.copyFn != nil {
		return i.copyFn(src, dest)
	}
	return CopySkill(src, dest)
}

// CopySkill replaces dest with a recursive copy of src.
func CopySkill(src, dest string) error {
	if err := os.RemoveAll(dest); err != nil {
		return fmt.Errorf("clear target: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}
	opts := cp.Options{
		PreserveTimes: false,
		PreserveOwner: false,
		OnSymlink: func(string) cp.SymlinkAction {
			return cp.Deep
		},
		Skip: func(info os.FileInfo, src, _ string) (bool, error) {
			return info.IsDir() && info.Name() == ".git", nil
		},
	}
	return cp.Copy(src, dest, opts)
}

// installDirName is the folder created under each agent directory.
func installDirName(c Candidate) string {
	name := strings.TrimSpace(c.Name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return filepath.Base(c.Path)
	}
	return name
}

func originOr(origin, fallback string) string {
	if origin != "" {
		return origin
	}
	return fallback
}

// sourceURL records where the skill came from. GitHub sources get a tree URL
// pointing at the skill folder so update checks can find its SKILL.md again.
func sourceURL(src source.Source, root, skillPath string) string {
	if src.Provider() != "github" || src.Owner == "" {
		return src.CloneURL
	}
	branch := src.Branch
	if branch == "" {
		branch = source.DefaultRef
	}
	rel := strings.Trim(src.Subpath, "/")
	if inner, err := filepath.Rel(root, skillPath); err == nil && inner != "." {
		rel = strings.Trim(rel+"/"+filepath.ToSlash(inner), "/")
	}
	u := "https://github.com/" + src.Owner + "/" + src.Repo + "/tree/" + branch
	if rel != "" {
		u += "/" + rel
	}
	return u
}
