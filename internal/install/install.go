// Package install resolves skill names against the skills database and
// installs them from git, falling back to the legacy marketplace when the
// database cannot be reached.
package install

import (
	"context"
	"errors"
	"sync"

	"github.com/klauern/skillkit/internal/gitsource"
	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/registry"
)

// Resolver maps a user-supplied name to one database record.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*model.RemoteSkill, error)
}

// GitInstaller installs skills from a git source.
type GitInstaller interface {
	Install(ctx context.Context, req gitsource.Request) (*gitsource.Result, error)
}

// Fallback installs by bare name from the legacy marketplace.
type Fallback interface {
	Install(ctx context.Context, name string) (*model.InstalledSkill, error)
}

// Observer is told when each name finishes.
type Observer interface {
	Step(item string)
}

// Method records how an item was installed.
type Method string

const (
	MethodRegistry    Method = "registry"
	MethodMarketplace Method = "marketplace"
)

// Options apply to every name of a batch.
type Options struct {
	Agents []model.AgentKey
	Global bool
}

// ItemResult is the outcome for one requested name.
type ItemResult struct {
	Name   string                `json:"name"`
	Method Method                `json:"method,omitempty"`
	Remote *model.RemoteSkill    `json:"remote,omitempty"`
	Git    *gitsource.Result     `json:"git,omitempty"`
	Legacy *model.InstalledSkill `json:"legacy,omitempty"`
	Err    error                 `json:"-"`
}

// OK reports whether the item installed without error.
func (r ItemResult) OK() bool {
	return r.Err == nil
}

// Service wires the database, git installer and marketplace together.
type Service struct {
	Registry    Resolver
	Git         GitInstaller
	Marketplace Fallback
	Progress    Observer
}

// InstallNames installs every name concurrently and waits for all of them.
// Results keep the order of names; failures are reported per item.
func (s *Service) InstallNames(ctx context.Context, names []string, opts Options) []ItemResult {
	defer logging.Timer("install batch")()

	results := make([]ItemResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.installOne(ctx, name, opts)
			if s.Progress != nil {
				s.Progress.Step(name)
			}
		}()
	}
	wg.Wait()
	return results
}

func (s *Service) installOne(ctx context.Context, name string, opts Options) ItemResult {
	item := ItemResult{Name: name}

	remote, err := s.Registry.Resolve(ctx, name)
	switch {
	case errors.Is(err, registry.ErrUnreachable) && s.Marketplace != nil:
		logging.Warn("skills database unreachable, trying marketplace", logging.Skill(name), logging.Err(err))
		return s.fallback(ctx, item, name)
	case err != nil:
		item.Err = err
		return item
	}

	item.Remote = remote
	item.Method = MethodRegistry
	req := gitsource.Request{
		Source:     remote.CloneSource(),
		Agents:     opts.Agents,
		Global:     opts.Global,
		ScopedName: remote.ScopedName,
		Origin:     string(MethodRegistry),
	}
	// Without a path the whole repository is scanned; pick the named skill.
	if remote.Path == "" {
		req.Skills = []string{remote.Name}
	}

	item.Git, item.Err = s.Git.Install(ctx, req)
	if item.Err != nil {
		logging.Warn("install failed", logging.Skill(name), logging.Source(req.Source), logging.Err(item.Err))
	}
	return item
}

func (s *Service) fallback(ctx context.Context, item ItemResult, name string) ItemResult {
	bare := name
	if ref, err := registry.ParseScopedName(name); err == nil {
		bare = ref.Name
	}
	item.Method = MethodMarketplace
	item.Legacy, item.Err = s.Marketplace.Install(ctx, bare)
	return item
}
