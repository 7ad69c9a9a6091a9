// Package source classifies install sources (URLs and shorthands) into a
// fixed set of kinds by ordered rules: the first matching rule wins.
package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrMalformedSource is returned for empty or unusable source strings.
var ErrMalformedSource = errors.New("malformed source")

// DefaultRef names the remote's default branch in GitHub tree and raw URLs.
const DefaultRef = "HEAD"

// Kind is the classification of a source string.
type Kind int

const (
	// KindGitHubTree is https://github.com/o/r/tree/<branch>/<path>.
	KindGitHubTree Kind = iota + 1
	// KindGitHubRepo is https://github.com/o/r[.git].
	KindGitHubRepo
	// KindGitLabRepo is https://gitlab.com/group/.../repo[.git], optionally /-/tree/<branch>/<path>.
	KindGitLabRepo
	// KindShorthand is owner/repo[/subpath] on GitHub.
	KindShorthand
	// KindRawGit is any other git remote, passed to git unchanged.
	KindRawGit
	// KindArchive is a local .tar.gz or .tgz file made by skillkit pack.
	KindArchive
)

var kindNames = map[Kind]string{
	KindGitHubTree: "github-tree",
	KindGitHubRepo: "github-repo",
	KindGitLabRepo: "gitlab-repo",
	KindShorthand:  "shorthand",
	KindRawGit:     "raw-git",
	KindArchive:    "archive",
}

// String returns the kind's name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Source is a classified install source.
type Source struct {
	Kind Kind
	// Raw is the trimmed input.
	Raw string
	// Owner is the GitHub owner or GitLab group path.
	Owner string
	Repo  string
	// Branch is empty when the default branch should be used.
	Branch string
	// Subpath locates the skill(s) inside the repository, slash-separated.
	Subpath string
	// CloneURL is what gets handed to git.
	CloneURL string
}

// Provider names the hosting service.
func (s Source) Provider() string {
	switch s.Kind {
	case KindGitHubTree, KindGitHubRepo, KindShorthand:
		return "github"
	case KindGitLabRepo:
		return "gitlab"
	case KindArchive:
		return "archive"
	default:
		return "git"
	}
}

// String renders a compact description for logs and messages.
func (s Source) String() string {
	if s.Owner == "" {
		return s.CloneURL
	}
	out := s.Owner + "/" + s.Repo
	if s.Branch != "" {
		out += "@" + s.Branch
	}
	if s.Subpath != "" {
		out += ":" + s.Subpath
	}
	return out
}

// RawFileURL returns the raw-content URL for a file under the subpath.
// Only GitHub sources have one. Without a branch the URL names HEAD, which
// resolves to the default branch.
func (s Source) RawFileURL(rawBase, file string) (string, bool) {
	if s.Provider() != "github" {
		return "", false
	}
	branch := s.Branch
	if branch == "" {
		branch = DefaultRef
	}
	p := strings.Trim(strings.Trim(s.Subpath, "/")+"/"+file, "/")
	return strings.TrimRight(rawBase, "/") + "/" + s.Owner + "/" + s.Repo + "/" + branch + "/" + p, true
}

type rule struct {
	kind  Kind
	re    *regexp.Regexp
	build func(m []string) Source
}

// Order matters: archives first so dist/x.tgz is not read as owner/repo,
// tree URLs before plain repo URLs, and shorthand (no colon, no scheme)
// before the raw fallback so scp-style remotes stay raw.
var rules = []rule{
	{
		kind: KindArchive,
		re:   regexp.MustCompile(`(?i)^([^:\s]+\.(?:tar\.gz|tgz))$`),
		build: func(m []string) Source {
			return Source{CloneURL: m[1]}
		},
	},
	{
		kind: KindGitHubTree,
		re:   regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/\s]+)/([^/\s]+?)/tree/([^/\s]+)(?:/(.+?))?/?$`),
		build: func(m []string) Source {
			return Source{Owner: m[1], Repo: m[2], Branch: m[3], Subpath: m[4], CloneURL: githubURL(m[1], m[2])}
		},
	},
	{
		kind: KindGitHubRepo,
		re:   regexp.MustCompile(`^https?://(?:www\.)?github\.com/([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`),
		build: func(m []string) Source {
			return Source{Owner: m[1], Repo: m[2], CloneURL: githubURL(m[1], m[2])}
		},
	},
	{
		kind: KindGitLabRepo,
		re:   regexp.MustCompile(`^https?://(?:www\.)?gitlab\.com/((?:[^/\s]+/)+?)([^/\s]+?)(?:\.git)?(?:/-/tree/([^/\s]+)(?:/(.+?))?)?/?$`),
		build: func(m []string) Source {
			group := strings.TrimSuffix(m[1], "/")
			return Source{
				Owner:    group,
				Repo:     m[2],
				Branch:   m[3],
				Subpath:  m[4],
				CloneURL: "https://gitlab.com/" + group + "/" + m[2] + ".git",
			}
		},
	},
	{
		kind: KindShorthand,
		re:   regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9_.-]*)/([A-Za-z0-9_.-]+)(?:/([^:\s]+?))?/?$`),
		build: func(m []string) Source {
			return Source{Owner: m[1], Repo: strings.TrimSuffix(m[2], ".git"), Subpath: m[3], CloneURL: githubURL(m[1], strings.TrimSuffix(m[2], ".git"))}
		},
	},
}

// LocalSubpath reports whether sub stays inside the repository root. The
// empty subpath is the root itself.
func LocalSubpath(sub string) bool {
	sub = strings.Trim(sub, "/")
	if sub == "" {
		return true
	}
	for _, seg := range strings.Split(sub, "/") {
		if seg == ".." {
			return false
		}
	}
	return filepath.IsLocal(filepath.FromSlash(sub))
}

func githubURL(owner, repo string) string {
	return "https://github.com/" + owner + "/" + repo + ".git"
}

// Parse classifies s. Anything no rule matches is a raw git remote.
func Parse(s string) (Source, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Source{}, fmt.Errorf("%w: empty source", ErrMalformedSource)
	}

	for _, r := range rules {
		if m := r.re.FindStringSubmatch(raw); m != nil {
			src := r.build(m)
			src.Kind = r.kind
			src.Raw = raw
			if !LocalSubpath(src.Subpath) {
				return Source{}, fmt.Errorf("%w: subpath %q leaves the repository", ErrMalformedSource, src.Subpath)
			}
			return src, nil
		}
	}

	if strings.ContainsAny(raw, " \t\n") {
		return Source{}, fmt.Errorf("%w: %q contains whitespace", ErrMalformedSource, raw)
	}
	return Source{Kind: KindRawGit, Raw: raw, CloneURL: raw}, nil
}
