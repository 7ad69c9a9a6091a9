package gitsource

import (
	"context"
	"fmt"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/source"
)

// Cloner fetches a repository into dest.
type Cloner interface {
	Clone(ctx context.Context, src source.Source, dest string) error
}

// GoGitCloner clones with go-git: depth 1, single branch when one is named.
type GoGitCloner struct {
	// Progress receives git's progress output when set.
	Progress io.Writer
}

// Clone implements Cloner.
func (c GoGitCloner) Clone(ctx context.Context, src source.Source, dest string) error {
	opts := &git.CloneOptions{
		URL:      src.CloneURL,
		Depth:    1,
		Progress: c.Progress,
		Tags:     git.NoTags,
	}
	if src.Branch != "" && src.Branch != source.DefaultRef {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
		opts.SingleBranch = true
	}

	logging.Debug("cloning repository", logging.URL(src.CloneURL), logging.Path(dest))
	if _, err := git.PlainCloneContext(ctx, dest, false, opts); err != nil {
		return fmt.Errorf("clone %s: %w", src.CloneURL, err)
	}
	return nil
}

// checkedOutBranch returns the branch HEAD points at in the clone at dir. It
// is empty when HEAD is detached or dir is not a repository.
func checkedOutBranch(dir string) string {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return ""
	}
	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil || head.Type() != plumbing.SymbolicReference {
		return ""
	}
	return head.Target().Short()
}
