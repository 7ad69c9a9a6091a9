package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/klauern/skillkit/internal/gitsource"
	"github.com/klauern/skillkit/internal/source"
	"github.com/klauern/skillkit/internal/util"
)

// workspace isolates HOME, the skillkit home and the working directory.
type workspace struct {
	home    string
	project string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	ws := &workspace{home: t.TempDir(), project: t.TempDir()}
	t.Setenv("HOME", ws.home)
	t.Setenv("SKILLKIT_HOME", filepath.Join(ws.home, ".skillkit"))
	// Nothing listens on port 1, so the database is unreachable unless a
	// test points it at a server.
	t.Setenv("SKILLKIT_REGISTRY_URL", "http://127.0.0.1:1/skills")
	t.Setenv("SKILLKIT_MARKETPLACE_CACHE_ENABLED", "false")
	t.Setenv("SKILLKIT_MARKETPLACE_GITHUB_API_URL", "http://127.0.0.1:1/")
	t.Setenv("SKILLKIT_MARKETPLACE_RAW_BASE_URL", "http://127.0.0.1:1/raw")
	for _, k := range []string{"SKILLKIT_INSTALL_AGENTS", "SKILLKIT_INSTALL_GLOBAL", "SKILLKIT_OUTPUT_FORMAT", "SKILLKIT_DISCOVERY_EXTRA_PATHS", "GITHUB_TOKEN"} {
		t.Setenv(k, "")
	}
	t.Chdir(ws.project)
	return ws
}

func (ws *workspace) skill(t *testing.T, rel, name, description string) string {
	t.Helper()
	return util.WriteSkill(t, filepath.Join(ws.project, rel), name, description, "# "+name+"\n\nInstructions.\n")
}

// runCLI runs the application and returns what it printed to stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = io.Copy(&buf, r)
	}()

	runErr := Run(context.Background(), append([]string{"skillkit"}, args...))

	require.NoError(t, w.Close())
	os.Stdout = old
	<-done
	return buf.String(), runErr
}

// fakeCloner "clones" by copying a local directory.
type fakeCloner struct {
	repo  string
	mu    sync.Mutex
	calls []string
}

func (f *fakeCloner) Clone(_ context.Context, src source.Source, dest string) error {
	f.mu.Lock()
	f.calls = append(f.calls, src.CloneURL)
	f.mu.Unlock()
	return gitsource.CopySkill(f.repo, dest)
}

func useFakeCloner(t *testing.T, repo string) *fakeCloner {
	t.Helper()
	fake := &fakeCloner{repo: repo}
	orig := newCloner
	newCloner = func(*cli.Command) gitsource.Cloner { return fake }
	t.Cleanup(func() { newCloner = orig })
	return fake
}

// fixtureRepo builds a repository with two skills under skills/.
func fixtureRepo(t *testing.T) string {
	t.Helper()
	repo := t.TempDir()
	util.WriteSkill(t, filepath.Join(repo, "skills"), "pdf", "Work with PDF files", "# PDF\n\nUse pdftotext.\n")
	util.WriteSkill(t, filepath.Join(repo, "skills"), "docx", "Work with Word documents", "# DOCX\n\nUse pandoc.\n")
	return repo
}
