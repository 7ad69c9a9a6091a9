package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/skillkit/internal/model"
)

// Fixture writes files below a base directory.
type Fixture struct {
	t       *testing.T
	baseDir string
}

// NewFixture creates a new fixture helper rooted at the given directory.
func NewFixture(t *testing.T, baseDir string) *Fixture {
	t.Helper()
	return &Fixture{
		t:       t,
		baseDir: baseDir,
	}
}

// WriteFile writes content to a file relative to the fixture base directory.
// It creates parent directories as needed.
func (f *Fixture) WriteFile(relPath, content string) string {
	f.t.Helper()
	fullPath := filepath.Join(f.baseDir, relPath)

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		f.t.Fatalf("failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, []byte(content), 0o600); err != nil {
		f.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}

	return fullPath
}

// WriteSkill writes <name>/SKILL.md and returns the skill directory.
func (f *Fixture) WriteSkill(name, description, body string) string {
	f.t.Helper()

	content := "---\n"
	content += "name: " + name + "\n"
	if description != "" {
		content += "description: " + description + "\n"
	}
	content += "---\n\n"
	content += body

	return filepath.Dir(f.WriteFile(filepath.Join(name, model.SkillFileName), content))
}

// Path returns the full path for a relative path.
func (f *Fixture) Path(relPath string) string {
	return filepath.Join(f.baseDir, relPath)
}

// Exists returns true if the file or directory exists.
func (f *Fixture) Exists(relPath string) bool {
	f.t.Helper()
	_, err := os.Stat(filepath.Join(f.baseDir, relPath))
	return err == nil
}

// ReadFile reads and returns the content of a file.
func (f *Fixture) ReadFile(relPath string) string {
	f.t.Helper()
	fullPath := filepath.Join(f.baseDir, relPath)

	// #nosec G304 - fullPath is constructed from trusted test fixture base and test-provided path
	data, err := os.ReadFile(fullPath)
	if err != nil {
		f.t.Fatalf("failed to read file %s: %v", fullPath, err)
	}

	return string(data)
}

// ProjectFixture is rooted at the project directory.
func (h *Harness) ProjectFixture() *Fixture {
	h.t.Helper()
	return NewFixture(h.t, h.projectDir)
}

// AgentFixture is rooted at an agent's skills directory, in the project or
// under the home directory.
func (h *Harness) AgentFixture(key model.AgentKey, global bool) *Fixture {
	h.t.Helper()

	agent, ok := model.DefaultAgents().Get(key)
	if !ok {
		h.t.Fatalf("unknown agent %q", key)
	}
	dir := agent.Dir(model.ScopeFor(global), h.projectDir, h.homeDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		h.t.Fatalf("failed to create %s skills directory: %v", key, err)
	}
	return NewFixture(h.t, dir)
}

// GlobalFixture is rooted at the skillkit global skills directory.
func (h *Harness) GlobalFixture() *Fixture {
	h.t.Helper()
	return NewFixture(h.t, filepath.Join(h.SkillkitHome(), "skills"))
}

// TempFixture creates a fixture helper for a new temporary directory.
func (h *Harness) TempFixture() *Fixture {
	h.t.Helper()
	return NewFixture(h.t, h.t.TempDir())
}
