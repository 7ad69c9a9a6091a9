package gitsource

import (
	"os"
	"path/filepath"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/parser"
	"github.com/klauern/skillkit/internal/util"
)

// Candidate is an installable skill folder found in a repository.
type Candidate struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
	// Path is the skill folder inside the clone.
	Path string `json:"path"`
}

// ScanDirs returns the directories searched under root, in order: root
// itself, root/skills, then each agent's project skills folder.
func ScanDirs(root string, table model.AgentTable) []string {
	dirs := []string{root, filepath.Join(root, "skills")}
	for _, a := range table.All() {
		dirs = append(dirs, filepath.Join(root, filepath.FromSlash(a.ProjectDir)))
	}
	return dirs
}

// Scan finds skill folders under root. Each scanned directory counts when it
// holds SKILL.md itself, and so does each immediate subdirectory that does.
// Results are de-duplicated by path in scan order.
func Scan(root string, table model.AgentTable) []Candidate {
	seen := make(map[string]bool)
	var out []Candidate

	add := func(dir string) {
		abs := filepath.Clean(dir)
		if seen[abs] || !util.FileExists(filepath.Join(abs, model.SkillFileName)) {
			return
		}
		seen[abs] = true
		out = append(out, candidateFor(abs))
	}

	for _, dir := range ScanDirs(root, table) {
		if !util.DirExists(dir) {
			continue
		}
		add(dir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && e.Name() != ".git" {
				add(filepath.Join(dir, e.Name()))
			}
		}
	}

	logging.Debug("scanned repository", logging.Path(root), logging.Count(len(out)))
	return out
}

func candidateFor(dir string) Candidate {
	c := Candidate{Name: filepath.Base(dir), Path: dir}
	skill, err := parser.LoadSkill(dir)
	if err != nil {
		logging.Warn("skill front-matter unreadable", logging.Path(dir), logging.Err(err))
		return c
	}
	c.Name = skill.Name
	c.Description = skill.Description
	c.Version = skill.Version()
	return c
}
