// Package discovery finds installed skills across skill roots.
package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/parser"
	"github.com/klauern/skillkit/internal/util"
)

// DefaultRoots returns the search roots in precedence order: the skillkit
// global directory, ./skills, each agent's project directory, then each
// agent's global directory.
func DefaultRoots(table model.AgentTable, home, cwd string) []string {
	agents := table.All()
	roots := make([]string, 0, 2+2*len(agents))
	roots = append(roots, util.GlobalSkillsPath(), filepath.Join(cwd, "skills"))
	for _, a := range agents {
		roots = append(roots, a.Dir(model.ScopeProject, cwd, home))
	}
	for _, a := range agents {
		roots = append(roots, a.Dir(model.ScopeGlobal, cwd, home))
	}
	return roots
}

// Discover lists every immediate subdirectory of each root that holds a
// SKILL.md marker, roots in order and entries in directory-listing order.
// Missing roots are skipped. The same skill name may appear more than once.
func Discover(roots []string) []model.SkillRef {
	var refs []model.SkillRef
	for _, root := range roots {
		refs = append(refs, discoverRoot(root)...)
	}
	return refs
}

func discoverRoot(root string) []model.SkillRef {
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Debug("cannot read skill root", logging.Path(root), logging.Err(err))
		}
		return nil
	}

	var refs []model.SkillRef
	for _, entry := range entries {
		dir := filepath.Join(root, entry.Name())
		// os.Stat follows symlinked skill directories
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		file := filepath.Join(dir, model.SkillFileName)
		if !util.FileExists(file) {
			continue
		}

		ref := model.SkillRef{Name: entry.Name(), Path: dir, Root: root}
		doc, _, err := parser.ReadDocument(file)
		if err != nil {
			logging.Warn("skill front-matter unreadable", logging.Path(file), logging.Err(err))
		} else {
			if name := parser.ExtractString(doc.Fields, "name"); name != "" {
				ref.Name = name
			}
			ref.Description = parser.ExtractString(doc.Fields, "description")
		}
		refs = append(refs, ref)
	}

	logging.Debug("scanned skill root", logging.Path(root), logging.Count(len(refs)))
	return refs
}

// Merge collapses refs sharing a name: the entry from the later root wins,
// placed at the position where the name first appeared.
func Merge(refs []model.SkillRef) []model.SkillRef {
	pos := make(map[string]int, len(refs))
	out := make([]model.SkillRef, 0, len(refs))
	for _, ref := range refs {
		if i, ok := pos[ref.Name]; ok {
			out[i] = ref
			continue
		}
		pos[ref.Name] = len(out)
		out = append(out, ref)
	}
	return out
}

// Find returns the first ref whose name matches case-insensitively.
func Find(refs []model.SkillRef, name string) (model.SkillRef, bool) {
	for _, ref := range refs {
		if strings.EqualFold(ref.Name, name) {
			return ref, true
		}
	}
	return model.SkillRef{}, false
}
