// Package adapter writes skills into the layouts individual agents read.
//
// Every adapter output is a pure function of the skill: the per-skill target
// is removed before writing, so exporting twice produces identical files.
package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
)

// MaxWorkflowDescription bounds the one-line description of a workflow file.
const MaxWorkflowDescription = 200

// Adapter renders a skill for one agent.
type Adapter interface {
	Agent() model.AgentKey
	// Target is the per-skill path that is replaced on every write.
	Target(projectRoot string, skill model.Skill) string
	// File is the file written for the skill, inside or equal to Target.
	File(projectRoot string, skill model.Skill) string
	Render(skill model.Skill) ([]byte, error)
}

// skillDir writes <project>/<agent dir>/<name>/SKILL.md.
type skillDir struct {
	agent model.AgentTarget
}

func (a skillDir) Agent() model.AgentKey { return a.agent.Key }

func (a skillDir) Target(projectRoot string, skill model.Skill) string {
	return filepath.Join(a.agent.Dir(model.ScopeProject, projectRoot, ""), skill.Name)
}

func (a skillDir) File(projectRoot string, skill model.Skill) string {
	return filepath.Join(a.Target(projectRoot, skill), model.SkillFileName)
}

type skillFrontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

func (a skillDir) Render(skill model.Skill) ([]byte, error) {
	return render(skillFrontmatter{Name: skill.Name, Description: skill.Description}, skill.Body)
}

// workflow writes the Windsurf workflow style: <project>/.windsurf/workflows/<name>.md
// with a single-line description.
type workflow struct {
	agent model.AgentKey
}

// WorkflowDir is the project-relative directory of workflow files.
const WorkflowDir = ".windsurf/workflows"

func (a workflow) Agent() model.AgentKey { return a.agent }

func (a workflow) Target(projectRoot string, skill model.Skill) string {
	return filepath.Join(projectRoot, filepath.FromSlash(WorkflowDir), skill.Name+".md")
}

func (a workflow) File(projectRoot string, skill model.Skill) string {
	return a.Target(projectRoot, skill)
}

// Render writes the description as a double-quoted scalar; the YAML encoder
// would fold long plain scalars across lines.
func (a workflow) Render(skill model.Skill) ([]byte, error) {
	quoted, err := json.Marshal(oneLine(skill.Description, MaxWorkflowDescription))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\ndescription: ")
	buf.Write(quoted)
	buf.WriteString("\n---\n")
	buf.WriteString(skill.Body)
	return buf.Bytes(), nil
}

func render(fm any, body string) ([]byte, error) {
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshal front-matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// oneLine collapses whitespace and cuts s to at most limit runes, marking the
// cut with "...".
func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimRight(string(r[:limit-3]), " ") + "..."
}

// Default returns the five adapters available in table: claude, cursor,
// codex and copilot in the skill-folder style, windsurf as workflows.
func Default(table model.AgentTable) []Adapter {
	var out []Adapter
	for _, key := range []model.AgentKey{model.AgentClaude, model.AgentCursor, model.AgentCodex, model.AgentCopilot} {
		if a, ok := table.Get(key); ok {
			out = append(out, skillDir{agent: a})
		}
	}
	if _, ok := table.Get(model.AgentWindsurf); ok {
		out = append(out, workflow{agent: model.AgentWindsurf})
	}
	return out
}

// Select keeps the adapters for keys; empty keys keeps all. Keys without an
// adapter are an error.
func Select(adapters []Adapter, keys []model.AgentKey) ([]Adapter, error) {
	if len(keys) == 0 {
		return adapters, nil
	}
	byKey := make(map[model.AgentKey]Adapter, len(adapters))
	var known []string
	for _, a := range adapters {
		byKey[a.Agent()] = a
		known = append(known, string(a.Agent()))
	}
	out := make([]Adapter, 0, len(keys))
	for _, k := range keys {
		a, ok := byKey[k]
		if !ok {
			return nil, fmt.Errorf("no export adapter for %q (available: %s)", k, strings.Join(known, ", "))
		}
		out = append(out, a)
	}
	return out, nil
}

// Write replaces the skill's target and writes the rendered file.
func Write(a Adapter, projectRoot string, skill model.Skill) (string, error) {
	if err := checkName(skill.Name); err != nil {
		return "", err
	}
	data, err := a.Render(skill)
	if err != nil {
		return "", err
	}

	target := a.Target(projectRoot, skill)
	file := a.File(projectRoot, skill)
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("clear %s: %w", target, err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", filepath.Dir(file), err)
	}
	// #nosec G306 - exported skills are user-readable
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", file, err)
	}
	return file, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid skill name %q for export", name)
	}
	return nil
}

// Result reports one adapter's export.
type Result struct {
	Agent   model.AgentKey `json:"agent"`
	Written []string       `json:"written"`
	// Skipped names skills whose source folder is the adapter's own target.
	Skipped []string `json:"skipped,omitempty"`
	Err     error    `json:"-"`
}

// Sync writes every skill through every adapter. Failures are collected per
// adapter and never stop the remaining writes.
func Sync(adapters []Adapter, projectRoot string, skills []model.Skill) []Result {
	defer logging.Timer("export sync")()

	results := make([]Result, 0, len(adapters))
	for _, a := range adapters {
		res := Result{Agent: a.Agent()}
		var errs *multierror.Error
		for _, skill := range skills {
			if skill.Dir != "" && sameDir(a.Target(projectRoot, skill), skill.Dir) {
				res.Skipped = append(res.Skipped, skill.Name)
				continue
			}
			path, err := Write(a, projectRoot, skill)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", skill.Name, err))
				logging.Warn("export failed", logging.Agent(string(a.Agent())), logging.Skill(skill.Name), logging.Err(err))
				continue
			}
			res.Written = append(res.Written, path)
			logging.Debug("exported skill", logging.Agent(string(a.Agent())), logging.Skill(skill.Name), logging.Path(path))
		}
		res.Err = errs.ErrorOrNil()
		results = append(results, res)
	}
	return results
}

func sameDir(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ia, errA := os.Stat(a)
	ib, errB := os.Stat(b)
	return errA == nil && errB == nil && os.SameFile(ia, ib)
}
