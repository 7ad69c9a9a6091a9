// Package detector reports which AI coding agents appear to be installed.
// It looks at environment overrides, the agent's home directory layout and
// the current project.
package detector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/klauern/skillkit/internal/discovery"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/util"
)

// Detection sources, strongest first.
const (
	SourceEnv       = "env_var"
	SourceGlobal    = "filesystem"
	SourceProject   = "project_local"
	SourceConfigDir = "config_dir"
)

// Detection is one agent found on this machine.
type Detection struct {
	Agent       model.AgentKey `json:"agent"`
	DisplayName string         `json:"displayName"`
	// Path is the skills directory (or config directory) that was found.
	Path       string  `json:"path"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	SkillCount int     `json:"skillCount"`
}

// Detector checks agents from a table against a home and project root.
type Detector struct {
	Agents      model.AgentTable
	Home        string
	ProjectRoot string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// New returns a detector for the current user and working directory.
func New(table model.AgentTable) *Detector {
	cwd, _ := os.Getwd()
	return &Detector{Agents: table, Home: util.HomeDir(), ProjectRoot: cwd, Getenv: os.Getenv}
}

// DetectAll returns every detected agent in table order.
func (d *Detector) DetectAll() []Detection {
	var detected []Detection
	for _, a := range d.Agents.All() {
		if det, ok := d.detect(a); ok {
			detected = append(detected, det)
		}
	}
	return detected
}

// DetectAgent checks a single agent.
func (d *Detector) DetectAgent(key model.AgentKey) (Detection, bool) {
	a, ok := d.Agents.Get(key)
	if !ok {
		return Detection{}, false
	}
	return d.detect(a)
}

// IsInstalled is a simpler boolean check for agent presence.
func (d *Detector) IsInstalled(key model.AgentKey) bool {
	_, found := d.DetectAgent(key)
	return found
}

func (d *Detector) detect(a model.AgentTarget) (Detection, bool) {
	det := Detection{Agent: a.Key, DisplayName: a.DisplayName}

	found := func(path string, confidence float64, source string) (Detection, bool) {
		det.Path = path
		det.Confidence = confidence
		det.Source = source
		det.SkillCount = len(discovery.Discover([]string{path}))
		return det, true
	}

	if p := d.envPath(a.Key); p != "" && util.DirExists(p) {
		return found(p, 1.0, SourceEnv)
	}
	if p := a.Dir(model.ScopeGlobal, d.ProjectRoot, d.Home); util.DirExists(p) {
		return found(p, 0.9, SourceGlobal)
	}
	if d.ProjectRoot != "" {
		if p := a.Dir(model.ScopeProject, d.ProjectRoot, d.Home); util.DirExists(p) {
			return found(p, 0.7, SourceProject)
		}
	}
	// The agent's own config directory (e.g. ~/.claude) without a skills dir.
	if root := configRoot(a.GlobalDir); root != "" {
		if p := filepath.Join(d.Home, root); util.DirExists(p) {
			det.Path = p
			det.Confidence = 0.5
			det.Source = SourceConfigDir
			return det, true
		}
	}
	return Detection{}, false
}

// envPath reads SKILLKIT_<AGENT>_PATH.
func (d *Detector) envPath(key model.AgentKey) string {
	getenv := d.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	v := getenv("SKILLKIT_" + strings.ToUpper(string(key)) + "_PATH")
	if v == "" {
		return ""
	}
	return util.ExpandPath(v, d.ProjectRoot)
}

// configRoot returns the first path element of a home-relative skills dir,
// or the first two when it lives under .config.
func configRoot(globalDir string) string {
	parts := strings.Split(filepath.ToSlash(globalDir), "/")
	if len(parts) < 2 {
		return ""
	}
	if parts[0] == ".config" && len(parts) >= 3 {
		return filepath.Join(parts[0], parts[1])
	}
	return parts[0]
}
