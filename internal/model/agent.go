package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AgentKey identifies a supported AI coding agent.
type AgentKey string

const (
	AgentClaude   AgentKey = "claude"
	AgentCursor   AgentKey = "cursor"
	AgentCodex    AgentKey = "codex"
	AgentCopilot  AgentKey = "copilot"
	AgentGemini   AgentKey = "gemini"
	AgentWindsurf AgentKey = "windsurf"
	AgentOpenCode AgentKey = "opencode"
	AgentGoose    AgentKey = "goose"
	AgentAmp      AgentKey = "amp"
	AgentKiro     AgentKey = "kiro"
)

// AgentTarget describes where an agent looks for skills.
type AgentTarget struct {
	Key         AgentKey `json:"key" yaml:"key"`
	DisplayName string   `json:"displayName" yaml:"display_name"`
	// ProjectDir is relative to the project root.
	ProjectDir string `json:"projectDir" yaml:"project_dir"`
	// GlobalDir is relative to the user's home directory.
	GlobalDir string `json:"globalDir" yaml:"global_dir"`
}

// Dir returns the absolute skills directory for the given scope.
func (a AgentTarget) Dir(scope InstallScope, projectRoot, home string) string {
	if scope == ScopeGlobal {
		return filepath.Join(home, filepath.FromSlash(a.GlobalDir))
	}
	return filepath.Join(projectRoot, filepath.FromSlash(a.ProjectDir))
}

// AgentTable is an immutable, ordered set of agent targets.
// Components receive it explicitly so tests can substitute smaller tables.
type AgentTable struct {
	agents []AgentTarget
	index  map[AgentKey]int
}

// NewAgentTable builds a table from the given targets, preserving order.
// Duplicate keys are rejected.
func NewAgentTable(targets ...AgentTarget) (AgentTable, error) {
	t := AgentTable{
		agents: make([]AgentTarget, 0, len(targets)),
		index:  make(map[AgentKey]int, len(targets)),
	}
	for _, a := range targets {
		if a.Key == "" {
			return AgentTable{}, fmt.Errorf("agent key cannot be empty")
		}
		if _, dup := t.index[a.Key]; dup {
			return AgentTable{}, fmt.Errorf("duplicate agent key %q", a.Key)
		}
		t.index[a.Key] = len(t.agents)
		t.agents = append(t.agents, a)
	}
	return t, nil
}

// MustAgentTable is like NewAgentTable but panics on error.
func MustAgentTable(targets ...AgentTarget) AgentTable {
	t, err := NewAgentTable(targets...)
	if err != nil {
		panic(err)
	}
	return t
}

var defaultAgents = []AgentTarget{
	{Key: AgentClaude, DisplayName: "Claude Code", ProjectDir: ".claude/skills", GlobalDir: ".claude/skills"},
	{Key: AgentCursor, DisplayName: "Cursor", ProjectDir: ".cursor/skills", GlobalDir: ".cursor/skills"},
	{Key: AgentCodex, DisplayName: "OpenAI Codex", ProjectDir: ".codex/skills", GlobalDir: ".codex/skills"},
	{Key: AgentCopilot, DisplayName: "GitHub Copilot", ProjectDir: ".github/skills", GlobalDir: ".copilot/skills"},
	{Key: AgentGemini, DisplayName: "Gemini CLI", ProjectDir: ".gemini/skills", GlobalDir: ".gemini/skills"},
	{Key: AgentWindsurf, DisplayName: "Windsurf", ProjectDir: ".windsurf/skills", GlobalDir: ".codeium/windsurf/skills"},
	{Key: AgentOpenCode, DisplayName: "OpenCode", ProjectDir: ".opencode/skills", GlobalDir: ".config/opencode/skills"},
	{Key: AgentGoose, DisplayName: "Goose", ProjectDir: ".goose/skills", GlobalDir: ".config/goose/skills"},
	{Key: AgentAmp, DisplayName: "Amp", ProjectDir: ".agents/skills", GlobalDir: ".config/agents/skills"},
	{Key: AgentKiro, DisplayName: "Kiro", ProjectDir: ".kiro/skills", GlobalDir: ".kiro/skills"},
}

// DefaultAgents returns the table of the ten supported agents.
func DefaultAgents() AgentTable {
	return MustAgentTable(defaultAgents...)
}

// All returns a copy of the agents in table order.
func (t AgentTable) All() []AgentTarget {
	out := make([]AgentTarget, len(t.agents))
	copy(out, t.agents)
	return out
}

// Keys returns the agent keys in table order.
func (t AgentTable) Keys() []AgentKey {
	keys := make([]AgentKey, len(t.agents))
	for i, a := range t.agents {
		keys[i] = a.Key
	}
	return keys
}

// Len returns the number of agents in the table.
func (t AgentTable) Len() int {
	return len(t.agents)
}

// Get looks up an agent by key.
func (t AgentTable) Get(key AgentKey) (AgentTarget, bool) {
	i, ok := t.index[key]
	if !ok {
		return AgentTarget{}, false
	}
	return t.agents[i], true
}

// Lookup resolves agent keys, failing on the first unknown key.
func (t AgentTable) Lookup(keys []AgentKey) ([]AgentTarget, error) {
	out := make([]AgentTarget, 0, len(keys))
	for _, k := range keys {
		a, ok := t.Get(k)
		if !ok {
			return nil, fmt.Errorf("unknown agent %q (valid: %s)", k, t.keyList())
		}
		out = append(out, a)
	}
	return out, nil
}

func (t AgentTable) keyList() string {
	keys := make([]string, len(t.agents))
	for i, a := range t.agents {
		keys[i] = string(a.Key)
	}
	return strings.Join(keys, ", ")
}

// agentAliases maps common alternative names to agent keys.
var agentAliases = map[string]AgentKey{
	"claude-code": AgentClaude,
	"claudecode":  AgentClaude,
	"cc":          AgentClaude,
	"github":      AgentCopilot,
	"gh-copilot":  AgentCopilot,
	"gemini-cli":  AgentGemini,
	"codeium":     AgentWindsurf,
	"open-code":   AgentOpenCode,
}

// ParseAgentKey normalizes a single agent name against the table.
func (t AgentTable) ParseAgentKey(s string) (AgentKey, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", fmt.Errorf("agent name cannot be empty")
	}
	if _, ok := t.index[AgentKey(normalized)]; ok {
		return AgentKey(normalized), nil
	}
	if key, ok := agentAliases[normalized]; ok {
		if _, known := t.index[key]; known {
			return key, nil
		}
	}
	return "", fmt.Errorf("unknown agent %q (valid: %s)", s, t.keyList())
}

// ParseAgentList parses agent names given as repeated values and/or
// comma-separated lists, e.g. ["claude,cursor", "codex"].
// Order is preserved and duplicates are dropped. "all" selects every agent.
func (t AgentTable) ParseAgentList(values []string) ([]AgentKey, error) {
	var keys []AgentKey
	seen := make(map[AgentKey]bool)
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.EqualFold(part, "all") {
				return t.Keys(), nil
			}
			key, err := t.ParseAgentKey(part)
			if err != nil {
				return nil, err
			}
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys, nil
}
