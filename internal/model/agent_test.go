package model

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAgents(t *testing.T) {
	table := DefaultAgents()
	require.Equal(t, 10, table.Len())

	seenProject := make(map[string]AgentKey)
	for _, a := range table.All() {
		assert.NotEmpty(t, a.DisplayName, "agent %s", a.Key)
		assert.NotEmpty(t, a.ProjectDir, "agent %s", a.Key)
		assert.NotEmpty(t, a.GlobalDir, "agent %s", a.Key)
		if other, dup := seenProject[a.ProjectDir]; dup {
			t.Errorf("agents %s and %s share project dir %q", other, a.Key, a.ProjectDir)
		}
		seenProject[a.ProjectDir] = a.Key
	}

	assert.Equal(t, AgentClaude, table.Keys()[0])
}

func TestNewAgentTable_RejectsDuplicates(t *testing.T) {
	_, err := NewAgentTable(
		AgentTarget{Key: "a", ProjectDir: ".a"},
		AgentTarget{Key: "a", ProjectDir: ".b"},
	)
	assert.Error(t, err)

	_, err = NewAgentTable(AgentTarget{ProjectDir: ".a"})
	assert.Error(t, err)
}

func TestAgentTable_AllReturnsCopy(t *testing.T) {
	table := DefaultAgents()
	all := table.All()
	all[0].DisplayName = "mutated"

	got, ok := table.Get(AgentClaude)
	require.True(t, ok)
	assert.Equal(t, "Claude Code", got.DisplayName)
}

func TestAgentTarget_Dir(t *testing.T) {
	a := AgentTarget{Key: "x", ProjectDir: ".x/skills", GlobalDir: ".config/x/skills"}

	assert.Equal(t, filepath.Join("/proj", ".x", "skills"), a.Dir(ScopeProject, "/proj", "/home/u"))
	assert.Equal(t, filepath.Join("/home/u", ".config", "x", "skills"), a.Dir(ScopeGlobal, "/proj", "/home/u"))
}

func TestAgentTable_ParseAgentList(t *testing.T) {
	table := DefaultAgents()

	tests := map[string]struct {
		values  []string
		want    []AgentKey
		wantErr bool
	}{
		"single": {
			values: []string{"claude"},
			want:   []AgentKey{AgentClaude},
		},
		"comma list": {
			values: []string{"claude,cursor"},
			want:   []AgentKey{AgentClaude, AgentCursor},
		},
		"repeated and comma mixed": {
			values: []string{"codex", "cursor, gemini"},
			want:   []AgentKey{AgentCodex, AgentCursor, AgentGemini},
		},
		"duplicates dropped": {
			values: []string{"claude", "claude-code", "CLAUDE"},
			want:   []AgentKey{AgentClaude},
		},
		"all expands": {
			values: []string{"all"},
			want:   table.Keys(),
		},
		"empty yields nil": {
			values: []string{""},
			want:   nil,
		},
		"unknown agent": {
			values:  []string{"claude,emacs"},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := table.ParseAgentList(tt.values)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAgentTable_SmallTableRejectsAliasOutsideTable(t *testing.T) {
	table := MustAgentTable(AgentTarget{Key: AgentCursor, ProjectDir: ".cursor/skills", GlobalDir: ".cursor/skills"})

	_, err := table.ParseAgentKey("claude-code")
	assert.Error(t, err)

	_, err = table.Lookup([]AgentKey{AgentClaude})
	assert.Error(t, err)
}
