package marketplace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/tracking"
)

func TestNewer(t *testing.T) {
	tests := map[string]struct {
		installed, latest string
		want              bool
	}{
		"semver greater":        {installed: "1.0.0", latest: "1.2.0", want: true},
		"semver equal":          {installed: "1.2.0", latest: "v1.2.0", want: false},
		"semver older upstream": {installed: "2.0.0", latest: "1.9.9", want: false},
		"string fallback diff":  {installed: "beta", latest: "gamma", want: true},
		"string fallback same":  {installed: "beta", latest: "beta", want: false},
		"no upstream version":   {installed: "1.0.0", latest: "", want: false},
		"no installed version":  {installed: "", latest: "1.0.0", want: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, newer(tt.installed, tt.latest))
		})
	}
}

func TestCheckUpdates(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, home := newClient(t, gh, nil)
	log := tracking.New(filepath.Join(home, "installed.json"))

	require.NoError(t, log.Append(model.InstalledSkill{
		Name: "pdf", Source: "marketplace:anthropic", Version: "0.9.0",
		SourceURL: "https://github.com/anthropics/skills/tree/main/skills/pdf",
	}))
	require.NoError(t, log.Append(model.InstalledSkill{
		Name: "docx", Source: "git", Version: "1.0.0",
		SourceURL: "https://github.com/anthropics/skills/tree/main/skills/docx",
	}))
	// latest record per name is the one that counts
	require.NoError(t, log.Append(model.InstalledSkill{
		Name: "docx", Source: "git", Version: "2.1.0",
		SourceURL: "https://github.com/anthropics/skills/tree/main/skills/docx",
	}))
	require.NoError(t, log.Append(model.InstalledSkill{
		Name: "lab", Source: "git", SourceURL: "https://gitlab.com/team/lab.git",
	}))

	infos, err := c.CheckUpdates(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 3)

	byName := map[string]UpdateInfo{}
	for _, i := range infos {
		byName[i.Name] = i
	}

	assert.True(t, byName["pdf"].HasUpdate)
	assert.Equal(t, "1.0.0", byName["pdf"].Latest)

	assert.False(t, byName["docx"].HasUpdate)
	assert.Equal(t, "2.1.0", byName["docx"].Installed)

	assert.False(t, byName["lab"].HasUpdate)
	assert.Contains(t, byName["lab"].Error, "not supported")
}
