package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/skillkit/internal/tracking"
	"github.com/klauern/skillkit/internal/util"
)

var registryRecords = []map[string]any{
	{"name": "pdf", "author": "acme", "description": "Work with PDF files", "stars": 42, "repo_full_name": "acme/skills", "path": "skills/pdf", "branch": "main"},
	{"name": "docx", "author": "acme", "description": "Work with Word documents", "stars": 7, "repo_full_name": "acme/skills", "path": "skills/docx", "branch": "main"},
}

// useRegistry points the skills database at a server holding registryRecords
// and returns the queries it received.
func useRegistry(t *testing.T) *[]string {
	t.Helper()
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		search := strings.ToLower(r.URL.Query().Get("search"))
		var out []map[string]any
		for _, rec := range registryRecords {
			if search == "" || strings.Contains(rec["name"].(string), search) {
				out = append(out, rec)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"skills": out, "total": len(out)})
	}))
	t.Cleanup(srv.Close)
	t.Setenv("SKILLKIT_REGISTRY_URL", srv.URL+"/api/skills")
	return &queries
}

// useGitHub serves the default legacy source (anthropics/skills) with one
// pdf skill.
func useGitHub(t *testing.T) {
	t.Helper()
	const marker = "---\nname: pdf\ndescription: Legacy PDF skill\nversion: 1.2.0\n---\n# PDF\n"
	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/repos/anthropics/skills/contents/skills", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"pdf","path":"skills/pdf","type":"dir"}]`))
	})
	mux.HandleFunc("/repos/anthropics/skills/contents/skills/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]string{{
			"name":         "SKILL.md",
			"path":         "skills/pdf/SKILL.md",
			"type":         "file",
			"download_url": base + "/raw/anthropics/skills/main/skills/pdf/SKILL.md",
		}})
	})
	mux.HandleFunc("/raw/anthropics/skills/main/skills/pdf/SKILL.md", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marker))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	base = srv.URL
	t.Setenv("SKILLKIT_MARKETPLACE_GITHUB_API_URL", srv.URL+"/")
	t.Setenv("SKILLKIT_MARKETPLACE_RAW_BASE_URL", srv.URL+"/raw")
}

func TestMarketplaceBrowse(t *testing.T) {
	tests := map[string]struct {
		args []string
		want []string
	}{
		"table": {
			args: []string{"marketplace", "browse"},
			want: []string{"STARS", "@acme/pdf", "42", "Showing 2 of 2 skill(s)"},
		},
		"search": {
			args: []string{"mp", "search", "docx", "-f", "quiet"},
			want: []string{"@acme/docx"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			newWorkspace(t)
			useRegistry(t)

			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestMarketplaceBrowse_Paging(t *testing.T) {
	newWorkspace(t)
	queries := useRegistry(t)

	_, err := runCLI(t, "mp", "browse", "--limit", "10", "--page", "3", "--sort", "name", "--author", "acme")
	require.NoError(t, err)
	require.Len(t, *queries, 1)
	q := (*queries)[0]
	assert.Contains(t, q, "limit=10")
	assert.Contains(t, q, "offset=20")
	assert.Contains(t, q, "sortBy=name")
	assert.Contains(t, q, "author=acme")

	_, err = runCLI(t, "mp", "browse", "--sort", "downloads")
	require.Error(t, err)
}

func TestMarketplaceBrowse_FallsBackToLegacy(t *testing.T) {
	newWorkspace(t)
	useGitHub(t)

	out, err := runCLI(t, "marketplace", "browse")
	require.NoError(t, err)
	assert.Contains(t, out, "legacy marketplace")
	assert.Contains(t, out, "pdf")
	assert.Contains(t, out, "anthropic")
	assert.Contains(t, out, "Total: 1 skill(s)")

	out, err = runCLI(t, "marketplace", "browse", "--legacy", "-f", "quiet")
	require.NoError(t, err)
	assert.Equal(t, "pdf\n", out)
}

func TestMarketplaceInstall(t *testing.T) {
	ws := newWorkspace(t)
	useRegistry(t)
	fake := useFakeCloner(t, fixtureRepo(t))

	out, err := runCLI(t, "marketplace", "install", "pdf", "@acme/docx", "-a", "claude", "-y")
	require.NoError(t, err)
	assert.Contains(t, out, "-> claude")
	assert.Len(t, fake.calls, 2)

	assert.FileExists(t, filepath.Join(ws.project, ".claude", "skills", "pdf", "SKILL.md"))
	assert.FileExists(t, filepath.Join(ws.project, ".claude", "skills", "docx", "SKILL.md"))

	records, err := tracking.New(util.TrackingLogPath()).Latest()
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, "registry", rec.Source)
		assert.NotEmpty(t, rec.ScopedName)
	}
}

func TestMarketplaceInstall_PartialFailure(t *testing.T) {
	ws := newWorkspace(t)
	useRegistry(t)
	useFakeCloner(t, fixtureRepo(t))

	out, err := runCLI(t, "mp", "install", "pdf", "@other/pdf", "-a", "cursor", "-y", "-f", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 skill(s) failed to install")
	assert.FileExists(t, filepath.Join(ws.project, ".cursor", "skills", "pdf", "SKILL.md"))

	var reports []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)
	assert.Equal(t, "pdf", reports[0]["name"])
	assert.Empty(t, reports[0]["error"])
	assert.NotEmpty(t, reports[1]["error"])
}

func TestMarketplaceInstall_LegacyFallback(t *testing.T) {
	ws := newWorkspace(t)
	useGitHub(t)
	fake := useFakeCloner(t, fixtureRepo(t))

	out, err := runCLI(t, "marketplace", "install", "pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "legacy marketplace")
	assert.Empty(t, fake.calls)

	installed := filepath.Join(ws.home, ".skillkit", "skills", "pdf", "SKILL.md")
	assert.FileExists(t, installed)

	out, err = runCLI(t, "mp", "updates")
	require.NoError(t, err)
	assert.Contains(t, out, "pdf")
	assert.Contains(t, out, "1.2.0")

	out, err = runCLI(t, "mp", "uninstall", "pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "Uninstalled pdf")
	assert.NoFileExists(t, installed)

	_, err = runCLI(t, "mp", "uninstall", "pdf")
	require.Error(t, err)
}

func TestMarketplaceInstall_Errors(t *testing.T) {
	tests := map[string][]string{
		"no names":      {"mp", "install"},
		"unknown agent": {"mp", "install", "pdf", "-a", "emacs"},
		"bad format":    {"mp", "install", "pdf", "-a", "claude", "-f", "yaml"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			newWorkspace(t)
			useRegistry(t)
			useFakeCloner(t, fixtureRepo(t))

			_, err := runCLI(t, args...)
			require.Error(t, err)
		})
	}
}

func TestMarketplaceUpdates_Empty(t *testing.T) {
	newWorkspace(t)

	out, err := runCLI(t, "mp", "updates")
	require.NoError(t, err)
	assert.Contains(t, out, "No tracked skills.")
}

func TestMarketplaceSources(t *testing.T) {
	newWorkspace(t)

	out, err := runCLI(t, "mp", "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "anthropic")
	assert.Contains(t, out, "anthropics/skills@main")

	out, err = runCLI(t, "mp", "sources", "add", "acme", "--owner", "acme", "--repo", "extras", "--path", "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "Added source")

	out, err = runCLI(t, "mp", "sources", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "acme/extras@main")
	assert.Contains(t, out, "catalog")

	_, err = runCLI(t, "mp", "sources", "add", "acme", "--owner", "acme", "--repo", "extras")
	require.Error(t, err, "duplicate source id")

	_, err = runCLI(t, "mp", "sources", "add", "nope")
	require.Error(t, err, "owner and repo are required")
}
