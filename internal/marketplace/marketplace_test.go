package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/skillkit/internal/cache"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/tracking"
)

// fakeGitHub serves the contents API and raw files for one repository tree.
type fakeGitHub struct {
	srv   *httptest.Server
	files map[string]string // "owner/repo/path" -> content
	// failRaw makes the next n raw requests return 503.
	failRaw  atomic.Int32
	rawCalls atomic.Int32
	apiCalls atomic.Int32
}

func newFakeGitHub(t *testing.T, files map[string]string) *fakeGitHub {
	t.Helper()
	f := &fakeGitHub{files: files}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/raw/"):
		f.rawCalls.Add(1)
		if f.failRaw.Load() > 0 {
			f.failRaw.Add(-1)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		// /raw/<owner>/<repo>/<branch>/<path>
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/raw/"), "/", 4)
		if len(parts) < 4 {
			http.NotFound(w, r)
			return
		}
		content, ok := f.files[parts[0]+"/"+parts[1]+"/"+parts[3]]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(content))

	case strings.HasPrefix(r.URL.Path, "/repos/"):
		f.apiCalls.Add(1)
		// /repos/<owner>/<repo>/contents/<path>
		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repos/"), "/", 4)
		if len(parts) < 4 || parts[2] != "contents" {
			http.NotFound(w, r)
			return
		}
		entries := f.list(parts[0], parts[1], parts[3], r.URL.Query().Get("ref"))
		if entries == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(entries)

	default:
		http.NotFound(w, r)
	}
}

// list returns the immediate children of dir, in lexical order of insertion.
func (f *fakeGitHub) list(owner, repo, dir, ref string) []map[string]string {
	prefix := owner + "/" + repo + "/" + strings.Trim(dir, "/") + "/"
	seen := map[string]bool{}
	var out []map[string]string
	for key := range f.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		name, _, isDir := strings.Cut(rest, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		repoPath := strings.TrimPrefix(prefix, owner+"/"+repo+"/") + name
		entry := map[string]string{"name": name, "path": repoPath, "type": "file"}
		if isDir {
			entry["type"] = "dir"
		} else {
			entry["download_url"] = f.srv.URL + "/raw/" + owner + "/" + repo + "/" + ref + "/" + repoPath
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func newClient(t *testing.T, gh *fakeGitHub, c *cache.Cache) (*Client, string) {
	t.Helper()
	home := t.TempDir()
	client, err := New(Options{
		ConfigPath:   filepath.Join(home, "marketplace.json"),
		SkillsDir:    filepath.Join(home, "skills"),
		Tracking:     tracking.New(filepath.Join(home, "installed.json")),
		Cache:        c,
		GitHubAPIURL: gh.srv.URL,
		RawBaseURL:   gh.srv.URL + "/raw",
		RetryDelay:   time.Millisecond,
	})
	require.NoError(t, err)
	return client, home
}

var anthropicFiles = map[string]string{
	"anthropics/skills/skills/pdf/SKILL.md":          "---\nname: pdf\ndescription: Work with PDF files\nversion: 1.0.0\n---\n# PDF\n",
	"anthropics/skills/skills/pdf/scripts/fill.py":   "print('fill')\n",
	"anthropics/skills/skills/docx/SKILL.md":         "---\nname: docx\ndescription: Word documents\nmetadata:\n  version: 2.1.0\n---\n# DOCX\n",
	"anthropics/skills/skills/no-marker/README.md":   "not a skill\n",
	"anthropics/skills/skills/README.md":             "index\n",
	"acme/extras/catalog/pdf/SKILL.md":               "---\nname: pdf\ndescription: Acme PDF\n---\n# Acme\n",
	"acme/extras/catalog/slides/SKILL.md":            "---\ndescription: Slide decks\n---\n# Slides\n",
	"acme/extras/catalog/slides/assets/template.txt": "tpl",
}

func bySource(skills []model.MarketplaceSkill) map[string][]string {
	out := map[string][]string{}
	for _, s := range skills {
		out[s.SourceID] = append(out[s.SourceID], s.Name)
	}
	return out
}

func TestSources_SeedsDefaults(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, home := newClient(t, gh, nil)

	sources, err := c.Sources()
	require.NoError(t, err)
	assert.Equal(t, DefaultSources, sources)
	assert.FileExists(t, filepath.Join(home, "marketplace.json"))
}

func TestAddSource(t *testing.T) {
	tests := map[string]struct {
		src     model.MarketplaceSource
		wantErr string
		is      error
	}{
		"valid with default branch": {
			src: model.MarketplaceSource{ID: "acme", Owner: "acme", Repo: "extras", SkillsPath: "/catalog/"},
		},
		"missing owner and repo": {
			src:     model.MarketplaceSource{ID: "x"},
			wantErr: "missing owner, repo",
		},
		"duplicate id ignoring case": {
			src: model.MarketplaceSource{ID: "Anthropic", Owner: "a", Repo: "b"},
			is:  ErrDuplicateSource,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			c, _ := newClient(t, newFakeGitHub(t, anthropicFiles), nil)
			err := c.AddSource(tt.src)
			switch {
			case tt.is != nil:
				assert.ErrorIs(t, err, tt.is)
			case tt.wantErr != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			default:
				require.NoError(t, err)
				sources, err := c.Sources()
				require.NoError(t, err)
				require.Len(t, sources, 2)
				assert.Equal(t, "main", sources[1].Branch)
				assert.Equal(t, "catalog", sources[1].SkillsPath)
			}
		})
	}
}

func TestList_TagsSkillsWithSource(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, _ := newClient(t, gh, nil)
	require.NoError(t, c.AddSource(model.MarketplaceSource{ID: "acme", Owner: "acme", Repo: "extras", SkillsPath: "catalog"}))

	skills, err := c.List(context.Background())
	require.NoError(t, err)

	got := bySource(skills)
	assert.ElementsMatch(t, []string{"pdf", "docx"}, got["anthropic"])
	assert.ElementsMatch(t, []string{"pdf", "slides"}, got["acme"])

	// anthropic skills come first because sources are listed in order
	assert.Equal(t, "anthropic", skills[0].SourceID)

	for _, s := range skills {
		switch s.SourceID + "/" + s.Name {
		case "anthropic/docx":
			assert.Equal(t, "2.1.0", s.Version)
			assert.Equal(t, "skills/docx", s.Path)
			assert.True(t, s.Verified)
		case "acme/slides":
			assert.Equal(t, "Slide decks", s.Description)
			assert.False(t, s.Verified)
		}
	}
}

func TestList_SkipsFailingSource(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, _ := newClient(t, gh, nil)
	require.NoError(t, c.AddSource(model.MarketplaceSource{ID: "ghost", Owner: "nobody", Repo: "nothing"}))

	skills, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, bySource(skills)["anthropic"], 2)
	assert.Empty(t, bySource(skills)["ghost"])
}

func TestList_UsesCache(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	cc, err := cache.New("marketplace", t.TempDir(), time.Hour)
	require.NoError(t, err)
	c, _ := newClient(t, gh, cc)

	first, err := c.List(context.Background())
	require.NoError(t, err)
	calls := gh.apiCalls.Load()

	second, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, calls, gh.apiCalls.Load())
	assert.FileExists(t, cc.Path())
}

func TestSearch(t *testing.T) {
	tests := map[string]struct {
		query string
		want  []string
	}{
		"name substring":        {query: "PD", want: []string{"pdf"}},
		"description substring": {query: "word", want: []string{"docx"}},
		"empty query lists all": {query: " ", want: []string{"pdf", "docx"}},
		"no match":              {query: "zzz", want: nil},
	}

	gh := newFakeGitHub(t, anthropicFiles)
	c, _ := newClient(t, gh, nil)
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			skills, err := c.Search(context.Background(), tt.query)
			require.NoError(t, err)
			var names []string
			for _, s := range skills {
				names = append(names, s.Name)
			}
			assert.ElementsMatch(t, tt.want, names)
		})
	}
}

func TestInstall_DownloadsAndTracks(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, home := newClient(t, gh, nil)

	rec, err := c.Install(context.Background(), "PDF")
	require.NoError(t, err)

	dest := filepath.Join(home, "skills", "pdf")
	assert.Equal(t, dest, rec.Path)
	assert.Equal(t, "marketplace:anthropic", rec.Source)
	assert.Equal(t, "https://github.com/anthropics/skills/tree/main/skills/pdf", rec.SourceURL)
	assert.Equal(t, "1.0.0", rec.Version)
	assert.FileExists(t, filepath.Join(dest, "SKILL.md"))

	script, err := os.ReadFile(filepath.Join(dest, "scripts", "fill.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('fill')\n", string(script))

	records, err := tracking.New(filepath.Join(home, "installed.json")).Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "pdf", records[0].Name)
}

func TestInstall_FirstSourceWins(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, home := newClient(t, gh, nil)
	require.NoError(t, c.AddSource(model.MarketplaceSource{ID: "acme", Owner: "acme", Repo: "extras", SkillsPath: "catalog"}))

	rec, err := c.Install(context.Background(), "pdf")
	require.NoError(t, err)
	assert.Equal(t, "marketplace:anthropic", rec.Source)

	data, err := os.ReadFile(filepath.Join(home, "skills", "pdf", "SKILL.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Work with PDF files")
}

func TestInstall_ConcurrentWithCache(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	cc, err := cache.New("marketplace", t.TempDir(), time.Hour)
	require.NoError(t, err)
	c, home := newClient(t, gh, cc)
	require.NoError(t, c.AddSource(model.MarketplaceSource{ID: "acme", Owner: "acme", Repo: "extras", SkillsPath: "catalog"}))

	names := []string{"pdf", "docx", "slides"}
	errs := make([]error, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Install(context.Background(), name)
		}()
	}
	wg.Wait()

	for i, name := range names {
		require.NoError(t, errs[i], name)
		assert.FileExists(t, filepath.Join(home, "skills", name, "SKILL.md"))
	}
	records, err := tracking.New(filepath.Join(home, "installed.json")).Load()
	require.NoError(t, err)
	assert.Len(t, records, len(names))
	assert.FileExists(t, cc.Path())
}

func TestInstall_NotFound(t *testing.T) {
	c, _ := newClient(t, newFakeGitHub(t, anthropicFiles), nil)
	_, err := c.Install(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSkillNotFound)
}

func TestUninstall(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, home := newClient(t, gh, nil)

	_, err := c.Install(context.Background(), "docx")
	require.NoError(t, err)

	require.NoError(t, c.Uninstall("docx"))
	assert.NoDirExists(t, filepath.Join(home, "skills", "docx"))

	records, err := tracking.New(filepath.Join(home, "installed.json")).Load()
	require.NoError(t, err)
	assert.Empty(t, records)

	assert.ErrorIs(t, c.Uninstall("docx"), ErrNotInstalled)
	assert.ErrorIs(t, c.Uninstall("../escape"), ErrNotInstalled)
}

func TestUninstall_KeepsOtherInstallRecords(t *testing.T) {
	c, home := newClient(t, newFakeGitHub(t, anthropicFiles), nil)
	log := tracking.New(filepath.Join(home, "installed.json"))
	agentDir := filepath.Join(home, "project", ".claude", "skills", "pdf")
	require.NoError(t, os.MkdirAll(agentDir, 0o750))
	require.NoError(t, log.Append(model.InstalledSkill{Name: "pdf", Source: "git", Path: agentDir}))

	assert.ErrorIs(t, c.Uninstall("pdf"), ErrNotInstalled)

	_, err := c.Install(context.Background(), "pdf")
	require.NoError(t, err)
	require.NoError(t, c.Uninstall("pdf"))

	records, err := log.Load()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "git", records[0].Source)
	assert.DirExists(t, agentDir)
}

func TestFetchRaw_Retries(t *testing.T) {
	tests := map[string]struct {
		failures  int32
		path      string
		wantErr   bool
		wantCalls int32
	}{
		"recovers after transient failures": {failures: 2, path: "anthropics/skills/main/skills/pdf/SKILL.md", wantCalls: 3},
		"gives up after three attempts":     {failures: 5, path: "anthropics/skills/main/skills/pdf/SKILL.md", wantErr: true, wantCalls: 3},
		"not found is not retried":          {path: "anthropics/skills/main/nope", wantErr: true, wantCalls: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			gh := newFakeGitHub(t, anthropicFiles)
			gh.failRaw.Store(tt.failures)
			c, _ := newClient(t, gh, nil)

			body, err := c.fetchRaw(context.Background(), gh.srv.URL+"/raw/"+tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Contains(t, string(body), "name: pdf")
			}
			assert.Equal(t, tt.wantCalls, gh.rawCalls.Load())
		})
	}
}

func TestFetchRaw_NotFoundSentinel(t *testing.T) {
	gh := newFakeGitHub(t, anthropicFiles)
	c, _ := newClient(t, gh, nil)
	_, err := c.fetchRaw(context.Background(), gh.srv.URL+"/raw/a/b/main/missing")
	assert.True(t, errors.Is(err, errRawNotFound))
}
