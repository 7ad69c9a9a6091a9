package cache

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/skillkit/internal/model"
)

var listing = []model.MarketplaceSkill{
	{Name: "pdf", Description: "PDF tools", SourceID: "anthropic", Path: "skills/pdf", Verified: true},
	{Name: "docx", Description: "Word docs", SourceID: "anthropic", Path: "skills/docx"},
}

func TestNew(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "custom", "cache")

	c, err := New("marketplace", dir, 0)
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "marketplace.json"), c.Path())
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.Equal(t, 0, c.Size())
}

func TestNew_DefaultDirUsesSkillkitHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SKILLKIT_HOME", home)

	c, err := New("marketplace", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "cache", "marketplace.json"), c.Path())
}

func TestSetGetAndExpiry(t *testing.T) {
	c, err := New("m", t.TempDir(), time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, ok := c.Get("anthropic")
	assert.False(t, ok)

	c.Set("anthropic", listing)
	got, ok := c.Get("anthropic")
	require.True(t, ok)
	assert.Equal(t, listing, got)

	now = now.Add(59 * time.Minute)
	_, ok = c.Get("anthropic")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("anthropic")
	assert.False(t, ok, "entry older than TTL must miss")
	assert.Equal(t, 0, c.Size())
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	c, err := New("m", dir, time.Hour)
	require.NoError(t, err)
	c.Set("anthropic", listing)
	require.NoError(t, c.Save())

	reloaded, err := New("m", dir, time.Hour)
	require.NoError(t, err)
	got, ok := reloaded.Get("anthropic")
	require.True(t, ok)
	assert.Equal(t, listing, got)
}

func TestNew_DiscardsCorruptOrOldCache(t *testing.T) {
	tests := map[string]string{
		"corrupt":     "{not json",
		"old version": `{"version":"1.0","entries":{"x":{"skills":[],"cached_at":"2026-01-01T00:00:00Z"}}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "m.json"), []byte(content), 0o600))

			c, err := New("m", dir, time.Hour)
			require.NoError(t, err)
			assert.Equal(t, 0, c.Size())
			assert.Equal(t, cacheVersion, c.Version)
		})
	}
}

func TestPrune(t *testing.T) {
	c, err := New("m", t.TempDir(), time.Hour)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Set("old", listing)
	now = now.Add(90 * time.Minute)
	c.Set("fresh", listing)

	assert.Equal(t, 1, c.Prune())
	assert.Equal(t, 1, c.Size())
	_, ok := c.Entries["fresh"]
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c, err := New("m", t.TempDir(), time.Hour)
	require.NoError(t, err)

	require.NoError(t, c.Clear(), "clearing an unsaved cache is not an error")

	c.Set("x", listing)
	require.NoError(t, c.Save())
	require.NoError(t, c.Clear())
	assert.Equal(t, 0, c.Size())
	assert.NoFileExists(t, c.Path())
}

func TestConcurrentAccess(t *testing.T) {
	c, err := New("m", t.TempDir(), time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := "src-" + strconv.Itoa(i%3)
			c.Get(key)
			c.Set(key, listing)
			assert.NoError(t, c.Save())
			c.Prune()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, c.Size())
	reloaded, err := New("m", filepath.Dir(c.Path()), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Size())
}
