package gitsource

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useScratchRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	prev := scratchRoot
	scratchRoot = func() string { return root }
	t.Cleanup(func() { scratchRoot = prev })
	return root
}

func TestWithScratchDir(t *testing.T) {
	namePattern := regexp.MustCompile(`^skillkit-\d+-[0-9a-f]{8}$`)

	tests := map[string]struct {
		fn      func(dir string) error
		wantErr bool
	}{
		"success": {
			fn: func(dir string) error {
				return os.WriteFile(filepath.Join(dir, "f"), []byte("x"), 0o600)
			},
		},
		"error": {
			fn: func(dir string) error {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b"), 0o750))
				return errors.New("copy failed")
			},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			root := useScratchRoot(t)
			var seen string
			err := WithScratchDir(func(dir string) error {
				seen = dir
				assert.DirExists(t, dir)
				assert.Regexp(t, namePattern, filepath.Base(dir))
				return tt.fn(dir)
			})
			assert.Equal(t, tt.wantErr, err != nil)
			assert.NoDirExists(t, seen)

			entries, _ := os.ReadDir(root)
			assert.Empty(t, entries)
		})
	}
}

func TestWithScratchDir_RemovedOnPanic(t *testing.T) {
	root := useScratchRoot(t)
	var seen string

	func() {
		defer func() {
			assert.Equal(t, "boom", recover())
		}()
		_ = WithScratchDir(func(dir string) error {
			seen = dir
			panic("boom")
		})
	}()

	assert.NotEmpty(t, seen)
	assert.NoDirExists(t, seen)
	entries, _ := os.ReadDir(root)
	assert.Empty(t, entries)
}

func TestWithScratchDir_Unique(t *testing.T) {
	useScratchRoot(t)
	dirs := make(map[string]bool)
	for range 5 {
		_ = WithScratchDir(func(dir string) error {
			dirs[dir] = true
			return nil
		})
	}
	assert.Len(t, dirs, 5)
}
