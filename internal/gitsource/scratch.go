package gitsource

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/klauern/skillkit/internal/logging"
)

// scratchRoot is where scratch directories are created.
var scratchRoot = os.TempDir

// WithScratchDir runs fn with a fresh directory named
// skillkit-<unixnano>-<random> and removes it when fn returns or panics.
func WithScratchDir(fn func(dir string) error) error {
	name := fmt.Sprintf("skillkit-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
	dir := filepath.Join(scratchRoot(), name)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logging.Warn("failed to remove scratch dir", logging.Path(dir), logging.Err(err))
		}
	}()

	return fn(dir)
}
