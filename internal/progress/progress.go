// Package progress provides progress indicators for batch installs.
package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/ui"
)

// Bar counts completed items. It is safe for concurrent use; when the writer
// is not a terminal it only logs.
type Bar struct {
	mu      sync.Mutex
	bar     *progressbar.ProgressBar
	enabled bool
	desc    string
	done    int
	max     int
}

// Options configures the progress bar behavior.
type Options struct {
	// Max is the number of items expected.
	Max int
	// Description is the prefix text shown before the bar.
	Description string
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// Force shows the bar even when Writer is not a terminal.
	Force bool
}

// New creates a bar. The bar is shown only on a color-capable terminal and
// when debug logging is off, so it never interleaves with log output.
func New(opts Options) *Bar {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	b := &Bar{
		enabled: opts.Force || shouldShowProgress(opts.Writer),
		desc:    opts.Description,
		max:     opts.Max,
	}
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s started", opts.Description), logging.Count(opts.Max))
		return b
	}

	b.bar = progressbar.NewOptions(
		opts.Max,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(opts.Writer, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(ui.IsColorEnabled()),
	)
	return b
}

// Step marks one item complete, naming it in the description.
func (b *Bar) Step(item string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.done++
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s: %s", b.desc, item), logging.Count(b.done))
		return
	}
	b.bar.Describe(fmt.Sprintf("%s %s", b.desc, item))
	_ = b.bar.Add(1)
}

// Done returns the number of completed items.
func (b *Bar) Done() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// Finish completes the bar.
func (b *Bar) Finish() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.enabled {
		logging.Debug(fmt.Sprintf("%s completed", b.desc), logging.Count(b.done))
		return nil
	}
	return b.bar.Finish()
}

func shouldShowProgress(w io.Writer) bool {
	if !ui.IsColorEnabled() || !ui.IsTerminal(w) {
		return false
	}
	return !logging.Default().Enabled(context.Background(), logging.LevelDebug)
}
