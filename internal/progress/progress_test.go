package progress

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBar_DisabledForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	b := New(Options{Max: 3, Description: "Installing", Writer: &buf})

	b.Step("pdf")
	b.Step("docx")
	require.NoError(t, b.Finish())

	assert.Equal(t, 2, b.Done())
	assert.Empty(t, buf.String())
}

func TestBar_ForcedRendersToWriter(t *testing.T) {
	var buf bytes.Buffer
	b := New(Options{Max: 2, Description: "Installing", Writer: &buf, Force: true})

	b.Step("pdf")
	b.Step("docx")
	require.NoError(t, b.Finish())

	assert.Contains(t, buf.String(), "2/2")
}

func TestBar_ConcurrentSteps(t *testing.T) {
	b := New(Options{Max: 50, Writer: &bytes.Buffer{}})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Step("item")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, b.Done())
}
