// Package e2e provides testing infrastructure for end-to-end CLI tests.
// It includes a harness for running CLI commands in an isolated home and
// project directory, fixture management, and assertion helpers.
package e2e

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/skillkit/internal/cli"
)

// Result contains the outcome of running a CLI command.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout string
	// Err is the error returned by the CLI command, if any.
	Err error
	// ExitCode is the inferred exit code (0 for success, 1 for error).
	ExitCode int
}

// Success returns true if the command completed without error.
func (r *Result) Success() bool {
	return r.Err == nil
}

// Harness runs CLI commands against a temporary home directory and a
// temporary project directory that is also the working directory.
type Harness struct {
	t          *testing.T
	homeDir    string
	projectDir string
}

// NewHarness creates a harness. Network endpoints point at a closed port so
// nothing leaves the machine unless a test sets them with SetEnv.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{
		t:          t,
		homeDir:    t.TempDir(),
		projectDir: t.TempDir(),
	}

	h.SetEnv("HOME", h.homeDir)
	h.SetEnv("SKILLKIT_HOME", filepath.Join(h.homeDir, ".skillkit"))
	h.SetEnv("SKILLKIT_REGISTRY_URL", "http://127.0.0.1:1/skills")
	h.SetEnv("SKILLKIT_MARKETPLACE_GITHUB_API_URL", "http://127.0.0.1:1/")
	h.SetEnv("SKILLKIT_MARKETPLACE_RAW_BASE_URL", "http://127.0.0.1:1/raw")
	h.SetEnv("SKILLKIT_MARKETPLACE_CACHE_ENABLED", "false")
	for _, k := range []string{"SKILLKIT_INSTALL_AGENTS", "SKILLKIT_INSTALL_GLOBAL", "SKILLKIT_OUTPUT_FORMAT", "SKILLKIT_DISCOVERY_EXTRA_PATHS", "GITHUB_TOKEN", "NO_COLOR"} {
		h.SetEnv(k, "")
	}
	t.Chdir(h.projectDir)

	return h
}

// SetEnv sets an environment variable for the rest of the test.
func (h *Harness) SetEnv(key, value string) {
	h.t.Helper()
	h.t.Setenv(key, value)
}

// HomeDir returns the isolated home directory.
func (h *Harness) HomeDir() string {
	return h.homeDir
}

// ProjectDir returns the working directory commands run in.
func (h *Harness) ProjectDir() string {
	return h.projectDir
}

// SkillkitHome returns the skillkit state directory inside HomeDir.
func (h *Harness) SkillkitHome() string {
	return filepath.Join(h.homeDir, ".skillkit")
}

// Run executes a CLI command with the given arguments and captures stdout.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.run(nil, args)
}

// RunWithStdin executes a CLI command with stdin input and captures output.
func (h *Harness) RunWithStdin(stdin string, args ...string) *Result {
	h.t.Helper()
	return h.run(&stdin, args)
}

func (h *Harness) run(stdin *string, args []string) *Result {
	h.t.Helper()

	if len(args) == 0 || args[0] != "skillkit" {
		args = append([]string{"skillkit"}, args...)
	}

	if stdin != nil {
		oldStdin := os.Stdin
		stdinR, stdinW, err := os.Pipe()
		if err != nil {
			h.t.Fatalf("failed to create stdin pipe: %v", err)
		}
		go func() {
			defer func() {
				_ = stdinW.Close()
			}()
			_, _ = stdinW.WriteString(*stdin)
		}()
		os.Stdin = stdinR
		defer func() { os.Stdin = oldStdin }()
	}

	oldStdout := os.Stdout
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		h.t.Fatalf("failed to create stdout pipe: %v", err)
	}
	os.Stdout = stdoutW

	// Drain concurrently; output larger than the pipe buffer would block.
	var stdoutBuf bytes.Buffer
	var copyErr error
	copyDone := make(chan struct{})
	go func() {
		defer close(copyDone)
		_, copyErr = io.Copy(&stdoutBuf, stdoutR)
	}()

	cmdErr := cli.Run(context.Background(), args)

	if err := stdoutW.Close(); err != nil {
		h.t.Fatalf("failed to close stdout pipe writer: %v", err)
	}
	os.Stdout = oldStdout

	<-copyDone
	if copyErr != nil {
		h.t.Fatalf("failed to read captured stdout: %v", copyErr)
	}

	exitCode := 0
	if cmdErr != nil {
		exitCode = 1
	}
	return &Result{
		Stdout:   stdoutBuf.String(),
		Err:      cmdErr,
		ExitCode: exitCode,
	}
}
