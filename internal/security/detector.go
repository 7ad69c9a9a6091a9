// Package security scans skill folders for credentials that should not
// leave the machine.
package security

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/validation"
)

// Severity of a finding. Errors fail validation; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// maxScanSize skips files larger than this; skill resources are small text.
const maxScanSize = 1 << 20

// Pattern is one kind of credential.
type Pattern struct {
	Name     string
	Re       *regexp.Regexp
	Severity Severity
}

// DefaultPatterns returns the built-in credential patterns.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{"API key", regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"]?[a-zA-Z0-9_\-]{16,}['"]?`), SeverityWarning},
		{"token", regexp.MustCompile(`(?i)(token|access[_-]?token|auth[_-]?token)\s*[:=]\s*['"]?[a-zA-Z0-9_\-\.]{16,}['"]?`), SeverityWarning},
		{"password", regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"]?[a-zA-Z0-9_\-@!#$%^&*()]{8,}['"]?`), SeverityWarning},
		{"AWS access key", regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`), SeverityError},
		{"AWS secret key", regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key|aws[_-]?secret)\s*[:=]\s*['"]?[a-zA-Z0-9/+]{40}['"]?`), SeverityError},
		{"GitHub token", regexp.MustCompile(`\b(ghp|gho|ghu|ghs|ghr)_[a-zA-Z0-9]{36,}\b|\bgithub_pat_[a-zA-Z0-9_]{22,}\b`), SeverityError},
		{"private key", regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE\s+KEY-----`), SeverityError},
		{"generic secret", regexp.MustCompile(`(?i)(secret|secret[_-]?key)\s*[:=]\s*['"]?[a-zA-Z0-9_\-]{16,}['"]?`), SeverityWarning},
		{"bearer token", regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]{20,}`), SeverityWarning},
		{"connection string", regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb(\+srv)?|redis|amqp)://[^:\s/]+:[^@\s]+@`), SeverityError},
	}
}

// Finding is one match.
type Finding struct {
	// File is relative to the scanned directory.
	File     string   `json:"file"`
	Line     int      `json:"line"`
	Pattern  string   `json:"pattern"`
	Severity Severity `json:"severity"`
	Excerpt  string   `json:"excerpt"`
}

func (f Finding) String() string {
	return fmt.Sprintf("possible %s in %s:%d: %s", f.Pattern, f.File, f.Line, f.Excerpt)
}

// Scanner matches content against a set of patterns.
type Scanner struct {
	patterns []Pattern
}

// NewScanner uses DefaultPatterns when patterns is empty.
func NewScanner(patterns ...Pattern) *Scanner {
	if len(patterns) == 0 {
		patterns = DefaultPatterns()
	}
	return &Scanner{patterns: patterns}
}

// ScanContent reports every line of content that matches a pattern. One
// line can produce several findings.
func (s *Scanner) ScanContent(file, content string) []Finding {
	var out []Finding
	sc := bufio.NewScanner(strings.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), maxScanSize)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if isPlaceholder(text) {
			continue
		}
		for _, p := range s.patterns {
			if p.Re.MatchString(text) {
				out = append(out, Finding{
					File:     file,
					Line:     line,
					Pattern:  p.Name,
					Severity: p.Severity,
					Excerpt:  excerpt(text, 80),
				})
			}
		}
	}
	return out
}

// ScanDir scans every text file below dir, skipping .git and files larger
// than 1 MiB.
func (s *Scanner) ScanDir(dir string) ([]Finding, error) {
	var out []Finding
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() > maxScanSize {
			return nil
		}
		// #nosec G304 - path comes from walking the skill directory
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if bytes.IndexByte(data, 0) >= 0 {
			return nil
		}
		rel, _ := filepath.Rel(dir, path)
		out = append(out, s.ScanContent(filepath.ToSlash(rel), string(data))...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	logging.Debug("secret scan complete", logging.Path(dir), logging.Count(len(out)))
	return out, nil
}

// Apply records findings on a validation result: error findings make it
// invalid, the rest become warnings.
func Apply(result *validation.Result, findings []Finding) {
	for _, f := range findings {
		if f.Severity == SeverityError {
			result.AddError(&validation.Error{Field: "content", Message: f.String()})
			continue
		}
		result.AddWarning(f.String())
	}
}

// isPlaceholder skips documentation lines whose value is obviously fake.
func isPlaceholder(line string) bool {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		_, value, ok = strings.Cut(line, ":")
	}
	if !ok {
		return false
	}
	v := strings.ToLower(strings.TrimSpace(value))
	for _, marker := range []string{"your_", "<your", "${", "placeholder", "example_", "xxxx", "changeme", "redacted"} {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

func excerpt(line string, maxLen int) string {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen-3] + "..."
}
