// Package tracking persists the append-only log of installed skills.
package tracking

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauern/skillkit/internal/model"
)

// Log is the installed-skills tracking file. Writers in one process are
// serialized; the file itself is not locked, so two concurrent CLI
// invocations may race on it.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// New returns a log backed by the JSON file at path.
func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Path returns the backing file.
func (l *Log) Path() string {
	return l.path
}

// Load reads every record. A missing file is an empty log.
func (l *Log) Load() ([]model.InstalledSkill, error) {
	// #nosec G304 - path is the tracking file inside the skillkit home
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read tracking log: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var records []model.InstalledSkill
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse tracking log %s: %w", l.path, err)
	}
	return records, nil
}

// Append adds a record; reinstalling a skill appends another entry.
// A zero InstalledAt is stamped with the current time.
func (l *Log) Append(rec model.InstalledSkill) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.Load()
	if err != nil {
		return err
	}
	if rec.InstalledAt.IsZero() {
		rec.InstalledAt = l.now().UTC()
	}
	return l.write(append(records, rec))
}

// Remove drops every record for name and reports how many were removed.
func (l *Log) Remove(name string) (int, error) {
	return l.RemoveFunc(func(r model.InstalledSkill) bool {
		return strings.EqualFold(r.Name, name)
	})
}

// RemoveFunc drops every record match reports true for.
func (l *Log) RemoveFunc(match func(model.InstalledSkill) bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.Load()
	if err != nil {
		return 0, err
	}
	kept := records[:0]
	for _, r := range records {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, l.write(kept)
}

// Latest returns the most recent record per skill name, ordered by first install.
func (l *Log) Latest() ([]model.InstalledSkill, error) {
	records, err := l.Load()
	if err != nil {
		return nil, err
	}
	pos := make(map[string]int)
	var out []model.InstalledSkill
	for _, r := range records {
		key := strings.ToLower(r.Name)
		if i, ok := pos[key]; ok {
			out[i] = r
			continue
		}
		pos[key] = len(out)
		out = append(out, r)
	}
	return out, nil
}

func (l *Log) write(records []model.InstalledSkill) error {
	if records == nil {
		records = []model.InstalledSkill{}
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("create tracking dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 - tracking log is user-readable state
	return os.WriteFile(l.path, append(data, '\n'), 0o644)
}
