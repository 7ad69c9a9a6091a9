package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauern/skillkit/internal/model"
)

// record is one raw database entry. Deployments disagree on field casing,
// so each field is looked up under both spellings.
type record map[string]any

func (r record) str(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func (r record) num(keys ...string) int {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

func (r record) flag(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r[k].(bool); ok {
			return v
		}
	}
	return false
}

func (r record) when(keys ...string) time.Time {
	s := r.str(keys...)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// normalize maps a raw record onto the canonical model.
func normalize(r record) model.RemoteSkill {
	s := model.RemoteSkill{
		ID:            r.str("id"),
		Name:          r.str("name"),
		Author:        r.str("author"),
		ScopedName:    r.str("scoped_name", "scopedName"),
		Description:   r.str("description"),
		Category:      r.str("category"),
		Stars:         r.num("stars"),
		Forks:         r.num("forks"),
		GitHubURL:     r.str("github_url", "githubUrl"),
		RawURL:        r.str("raw_url", "rawUrl"),
		RepoFullName:  r.str("repo_full_name", "repoFullName"),
		Branch:        r.str("branch"),
		Path:          r.str("path"),
		HasScripts:    r.flag("has_scripts", "hasScripts"),
		HasReferences: r.flag("has_references", "hasReferences"),
		HasAssets:     r.flag("has_assets", "hasAssets"),
		UpdatedAt:     r.when("updated_at", "updatedAt"),
	}

	if author, name, ok := strings.Cut(strings.TrimPrefix(s.ScopedName, "@"), "/"); ok {
		if s.Author == "" {
			s.Author = author
		}
		if s.Name == "" {
			s.Name = name
		}
	}
	if s.ScopedName == "" && s.Author != "" && s.Name != "" {
		s.ScopedName = s.Author + "/" + s.Name
	}
	return s
}

func decodePage(r io.Reader) (*Page, error) {
	var raw struct {
		Skills []record `json:"skills"`
		Total  *int     `json:"total"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	if raw.Skills == nil && raw.Total == nil {
		return nil, fmt.Errorf("response has neither skills nor total")
	}

	page := &Page{Skills: make([]model.RemoteSkill, 0, len(raw.Skills))}
	for _, rec := range raw.Skills {
		page.Skills = append(page.Skills, normalize(rec))
	}
	page.Total = len(page.Skills)
	if raw.Total != nil {
		page.Total = *raw.Total
	}
	return page, nil
}

// Rank returns a copy of skills ordered by sortBy. Ties keep server order.
func Rank(skills []model.RemoteSkill, sortBy SortBy) []model.RemoteSkill {
	out := make([]model.RemoteSkill, len(skills))
	copy(out, skills)

	var less func(a, b model.RemoteSkill) bool
	switch sortBy {
	case SortRecent:
		less = func(a, b model.RemoteSkill) bool { return a.UpdatedAt.After(b.UpdatedAt) }
	case SortName:
		less = func(a, b model.RemoteSkill) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	default:
		less = func(a, b model.RemoteSkill) bool { return a.Stars > b.Stars }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
