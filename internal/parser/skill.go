package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauern/skillkit/internal/model"
)

// ErrNotSkill is returned when a directory holds no SKILL.md marker.
var ErrNotSkill = errors.New("not a skill directory")

// Document is a parsed marker file before it is mapped onto model.Skill.
type Document struct {
	Fields         map[string]any
	Body           string
	HasFrontmatter bool
}

// ParseDocument splits content and decodes its front-matter.
// Content without front-matter yields empty fields and the whole text as body.
func ParseDocument(content []byte) (*Document, error) {
	split := SplitFrontmatter(content)
	fields, err := ParseYAMLFrontmatter(split.Frontmatter)
	if err != nil {
		return nil, err
	}
	return &Document{
		Fields:         fields,
		Body:           split.Content,
		HasFrontmatter: split.HasFrontmatter,
	}, nil
}

// ResolveSkillFile maps a skill directory or marker file path to the marker file.
func ResolveSkillFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	file := filepath.Join(path, model.SkillFileName)
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", path, ErrNotSkill)
		}
		return "", err
	}
	return file, nil
}

// ReadDocument reads and parses the marker file for path.
// It returns the resolved marker file path alongside the document.
func ReadDocument(path string) (*Document, string, error) {
	file, err := ResolveSkillFile(path)
	if err != nil {
		return nil, "", err
	}
	// #nosec G304 - path is a skill location chosen by the user
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, file, fmt.Errorf("failed to read %q: %w", file, err)
	}
	doc, err := ParseDocument(content)
	if err != nil {
		return nil, file, fmt.Errorf("%s: %w", file, err)
	}
	return doc, file, nil
}

// LoadSkill loads the skill at path, which may be a skill directory or its marker file.
// The name falls back to the directory name when the front-matter has none.
func LoadSkill(path string) (*model.Skill, error) {
	doc, file, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}

	skill := SkillFromFields(doc.Fields, doc.Body)
	skill.Path = file
	skill.Dir = filepath.Dir(file)
	if skill.Name == "" {
		skill.Name = filepath.Base(skill.Dir)
	}
	if info, err := os.Stat(file); err == nil {
		skill.ModifiedAt = info.ModTime()
	}
	skill.Scripts = listFiles(skill.Dir, "scripts")
	skill.References = listFiles(skill.Dir, "references")
	skill.Assets = listFiles(skill.Dir, "assets")

	return skill, nil
}

// ParseSkillContent parses marker file content that did not come from disk,
// such as a raw download.
func ParseSkillContent(content []byte) (*model.Skill, error) {
	doc, err := ParseDocument(content)
	if err != nil {
		return nil, err
	}
	return SkillFromFields(doc.Fields, doc.Body), nil
}

var knownFields = map[string]bool{
	"name": true, "description": true, "license": true,
	"compatibility": true, "metadata": true,
}

// SkillFromFields maps front-matter fields onto a Skill. Unknown top-level
// scalars and entries of a metadata map are flattened into Skill.Metadata;
// top-level keys win over metadata entries.
func SkillFromFields(fields map[string]any, body string) *model.Skill {
	skill := &model.Skill{
		Name:          ExtractString(fields, "name"),
		Description:   ExtractString(fields, "description"),
		License:       ExtractString(fields, "license"),
		Compatibility: stringify(fields["compatibility"]),
		Body:          body,
	}

	meta := make(map[string]string)
	if nested, ok := fields["metadata"].(map[string]any); ok {
		for k, v := range nested {
			meta[k] = stringify(v)
		}
	}
	for k, v := range fields {
		if knownFields[k] || v == nil {
			continue
		}
		meta[k] = stringify(v)
	}
	if len(meta) > 0 {
		skill.Metadata = meta
	}

	return skill
}

// ExtractString extracts a string value from a frontmatter map.
func ExtractString(fields map[string]any, key string) string {
	if val, ok := fields[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// listFiles returns files under dir/sub, relative to dir, sorted.
func listFiles(dir, sub string) []string {
	root := filepath.Join(dir, sub)
	var files []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(dir, path); err == nil {
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(files)
	return files
}
