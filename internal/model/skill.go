// Package model provides data types for skillkit.
package model

import "time"

// SkillFileName is the marker file that identifies a directory as a skill.
const SkillFileName = "SKILL.md"

// Skill is a fully-loaded skill package.
type Skill struct {
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description" yaml:"description"`
	License       string            `json:"license,omitempty" yaml:"license,omitempty"`
	Compatibility string            `json:"compatibility,omitempty" yaml:"compatibility,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Body is the text following the front-matter, kept verbatim.
	Body string `json:"body" yaml:"body"`

	// Path is the marker file; Dir is the skill directory containing it.
	Path       string    `json:"path,omitempty" yaml:"path,omitempty"`
	Dir        string    `json:"dir,omitempty" yaml:"dir,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitzero" yaml:"modified_at,omitempty"`

	Scripts    []string `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
	Assets     []string `json:"assets,omitempty" yaml:"assets,omitempty"`
}

// Version returns the skill version declared in front-matter, if any.
func (s Skill) Version() string {
	return s.Metadata["version"]
}

// Ref returns the lightweight reference for this skill.
func (s Skill) Ref() SkillRef {
	return SkillRef{
		Name:        s.Name,
		Description: s.Description,
		Path:        s.Dir,
	}
}

// SkillRef is a lightweight discovery result.
type SkillRef struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	// Path is the skill directory.
	Path string `json:"path" yaml:"path"`
	// Root is the discovery root the skill was found under.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
}
