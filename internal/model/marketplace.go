package model

import "time"

// MarketplaceSource is a GitHub repository configured as a legacy skill provider.
type MarketplaceSource struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Owner      string `json:"owner"`
	Repo       string `json:"repo"`
	Branch     string `json:"branch"`
	SkillsPath string `json:"skillsPath"`
	Verified   bool   `json:"verified"`
}

// RepoURL returns the web URL of the source repository.
func (s MarketplaceSource) RepoURL() string {
	return "https://github.com/" + s.Owner + "/" + s.Repo
}

// MarketplaceSkill is a skill listed by a legacy marketplace source.
type MarketplaceSkill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version,omitempty"`
	SourceID    string `json:"source"`
	// Path is the skill directory inside the source repository.
	Path     string `json:"path"`
	Verified bool   `json:"verified"`
}

// InstalledSkill is one entry of the local tracking log.
type InstalledSkill struct {
	Name        string    `json:"name"`
	ScopedName  string    `json:"scopedName,omitempty"`
	Source      string    `json:"source"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	Version     string    `json:"version,omitempty"`
	Platforms   []string  `json:"platforms"`
	Scope       string    `json:"scope,omitempty"`
	Path        string    `json:"path,omitempty"`
	InstalledAt time.Time `json:"installedAt"`
}
