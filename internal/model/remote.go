package model

import (
	"strings"
	"time"
)

// RemoteSkill is the skills database's view of a skill.
// ScopedName ("author/name") uniquely identifies a record.
type RemoteSkill struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Author      string `json:"author"`
	ScopedName  string `json:"scoped_name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`

	Stars int `json:"stars"`
	Forks int `json:"forks"`

	GitHubURL    string `json:"github_url,omitempty"`
	RawURL       string `json:"raw_url,omitempty"`
	RepoFullName string `json:"repo_full_name,omitempty"`
	Branch       string `json:"branch,omitempty"`
	Path         string `json:"path,omitempty"`

	HasScripts    bool `json:"has_scripts,omitempty"`
	HasReferences bool `json:"has_references,omitempty"`
	HasAssets     bool `json:"has_assets,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// DisplayName returns "@author/name" when an author is known.
func (r RemoteSkill) DisplayName() string {
	if r.Author == "" {
		return r.Name
	}
	return "@" + r.Author + "/" + r.Name
}

// CloneSource returns the repository reference the skill should be
// installed from, preferring the repo/path pair over the web URL.
func (r RemoteSkill) CloneSource() string {
	if r.RepoFullName != "" {
		ref := r.RepoFullName
		if p := strings.Trim(r.Path, "/"); p != "" {
			if r.Branch == "" {
				// owner/repo/path clones the default branch
				return ref + "/" + p
			}
			return "https://github.com/" + ref + "/tree/" + r.Branch + "/" + p
		}
		return ref
	}
	return r.GitHubURL
}
