package model

import (
	"fmt"
	"strings"
)

// InstallScope selects between an agent's project-local and home-directory locations.
type InstallScope string

const (
	// ScopeProject installs into the project-relative agent directory.
	ScopeProject InstallScope = "project"

	// ScopeGlobal installs into the home-relative agent directory.
	ScopeGlobal InstallScope = "global"
)

// IsValid returns true if the scope is recognized.
func (s InstallScope) IsValid() bool {
	switch s {
	case ScopeProject, ScopeGlobal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the scope.
func (s InstallScope) String() string {
	return string(s)
}

// Description returns a human-readable description of the scope.
func (s InstallScope) Description() string {
	switch s {
	case ScopeProject:
		return "Project-local agent directory"
	case ScopeGlobal:
		return "Agent directory in the user's home"
	default:
		return "Unknown scope"
	}
}

// ScopeFor returns ScopeGlobal when global is set, ScopeProject otherwise.
func ScopeFor(global bool) InstallScope {
	if global {
		return ScopeGlobal
	}
	return ScopeProject
}

// ParseScope converts a string to an InstallScope.
// Returns an error if the scope is not recognized.
func ParseScope(s string) (InstallScope, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))

	scope := InstallScope(normalized)
	if scope.IsValid() {
		return scope, nil
	}

	switch normalized {
	case "repo", "repository", "local":
		return ScopeProject, nil
	case "user", "home":
		return ScopeGlobal, nil
	default:
		return "", fmt.Errorf("unknown scope %q (valid: project, global)", s)
	}
}
