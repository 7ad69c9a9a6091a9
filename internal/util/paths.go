// Package util provides path helpers shared across skillkit packages.
package util

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDirEnv relocates skillkit's state directory (config, tracking log, cache).
const HomeDirEnv = "SKILLKIT_HOME"

// HomeDir returns the user's home directory.
func HomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// SkillkitHome returns the directory holding skillkit state.
// Defaults to ~/.skillkit unless SKILLKIT_HOME is set.
func SkillkitHome() string {
	if v := os.Getenv(HomeDirEnv); v != "" {
		return ExpandPath(v, "")
	}
	return filepath.Join(HomeDir(), ".skillkit")
}

// GlobalSkillsPath returns the global skills directory used by the legacy
// marketplace and as the first discovery root.
func GlobalSkillsPath() string {
	return filepath.Join(SkillkitHome(), "skills")
}

// TrackingLogPath returns the path of the installed-skills tracking log.
func TrackingLogPath() string {
	return filepath.Join(SkillkitHome(), "installed.json")
}

// MarketplaceConfigPath returns the path of the legacy marketplace sources file.
func MarketplaceConfigPath() string {
	return filepath.Join(SkillkitHome(), "marketplace.json")
}

// CachePath returns the cache directory.
func CachePath() string {
	return filepath.Join(SkillkitHome(), "cache")
}

// ExpandPath expands a leading ~ to the home directory and resolves
// relative paths against baseDir (or the working directory when empty).
func ExpandPath(p, baseDir string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if p == "~" {
		return HomeDir()
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		return filepath.Join(HomeDir(), p[2:])
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	}
	return filepath.Join(baseDir, p)
}

// ExpandPaths expands every path, dropping empty entries.
func ExpandPaths(paths []string, baseDir string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if e := ExpandPath(p, baseDir); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// DirExists reports whether path exists and is a directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
