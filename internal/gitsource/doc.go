// Package gitsource installs skills from git repositories: it clones the
// repository into a scratch directory, scans it for skill folders, and
// copies the selected ones into agent skill directories.
package gitsource
