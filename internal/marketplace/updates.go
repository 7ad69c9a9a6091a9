package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/parser"
	"github.com/klauern/skillkit/internal/source"
)

// UpdateInfo compares a tracked skill against its upstream marker file.
type UpdateInfo struct {
	Name      string `json:"name"`
	Source    string `json:"source"`
	Installed string `json:"installed"`
	Latest    string `json:"latest"`
	HasUpdate bool   `json:"hasUpdate"`
	Error     string `json:"error,omitempty"`
}

// CheckUpdates looks up the newest version of every tracked skill. It only
// reports; nothing is reinstalled. Per-skill failures land in UpdateInfo.Error.
func (c *Client) CheckUpdates(ctx context.Context) ([]UpdateInfo, error) {
	records, err := c.tracking.Latest()
	if err != nil {
		return nil, err
	}
	defer logging.Timer("update check")()

	infos := make([]UpdateInfo, 0, len(records))
	for _, rec := range records {
		info := UpdateInfo{Name: rec.Name, Source: rec.Source, Installed: rec.Version}
		latest, err := c.upstreamVersion(ctx, rec)
		if err != nil {
			info.Error = err.Error()
			logging.Debug("update check failed", logging.Skill(rec.Name), logging.Err(err))
		} else {
			info.Latest = latest
			info.HasUpdate = newer(rec.Version, latest)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (c *Client) upstreamVersion(ctx context.Context, rec model.InstalledSkill) (string, error) {
	if rec.SourceURL == "" {
		return "", fmt.Errorf("no source URL recorded")
	}
	src, err := source.Parse(rec.SourceURL)
	if err != nil {
		return "", err
	}
	rawURL, ok := src.RawFileURL(c.rawBase, model.SkillFileName)
	if !ok {
		return "", fmt.Errorf("update checks are not supported for %s sources", src.Provider())
	}

	body, err := c.fetchRaw(ctx, rawURL)
	if err != nil {
		return "", err
	}
	skill, err := parser.ParseSkillContent(body)
	if err != nil {
		return "", err
	}
	return skill.Version(), nil
}

// newer reports whether latest supersedes installed. Versions that do not
// parse as semver are compared as plain strings.
func newer(installed, latest string) bool {
	installed = strings.TrimSpace(installed)
	latest = strings.TrimSpace(latest)
	if latest == "" {
		return false
	}
	if installed == "" {
		return true
	}

	iv, ierr := semver.NewVersion(installed)
	lv, lerr := semver.NewVersion(latest)
	if ierr == nil && lerr == nil {
		return lv.GreaterThan(iv)
	}
	return installed != latest
}
