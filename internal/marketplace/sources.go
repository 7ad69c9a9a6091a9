package marketplace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauern/skillkit/internal/model"
)

// DefaultSources seeds a fresh marketplace config.
var DefaultSources = []model.MarketplaceSource{
	{
		ID:         "anthropic",
		Name:       "Anthropic Skills",
		Owner:      "anthropics",
		Repo:       "skills",
		Branch:     "main",
		SkillsPath: "skills",
		Verified:   true,
	},
}

// ErrDuplicateSource is returned when a source id is already configured.
var ErrDuplicateSource = errors.New("marketplace source already exists")

type sourcesFile struct {
	Sources []model.MarketplaceSource `json:"sources"`
}

// Sources reads the configured sources, writing the defaults when the file
// does not exist yet.
func (c *Client) Sources() ([]model.MarketplaceSource, error) {
	// #nosec G304 - config path lives in the skillkit home
	data, err := os.ReadFile(c.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			seed := append([]model.MarketplaceSource(nil), DefaultSources...)
			if err := c.writeSources(seed); err != nil {
				return nil, err
			}
			return seed, nil
		}
		return nil, fmt.Errorf("read marketplace config: %w", err)
	}

	var f sourcesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse marketplace config %s: %w", c.configPath, err)
	}
	return f.Sources, nil
}

// AddSource appends a source. Branch defaults to main.
func (c *Client) AddSource(src model.MarketplaceSource) error {
	src.ID = strings.TrimSpace(src.ID)
	src.Owner = strings.TrimSpace(src.Owner)
	src.Repo = strings.TrimSpace(src.Repo)
	src.SkillsPath = strings.Trim(strings.TrimSpace(src.SkillsPath), "/")

	var missing []string
	for _, f := range [][2]string{{"id", src.ID}, {"owner", src.Owner}, {"repo", src.Repo}} {
		if f[1] == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete marketplace source: missing %s", strings.Join(missing, ", "))
	}
	if src.Branch == "" {
		src.Branch = "main"
	}

	sources, err := c.Sources()
	if err != nil {
		return err
	}
	for _, s := range sources {
		if strings.EqualFold(s.ID, src.ID) {
			return fmt.Errorf("%q: %w", src.ID, ErrDuplicateSource)
		}
	}
	return c.writeSources(append(sources, src))
}

func (c *Client) writeSources(sources []model.MarketplaceSource) error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o750); err != nil {
		return fmt.Errorf("create marketplace config dir: %w", err)
	}
	data, err := json.MarshalIndent(sourcesFile{Sources: sources}, "", "  ")
	if err != nil {
		return err
	}
	// #nosec G306 - config is user-readable
	return os.WriteFile(c.configPath, append(data, '\n'), 0o644)
}

func (c *Client) sourceByID(id string) (model.MarketplaceSource, bool) {
	sources, err := c.Sources()
	if err != nil {
		return model.MarketplaceSource{}, false
	}
	for _, s := range sources {
		if strings.EqualFold(s.ID, id) {
			return s, true
		}
	}
	return model.MarketplaceSource{}, false
}
