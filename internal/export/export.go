// Package export renders skill listings as JSON, YAML or Markdown.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
)

// Format represents the output format for exported skills.
type Format string

const (
	// FormatJSON exports skills as JSON.
	FormatJSON Format = "json"
	// FormatYAML exports skills as YAML.
	FormatYAML Format = "yaml"
	// FormatMarkdown exports skills as Markdown.
	FormatMarkdown Format = "markdown"
)

// IsValid returns true if the format is recognized.
func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatMarkdown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the format.
func (f Format) String() string {
	return string(f)
}

// AllFormats returns all supported export formats.
func AllFormats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatMarkdown}
}

// ParseFormat parses a string into a Format.
func ParseFormat(s string) (Format, error) {
	format := Format(strings.ToLower(strings.TrimSpace(s)))
	if format == "md" {
		format = FormatMarkdown
	}
	if !format.IsValid() {
		return "", fmt.Errorf("unsupported format %q (valid: json, yaml, markdown)", s)
	}
	return format, nil
}

// Options configures export behavior.
type Options struct {
	Format Format
	// Pretty enables indentation for JSON/YAML.
	Pretty bool
	// IncludeMetadata adds paths, resources and free-form metadata.
	IncludeMetadata bool
	// IncludeBody adds the instruction body.
	IncludeBody bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() Options {
	return Options{
		Format:          FormatJSON,
		Pretty:          true,
		IncludeMetadata: true,
	}
}

// Exporter handles exporting skills to different formats.
type Exporter struct {
	opts Options
}

// New creates a new Exporter with the given options.
func New(opts Options) *Exporter {
	return &Exporter{opts: opts}
}

// Export writes skills to w in the configured format.
func (e *Exporter) Export(skills []model.Skill, w io.Writer) error {
	defer logging.Timer("export")()

	logging.Debug("starting export",
		slog.String("format", string(e.opts.Format)),
		logging.Count(len(skills)),
		logging.Operation("export"),
	)

	var err error
	switch e.opts.Format {
	case FormatJSON:
		err = e.exportJSON(skills, w)
	case FormatYAML:
		err = e.exportYAML(skills, w)
	case FormatMarkdown:
		err = e.exportMarkdown(skills, w)
	default:
		err = fmt.Errorf("unsupported format: %s", e.opts.Format)
	}
	if err != nil {
		logging.Error("export failed", slog.String("format", string(e.opts.Format)), logging.Err(err))
		return err
	}
	return nil
}

// ExportSingle exports a single skill to the writer.
func (e *Exporter) ExportSingle(skill model.Skill, w io.Writer) error {
	return e.Export([]model.Skill{skill}, w)
}

type exportSkill struct {
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description" yaml:"description"`
	Version       string            `json:"version,omitempty" yaml:"version,omitempty"`
	License       string            `json:"license,omitempty" yaml:"license,omitempty"`
	Compatibility string            `json:"compatibility,omitempty" yaml:"compatibility,omitempty"`
	Path          string            `json:"path,omitempty" yaml:"path,omitempty"`
	Scripts       []string          `json:"scripts,omitempty" yaml:"scripts,omitempty"`
	References    []string          `json:"references,omitempty" yaml:"references,omitempty"`
	Assets        []string          `json:"assets,omitempty" yaml:"assets,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ModifiedAt    string            `json:"modified_at,omitempty" yaml:"modified_at,omitempty"`
	Body          string            `json:"body,omitempty" yaml:"body,omitempty"`
}

func (e *Exporter) toExportSkill(skill model.Skill) exportSkill {
	es := exportSkill{
		Name:          skill.Name,
		Description:   skill.Description,
		Version:       skill.Version(),
		License:       skill.License,
		Compatibility: skill.Compatibility,
	}
	if e.opts.IncludeMetadata {
		es.Path = skill.Dir
		es.Scripts = skill.Scripts
		es.References = skill.References
		es.Assets = skill.Assets
		es.Metadata = skill.Metadata
		if !skill.ModifiedAt.IsZero() {
			es.ModifiedAt = skill.ModifiedAt.Format("2006-01-02T15:04:05Z07:00")
		}
	}
	if e.opts.IncludeBody {
		es.Body = skill.Body
	}
	return es
}

func (e *Exporter) convert(skills []model.Skill) []exportSkill {
	exported := make([]exportSkill, len(skills))
	for i, skill := range skills {
		exported[i] = e.toExportSkill(skill)
	}
	return exported
}

func (e *Exporter) exportJSON(skills []model.Skill, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if e.opts.Pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(e.convert(skills))
}

func (e *Exporter) exportYAML(skills []model.Skill, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	if e.opts.Pretty {
		encoder.SetIndent(2)
	}
	if err := encoder.Encode(e.convert(skills)); err != nil {
		_ = encoder.Close()
		return err
	}
	return encoder.Close()
}

func (e *Exporter) exportMarkdown(skills []model.Skill, w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("# Skills\n\n")
	fmt.Fprintf(&sb, "Total: %d skill(s)\n\n", len(skills))

	for i, skill := range skills {
		if i > 0 {
			sb.WriteString("\n---\n\n")
		}
		sb.WriteString(e.formatMarkdownSkill(skill))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func (e *Exporter) formatMarkdownSkill(skill model.Skill) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## %s\n\n", skill.Name)
	if skill.Description != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", skill.Description)
	}

	sb.WriteString("| Property | Value |\n")
	sb.WriteString("|----------|-------|\n")
	if v := skill.Version(); v != "" {
		fmt.Fprintf(&sb, "| Version | %s |\n", v)
	}
	if skill.License != "" {
		fmt.Fprintf(&sb, "| License | %s |\n", skill.License)
	}
	if e.opts.IncludeMetadata {
		if skill.Dir != "" {
			fmt.Fprintf(&sb, "| Path | `%s` |\n", skill.Dir)
		}
		for _, row := range []struct {
			label string
			files []string
		}{{"Scripts", skill.Scripts}, {"References", skill.References}, {"Assets", skill.Assets}} {
			if len(row.files) > 0 {
				fmt.Fprintf(&sb, "| %s | %s |\n", row.label, strings.Join(row.files, ", "))
			}
		}
		if !skill.ModifiedAt.IsZero() {
			fmt.Fprintf(&sb, "| Modified | %s |\n", skill.ModifiedAt.Format("2006-01-02 15:04:05"))
		}
	}
	sb.WriteString("\n")

	if e.opts.IncludeBody {
		sb.WriteString("### Instructions\n\n")
		if strings.TrimSpace(skill.Body) != "" {
			sb.WriteString("```markdown\n")
			sb.WriteString(skill.Body)
			if !strings.HasSuffix(skill.Body, "\n") {
				sb.WriteString("\n")
			}
			sb.WriteString("```\n\n")
		} else {
			sb.WriteString("*No instructions*\n\n")
		}
	}

	return sb.String()
}
