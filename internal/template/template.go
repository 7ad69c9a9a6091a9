// Package template scaffolds new skill directories from built-in templates.
package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/klauern/skillkit/internal/logging"
	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/parser"
	"github.com/klauern/skillkit/internal/ui"
	"github.com/klauern/skillkit/internal/validation"
)

// TemplateType represents the type of skill template
type TemplateType string

const (
	Basic          TemplateType = "basic"
	CommandWrapper TemplateType = "command-wrapper"
	Workflow       TemplateType = "workflow"
)

// ErrSkillExists is returned when the target already holds a SKILL.md.
var ErrSkillExists = errors.New("skill already exists")

// TemplateData holds the data passed to templates
type TemplateData struct {
	Name        string
	Description string
	License     string
	Author      string
	Version     string
	Scripts     bool
	References  bool
	Assets      bool
}

// Title is the display heading derived from the name.
func (d TemplateData) Title() string {
	return ui.Title(d.Name)
}

// Generator handles skill template generation
type Generator struct {
	templates map[TemplateType]*template.Template
}

var funcs = template.FuncMap{
	// quote renders a YAML double-quoted scalar; JSON strings are valid YAML.
	"quote": func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	},
}

// New creates a new template generator with built-in templates
func New() (*Generator, error) {
	g := &Generator{templates: make(map[TemplateType]*template.Template)}
	builtin := map[TemplateType]string{
		Basic:          basicTemplate,
		CommandWrapper: commandWrapperTemplate,
		Workflow:       workflowTemplate,
	}
	for typ, content := range builtin {
		tmpl, err := template.New(string(typ)).Funcs(funcs).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", typ, err)
		}
		g.templates[typ] = tmpl
	}
	return g, nil
}

// LoadCustomTemplate loads a custom template from a file
func (g *Generator) LoadCustomTemplate(name string, path string) error {
	// #nosec G304 - user-supplied template path
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template file: %w", err)
	}
	tmpl, err := template.New(name).Funcs(funcs).Parse(string(content))
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	g.templates[TemplateType(name)] = tmpl
	return nil
}

// Generate renders the SKILL.md content for data.
func (g *Generator) Generate(typ TemplateType, data TemplateData) (string, error) {
	tmpl, exists := g.templates[typ]
	if !exists {
		return "", fmt.Errorf("template %s not found", typ)
	}
	if data.Version == "" {
		data.Version = "0.1.0"
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// ValidateGenerated checks generated content against the skill format.
// Warnings are allowed; errors are not.
func (g *Generator) ValidateGenerated(content string) error {
	doc, err := parser.ParseDocument([]byte(content))
	if err != nil {
		return fmt.Errorf("generated content does not parse: %w", err)
	}
	if !doc.HasFrontmatter {
		return errors.New("generated content has no front-matter")
	}
	return validation.ValidateFields(doc.Fields, doc.Body).Error()
}

// Scaffold creates <parent>/<name>/SKILL.md and the requested resource
// directories. An existing SKILL.md is only replaced when force is set.
func (g *Generator) Scaffold(typ TemplateType, data TemplateData, parent string, force bool) (string, error) {
	content, err := g.Generate(typ, data)
	if err != nil {
		return "", err
	}
	if err := g.ValidateGenerated(content); err != nil {
		return "", err
	}

	skillDir := filepath.Join(parent, data.Name)
	skillPath := filepath.Join(skillDir, model.SkillFileName)
	if _, err := os.Stat(skillPath); err == nil && !force {
		return "", fmt.Errorf("%s: %w", skillPath, ErrSkillExists)
	}

	if err := os.MkdirAll(skillDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create skill directory: %w", err)
	}
	// #nosec G306 - skill files are user-readable
	if err := os.WriteFile(skillPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write skill file: %w", err)
	}

	for _, sub := range []struct {
		want bool
		name string
	}{{data.Scripts, "scripts"}, {data.References, "references"}, {data.Assets, "assets"}} {
		if !sub.want {
			continue
		}
		if err := os.MkdirAll(filepath.Join(skillDir, sub.name), 0o750); err != nil {
			return "", fmt.Errorf("failed to create %s directory: %w", sub.name, err)
		}
	}

	logging.Debug("scaffolded skill", logging.Skill(data.Name), logging.Path(skillPath), logging.Operation(string(typ)))
	return skillPath, nil
}

// ListTemplates returns the available template types, sorted.
func (g *Generator) ListTemplates() []string {
	templates := make([]string, 0, len(g.templates))
	for typ := range g.templates {
		templates = append(templates, string(typ))
	}
	slices.Sort(templates)
	return templates
}

// ParseTemplateType parses a template type string
func ParseTemplateType(s string) (TemplateType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic", "default":
		return Basic, nil
	case "command-wrapper", "command", "cmd":
		return CommandWrapper, nil
	case "workflow":
		return Workflow, nil
	default:
		return "", fmt.Errorf("unknown template type %q (valid: basic, command-wrapper, workflow)", s)
	}
}
