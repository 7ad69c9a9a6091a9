// Package parser reads SKILL.md marker files: it splits the YAML
// front-matter from the Markdown body and loads skill directories into
// model.Skill values.
package parser
