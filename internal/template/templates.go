package template

const frontmatter = `---
name: {{.Name}}
description: {{quote .Description}}
{{- if .License}}
license: {{.License}}
{{- end}}
metadata:
  version: {{quote .Version}}
{{- if .Author}}
  author: {{quote .Author}}
{{- end}}
---
`

// basicTemplate is the default scaffold.
const basicTemplate = frontmatter + `
# {{.Title}}

{{.Description}}

## When to use

Describe the situations in which the agent should apply this skill.

## Instructions

1. First step
2. Second step
{{- if .Scripts}}

## Scripts

Helper scripts live in ` + "`scripts/`" + `. Run them from the skill directory.
{{- end}}
{{- if .References}}

## References

Load files from ` + "`references/`" + ` only when the task needs them.
{{- end}}
`

// commandWrapperTemplate wraps a command-line tool.
const commandWrapperTemplate = frontmatter + `
# {{.Title}}

{{.Description}}

## Usage

` + "```" + `
{{.Name}} [options]
` + "```" + `

## Instructions

1. Validate the input parameters.
2. Build the command with the flags the user asked for.
3. Run the command and check its exit status.
4. Summarize the output for the user.

## Errors

- Missing required parameters: ask for them before running anything.
- Non-zero exit: show stderr and stop.
`

// workflowTemplate orchestrates several steps.
const workflowTemplate = frontmatter + `
# {{.Title}}

{{.Description}}

## Workflow

### 1. Prepare

Check prerequisites and gather inputs.

### 2. Execute

Perform the main operation and collect results.

### 3. Verify

Confirm the outcome and report what changed.
{{- if .References}}

## References

See ` + "`references/`" + ` for background material.
{{- end}}
`
