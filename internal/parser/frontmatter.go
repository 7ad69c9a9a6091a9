package parser

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// FrontmatterResult contains the parsed frontmatter and remaining content.
type FrontmatterResult struct {
	// Frontmatter contains the raw YAML bytes between the delimiters
	Frontmatter []byte
	// Content contains the remaining content after frontmatter, verbatim
	Content string
	// HasFrontmatter indicates whether frontmatter was found
	HasFrontmatter bool
}

var delimiter = []byte("---")

// SplitFrontmatter extracts YAML frontmatter delimited by --- lines.
// Content without an opening or closing delimiter is returned whole.
func SplitFrontmatter(content []byte) FrontmatterResult {
	if !bytes.HasPrefix(content, []byte("---\n")) && !bytes.HasPrefix(content, []byte("---\r\n")) {
		return FrontmatterResult{Content: string(content)}
	}

	remaining := content[len(delimiter):]
	if bytes.HasPrefix(remaining, []byte("\r\n")) {
		remaining = remaining[2:]
	} else {
		remaining = remaining[1:]
	}

	var frontmatter []byte
	bodyStart := -1

	if bytes.HasPrefix(remaining, delimiter) {
		// ---\n---\n
		frontmatter = []byte{}
		bodyStart = len(delimiter)
	} else {
		for _, nl := range [][]byte{[]byte("\n"), []byte("\r\n")} {
			closing := append(append([]byte{}, nl...), delimiter...)
			if idx := bytes.Index(remaining, closing); idx != -1 {
				frontmatter = remaining[:idx]
				bodyStart = idx + len(closing)
				break
			}
		}
	}

	if bodyStart == -1 {
		return FrontmatterResult{Content: string(content)}
	}

	clean := bytes.ReplaceAll(frontmatter, []byte("\r\n"), []byte("\n"))
	clean = bytes.TrimRight(clean, "\r")

	// Skip the line break after the closing delimiter
	if bodyStart < len(remaining) {
		if bytes.HasPrefix(remaining[bodyStart:], []byte("\r\n")) {
			bodyStart += 2
		} else if bytes.HasPrefix(remaining[bodyStart:], []byte("\n")) {
			bodyStart++
		}
	}

	var body string
	if bodyStart < len(remaining) {
		body = string(remaining[bodyStart:])
	}

	return FrontmatterResult{
		Frontmatter:    clean,
		Content:        body,
		HasFrontmatter: true,
	}
}

// ParseYAMLFrontmatter parses YAML frontmatter into a map.
func ParseYAMLFrontmatter(frontmatter []byte) (map[string]any, error) {
	result := make(map[string]any)
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return result, nil
	}

	if err := yaml.Unmarshal(frontmatter, &result); err != nil {
		return nil, fmt.Errorf("failed to parse YAML frontmatter: %w", err)
	}
	if result == nil {
		result = make(map[string]any)
	}

	return result, nil
}
