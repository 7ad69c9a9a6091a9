// Package validation checks SKILL.md packages against the skill format rules.
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/klauern/skillkit/internal/model"
	"github.com/klauern/skillkit/internal/parser"
)

// Format limits.
const (
	MaxNameLength          = 64
	MaxDescriptionLength   = 1024
	MaxCompatibilityLength = 500
)

var namePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

var headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)

// Error represents a validation failure with context.
type Error struct {
	// Field is the name of the field or component that failed validation
	Field string
	// Message describes the validation failure
	Message string
	// Err is the underlying error (if any)
	Err error
}

// Error returns a formatted validation error message.
func (ve *Error) Error() string {
	if ve.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ve.Field, ve.Message, ve.Err)
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// Unwrap returns the underlying error for errors.Is/As.
func (ve *Error) Unwrap() error {
	return ve.Err
}

// Errors collects multiple validation errors.
type Errors []error

// Error returns a formatted error message for all validation failures.
func (ve Errors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}
	return fmt.Sprintf("%d validation errors:\n- %s", len(ve), errors.Join(ve...))
}

// Result contains the outcome of validating one skill.
type Result struct {
	// Path is the validated location, when validating from disk
	Path string
	// Name is the declared skill name, if any
	Name string
	// Valid indicates whether no errors were found
	Valid bool
	// Warnings contains non-fatal issues
	Warnings []string
	// Errors contains format violations
	Errors []error
	// DescriptionTokens is a rough token cost of the description (len/4)
	DescriptionTokens int
}

// AddError adds an error to the validation result.
func (r *Result) AddError(err error) {
	r.Valid = false
	r.Errors = append(r.Errors, err)
}

// AddWarning adds a warning to the validation result.
func (r *Result) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns the combined validation error.
func (r *Result) Error() error {
	if !r.HasErrors() {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return Errors(r.Errors)
}

// Summary returns a human-readable summary of the validation result.
func (r *Result) Summary() string {
	if r.Valid && len(r.Warnings) == 0 {
		return "All validations passed"
	}
	var msg string
	if r.Valid {
		msg = "Validation passed with warnings"
	} else {
		msg = fmt.Sprintf("Validation failed (%d error(s))", len(r.Errors))
	}
	if len(r.Warnings) > 0 {
		msg += fmt.Sprintf(" (%d warning(s))", len(r.Warnings))
	}
	return msg
}

// ValidateFields checks raw front-matter fields and body. Every rule runs;
// nothing short-circuits.
func ValidateFields(fields map[string]any, body string) *Result {
	result := &Result{Valid: true}

	validateName(result, fields["name"])
	validateDescription(result, fields["description"])

	if c, ok := fields["compatibility"].(string); ok && len(c) > MaxCompatibilityLength {
		result.AddWarning(fmt.Sprintf("compatibility is %d characters; keep it under %d", len(c), MaxCompatibilityLength))
	}

	validateBody(result, body)
	return result
}

// ValidateSkill checks an already-loaded skill.
func ValidateSkill(skill *model.Skill) *Result {
	fields := map[string]any{
		"name":        skill.Name,
		"description": skill.Description,
	}
	if skill.Compatibility != "" {
		fields["compatibility"] = skill.Compatibility
	}
	result := ValidateFields(fields, skill.Body)
	result.Path = skill.Dir
	checkDirName(result, skill.Name, skill.Dir)
	return result
}

// ValidatePath loads a skill directory or marker file and validates it.
// Read and parse failures are reported inside the result.
func ValidatePath(path string) *Result {
	doc, file, err := parser.ReadDocument(path)
	if err != nil {
		result := &Result{Path: path}
		result.AddError(&Error{Field: "file", Message: "cannot load skill", Err: err})
		return result
	}

	result := ValidateFields(doc.Fields, doc.Body)
	result.Path = path
	if !doc.HasFrontmatter {
		result.AddWarning("no YAML front-matter found")
	}
	checkDirName(result, result.Name, filepath.Dir(file))
	return result
}

func validateName(result *Result, raw any) {
	name, isString := raw.(string)
	switch {
	case raw == nil || (isString && strings.TrimSpace(name) == ""):
		result.AddError(&Error{Field: "name", Message: "is required"})
		return
	case !isString:
		result.AddError(&Error{Field: "name", Message: fmt.Sprintf("must be a string, got %T", raw)})
		return
	}

	result.Name = name
	if len(name) > MaxNameLength {
		result.AddError(&Error{
			Field:   "name",
			Message: fmt.Sprintf("is %d characters; maximum is %d", len(name), MaxNameLength),
		})
	}
	if !namePattern.MatchString(name) {
		result.AddError(&Error{
			Field:   "name",
			Message: fmt.Sprintf("%q must be lowercase letters, digits and single hyphens", name),
		})
	}
}

func validateDescription(result *Result, raw any) {
	desc, isString := raw.(string)
	switch {
	case raw == nil || (isString && strings.TrimSpace(desc) == ""):
		result.AddError(&Error{Field: "description", Message: "is required"})
		return
	case !isString:
		result.AddError(&Error{Field: "description", Message: fmt.Sprintf("must be a string, got %T", raw)})
		return
	}

	result.DescriptionTokens = len(desc) / 4
	if len(desc) > MaxDescriptionLength {
		result.AddWarning(fmt.Sprintf(
			"description is %d characters (~%d tokens); keep it under %d",
			len(desc), result.DescriptionTokens, MaxDescriptionLength))
	}
}

func validateBody(result *Result, body string) {
	if strings.TrimSpace(body) == "" {
		result.AddWarning("body is empty")
		return
	}
	if !headingPattern.MatchString(body) {
		result.AddWarning("body has no Markdown headings")
	}
}

func checkDirName(result *Result, name, dir string) {
	if name == "" || dir == "" {
		return
	}
	if base := filepath.Base(dir); base != name {
		result.AddWarning(fmt.Sprintf("name %q does not match directory %q", name, base))
	}
}

// CheckWritable reports whether files can be created in dir, or in its
// nearest existing parent when dir does not exist yet.
func CheckWritable(dir string) error {
	path := dir
	for {
		if _, err := os.Stat(path); err == nil {
			break
		}
		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}

	f, err := os.CreateTemp(path, ".skillkit-write-test-*")
	if err != nil {
		return &Error{
			Field:   "write permission",
			Message: fmt.Sprintf("directory is not writable: %s", path),
			Err:     err,
		}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}
