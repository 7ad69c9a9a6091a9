package registry

import (
	"fmt"
	"strings"
	"unicode"
)

// ScopedName is a parsed "@author/name" reference. Author may be empty.
type ScopedName struct {
	Author string
	Name   string
}

// String renders the reference in display form.
func (s ScopedName) String() string {
	if s.Author == "" {
		return s.Name
	}
	return "@" + s.Author + "/" + s.Name
}

// ParseScopedName accepts "name", "author/name" and "@author/name".
func ParseScopedName(input string) (ScopedName, error) {
	s := strings.TrimSpace(input)
	scoped := strings.HasPrefix(s, "@")
	s = strings.TrimPrefix(s, "@")

	parts := strings.Split(s, "/")
	var ref ScopedName
	switch {
	case len(parts) == 1 && !scoped:
		ref.Name = parts[0]
	case len(parts) == 2:
		ref.Author, ref.Name = parts[0], parts[1]
		if ref.Author == "" {
			return ScopedName{}, fmt.Errorf("%q: %w: empty author", input, ErrMalformedName)
		}
	default:
		return ScopedName{}, fmt.Errorf("%q: %w: expected name, author/name or @author/name", input, ErrMalformedName)
	}

	if ref.Name == "" {
		return ScopedName{}, fmt.Errorf("%q: %w: empty name", input, ErrMalformedName)
	}
	if strings.IndexFunc(ref.Author+ref.Name, unicode.IsSpace) >= 0 {
		return ScopedName{}, fmt.Errorf("%q: %w: contains whitespace", input, ErrMalformedName)
	}
	return ref, nil
}
