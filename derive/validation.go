package derive

import (
	"fmt"
	"regexp"
)

const (
	maxFields     = 100
	maxNameLength = 100
)

var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateFields checks a profile's field list: at least one field, at most
// maxFields, valid unique names and non-empty expressions.
func ValidateFields(fields []Field) error {
	if len(fields) == 0 {
		return fmt.Errorf("profile must contain at least one field")
	}
	if len(fields) > maxFields {
		return fmt.Errorf("profile contains %d fields, maximum allowed is %d", len(fields), maxFields)
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if err := validateIdentifier(f.Name); err != nil {
			return fmt.Errorf("invalid field name %q: %w", f.Name, err)
		}
		if seen[f.Name] {
			return fmt.Errorf("field %q is defined more than once", f.Name)
		}
		seen[f.Name] = true

		if f.Expression == "" {
			return fmt.Errorf("field %q has an empty expression", f.Name)
		}
	}
	return nil
}

// validateIdentifier enforces ^[a-zA-Z_][a-zA-Z0-9_]*$, 1-100 characters, and
// no reserved word.
func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(name), maxNameLength)
	}
	if !validIdentifier.MatchString(name) {
		return fmt.Errorf("must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$ (start with letter or underscore, followed by letters, digits, or underscores)")
	}
	if reservedKeywords[name] {
		return fmt.Errorf("cannot use reserved keyword %q as identifier", name)
	}
	return nil
}

// the activation variables are reserved too
var reservedKeywords = map[string]bool{
	"true": true, "false": true, "null": true,
	"if": true, "else": true, "for": true, "while": true,
	"break": true, "continue": true, "return": true,
	"var": true, "let": true, "const": true, "function": true,
	"in": true, "as": true, "import": true, "package": true,
	"namespace": true, "loop": true, "void": true,
	"answers": true, "selected": true, "survey_id": true,
}
