package generate

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// SanitizePath collapses repeated slashes and drops a trailing slash. The root stays "/".
func SanitizePath(path string) string {
	for strings.Contains(path, "//") {
		path = strings.ReplaceAll(path, "//", "/")
	}

	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return "/"
	}

	return path
}

// ExtractParamName returns the names of the {param} placeholders in path, in order.
// Chi style regex suffixes ({value:[0-9]+}) are stripped.
func ExtractParamName(path string) ([]string, error) {
	if strings.Count(path, "{") != strings.Count(path, "}") {
		return nil, errors.New("mismatched number of '{' and '}' in path")
	}

	names := []string{}
	start := -1

	for i, ch := range path {
		switch {
		case ch == '{':
			start = i + 1
		case ch == '}' && start >= 0:
			name, _, _ := strings.Cut(path[start:i], ":")
			if name != "" {
				names = append(names, name)
			}

			start = -1
		}
	}

	return names, nil
}

// IsValidParameterName reports whether name starts with an ASCII letter and continues
// with letters, digits or underscores.
func IsValidParameterName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		if isASCIILetter(r) {
			continue
		}

		if i > 0 && (unicode.IsDigit(r) || r == '_') {
			continue
		}

		return false
	}

	return true
}

// validateOperationID accepts camelCase identifiers made of ASCII letters only.
func validateOperationID(operationID string) error {
	if operationID == "" {
		return errors.New("operationID cannot be empty")
	}

	for _, r := range operationID {
		if !isASCIILetter(r) {
			return fmt.Errorf("operationID %q contains invalid characters (only a-z, A-Z are allowed)", operationID)
		}
	}

	return nil
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// toOpenAPIPath converts chi patterns ({value:[0-9]+}) into OpenAPI templates ({value}).
func toOpenAPIPath(path string) string {
	var b strings.Builder

	inParam, skipping := false, false

	for _, r := range path {
		switch {
		case r == '{':
			inParam, skipping = true, false

			b.WriteRune(r)
		case r == '}' && inParam:
			inParam, skipping = false, false

			b.WriteRune(r)
		case r == ':' && inParam:
			skipping = true
		case !skipping:
			b.WriteRune(r)
		}
	}

	return b.String()
}
