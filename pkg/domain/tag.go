package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// TagErrorKind classifies identifier parsing failures.
type TagErrorKind string

// Parse failure kinds. Callers resolving species must handle both and apply
// their own fallback; the parser never substitutes one itself.
const (
	// InvalidFormat indicates the tag does not match the expected shape.
	InvalidFormat TagErrorKind = "invalid_format"
	// UnknownCode indicates a well-formed tag whose species prefix is not registered.
	UnknownCode TagErrorKind = "unknown_code"
)

// TagFormatError reports why a tag could not be resolved to a species code.
type TagFormatError struct {
	Kind TagErrorKind
	Tag  string
}

func (e TagFormatError) Error() string {
	return fmt.Sprintf("tag %q: %s", e.Tag, e.Kind)
}

var speciesTagPattern = regexp.MustCompile(`^[A-Z]{2}\d+$`)

// ParseLineage derives the genetic-lineage id from a physical tag: the
// substring before the first '-', or the whole tag when no separator exists.
func ParseLineage(tag string) string {
	if idx := strings.IndexByte(tag, '-'); idx >= 0 {
		return tag[:idx]
	}
	return tag
}

// ParseSpecies resolves a tag's two-letter species code. The tag is trimmed
// and uppercased, must match ^[A-Z]{2}\d+$ on its lineage segment, and the
// prefix must exist in the fixed species table. Failures are typed so callers
// can distinguish malformed tags from unregistered codes.
func ParseSpecies(tag string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(tag))
	lineage := ParseLineage(normalized)
	if !speciesTagPattern.MatchString(lineage) {
		return "", TagFormatError{Kind: InvalidFormat, Tag: tag}
	}
	code := lineage[:2]
	if _, ok := LookupSpecies(code); !ok {
		return "", TagFormatError{Kind: UnknownCode, Tag: tag}
	}
	return code, nil
}

// PseudoSpeciesCode is the heuristic fallback when neither the genetic
// registry nor the species table can resolve a tag: the first four characters
// of the tag stand in as an opaque grouping key.
func PseudoSpeciesCode(tag string) string {
	normalized := strings.ToUpper(strings.TrimSpace(tag))
	if len(normalized) <= 4 {
		return normalized
	}
	return normalized[:4]
}
