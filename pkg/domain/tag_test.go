package domain

import (
	"errors"
	"testing"
)

func TestParseLineage(t *testing.T) {
	cases := map[string]string{
		"AC101":     "AC101",
		"AC101-3":   "AC101",
		"AC101-3-b": "AC101",
		"-x":        "",
		"":          "",
	}
	for tag, want := range cases {
		if got := ParseLineage(tag); got != want {
			t.Fatalf("ParseLineage(%q) = %q, want %q", tag, got, want)
		}
	}
}

func TestParseSpeciesValid(t *testing.T) {
	code, err := ParseSpecies("AC101")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if code != "AC" {
		t.Fatalf("expected AC, got %s", code)
	}
}

func TestParseSpeciesNormalizes(t *testing.T) {
	code, err := ParseSpecies("  of200-12 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if code != "OF" {
		t.Fatalf("expected OF, got %s", code)
	}
}

func TestParseSpeciesInvalidFormat(t *testing.T) {
	for _, tag := range []string{"", "A1", "ACX", "101AC", "AC", "AC-1"} {
		_, err := ParseSpecies(tag)
		var tagErr TagFormatError
		if !errors.As(err, &tagErr) {
			t.Fatalf("ParseSpecies(%q): expected TagFormatError, got %v", tag, err)
		}
		if tagErr.Kind != InvalidFormat {
			t.Fatalf("ParseSpecies(%q): expected invalid_format, got %s", tag, tagErr.Kind)
		}
	}
}

func TestParseSpeciesUnknownCode(t *testing.T) {
	_, err := ParseSpecies("ZZ12")
	var tagErr TagFormatError
	if !errors.As(err, &tagErr) {
		t.Fatalf("expected TagFormatError, got %v", err)
	}
	if tagErr.Kind != UnknownCode {
		t.Fatalf("expected unknown_code, got %s", tagErr.Kind)
	}
	if tagErr.Error() == "" {
		t.Fatalf("expected error message")
	}
}

func TestPseudoSpeciesCode(t *testing.T) {
	cases := map[string]string{
		"elkhorn-77": "ELKH",
		"ab":         "AB",
		" x1 ":       "X1",
		"abcd":       "ABCD",
	}
	for tag, want := range cases {
		if got := PseudoSpeciesCode(tag); got != want {
			t.Fatalf("PseudoSpeciesCode(%q) = %q, want %q", tag, got, want)
		}
	}
}
