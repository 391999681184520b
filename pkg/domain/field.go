package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldKind discriminates the variants of a FieldValue.
type FieldKind string

// Field value variants. Ingested monitoring rows are loosely typed, so every
// cell is carried as a tagged union rather than an untyped blob.
const (
	// FieldAbsent marks a cell that was not present in the source row.
	FieldAbsent FieldKind = "absent"
	// FieldString marks a free-text cell.
	FieldString FieldKind = "string"
	// FieldNumber marks a numeric cell.
	FieldNumber FieldKind = "number"
	// FieldOther marks a cell of any other shape (bool, object, ...).
	FieldOther FieldKind = "other"
)

// FieldValue is a tagged union over the cell types a monitoring row can carry.
// Extraction failures are explicit: AsCount and AsString report whether the
// variant could serve the request instead of silently casting.
type FieldValue struct {
	Kind FieldKind `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Num  float64   `json:"num,omitempty"`
}

// AbsentField returns the absent variant.
func AbsentField() FieldValue { return FieldValue{Kind: FieldAbsent} }

// StringField wraps a free-text cell.
func StringField(s string) FieldValue { return FieldValue{Kind: FieldString, Str: s} }

// NumberField wraps a numeric cell.
func NumberField(n float64) FieldValue { return FieldValue{Kind: FieldNumber, Num: n} }

// OtherField marks a cell whose shape is neither string nor number.
func OtherField() FieldValue { return FieldValue{Kind: FieldOther} }

// IsAbsent reports whether the cell was missing from the source row.
func (v FieldValue) IsAbsent() bool { return v.Kind == FieldAbsent || v.Kind == "" }

// AsString returns the trimmed text content of a string or number cell.
func (v FieldValue) AsString() (string, bool) {
	switch v.Kind {
	case FieldString:
		s := strings.TrimSpace(v.Str)
		return s, s != ""
	case FieldNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), true
	default:
		return "", false
	}
}

// AsCount interprets the cell as a non-negative integer count. Numeric cells
// are rounded; string cells are parsed after trimming. Malformed cells report
// ok=false so callers can degrade to zero without aborting.
func (v FieldValue) AsCount() (int, bool) {
	switch v.Kind {
	case FieldNumber:
		if math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
			return 0, false
		}
		return int(math.Round(v.Num)), true
	case FieldString:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Round(n)), true
	default:
		return 0, false
	}
}

// MarshalJSON encodes the underlying value: null for absent/other variants,
// otherwise the raw string or number.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case FieldString:
		return json.Marshal(v.Str)
	case FieldNumber:
		return json.Marshal(v.Num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a raw cell into its variant. Unsupported shapes map to
// FieldOther rather than failing the surrounding row.
func (v *FieldValue) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*v = AbsentField()
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = StringField(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = NumberField(n)
		return nil
	}
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode field value: %w", err)
	}
	*v = OtherField()
	return nil
}
