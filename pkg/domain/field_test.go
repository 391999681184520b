package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestFieldValueAsCount(t *testing.T) {
	cases := []struct {
		name  string
		value FieldValue
		want  int
		ok    bool
	}{
		{"number", NumberField(12), 12, true},
		{"number rounds", NumberField(11.6), 12, true},
		{"numeric string", StringField("9"), 9, true},
		{"padded numeric string", StringField(" 9.4 "), 9, true},
		{"free text", StringField("all dead"), 0, false},
		{"empty string", StringField("  "), 0, false},
		{"absent", AbsentField(), 0, false},
		{"other", OtherField(), 0, false},
		{"nan", NumberField(math.NaN()), 0, false},
	}
	for _, tc := range cases {
		got, ok := tc.value.AsCount()
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: AsCount() = (%d, %v), want (%d, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFieldValueAsString(t *testing.T) {
	if s, ok := StringField(" AC101 ").AsString(); !ok || s != "AC101" {
		t.Fatalf("expected trimmed string, got %q %v", s, ok)
	}
	if s, ok := NumberField(42).AsString(); !ok || s != "42" {
		t.Fatalf("expected numeric text, got %q %v", s, ok)
	}
	if _, ok := AbsentField().AsString(); ok {
		t.Fatalf("absent cell should not produce a string")
	}
	if _, ok := StringField("   ").AsString(); ok {
		t.Fatalf("blank cell should not produce a string")
	}
}

func TestFieldValueJSONRoundTrip(t *testing.T) {
	raw := []byte(`{"survived":"7","tag":"AC101","depth":3.5,"flags":{"checked":true},"missing":null}`)
	var row map[string]FieldValue
	if err := json.Unmarshal(raw, &row); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if row["survived"].Kind != FieldString {
		t.Fatalf("expected string cell, got %s", row["survived"].Kind)
	}
	if row["depth"].Kind != FieldNumber || row["depth"].Num != 3.5 {
		t.Fatalf("expected number cell, got %+v", row["depth"])
	}
	if row["flags"].Kind != FieldOther {
		t.Fatalf("expected other cell, got %s", row["flags"].Kind)
	}
	if !row["missing"].IsAbsent() {
		t.Fatalf("expected absent cell")
	}

	out, err := json.Marshal(row["depth"])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "3.5" {
		t.Fatalf("expected raw number encoding, got %s", out)
	}
	out, err = json.Marshal(AbsentField())
	if err != nil {
		t.Fatalf("marshal absent: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("expected null encoding, got %s", out)
	}
}
