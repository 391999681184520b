package reconcile

import (
	"testing"

	"reefcore/pkg/domain"
)

func TestExtractObservationRecoversKeys(t *testing.T) {
	row := domain.MonitoringRow{
		Survived: domain.NumberField(7),
		Aux: map[string]domain.FieldValue{
			"tag":     domain.StringField(" AC101-1 "),
			"localId": domain.StringField("AC101"),
		},
	}
	obs := ExtractObservation(row)
	if !obs.Counted || obs.Survived != 7 {
		t.Fatalf("unexpected survived extraction: %+v", obs)
	}
	if obs.TagKey != "AC101-1" {
		t.Fatalf("expected trimmed tag key, got %q", obs.TagKey)
	}
	if obs.LineageKey != "AC101" {
		t.Fatalf("expected lineage key, got %q", obs.LineageKey)
	}
}

func TestExtractObservationSynonymOrder(t *testing.T) {
	row := domain.MonitoringRow{
		Survived: domain.NumberField(2),
		Aux: map[string]domain.FieldValue{
			"geneticId": domain.StringField("AC102"),
			"Tag":       domain.StringField("AC101"),
		},
	}
	obs := ExtractObservation(row)
	if obs.TagKey != "AC101" {
		t.Fatalf("expected earlier synonym to win, got %q", obs.TagKey)
	}
}

func TestExtractObservationNumericKey(t *testing.T) {
	row := domain.MonitoringRow{
		Survived: domain.NumberField(1),
		Aux:      map[string]domain.FieldValue{"tag": domain.NumberField(101)},
	}
	if obs := ExtractObservation(row); obs.TagKey != "101" {
		t.Fatalf("expected numeric cell rendered as key, got %q", obs.TagKey)
	}
}

func TestExtractObservationZeroSurvivalDropsKeys(t *testing.T) {
	row := domain.MonitoringRow{
		Survived: domain.NumberField(0),
		Aux:      map[string]domain.FieldValue{"tag": domain.StringField("AC101")},
	}
	obs := ExtractObservation(row)
	if !obs.Counted || obs.Survived != 0 {
		t.Fatalf("expected parsed zero, got %+v", obs)
	}
	if obs.TagKey != "" || obs.LineageKey != "" {
		t.Fatalf("zero-survival rows must not carry attribution: %+v", obs)
	}
}

func TestExtractObservationMalformedSurvived(t *testing.T) {
	row := domain.MonitoringRow{
		Survived: domain.StringField("mostly gone"),
		Aux:      map[string]domain.FieldValue{"tag": domain.StringField("AC101")},
	}
	obs := ExtractObservation(row)
	if obs.Counted {
		t.Fatalf("malformed cell must not count")
	}
	if obs.Survived != 0 || obs.TagKey != "" {
		t.Fatalf("malformed cell must degrade to zero without keys: %+v", obs)
	}
}

func TestExtractObservationSkipsAbsentSynonyms(t *testing.T) {
	row := domain.MonitoringRow{
		Survived: domain.NumberField(3),
		Aux: map[string]domain.FieldValue{
			"tag": domain.AbsentField(),
			"Tag": domain.StringField("AC103"),
		},
	}
	if obs := ExtractObservation(row); obs.TagKey != "AC103" {
		t.Fatalf("expected absent cell skipped, got %q", obs.TagKey)
	}
}
