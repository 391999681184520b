package reconcile

import (
	"bytes"
	"encoding/json"
	"testing"

	"reefcore/pkg/domain"
)

func granularFixture() (BaselineIndex, *ObservationGroup) {
	baseline := BuildBaselineIndex([]domain.PlantedRow{
		{Tag: "AC101", Quantity: 15},
		{Tag: "OF200", Quantity: 8},
	}, nil)
	group := GroupObservations([]domain.MonitoringSubmission{
		{Base: domain.Base{ID: "s1"}, EventID: "e1", Date: "2024-05-01", Coordinates: "24.55,-81.40", Rows: []domain.MonitoringRow{
			countedRow(9, tagAux("AC101")),
			countedRow(8, tagAux("OF200")),
		}},
	})["e1"]
	return baseline, group
}

func TestReconcileGranular(t *testing.T) {
	baseline, group := granularFixture()
	report, stats, ok := Reconcile("e1", baseline, group)
	if !ok {
		t.Fatalf("expected a report")
	}
	if stats.FallbackUsed || stats.DroppedKeys != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if report.Overall != (domain.SurvivalTotals{Survived: 17, Initial: 23, Rate: 74}) {
		t.Fatalf("unexpected overall: %+v", report.Overall)
	}
	ac := report.ByTag["AC101"]
	if ac.Survived != 9 || ac.Initial != 15 || ac.Rate != 60 || ac.Estimated {
		t.Fatalf("unexpected AC101 entry: %+v", ac)
	}
	of := report.ByTag["OF200"]
	if of.Survived != 8 || of.Initial != 8 || of.Rate != 100 {
		t.Fatalf("unexpected OF200 entry: %+v", of)
	}
	if report.Submission.ID != "s1" || report.Submission.Date != "2024-05-01" || report.Submission.Coordinates != "24.55,-81.40" {
		t.Fatalf("unexpected submission ref: %+v", report.Submission)
	}
	if report.Submission.FirstRowAux == nil {
		t.Fatalf("expected first-row aux data carried into the report")
	}
}

func TestReconcileLineageScenario(t *testing.T) {
	baseline := BuildBaselineIndex([]domain.PlantedRow{
		{Tag: "AC101-1", Quantity: 10},
		{Tag: "AC101-2", Quantity: 5},
		{Tag: "OF200-1", Quantity: 8},
	}, nil)
	group := GroupObservations([]domain.MonitoringSubmission{
		{Base: domain.Base{ID: "s1"}, EventID: "e1", Rows: []domain.MonitoringRow{
			countedRow(9, map[string]domain.FieldValue{"localId": domain.StringField("AC101")}),
			countedRow(8, map[string]domain.FieldValue{"localId": domain.StringField("OF200")}),
		}},
	})["e1"]

	report, _, ok := Reconcile("e1", baseline, group)
	if !ok {
		t.Fatalf("expected a report")
	}
	ac := report.ByLineage["AC101"]
	if ac.Survived != 9 || ac.Initial != 15 || ac.Rate != 60 {
		t.Fatalf("unexpected AC101 lineage: %+v", ac)
	}
	if len(ac.Tags) != 2 || ac.Tags[0] != "AC101-1" || ac.Tags[1] != "AC101-2" {
		t.Fatalf("unexpected AC101 tag set: %v", ac.Tags)
	}
	of := report.ByLineage["OF200"]
	if of.Survived != 8 || of.Initial != 8 || of.Rate != 100 {
		t.Fatalf("unexpected OF200 lineage: %+v", of)
	}
	if len(of.Tags) != 1 || of.Tags[0] != "OF200-1" {
		t.Fatalf("unexpected OF200 tag set: %v", of.Tags)
	}
	if report.Overall != (domain.SurvivalTotals{Survived: 17, Initial: 23, Rate: 74}) {
		t.Fatalf("unexpected overall: %+v", report.Overall)
	}
	if report.ByTag != nil {
		t.Fatalf("lineage-only observations must not emit tag entries, got %+v", report.ByTag)
	}
}

func TestReconcileFallbackEstimates(t *testing.T) {
	baseline := BuildBaselineIndex([]domain.PlantedRow{
		{Tag: "AC101", Quantity: 15},
		{Tag: "OF200", Quantity: 8},
	}, nil)
	group := GroupObservations([]domain.MonitoringSubmission{
		{Base: domain.Base{ID: "s1"}, EventID: "e1", Rows: []domain.MonitoringRow{countedRow(11, nil)}},
	})["e1"]

	report, stats, ok := Reconcile("e1", baseline, group)
	if !ok {
		t.Fatalf("expected a report")
	}
	if !stats.FallbackUsed {
		t.Fatalf("expected fallback path")
	}
	ac := report.ByTag["AC101"]
	if ac.Survived != 7 || !ac.Estimated {
		t.Fatalf("expected estimated share 7 for AC101, got %+v", ac)
	}
	of := report.ByTag["OF200"]
	if of.Survived != 4 || !of.Estimated {
		t.Fatalf("expected estimated share 4 for OF200, got %+v", of)
	}
	lineage := report.ByLineage["AC101"]
	if !lineage.Estimated || lineage.Survived != 7 {
		t.Fatalf("expected estimated lineage entry, got %+v", lineage)
	}
	if report.Overall.Survived != 11 || report.Overall.Rate != 48 {
		t.Fatalf("unexpected overall: %+v", report.Overall)
	}
}

func TestReconcileFallbackEmptyBaseline(t *testing.T) {
	group := GroupObservations([]domain.MonitoringSubmission{
		{Base: domain.Base{ID: "s1"}, EventID: "e1", Rows: []domain.MonitoringRow{countedRow(3, nil)}},
	})["e1"]
	report, _, ok := Reconcile("e1", BuildBaselineIndex(nil, nil), group)
	if !ok {
		t.Fatalf("expected a report even without a baseline")
	}
	if report.ByTag != nil || report.ByLineage != nil {
		t.Fatalf("expected no granular maps without a baseline, got %+v", report)
	}
	if report.Overall.Rate != 0 {
		t.Fatalf("zero baseline must yield zero rate, got %d", report.Overall.Rate)
	}
}

func TestReconcileTagAccumulatesIntoLineage(t *testing.T) {
	baseline := BuildBaselineIndex([]domain.PlantedRow{
		{Tag: "AC101-1", Quantity: 10},
		{Tag: "AC101-2", Quantity: 5},
	}, nil)
	group := GroupObservations([]domain.MonitoringSubmission{
		{Base: domain.Base{ID: "s1"}, EventID: "e1", Rows: []domain.MonitoringRow{
			countedRow(5, map[string]domain.FieldValue{"localId": domain.StringField("AC101")}),
			countedRow(4, tagAux("AC101-1")),
		}},
	})["e1"]

	report, stats, ok := Reconcile("e1", baseline, group)
	if !ok {
		t.Fatalf("expected a report")
	}
	if stats.DroppedKeys != 0 {
		t.Fatalf("unexpected drops: %+v", stats)
	}
	lineage := report.ByLineage["AC101"]
	if lineage.Survived != 9 {
		t.Fatalf("expected tag contribution folded into lineage, got %+v", lineage)
	}
	if lineage.Initial != 15 {
		t.Fatalf("lineage baseline must stay unchanged, got %+v", lineage)
	}
	if lineage.Rate != 60 {
		t.Fatalf("expected recomputed rate 60, got %d", lineage.Rate)
	}
	if len(lineage.Tags) != 2 {
		t.Fatalf("expected composing tag set from baseline, got %v", lineage.Tags)
	}
	tag := report.ByTag["AC101-1"]
	if tag.Survived != 4 || tag.Initial != 10 {
		t.Fatalf("unexpected tag entry: %+v", tag)
	}
}

func TestReconcileTagSeedsLineage(t *testing.T) {
	baseline := BuildBaselineIndex([]domain.PlantedRow{
		{Tag: "AC101-1", Quantity: 10},
	}, nil)
	group := GroupObservations([]domain.MonitoringSubmission{
		{Base: domain.Base{ID: "s1"}, EventID: "e1", Rows: []domain.MonitoringRow{
			countedRow(6, tagAux("AC101-1")),
		}},
	})["e1"]

	report, _, ok := Reconcile("e1", baseline, group)
	if !ok {
		t.Fatalf("expected a report")
	}
	lineage, exists := report.ByLineage["AC101"]
	if !exists {
		t.Fatalf("expected tag observation to seed its lineage entry")
	}
	if lineage.Survived != 6 || lineage.Initial != 10 {
		t.Fatalf("unexpected seeded lineage: %+v", lineage)
	}
}

func TestReconcileDropsUnknownKeys(t *testing.T) {
	baseline := BuildBaselineIndex([]domain.PlantedRow{{Tag: "AC101", Quantity: 10}}, nil)
	group := GroupObservations([]domain.MonitoringSubmission{
		{Base: domain.Base{ID: "s1"}, EventID: "e1", Rows: []domain.MonitoringRow{
			countedRow(5, tagAux("AC101")),
			countedRow(3, tagAux("XX999")),
			countedRow(2, map[string]domain.FieldValue{"localId": domain.StringField("QQ777")}),
		}},
	})["e1"]

	report, stats, ok := Reconcile("e1", baseline, group)
	if !ok {
		t.Fatalf("expected a report")
	}
	if stats.DroppedKeys != 2 {
		t.Fatalf("DroppedKeys = %d, want 2", stats.DroppedKeys)
	}
	if _, exists := report.ByTag["XX999"]; exists {
		t.Fatalf("unknown tag must not fabricate a baseline entry")
	}
	if _, exists := report.ByLineage["QQ777"]; exists {
		t.Fatalf("unknown lineage must not fabricate a baseline entry")
	}
}

func TestReconcileNoSubmissions(t *testing.T) {
	baseline := BuildBaselineIndex([]domain.PlantedRow{{Tag: "AC101", Quantity: 10}}, nil)
	if _, _, ok := Reconcile("e1", baseline, nil); ok {
		t.Fatalf("nil group must yield no report")
	}
	if _, _, ok := Reconcile("e1", baseline, &ObservationGroup{EventID: "e1"}); ok {
		t.Fatalf("empty group must yield no report")
	}
}

func TestReconcileIdempotent(t *testing.T) {
	baseline, group := granularFixture()
	first, _, _ := Reconcile("e1", baseline, group)
	second, _, _ := Reconcile("e1", baseline, group)

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("repeated reconciliation must serialize identically:\n%s\n%s", a, b)
	}
}
