package domain

import "math"

// SurvivalTotals is the survived/initial pair shared by every report entry.
// Rate is an integer percentage, deliberately unclamped: a rate over 100 means
// recorded survivors exceed the recorded baseline, which is a data-quality
// signal rather than an error.
type SurvivalTotals struct {
	Survived int `json:"survived"`
	Initial  int `json:"initial"`
	Rate     int `json:"rate"`
}

// SurvivalRate computes the integer survival percentage, defined as 0 when the
// baseline is empty.
func SurvivalRate(survived, initial int) int {
	if initial <= 0 {
		return 0
	}
	return int(math.Round(float64(survived) / float64(initial) * 100))
}

// TagSurvival reports survival for one physical tag. Estimated marks values
// produced by the proportional fallback rather than a measured observation.
type TagSurvival struct {
	SurvivalTotals
	Estimated bool `json:"estimated,omitempty"`
}

// LineageSurvival reports survival for one genetic lineage together with the
// baseline tags composing it. Tags are sorted for stable output.
type LineageSurvival struct {
	SurvivalTotals
	Tags      []string `json:"tags"`
	Estimated bool     `json:"estimated,omitempty"`
}

// SpeciesSurvival reports survival aggregated per species code. The shape is
// declared for report consumers but the reconciliation pass does not populate
// it yet; see the survival engine's package documentation.
type SpeciesSurvival struct {
	SurvivalTotals
	Tags []string `json:"tags"`
}

// SubmissionRef identifies the representative monitoring submission backing a
// report, including the raw auxiliary data of its first row for traceability.
type SubmissionRef struct {
	ID          string                `json:"id"`
	Date        string                `json:"date"`
	Coordinates string                `json:"coordinates,omitempty"`
	FirstRowAux map[string]FieldValue `json:"first_row_aux,omitempty"`
}

// SurvivalReport is the multi-granularity survival picture for one
// outplanting event that received at least one monitoring observation.
type SurvivalReport struct {
	EventID    string                     `json:"event_id"`
	Overall    SurvivalTotals             `json:"overall"`
	ByTag      map[string]TagSurvival     `json:"by_tag,omitempty"`
	ByLineage  map[string]LineageSurvival `json:"by_lineage,omitempty"`
	BySpecies  map[string]SpeciesSurvival `json:"by_species,omitempty"`
	Submission SubmissionRef              `json:"submission"`
}
