package reconcile

import "reefcore/pkg/domain"

// Auxiliary column synonyms checked in order; the first present cell wins per
// category. New spellings belong here, not in reconciliation logic.
var (
	tagKeyNames     = []string{"tag", "Tag", "geneticId", "genetId"}
	lineageKeyNames = []string{"localId", "LocalId"}
)

// Observation is the extracted essence of one monitoring row: the survived
// count plus whatever identifying key could be mined from auxiliary columns.
type Observation struct {
	Survived int
	// Counted reports whether Survived came from a parseable cell. Malformed
	// cells degrade to zero and are excluded from parse-dependent sums.
	Counted bool
	// TagKey and LineageKey are recorded independently; either or both may be
	// empty. Zero-survival rows never carry attribution keys.
	TagKey     string
	LineageKey string
}

// ExtractObservation mines one monitoring row. Malformed survived cells
// degrade to a zero contribution instead of failing the batch, and attribution
// keys are only recorded when the row reports at least one survivor.
func ExtractObservation(row domain.MonitoringRow) Observation {
	obs := Observation{}
	if n, ok := row.Survived.AsCount(); ok {
		obs.Survived = n
		obs.Counted = true
	}
	if obs.Survived == 0 {
		return obs
	}
	obs.TagKey = firstPresent(row.Aux, tagKeyNames)
	obs.LineageKey = firstPresent(row.Aux, lineageKeyNames)
	return obs
}

func firstPresent(aux map[string]domain.FieldValue, names []string) string {
	for _, name := range names {
		value, ok := aux[name]
		if !ok || value.IsAbsent() {
			continue
		}
		if s, ok := value.AsString(); ok {
			return s
		}
	}
	return ""
}
