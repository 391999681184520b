package reconcile

import (
	"math"
	"sort"
	"strings"

	"reefcore/pkg/domain"
)

// Stats summarizes anomalies and path selection for one reconciliation, for
// instrumentation; it carries no report data.
type Stats struct {
	// FallbackUsed is true when no submission carried a recoverable
	// identifier and survival was proportionally estimated.
	FallbackUsed bool
	// DroppedKeys counts observation keys with no matching baseline entry;
	// their contributions are discarded rather than fabricating a baseline.
	DroppedKeys int
}

// Reconcile combines an event's baseline index with its observation group into
// a survival report. It returns ok=false when the group holds no submissions:
// an unobserved event yields no report, which is absence rather than an error.
func Reconcile(eventID string, baseline BaselineIndex, group *ObservationGroup) (domain.SurvivalReport, Stats, bool) {
	if group == nil {
		return domain.SurvivalReport{}, Stats{}, false
	}
	representative, ok := group.Representative()
	if !ok {
		return domain.SurvivalReport{}, Stats{}, false
	}

	survived := group.MaxQty
	initial := baseline.TotalPlanted
	report := domain.SurvivalReport{
		EventID: eventID,
		Overall: totals(survived, initial),
		Submission: domain.SubmissionRef{
			ID:          representative.ID,
			Date:        representative.Date,
			Coordinates: representative.Coordinates,
		},
	}
	if len(representative.Rows) > 0 {
		report.Submission.FirstRowAux = cloneAux(representative.Rows[0].Aux)
	}

	var stats Stats
	if len(group.TagData) > 0 {
		stats.DroppedKeys = reconcileGranular(&report, baseline, group.TagData)
	} else {
		stats.FallbackUsed = true
		reconcileFallback(&report, baseline, survived, initial)
	}
	return report, stats, true
}

// reconcileGranular builds the measured by-tag and by-lineage maps. Lineage
// keys are applied before tag keys, each in sorted order, so repeated runs over
// the same snapshot produce identical reports regardless of map iteration.
func reconcileGranular(report *domain.SurvivalReport, baseline BaselineIndex, tagData map[string]int) int {
	lineageKeys := make([]string, 0, len(tagData))
	tagKeys := make([]string, 0, len(tagData))
	for key := range tagData {
		switch {
		case strings.HasPrefix(key, lineageKeyPrefix):
			lineageKeys = append(lineageKeys, key)
		case strings.HasPrefix(key, tagKeyPrefix):
			tagKeys = append(tagKeys, key)
		}
	}
	sort.Strings(lineageKeys)
	sort.Strings(tagKeys)

	byTag := make(map[string]domain.TagSurvival)
	byLineage := make(map[string]domain.LineageSurvival)
	dropped := 0

	for _, key := range lineageKeys {
		lineageID := strings.TrimPrefix(key, lineageKeyPrefix)
		base, ok := baseline.ByLineage[lineageID]
		if !ok {
			dropped++
			continue
		}
		byLineage[lineageID] = domain.LineageSurvival{
			SurvivalTotals: totals(tagData[key], base.Quantity),
			Tags:           append([]string(nil), base.Tags...),
		}
	}

	for _, key := range tagKeys {
		tag := strings.TrimPrefix(key, tagKeyPrefix)
		quantity, ok := baseline.ByTag[tag]
		if !ok {
			dropped++
			continue
		}
		survived := tagData[key]
		byTag[tag] = domain.TagSurvival{SurvivalTotals: totals(survived, quantity)}

		lineageID := domain.ParseLineage(tag)
		if entry, exists := byLineage[lineageID]; exists {
			entry.Survived += survived
			entry.Rate = domain.SurvivalRate(entry.Survived, entry.Initial)
			byLineage[lineageID] = entry
		} else if base, ok := baseline.ByLineage[lineageID]; ok {
			byLineage[lineageID] = domain.LineageSurvival{
				SurvivalTotals: totals(survived, quantity),
				Tags:           append([]string(nil), base.Tags...),
			}
		}
	}

	if len(byTag) > 0 {
		report.ByTag = byTag
	}
	if len(byLineage) > 0 {
		report.ByLineage = byLineage
	}
	return dropped
}

// reconcileFallback distributes the group's survived total across every
// baseline tag and lineage proportionally to its share of the planted total.
// Entries are flagged as estimates so consumers cannot mistake them for
// measured counts.
func reconcileFallback(report *domain.SurvivalReport, baseline BaselineIndex, survived, initial int) {
	if len(baseline.ByTag) == 0 {
		return
	}
	byTag := make(map[string]domain.TagSurvival, len(baseline.ByTag))
	for tag, quantity := range baseline.ByTag {
		byTag[tag] = domain.TagSurvival{
			SurvivalTotals: totals(estimateShare(quantity, initial, survived), quantity),
			Estimated:      true,
		}
	}
	byLineage := make(map[string]domain.LineageSurvival, len(baseline.ByLineage))
	for lineageID, base := range baseline.ByLineage {
		byLineage[lineageID] = domain.LineageSurvival{
			SurvivalTotals: totals(estimateShare(base.Quantity, initial, survived), base.Quantity),
			Tags:           append([]string(nil), base.Tags...),
			Estimated:      true,
		}
	}
	report.ByTag = byTag
	report.ByLineage = byLineage
}

func estimateShare(quantity, initial, survived int) int {
	if initial <= 0 {
		return 0
	}
	return int(math.Round(float64(quantity) / float64(initial) * float64(survived)))
}

func totals(survived, initial int) domain.SurvivalTotals {
	return domain.SurvivalTotals{
		Survived: survived,
		Initial:  initial,
		Rate:     domain.SurvivalRate(survived, initial),
	}
}

func cloneAux(aux map[string]domain.FieldValue) map[string]domain.FieldValue {
	if aux == nil {
		return nil
	}
	out := make(map[string]domain.FieldValue, len(aux))
	for k, v := range aux {
		out[k] = v
	}
	return out
}
