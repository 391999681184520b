package reconcile

import (
	"time"

	"reefcore/pkg/domain"
)

// Tag-data keys are namespaced so a raw tag and a lineage id can never collide
// in the merged map.
const (
	tagKeyPrefix     = "tag:"
	lineageKeyPrefix = "local:"
)

// ObservationGroup collects every monitoring submission referencing one
// outplanting event, together with the merged per-key survived counts, the
// highest submission total, and the most recent parseable observation date.
// Like BaselineIndex it is a transient, single-invocation artifact.
type ObservationGroup struct {
	EventID     string
	Submissions []domain.MonitoringSubmission
	// MaxQty is the highest row-sum total across the group's submissions and
	// is what overall survival reports, even when per-lineage sums diverge.
	MaxQty int
	// TagData maps "tag:<t>" / "local:<id>" keys to summed survived counts
	// across all submissions in the group.
	TagData map[string]int
	// LatestDate is the raw date string of the most recent submission whose
	// date parsed; unparsable dates never displace it.
	LatestDate string
	// MalformedRows counts survived cells that failed to parse, for
	// instrumentation only.
	MalformedRows int

	latest time.Time
}

// GroupObservations buckets submissions by referenced event and merges their
// extracted observation data. Input order is preserved within each group so
// representative selection stays stable.
func GroupObservations(submissions []domain.MonitoringSubmission) map[string]*ObservationGroup {
	groups := make(map[string]*ObservationGroup)
	for _, sub := range submissions {
		group, ok := groups[sub.EventID]
		if !ok {
			group = &ObservationGroup{EventID: sub.EventID, TagData: make(map[string]int)}
			groups[sub.EventID] = group
		}
		total := 0
		for _, row := range sub.Rows {
			obs := ExtractObservation(row)
			if !obs.Counted {
				group.MalformedRows++
			}
			total += obs.Survived
			if obs.TagKey != "" {
				group.TagData[tagKeyPrefix+obs.TagKey] += obs.Survived
			}
			if obs.LineageKey != "" {
				group.TagData[lineageKeyPrefix+obs.LineageKey] += obs.Survived
			}
		}
		group.Submissions = append(group.Submissions, sub)
		if total > group.MaxQty {
			group.MaxQty = total
		}
		if observed, ok := parseObservationDate(sub.Date); ok && observed.After(group.latest) {
			group.latest = observed
			group.LatestDate = sub.Date
		}
	}
	return groups
}

// Representative returns the submission with the strictly highest row-sum
// total; ties keep the first encountered in input order.
func (g *ObservationGroup) Representative() (domain.MonitoringSubmission, bool) {
	if len(g.Submissions) == 0 {
		return domain.MonitoringSubmission{}, false
	}
	best := g.Submissions[0]
	bestTotal := submissionTotal(best)
	for _, sub := range g.Submissions[1:] {
		if total := submissionTotal(sub); total > bestTotal {
			best = sub
			bestTotal = total
		}
	}
	return best, true
}

func submissionTotal(sub domain.MonitoringSubmission) int {
	total := 0
	for _, row := range sub.Rows {
		if n, ok := row.Survived.AsCount(); ok {
			total += n
		}
	}
	return total
}

// Observation dates arrive as ingested free text; the accepted layouts cover
// the formats seen in field submissions.
var observationDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
}

func parseObservationDate(raw string) (time.Time, bool) {
	for _, layout := range observationDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
