// Package reconcile implements the survival reconciliation engine: it folds an
// outplanting baseline and independently submitted monitoring observations
// into one multi-granularity survival picture per event.
//
// All computations here are pure functions over an immutable input snapshot;
// fetching that snapshot belongs to the storage layer. Per-event work shares
// no mutable state, so the Engine facade may fan events out to workers.
package reconcile

import (
	"sort"

	"reefcore/pkg/domain"
)

// LineageBaseline aggregates the planted quantity and composing tags of one
// genetic lineage within an event.
type LineageBaseline struct {
	Quantity int
	Tags     []string
}

// SpeciesBaseline aggregates planted quantity and tags per species code.
type SpeciesBaseline struct {
	Quantity int
	Tags     []string
}

// BaselineIndex is the derived lookup structure for one outplanting event.
// It is a transient computation artifact; nothing persists it. The by-tag and
// by-lineage totals always equal TotalPlanted, while species totals may
// diverge since species resolution can fail silently per row.
type BaselineIndex struct {
	ByTag        map[string]int
	ByLineage    map[string]LineageBaseline
	BySpecies    map[string]SpeciesBaseline
	TotalPlanted int
}

// BuildBaselineIndex folds an event's planted rows into the three lookup maps
// in a single pass. Species resolution prefers an exact registry match, then
// the fixed species table, then the pseudo-code substring heuristic; registry
// may be nil. Tag sets are sorted for stable downstream output.
func BuildBaselineIndex(rows []domain.PlantedRow, registry domain.SpeciesRegistry) BaselineIndex {
	idx := BaselineIndex{
		ByTag:     make(map[string]int, len(rows)),
		ByLineage: make(map[string]LineageBaseline),
		BySpecies: make(map[string]SpeciesBaseline),
	}
	for _, row := range rows {
		idx.ByTag[row.Tag] += row.Quantity
		idx.TotalPlanted += row.Quantity

		lineageID := domain.ParseLineage(row.Tag)
		lineage := idx.ByLineage[lineageID]
		lineage.Quantity += row.Quantity
		lineage.Tags = appendTag(lineage.Tags, row.Tag)
		idx.ByLineage[lineageID] = lineage

		code := resolveSpecies(row.Tag, registry)
		species := idx.BySpecies[code]
		species.Quantity += row.Quantity
		species.Tags = appendTag(species.Tags, row.Tag)
		idx.BySpecies[code] = species
	}
	for id, lineage := range idx.ByLineage {
		sort.Strings(lineage.Tags)
		idx.ByLineage[id] = lineage
	}
	for code, species := range idx.BySpecies {
		sort.Strings(species.Tags)
		idx.BySpecies[code] = species
	}
	return idx
}

func resolveSpecies(tag string, registry domain.SpeciesRegistry) string {
	if registry != nil {
		if code, ok := registry.SpeciesForTag(tag); ok {
			return code
		}
	}
	code, err := domain.ParseSpecies(tag)
	if err != nil {
		return domain.PseudoSpeciesCode(tag)
	}
	return code
}

// appendTag adds tag to the set unless already present. Sets stay small (tags
// per lineage), so a linear scan beats a throwaway map.
func appendTag(tags []string, tag string) []string {
	for _, existing := range tags {
		if existing == tag {
			return tags
		}
	}
	return append(tags, tag)
}
