package domain

import "sort"

// speciesTable is the fixed two-letter-code registry of restoration species.
// It is process-wide static data with no lifecycle; mutate-by-nobody.
var speciesTable = map[string]string{
	"AC": "Acropora cervicornis",
	"AP": "Acropora palmata",
	"CN": "Colpophyllia natans",
	"DC": "Dendrogyra cylindrus",
	"DL": "Diploria labyrinthiformis",
	"MC": "Montastraea cavernosa",
	"OA": "Orbicella annularis",
	"OF": "Orbicella faveolata",
	"PA": "Porites astreoides",
	"PC": "Pseudodiploria clivosa",
	"PS": "Pseudodiploria strigosa",
	"SS": "Siderastrea siderea",
}

// LookupSpecies resolves a two-letter species code to its scientific name.
func LookupSpecies(code string) (string, bool) {
	name, ok := speciesTable[code]
	return name, ok
}

// SpeciesCodes returns the registered two-letter codes in sorted order.
func SpeciesCodes() []string {
	codes := make([]string, 0, len(speciesTable))
	for code := range speciesTable {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// SpeciesRegistry resolves a physical tag to a species code by exact match.
// It models the external genetic registry; implementations may be backed by
// ingested genetic-stock data. Resolution order in the baseline builder is
// registry, then ParseSpecies, then PseudoSpeciesCode.
type SpeciesRegistry interface {
	SpeciesForTag(tag string) (string, bool)
}
