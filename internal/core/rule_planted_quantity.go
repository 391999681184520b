package core

import (
	"context"
	"fmt"

	"reefcore/pkg/domain"
)

// NewPlantedQuantityRule returns the default in-transaction rule validating
// outplanting event rows: quantities must be non-negative and a tag may appear
// at most once per grouping context within a single event.
func NewPlantedQuantityRule() domain.Rule {
	return plantedQuantityRule{}
}

type plantedQuantityRule struct{}

func (plantedQuantityRule) Name() string { return "planted_quantity" }

func (plantedQuantityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, event := range view.ListOutplantingEvents() {
		seen := make(map[string]struct{}, len(event.Rows))
		for _, row := range event.Rows {
			if row.Quantity < 0 {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "planted_quantity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("event %s: tag %s has negative planted quantity %d", event.ID, row.Tag, row.Quantity),
					Entity:   domain.EntityOutplantingEvent,
					EntityID: event.ID,
				})
			}
			key := row.Tag + "\x00" + row.Grouping
			if _, dup := seen[key]; dup {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "planted_quantity",
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("event %s: tag %s repeated within grouping %q", event.ID, row.Tag, row.Grouping),
					Entity:   domain.EntityOutplantingEvent,
					EntityID: event.ID,
				})
				continue
			}
			seen[key] = struct{}{}
		}
	}
	return res, nil
}
