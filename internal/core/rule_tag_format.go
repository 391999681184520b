package core

import (
	"context"
	"fmt"

	"reefcore/pkg/domain"
)

// NewTagFormatRule returns the rule warning on planted tags whose species
// cannot be resolved from the registry. Unresolvable tags still participate in
// reporting under a pseudo species code, so the severity stays non-blocking.
func NewTagFormatRule() domain.Rule {
	return tagFormatRule{}
}

type tagFormatRule struct{}

func (tagFormatRule) Name() string { return "tag_format" }

func (tagFormatRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, event := range view.ListOutplantingEvents() {
		for _, row := range event.Rows {
			if _, err := domain.ParseSpecies(row.Tag); err != nil {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     "tag_format",
					Severity: domain.SeverityWarn,
					Message:  fmt.Sprintf("event %s: %v", event.ID, err),
					Entity:   domain.EntityOutplantingEvent,
					EntityID: event.ID,
				})
			}
		}
	}
	return res, nil
}
