package core

import (
	"context"
	"fmt"

	"reefcore/pkg/domain"
)

// NewSubmissionReferenceRule returns the rule blocking monitoring submissions
// that reference a missing outplanting event.
func NewSubmissionReferenceRule() domain.Rule {
	return submissionReferenceRule{}
}

type submissionReferenceRule struct{}

func (submissionReferenceRule) Name() string { return "submission_reference" }

func (submissionReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, sub := range view.ListMonitoringSubmissions() {
		if sub.EventID == "" {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "submission_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("submission %s has no event reference", sub.ID),
				Entity:   domain.EntityMonitoringSubmission,
				EntityID: sub.ID,
			})
			continue
		}
		if _, ok := view.FindOutplantingEvent(sub.EventID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "submission_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("submission %s references missing event %s", sub.ID, sub.EventID),
				Entity:   domain.EntityMonitoringSubmission,
				EntityID: sub.ID,
			})
		}
	}
	return res, nil
}
