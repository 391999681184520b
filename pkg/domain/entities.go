// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by reefcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityOutplantingEvent identifies an outplanting event record.
	EntityOutplantingEvent EntityType = "outplanting_event"
	// EntityMonitoringSubmission identifies a monitoring submission record.
	EntityMonitoringSubmission EntityType = "monitoring_submission"
	// EntityUser identifies an internal user record.
	EntityUser EntityType = "user"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlantedRow records one lineage's contribution to an outplanting event.
// The tag format is <2-letter species code><digits>[-<suffix>]; Grouping is a
// free-text context that only disambiguates repeated tags within one event.
type PlantedRow struct {
	Tag      string `json:"tag"`
	Quantity int    `json:"quantity"`
	Grouping string `json:"grouping,omitempty"`
}

// OutplantingEvent is the baseline record of what was planted on a reef.
// TotalPlanted always equals the sum of its row quantities; rows are owned by
// the event and removed with it.
type OutplantingEvent struct {
	Base
	OwnerID   string       `json:"owner_id"`
	SiteName  string       `json:"site_name"`
	ReefName  string       `json:"reef_name"`
	EventName string       `json:"event_name"`
	Date      string       `json:"date"`
	Rows      []PlantedRow `json:"rows"`
}

// TotalPlanted returns the sum of planted quantities across the event's rows.
func (e OutplantingEvent) TotalPlanted() int {
	total := 0
	for _, row := range e.Rows {
		total += row.Quantity
	}
	return total
}

// MonitoringRow is one observation row from a monitoring pass. Survived may be
// malformed (non-numeric free text); Aux carries loosely typed auxiliary
// columns from which a tag or lineage id may optionally be recovered.
type MonitoringRow struct {
	Survived FieldValue            `json:"survived"`
	Aux      map[string]FieldValue `json:"aux,omitempty"`
}

// MonitoringSubmission is one observation pass over an outplanting event.
// Multiple submissions may reference the same event (repeat surveys).
type MonitoringSubmission struct {
	Base
	OwnerID     string          `json:"owner_id"`
	EventID     string          `json:"event_id"`
	Date        string          `json:"date"`
	Coordinates string          `json:"coordinates,omitempty"`
	Rows        []MonitoringRow `json:"rows"`
}

// User is an internal user record. Unrestricted grants visibility into every
// event regardless of ownership.
type User struct {
	Base
	Name         string `json:"name"`
	Email        string `json:"email"`
	Unrestricted bool   `json:"unrestricted"`
}

// Scope bounds the visibility of list operations. A zero scope sees nothing;
// Unrestricted sees everything.
type Scope struct {
	UserID       string
	Unrestricted bool
}

// Allows reports whether records owned by ownerID fall within the scope.
func (s Scope) Allows(ownerID string) bool {
	if s.Unrestricted {
		return true
	}
	return s.UserID != "" && s.UserID == ownerID
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
