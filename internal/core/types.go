// Package core exposes the transactional service layer: CRUD over the domain
// entities, rule enforcement, survival report computation, and source file
// archival.
package core

import "reefcore/pkg/domain"

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
	RulesEngine     = domain.RulesEngine
	Rule            = domain.Rule
	Result          = domain.Result
	Change          = domain.Change
	Scope           = domain.Scope
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}
