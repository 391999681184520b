package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateOutplantingEvent(OutplantingEvent) (OutplantingEvent, error)
	UpdateOutplantingEvent(id string, mutator func(*OutplantingEvent) error) (OutplantingEvent, error)
	DeleteOutplantingEvent(id string) error
	CreateMonitoringSubmission(MonitoringSubmission) (MonitoringSubmission, error)
	UpdateMonitoringSubmission(id string, mutator func(*MonitoringSubmission) error) (MonitoringSubmission, error)
	DeleteMonitoringSubmission(id string) error
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	DeleteUser(id string) error
	FindOutplantingEvent(id string) (OutplantingEvent, bool)
	FindUser(id string) (User, bool)
}

// TransactionView provides read-only access to snapshot data for rules.
type TransactionView interface {
	ListOutplantingEvents() []OutplantingEvent
	ListMonitoringSubmissions() []MonitoringSubmission
	ListUsers() []User
	FindOutplantingEvent(id string) (OutplantingEvent, bool)
	FindMonitoringSubmission(id string) (MonitoringSubmission, bool)
	FindUser(id string) (User, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetOutplantingEvent(id string) (OutplantingEvent, bool)
	ListOutplantingEvents(scope Scope) []OutplantingEvent
	GetMonitoringSubmission(id string) (MonitoringSubmission, bool)
	ListMonitoringSubmissions(scope Scope) []MonitoringSubmission
	GetUser(id string) (User, bool)
	ListUsers() []User
}
