package core

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"reefcore/internal/blob"
	"reefcore/internal/infra/persistence/memory"
	"reefcore/internal/reconcile"
	"reefcore/pkg/domain"
)

// Service exposes higher-level transactional operations over the domain
// schema plus survival report computation and source archival.
type Service struct {
	store      PersistentStore
	logger     Logger
	clock      Clock
	audit      AuditRecorder
	metrics    MetricsRecorder
	tracer     Tracer
	blobs      blob.Store
	reconciler *reconcile.Engine
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	svc := &Service{
		store:      store,
		logger:     options.logger,
		clock:      options.clock,
		audit:      options.audit,
		metrics:    options.metrics,
		tracer:     options.tracer,
		blobs:      options.blobs,
		reconciler: options.reconciler,
	}
	if setter, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
		setter.SetNowFunc(svc.clock.Now)
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given
// rules engine. A nil engine selects the default policy set.
func NewInMemoryService(engine *RulesEngine, opts ...ServiceOption) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

var auditOperations = map[string]struct {
	entity domain.EntityType
	action domain.Action
}{
	"create_outplanting_event":     {domain.EntityOutplantingEvent, domain.ActionCreate},
	"update_outplanting_event":     {domain.EntityOutplantingEvent, domain.ActionUpdate},
	"delete_outplanting_event":     {domain.EntityOutplantingEvent, domain.ActionDelete},
	"create_monitoring_submission": {domain.EntityMonitoringSubmission, domain.ActionCreate},
	"update_monitoring_submission": {domain.EntityMonitoringSubmission, domain.ActionUpdate},
	"delete_monitoring_submission": {domain.EntityMonitoringSubmission, domain.ActionDelete},
	"create_user":                  {domain.EntityUser, domain.ActionCreate},
	"update_user":                  {domain.EntityUser, domain.ActionUpdate},
	"delete_user":                  {domain.EntityUser, domain.ActionDelete},
}

func (s *Service) recordAuditSuccess(ctx context.Context, operation, entityID string, duration time.Duration) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

func (s *Service) recordAuditError(ctx context.Context, operation, entityID string, duration time.Duration, opErr error) {
	meta, ok := auditOperations[operation]
	if !ok {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		Operation: operation,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusError,
		Error:     opErr.Error(),
		Duration:  duration,
		Timestamp: s.clock.Now(),
	})
}

// run wraps a service operation with tracing, metrics, logging, and audit.
// fn returns the affected entity id for the audit trail.
func (s *Service) run(ctx context.Context, operation string, fn func(ctx context.Context) (string, error)) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	entityID, err := fn(ctx)
	duration := time.Since(started)
	s.metrics.Observe(ctx, operation, err == nil, duration)
	span.End(err)
	if err != nil {
		s.logger.Error("operation failed", "operation", operation, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, operation, entityID, duration, err)
		return err
	}
	s.logger.Debug("operation complete", "operation", operation, "entity_id", entityID)
	s.recordAuditSuccess(ctx, operation, entityID, duration)
	return nil
}

// CreateOutplantingEvent persists a new outplanting event.
func (s *Service) CreateOutplantingEvent(ctx context.Context, event domain.OutplantingEvent) (domain.OutplantingEvent, Result, error) {
	var created domain.OutplantingEvent
	var res Result
	err := s.run(ctx, "create_outplanting_event", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateOutplantingEvent(event)
			return txErr
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateOutplantingEvent mutates an outplanting event using the provided mutator.
func (s *Service) UpdateOutplantingEvent(ctx context.Context, id string, mutator func(*domain.OutplantingEvent) error) (domain.OutplantingEvent, Result, error) {
	var updated domain.OutplantingEvent
	var res Result
	err := s.run(ctx, "update_outplanting_event", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateOutplantingEvent(id, mutator)
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

// DeleteOutplantingEvent removes an event along with its monitoring submissions.
func (s *Service) DeleteOutplantingEvent(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_outplanting_event", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteOutplantingEvent(id)
		})
		return id, err
	})
	return res, err
}

// CreateMonitoringSubmission persists a new monitoring submission.
func (s *Service) CreateMonitoringSubmission(ctx context.Context, sub domain.MonitoringSubmission) (domain.MonitoringSubmission, Result, error) {
	var created domain.MonitoringSubmission
	var res Result
	err := s.run(ctx, "create_monitoring_submission", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateMonitoringSubmission(sub)
			return txErr
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateMonitoringSubmission mutates a monitoring submission.
func (s *Service) UpdateMonitoringSubmission(ctx context.Context, id string, mutator func(*domain.MonitoringSubmission) error) (domain.MonitoringSubmission, Result, error) {
	var updated domain.MonitoringSubmission
	var res Result
	err := s.run(ctx, "update_monitoring_submission", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateMonitoringSubmission(id, mutator)
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

// DeleteMonitoringSubmission removes a monitoring submission.
func (s *Service) DeleteMonitoringSubmission(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_monitoring_submission", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteMonitoringSubmission(id)
		})
		return id, err
	})
	return res, err
}

// CreateUser persists a new user record.
func (s *Service) CreateUser(ctx context.Context, user domain.User) (domain.User, Result, error) {
	var created domain.User
	var res Result
	err := s.run(ctx, "create_user", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			created, txErr = tx.CreateUser(user)
			return txErr
		})
		return created.ID, err
	})
	return created, res, err
}

// UpdateUser mutates a user record.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*domain.User) error) (domain.User, Result, error) {
	var updated domain.User
	var res Result
	err := s.run(ctx, "update_user", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var txErr error
			updated, txErr = tx.UpdateUser(id, mutator)
			return txErr
		})
		return id, err
	})
	return updated, res, err
}

// DeleteUser removes a user record.
func (s *Service) DeleteUser(ctx context.Context, id string) (Result, error) {
	var res Result
	err := s.run(ctx, "delete_user", func(ctx context.Context) (string, error) {
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			return tx.DeleteUser(id)
		})
		return id, err
	})
	return res, err
}

// GetOutplantingEvent fetches an event when it falls within scope.
func (s *Service) GetOutplantingEvent(scope Scope, id string) (domain.OutplantingEvent, bool) {
	event, ok := s.store.GetOutplantingEvent(id)
	if !ok || !scope.Allows(event.OwnerID) {
		return domain.OutplantingEvent{}, false
	}
	return event, true
}

// ListOutplantingEvents returns events visible to the scope, ordered by id.
func (s *Service) ListOutplantingEvents(scope Scope) []domain.OutplantingEvent {
	return s.store.ListOutplantingEvents(scope)
}

// GetMonitoringSubmission fetches a submission when it falls within scope.
func (s *Service) GetMonitoringSubmission(scope Scope, id string) (domain.MonitoringSubmission, bool) {
	sub, ok := s.store.GetMonitoringSubmission(id)
	if !ok || !scope.Allows(sub.OwnerID) {
		return domain.MonitoringSubmission{}, false
	}
	return sub, true
}

// ListMonitoringSubmissions returns submissions visible to the scope, ordered by id.
func (s *Service) ListMonitoringSubmissions(scope Scope) []domain.MonitoringSubmission {
	return s.store.ListMonitoringSubmissions(scope)
}

// GetUser fetches a user record.
func (s *Service) GetUser(id string) (domain.User, bool) {
	return s.store.GetUser(id)
}

// ListUsers returns all users ordered by id.
func (s *Service) ListUsers() []domain.User {
	return s.store.ListUsers()
}

// ScopeFor derives the visibility scope of the given user id. Unknown users
// get an empty scope that sees nothing.
func (s *Service) ScopeFor(userID string) Scope {
	user, ok := s.store.GetUser(userID)
	if !ok {
		return Scope{}
	}
	return Scope{UserID: user.ID, Unrestricted: user.Unrestricted}
}

// ComputeSurvivalReports reconciles every event visible to the scope against
// its monitoring submissions and returns reports ordered by event id.
func (s *Service) ComputeSurvivalReports(ctx context.Context, scope Scope) ([]domain.SurvivalReport, error) {
	var reports []domain.SurvivalReport
	err := s.run(ctx, "compute_survival_reports", func(ctx context.Context) (string, error) {
		events := s.store.ListOutplantingEvents(scope)
		subs := s.store.ListMonitoringSubmissions(scope)
		reports = s.reconciler.Run(ctx, events, subs)
		return "", nil
	})
	return reports, err
}

// ComputeSurvivalReport reconciles a single event. Returns ErrNotFound when
// the event is missing or out of scope, and ok=false when no submissions
// reference it.
func (s *Service) ComputeSurvivalReport(ctx context.Context, scope Scope, eventID string) (domain.SurvivalReport, bool, error) {
	var report domain.SurvivalReport
	found := false
	err := s.run(ctx, "compute_survival_report", func(ctx context.Context) (string, error) {
		event, ok := s.GetOutplantingEvent(scope, eventID)
		if !ok {
			return eventID, ErrNotFound{Entity: domain.EntityOutplantingEvent, ID: eventID}
		}
		var subs []domain.MonitoringSubmission
		for _, sub := range s.store.ListMonitoringSubmissions(scope) {
			if sub.EventID == eventID {
				subs = append(subs, sub)
			}
		}
		reports := s.reconciler.Run(ctx, []domain.OutplantingEvent{event}, subs)
		if len(reports) == 1 {
			report = reports[0]
			found = true
		}
		return eventID, nil
	})
	return report, found, err
}

// ArchiveSubmissionSource stores the raw uploaded source file for a submission
// in the configured blob store, keyed under submissions/<id>/<filename>.
func (s *Service) ArchiveSubmissionSource(ctx context.Context, submissionID, filename, contentType string, r io.Reader) (blob.Info, error) {
	var info blob.Info
	err := s.run(ctx, "archive_submission_source", func(ctx context.Context) (string, error) {
		if s.blobs == nil {
			return submissionID, fmt.Errorf("blob store not configured")
		}
		sub, ok := s.store.GetMonitoringSubmission(submissionID)
		if !ok {
			return submissionID, ErrNotFound{Entity: domain.EntityMonitoringSubmission, ID: submissionID}
		}
		key := path.Join("submissions", sub.ID, filename)
		var err error
		info, err = s.blobs.Put(ctx, key, r, blob.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"submission_id": sub.ID, "event_id": sub.EventID},
		})
		return sub.ID, err
	})
	return info, err
}

// ListSubmissionSources returns archived source files for a submission.
func (s *Service) ListSubmissionSources(ctx context.Context, submissionID string) ([]blob.Info, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("blob store not configured")
	}
	return s.blobs.List(ctx, path.Join("submissions", submissionID)+"/")
}

// ErrNotFound is returned when reference validation fails within service helpers.
type ErrNotFound struct {
	Entity domain.EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
