// Package memory provides the in-memory transactional store that durable
// backends wrap for snapshot persistence.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"reefcore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

type state struct {
	events      map[string]domain.OutplantingEvent
	submissions map[string]domain.MonitoringSubmission
	users       map[string]domain.User
}

func newState() state {
	return state{
		events:      make(map[string]domain.OutplantingEvent),
		submissions: make(map[string]domain.MonitoringSubmission),
		users:       make(map[string]domain.User),
	}
}

func (s state) clone() state {
	cloned := newState()
	for k, v := range s.events {
		cloned.events[k] = cloneEvent(v)
	}
	for k, v := range s.submissions {
		cloned.submissions[k] = cloneSubmission(v)
	}
	for k, v := range s.users {
		cloned.users[k] = v
	}
	return cloned
}

func cloneEvent(e domain.OutplantingEvent) domain.OutplantingEvent {
	cp := e
	cp.Rows = append([]domain.PlantedRow(nil), e.Rows...)
	return cp
}

func cloneSubmission(s domain.MonitoringSubmission) domain.MonitoringSubmission {
	cp := s
	if s.Rows != nil {
		cp.Rows = make([]domain.MonitoringRow, len(s.Rows))
		for i, row := range s.Rows {
			cloned := row
			if row.Aux != nil {
				cloned.Aux = make(map[string]domain.FieldValue, len(row.Aux))
				for k, v := range row.Aux {
					cloned.Aux[k] = v
				}
			}
			cp.Rows[i] = cloned
		}
	}
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  state
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc overrides the transaction clock, for tests.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	store   *Store
	state   state
	changes []domain.Change
	now     time.Time
}

var _ domain.Transaction = (*Transaction)(nil)

// transactionView exposes a read-only snapshot of transactional state.
type transactionView struct {
	state *state
}

var _ domain.TransactionView = transactionView{}

// ListOutplantingEvents returns all events in the snapshot, ordered by id.
func (v transactionView) ListOutplantingEvents() []domain.OutplantingEvent {
	out := make([]domain.OutplantingEvent, 0, len(v.state.events))
	for _, e := range v.state.events {
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListMonitoringSubmissions returns all submissions in the snapshot, ordered by id.
func (v transactionView) ListMonitoringSubmissions() []domain.MonitoringSubmission {
	out := make([]domain.MonitoringSubmission, 0, len(v.state.submissions))
	for _, sub := range v.state.submissions {
		out = append(out, cloneSubmission(sub))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListUsers returns all user records, ordered by id.
func (v transactionView) ListUsers() []domain.User {
	out := make([]domain.User, 0, len(v.state.users))
	for _, u := range v.state.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindOutplantingEvent retrieves an event by id from the snapshot.
func (v transactionView) FindOutplantingEvent(id string) (domain.OutplantingEvent, bool) {
	e, ok := v.state.events[id]
	if !ok {
		return domain.OutplantingEvent{}, false
	}
	return cloneEvent(e), true
}

// FindMonitoringSubmission retrieves a submission by id from the snapshot.
func (v transactionView) FindMonitoringSubmission(id string) (domain.MonitoringSubmission, bool) {
	sub, ok := v.state.submissions[id]
	if !ok {
		return domain.MonitoringSubmission{}, false
	}
	return cloneSubmission(sub), true
}

// FindUser retrieves a user by id from the snapshot.
func (v transactionView) FindUser(id string) (domain.User, bool) {
	u, ok := v.state.users[id]
	return u, ok
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		view := transactionView{state: &tx.state}
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(transactionView{state: &snapshot})
}

// Snapshot returns a read-only view of the transaction's working state.
func (tx *Transaction) Snapshot() domain.TransactionView {
	return transactionView{state: &tx.state}
}

func (tx *Transaction) recordChange(change domain.Change) {
	tx.changes = append(tx.changes, change)
}

// CreateOutplantingEvent stores a new outplanting event within the transaction.
func (tx *Transaction) CreateOutplantingEvent(e domain.OutplantingEvent) (domain.OutplantingEvent, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.events[e.ID]; exists {
		return domain.OutplantingEvent{}, fmt.Errorf("outplanting event %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.events[e.ID] = cloneEvent(e)
	tx.recordChange(domain.Change{Entity: domain.EntityOutplantingEvent, Action: domain.ActionCreate, After: cloneEvent(e)})
	return cloneEvent(e), nil
}

// UpdateOutplantingEvent mutates an event using the provided mutator function.
func (tx *Transaction) UpdateOutplantingEvent(id string, mutator func(*domain.OutplantingEvent) error) (domain.OutplantingEvent, error) {
	current, ok := tx.state.events[id]
	if !ok {
		return domain.OutplantingEvent{}, fmt.Errorf("outplanting event %q not found", id)
	}
	before := cloneEvent(current)
	if err := mutator(&current); err != nil {
		return domain.OutplantingEvent{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.events[id] = cloneEvent(current)
	tx.recordChange(domain.Change{Entity: domain.EntityOutplantingEvent, Action: domain.ActionUpdate, Before: before, After: cloneEvent(current)})
	return cloneEvent(current), nil
}

// DeleteOutplantingEvent removes an event along with every monitoring
// submission referencing it. Rows are owned by the event and go with it.
func (tx *Transaction) DeleteOutplantingEvent(id string) error {
	current, ok := tx.state.events[id]
	if !ok {
		return fmt.Errorf("outplanting event %q not found", id)
	}
	delete(tx.state.events, id)
	tx.recordChange(domain.Change{Entity: domain.EntityOutplantingEvent, Action: domain.ActionDelete, Before: cloneEvent(current)})
	for subID, sub := range tx.state.submissions {
		if sub.EventID != id {
			continue
		}
		delete(tx.state.submissions, subID)
		tx.recordChange(domain.Change{Entity: domain.EntityMonitoringSubmission, Action: domain.ActionDelete, Before: cloneSubmission(sub)})
	}
	return nil
}

// CreateMonitoringSubmission stores a new monitoring submission.
func (tx *Transaction) CreateMonitoringSubmission(sub domain.MonitoringSubmission) (domain.MonitoringSubmission, error) {
	if sub.ID == "" {
		sub.ID = tx.store.newID()
	}
	if _, exists := tx.state.submissions[sub.ID]; exists {
		return domain.MonitoringSubmission{}, fmt.Errorf("monitoring submission %q already exists", sub.ID)
	}
	sub.CreatedAt = tx.now
	sub.UpdatedAt = tx.now
	tx.state.submissions[sub.ID] = cloneSubmission(sub)
	tx.recordChange(domain.Change{Entity: domain.EntityMonitoringSubmission, Action: domain.ActionCreate, After: cloneSubmission(sub)})
	return cloneSubmission(sub), nil
}

// UpdateMonitoringSubmission mutates an existing submission.
func (tx *Transaction) UpdateMonitoringSubmission(id string, mutator func(*domain.MonitoringSubmission) error) (domain.MonitoringSubmission, error) {
	current, ok := tx.state.submissions[id]
	if !ok {
		return domain.MonitoringSubmission{}, fmt.Errorf("monitoring submission %q not found", id)
	}
	before := cloneSubmission(current)
	if err := mutator(&current); err != nil {
		return domain.MonitoringSubmission{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.submissions[id] = cloneSubmission(current)
	tx.recordChange(domain.Change{Entity: domain.EntityMonitoringSubmission, Action: domain.ActionUpdate, Before: before, After: cloneSubmission(current)})
	return cloneSubmission(current), nil
}

// DeleteMonitoringSubmission removes a submission from the transaction state.
func (tx *Transaction) DeleteMonitoringSubmission(id string) error {
	current, ok := tx.state.submissions[id]
	if !ok {
		return fmt.Errorf("monitoring submission %q not found", id)
	}
	delete(tx.state.submissions, id)
	tx.recordChange(domain.Change{Entity: domain.EntityMonitoringSubmission, Action: domain.ActionDelete, Before: cloneSubmission(current)})
	return nil
}

// CreateUser stores a new user record.
func (tx *Transaction) CreateUser(u domain.User) (domain.User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return domain.User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = u
	tx.recordChange(domain.Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: u})
	return u, nil
}

// UpdateUser mutates an existing user record.
func (tx *Transaction) UpdateUser(id string, mutator func(*domain.User) error) (domain.User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("user %q not found", id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return domain.User{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.users[id] = current
	tx.recordChange(domain.Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteUser removes a user record.
func (tx *Transaction) DeleteUser(id string) error {
	current, ok := tx.state.users[id]
	if !ok {
		return fmt.Errorf("user %q not found", id)
	}
	delete(tx.state.users, id)
	tx.recordChange(domain.Change{Entity: domain.EntityUser, Action: domain.ActionDelete, Before: current})
	return nil
}

// FindOutplantingEvent retrieves an event within the transaction state.
func (tx *Transaction) FindOutplantingEvent(id string) (domain.OutplantingEvent, bool) {
	e, ok := tx.state.events[id]
	if !ok {
		return domain.OutplantingEvent{}, false
	}
	return cloneEvent(e), true
}

// FindUser retrieves a user within the transaction state.
func (tx *Transaction) FindUser(id string) (domain.User, bool) {
	u, ok := tx.state.users[id]
	return u, ok
}

// GetOutplantingEvent returns an event by id.
func (s *Store) GetOutplantingEvent(id string) (domain.OutplantingEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.events[id]
	if !ok {
		return domain.OutplantingEvent{}, false
	}
	return cloneEvent(e), true
}

// ListOutplantingEvents returns events within scope, ordered by id.
func (s *Store) ListOutplantingEvents(scope domain.Scope) []domain.OutplantingEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.OutplantingEvent, 0, len(s.state.events))
	for _, e := range s.state.events {
		if !scope.Allows(e.OwnerID) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetMonitoringSubmission returns a submission by id.
func (s *Store) GetMonitoringSubmission(id string) (domain.MonitoringSubmission, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.state.submissions[id]
	if !ok {
		return domain.MonitoringSubmission{}, false
	}
	return cloneSubmission(sub), true
}

// ListMonitoringSubmissions returns submissions within scope, ordered by id.
func (s *Store) ListMonitoringSubmissions(scope domain.Scope) []domain.MonitoringSubmission {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MonitoringSubmission, 0, len(s.state.submissions))
	for _, sub := range s.state.submissions {
		if !scope.Allows(sub.OwnerID) {
			continue
		}
		out = append(out, cloneSubmission(sub))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetUser returns a user by id.
func (s *Store) GetUser(id string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	return u, ok
}

// ListUsers returns all user records, ordered by id.
func (s *Store) ListUsers() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot captures the full store state for durable backends.
type Snapshot struct {
	Events      map[string]domain.OutplantingEvent     `json:"events"`
	Submissions map[string]domain.MonitoringSubmission `json:"submissions"`
	Users       map[string]domain.User                 `json:"users"`
}

// ExportState returns a deep copy of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned := s.state.clone()
	return Snapshot{Events: cloned.events, Submissions: cloned.submissions, Users: cloned.users}
}

// ImportState replaces the store state with the supplied snapshot. Nil maps
// hydrate as empty buckets.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := newState()
	for k, v := range snapshot.Events {
		next.events[k] = cloneEvent(v)
	}
	for k, v := range snapshot.Submissions {
		next.submissions[k] = cloneSubmission(v)
	}
	for k, v := range snapshot.Users {
		next.users[k] = v
	}
	s.state = next
}
