package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"reefcore/pkg/domain"
)

// Engine runs full reconciliation passes over an already-fetched snapshot of
// outplanting events and monitoring submissions. It owns no storage and makes
// no authorization decisions; callers hand it an input set already narrowed to
// their visibility.
type Engine struct {
	registry domain.SpeciesRegistry
	metrics  *Metrics
	workers  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSpeciesRegistry wires the external genetic registry consulted for exact
// tag-to-species resolution before the heuristic fallbacks.
func WithSpeciesRegistry(registry domain.SpeciesRegistry) Option {
	return func(e *Engine) { e.registry = registry }
}

// WithMetrics attaches a prometheus recorder to the engine.
func WithMetrics(metrics *Metrics) Option {
	return func(e *Engine) { e.metrics = metrics }
}

// WithWorkers sets the number of parallel per-event workers. Values below 2
// keep the pass sequential.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// New constructs an engine.
func New(opts ...Option) *Engine {
	e := &Engine{workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run computes one survival report per event that received at least one
// observation. Events referenced by submissions but absent from the baseline
// snapshot are excluded. Reports are returned sorted by event id so repeated
// runs over the same snapshot are byte-identical once serialized.
func (e *Engine) Run(ctx context.Context, events []domain.OutplantingEvent, submissions []domain.MonitoringSubmission) []domain.SurvivalReport {
	started := time.Now()
	defer func() { e.metrics.observePass(time.Since(started)) }()

	byEvent := make(map[string]domain.OutplantingEvent, len(events))
	for _, event := range events {
		byEvent[event.ID] = event
	}

	groups := GroupObservations(submissions)
	pending := make([]*ObservationGroup, 0, len(groups))
	for _, group := range groups {
		e.metrics.observeMalformedRows(group.MalformedRows)
		if _, ok := byEvent[group.EventID]; !ok {
			e.metrics.observeSkippedEvent()
			continue
		}
		pending = append(pending, group)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].EventID < pending[j].EventID })

	reports := make([]domain.SurvivalReport, 0, len(pending))
	if e.workers > 1 && len(pending) > 1 {
		reports = e.runParallel(ctx, byEvent, pending)
	} else {
		for _, group := range pending {
			if ctx.Err() != nil {
				break
			}
			if report, ok := e.reconcileEvent(byEvent[group.EventID], group); ok {
				reports = append(reports, report)
			}
		}
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].EventID < reports[j].EventID })
	return reports
}

// runParallel fans per-event reconciliation out to workers. Events share only
// the immutable snapshot, so no locking is needed beyond result collection.
func (e *Engine) runParallel(ctx context.Context, byEvent map[string]domain.OutplantingEvent, pending []*ObservationGroup) []domain.SurvivalReport {
	jobs := make(chan *ObservationGroup)
	var (
		mu      sync.Mutex
		reports []domain.SurvivalReport
		wg      sync.WaitGroup
	)
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for group := range jobs {
				report, ok := e.reconcileEvent(byEvent[group.EventID], group)
				if !ok {
					continue
				}
				mu.Lock()
				reports = append(reports, report)
				mu.Unlock()
			}
		}()
	}
	for _, group := range pending {
		if ctx.Err() != nil {
			break
		}
		jobs <- group
	}
	close(jobs)
	wg.Wait()
	return reports
}

func (e *Engine) reconcileEvent(event domain.OutplantingEvent, group *ObservationGroup) (domain.SurvivalReport, bool) {
	baseline := BuildBaselineIndex(event.Rows, e.registry)
	report, stats, ok := Reconcile(event.ID, baseline, group)
	if !ok {
		return domain.SurvivalReport{}, false
	}
	e.metrics.observeReport(stats)
	return report, true
}
