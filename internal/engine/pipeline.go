// Package engine runs the per-case evaluation pipeline and schedules it
// across the open-case population.
package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/alerting"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/coaching"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/compliance"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/observability"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/repository"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/risk"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/sentiment"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/source"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/timeline"
)

// PipelineDependencies bundles collaborators for the pipeline.
type PipelineDependencies struct {
	Source      source.CaseSource
	Analyzer    *sentiment.Analyzer
	Machine     *alerting.StateMachine
	Composer    *coaching.Composer
	Assessments repository.AssessmentRepository
	Rules       *config.RulesProvider
	Snapshots   *SnapshotStore
	Logger      *zap.Logger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Pipeline evaluates one case at a time: normalize, sentiment, compliance,
// classify, alert step, coaching, strictly in sequence within a case.
type Pipeline struct {
	source      source.CaseSource
	analyzer    *sentiment.Analyzer
	machine     *alerting.StateMachine
	composer    *coaching.Composer
	assessments repository.AssessmentRepository
	rules       *config.RulesProvider
	snapshots   *SnapshotStore
	logger      *zap.Logger
	now         func() time.Time
}

// NewPipeline constructs the pipeline.
func NewPipeline(deps PipelineDependencies) *Pipeline {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{
		source:      deps.Source,
		analyzer:    deps.Analyzer,
		machine:     deps.Machine,
		composer:    deps.Composer,
		assessments: deps.Assessments,
		rules:       deps.Rules,
		snapshots:   deps.Snapshots,
		logger:      deps.Logger,
		now:         now,
	}
}

// EvaluateCase runs the full pipeline for one case. Failures are isolated to
// the case: the error is returned for reporting, the last-known assessment
// is marked stale, and no partial alert state is left behind.
func (p *Pipeline) EvaluateCase(ctx context.Context, c domain.Case) (Snapshot, error) {
	started := p.now()
	rules := p.rules.Rules()

	snapshot, err := p.evaluate(ctx, c, rules)
	duration := p.now().Sub(started)
	switch {
	case err != nil:
		observability.ObserveEvaluation(observability.OutcomeError, duration)
		p.markStale(ctx, c.ID)
		return Snapshot{}, err
	case snapshot.Assessment.Stale:
		observability.ObserveEvaluation(observability.OutcomeDegraded, duration)
	default:
		observability.ObserveEvaluation(observability.OutcomeSuccess, duration)
	}

	p.snapshots.Put(snapshot)
	return snapshot, nil
}

func (p *Pipeline) evaluate(ctx context.Context, c domain.Case, rules config.RiskRules) (Snapshot, error) {
	records, err := p.source.ListActivity(ctx, c.ID)
	if err != nil {
		return Snapshot{}, stageError("fetch", err)
	}

	events, err := timeline.Normalize(c.ID, records)
	if err != nil {
		return Snapshot{}, stageError("normalize", err)
	}

	trajectory, err := p.analyzer.Analyze(ctx, c.ID, events, rules)
	if err != nil {
		return Snapshot{}, stageError("sentiment", err)
	}

	now := p.now()
	finding := compliance.Evaluate(c, events, now, rules)
	assessment := risk.Classify(c.ID, trajectory, finding, rules, now)

	openAlerts, err := p.machine.Apply(ctx, c, assessment)
	if err != nil {
		return Snapshot{}, stageError("alerting", err)
	}

	if err := p.assessments.Upsert(ctx, assessment); err != nil {
		return Snapshot{}, stageError("persist", err)
	}

	recommendation := p.composer.Compose(ctx, c, assessment, openAlerts)

	return Snapshot{
		Case:           c,
		Assessment:     assessment,
		Finding:        finding,
		Trajectory:     trajectory,
		OpenAlerts:     openAlerts,
		Recommendation: recommendation,
	}, nil
}

// markStale surfaces the last-known tier as stale rather than resetting it.
func (p *Pipeline) markStale(ctx context.Context, caseID string) {
	p.snapshots.MarkStale(caseID)
	if err := p.assessments.MarkStale(ctx, caseID); err != nil {
		p.logger.Warn("failed to flag assessment stale", zap.String("case_id", caseID), zap.Error(err))
	}
}

// stageError tags an error with the pipeline stage for per-case reporting.
type stageErrorT struct {
	stage string
	err   error
}

func stageError(stage string, err error) error {
	return &stageErrorT{stage: stage, err: err}
}

func (e *stageErrorT) Error() string {
	return e.stage + ": " + e.err.Error()
}

func (e *stageErrorT) Unwrap() error {
	return e.err
}

// Stage extracts the failing stage name, or "unknown".
func Stage(err error) string {
	var se *stageErrorT
	if errors.As(err, &se) {
		return se.stage
	}
	return "unknown"
}
