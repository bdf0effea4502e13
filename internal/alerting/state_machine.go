// Package alerting owns the per-(case, kind) alert lifecycle: opening,
// escalating, and resolving alerts while guaranteeing at most one open alert
// per pair.
package alerting

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/observability"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/repository"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// alertKinds is the fixed set of per-case alert dimensions.
var alertKinds = []domain.AlertKind{
	domain.AlertKindSentiment,
	domain.AlertKindResponseGap,
	domain.AlertKindNoteGap,
}

// keyedLocks serializes transitions per (case, kind). Overlapping schedule
// ticks and on-demand triggers for the same case contend here instead of on
// a global lock.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// StateMachine applies risk assessments to the alert store. It never sends
// notifications itself beyond handing payloads to the Notifier, so delivery
// failure stays decoupled from risk-state correctness.
type StateMachine struct {
	alerts   repository.AlertRepository
	notifier Notifier
	logger   *zap.Logger
	locks    *keyedLocks
}

// NewStateMachine constructs the state machine.
func NewStateMachine(alerts repository.AlertRepository, notifier Notifier, logger *zap.Logger) *StateMachine {
	return &StateMachine{
		alerts:   alerts,
		notifier: notifier,
		logger:   logger,
		locks:    newKeyedLocks(),
	}
}

// Apply reconciles the alert set of one case against a fresh assessment and
// returns the open alerts afterwards. Each (case, kind) transition commits
// atomically; cancellation between kinds leaves no partial alert state.
func (m *StateMachine) Apply(ctx context.Context, c domain.Case, assessment domain.RiskAssessment) ([]domain.Alert, error) {
	for _, kind := range alertKinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.step(ctx, c, assessment, kind); err != nil {
			return nil, err
		}
	}
	return m.alerts.ListOpenByCase(ctx, c.ID)
}

func (m *StateMachine) step(ctx context.Context, c domain.Case, assessment domain.RiskAssessment, kind domain.AlertKind) error {
	unlock := m.locks.lock(c.ID + "|" + string(kind))
	defer unlock()

	desired, triggered := desiredState(assessment, kind)

	current, err := m.alerts.GetOpen(ctx, c.ID, kind)
	if err != nil {
		return err
	}

	switch {
	case triggered && current == nil:
		return m.open(ctx, c, kind, desired)
	case triggered:
		return m.escalate(ctx, current, desired)
	case current != nil:
		// A stale sentiment series says nothing about whether the
		// condition cleared, so it never closes a sentiment alert.
		if kind == domain.AlertKindSentiment && assessment.Stale {
			return nil
		}
		return m.resolve(ctx, current, assessment.EvaluatedAt)
	default:
		return nil
	}
}

// desiredAlert captures what an open alert for a kind should look like.
type desiredAlert struct {
	severity domain.AlertSeverity
	message  string
}

// desiredState derives the target alert for a kind from the assessment.
// Reasons are reused verbatim as the alert message.
func desiredState(assessment domain.RiskAssessment, kind domain.AlertKind) (desiredAlert, bool) {
	for _, reason := range assessment.Reasons {
		if domain.AlertKindForCategory(reason.Category) != kind {
			continue
		}
		tier := assessment.CategoryTiers[reason.Category]
		if tier != domain.RiskTierAtRisk && tier != domain.RiskTierBreach {
			continue
		}
		severity := domain.AlertSeverityWarning
		if tier == domain.RiskTierBreach {
			severity = domain.AlertSeverityCritical
		}
		return desiredAlert{severity: severity, message: reason.Message}, true
	}
	return desiredAlert{}, false
}

func (m *StateMachine) open(ctx context.Context, c domain.Case, kind domain.AlertKind, desired desiredAlert) error {
	alert := &domain.Alert{
		CaseID:     c.ID,
		EngineerID: c.EngineerID,
		Kind:       kind,
		Severity:   desired.severity,
		Message:    desired.message,
	}
	if err := m.alerts.Create(ctx, alert); err != nil {
		if errorutil.IsCode(err, errorutil.CodeConcurrencyConflict) {
			// A concurrent evaluation opened the alert first. Retry once
			// against latest state instead of overwriting blindly.
			m.logger.Warn("alert open raced; retrying against latest state",
				zap.String("case_id", c.ID), zap.String("kind", string(kind)))
			current, getErr := m.alerts.GetOpen(ctx, c.ID, kind)
			if getErr != nil {
				return getErr
			}
			if current == nil {
				return err
			}
			return m.escalate(ctx, current, desired)
		}
		return err
	}

	observability.ObserveAlertTransition(string(kind), "open")
	m.notify(ctx, m.notifier.AlertRaised, c, *alert)
	return nil
}

func (m *StateMachine) escalate(ctx context.Context, current *domain.Alert, desired desiredAlert) error {
	if current.Severity == desired.severity && current.Message == desired.message {
		return nil
	}
	escalated := domain.SeverityRank(desired.severity) > domain.SeverityRank(current.Severity)

	if err := m.alerts.UpdateSeverity(ctx, current.ID, desired.severity, desired.message); err != nil {
		return err
	}
	current.Severity = desired.severity
	current.Message = desired.message

	if escalated {
		observability.ObserveAlertTransition(string(current.Kind), "escalate")
		m.notify(ctx, m.notifier.AlertEscalated, domain.Case{ID: current.CaseID, EngineerID: current.EngineerID}, *current)
	}
	return nil
}

func (m *StateMachine) resolve(ctx context.Context, current *domain.Alert, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	if err := m.alerts.Resolve(ctx, current.ID, at); err != nil {
		if errorutil.IsCode(err, errorutil.CodeConcurrencyConflict) {
			// Already resolved by a concurrent evaluation; the target state
			// is reached either way.
			return nil
		}
		return err
	}
	observability.ObserveAlertTransition(string(current.Kind), "resolve")
	return nil
}

// notify hands a payload to the collaborator. Failure is logged and dropped:
// the transition has already committed.
func (m *StateMachine) notify(ctx context.Context, send func(context.Context, Notification) error, c domain.Case, alert domain.Alert) {
	payload := Notification{
		CaseID:     alert.CaseID,
		EngineerID: c.EngineerID,
		Kind:       alert.Kind,
		Severity:   alert.Severity,
		Message:    alert.Message,
		Timestamp:  time.Now().UTC(),
	}
	if err := send(ctx, payload); err != nil {
		observability.ObserveCollaboratorFailure("notifier")
		m.logger.Warn("alert notification delivery failed",
			zap.String("case_id", alert.CaseID),
			zap.String("kind", string(alert.Kind)),
			zap.Error(err))
	}
}
