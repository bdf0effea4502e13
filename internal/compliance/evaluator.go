// Package compliance applies duration-based cadence rules to a normalized
// case timeline. Evaluation is deterministic: no clocks, no external calls.
package compliance

import (
	"time"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

// Evaluate classifies the response-gap and note-gap dimensions for a case at
// the supplied instant. Each dimension classifies independently. A case with
// zero qualifying events in a dimension measures elapsed time from case
// creation: silence itself is the signal.
func Evaluate(c domain.Case, events []domain.TimelineEvent, now time.Time, rules config.RiskRules) domain.ComplianceFinding {
	finding := domain.ComplianceFinding{
		CaseID:      c.ID,
		EvaluatedAt: now,
	}

	lastOutbound := lastMatching(events, func(e domain.TimelineEvent) bool {
		return e.Outbound
	})
	lastNote := lastMatching(events, func(e domain.TimelineEvent) bool {
		return e.Kind == domain.EventKindInternalNote
	})

	finding.SinceLastOutbound = elapsedSince(lastOutbound, c.CreatedAt, now)
	finding.ResponseState = classify(finding.SinceLastOutbound, rules.ResponseGapWarning(), rules.ResponseGapBreach)

	finding.SinceLastNote = elapsedSince(lastNote, c.CreatedAt, now)
	finding.NoteState = classify(finding.SinceLastNote, rules.NoteGapWarning, rules.NoteGapBreach)

	return finding
}

// lastMatching scans backward for the most recent event satisfying match.
func lastMatching(events []domain.TimelineEvent, match func(domain.TimelineEvent) bool) *domain.TimelineEvent {
	for i := len(events) - 1; i >= 0; i-- {
		if match(events[i]) {
			return &events[i]
		}
	}
	return nil
}

func elapsedSince(event *domain.TimelineEvent, createdAt, now time.Time) time.Duration {
	anchor := createdAt
	if event != nil {
		anchor = event.OccurredAt
	}
	elapsed := now.Sub(anchor)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func classify(elapsed, warning, breach time.Duration) domain.ComplianceState {
	switch {
	case elapsed >= breach:
		return domain.ComplianceBreach
	case elapsed >= warning:
		return domain.ComplianceWarning
	default:
		return domain.ComplianceOK
	}
}
