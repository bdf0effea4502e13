package domain

import "time"

// AlertKind maps one-to-one onto reason categories.
type AlertKind string

const (
	AlertKindSentiment   AlertKind = "SENTIMENT"
	AlertKindResponseGap AlertKind = "RESPONSE_GAP"
	AlertKindNoteGap     AlertKind = "NOTE_GAP"
)

// AlertSeverity ranks open alerts.
type AlertSeverity string

const (
	AlertSeverityWarning  AlertSeverity = "WARNING"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// Alert is the mutable record of one triggered condition on a case.
// Invariant: at most one unresolved Alert exists per (case, kind).
type Alert struct {
	ID         string
	CaseID     string
	EngineerID string
	Kind       AlertKind
	Severity   AlertSeverity
	Message    string
	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Open reports whether the alert is still unresolved.
func (a Alert) Open() bool {
	return a.ResolvedAt == nil
}

// AlertKindForCategory maps a reason category to its alert kind.
func AlertKindForCategory(category ReasonCategory) AlertKind {
	switch category {
	case ReasonResponseGap:
		return AlertKindResponseGap
	case ReasonNoteGap:
		return AlertKindNoteGap
	default:
		return AlertKindSentiment
	}
}

// SeverityRank orders severities for escalation comparisons.
func SeverityRank(s AlertSeverity) int {
	if s == AlertSeverityCritical {
		return 2
	}
	return 1
}
