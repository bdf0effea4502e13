package domain

import "time"

// EventKind differentiates timeline activity types.
type EventKind string

const (
	EventKindCustomerMessage EventKind = "CUSTOMER_MESSAGE"
	EventKindInternalNote    EventKind = "INTERNAL_NOTE"
	EventKindCallSummary     EventKind = "CALL_SUMMARY"
)

// TimelineEvent is a single immutable activity record on a case,
// normalized from the heterogeneous source representation. Events are
// totally ordered by OccurredAt, ties broken by insertion order.
type TimelineEvent struct {
	ID         string
	CaseID     string
	Kind       EventKind
	Text       string
	Author     string
	OccurredAt time.Time
	// Outbound is true when the event was sent by the owning engineer
	// toward the customer.
	Outbound bool
}

// IsCustomerAuthored reports whether the event carries customer text
// eligible for sentiment classification.
func (e TimelineEvent) IsCustomerAuthored() bool {
	return e.Kind == EventKindCustomerMessage && !e.Outbound
}
