package domain

import "time"

// CaseStatus enumerates lifecycle states for support cases.
type CaseStatus string

const (
	CaseStatusOpen        CaseStatus = "OPEN"
	CaseStatusInProgress  CaseStatus = "IN_PROGRESS"
	CaseStatusPendingUser CaseStatus = "PENDING_USER"
	CaseStatusResolved    CaseStatus = "RESOLVED"
	CaseStatusClosed      CaseStatus = "CLOSED"
)

// CasePriority enumerates SLA urgency.
type CasePriority string

const (
	CasePriorityLow    CasePriority = "LOW"
	CasePriorityMedium CasePriority = "MEDIUM"
	CasePriorityHigh   CasePriority = "HIGH"
	CasePriorityUrgent CasePriority = "URGENT"
)

// Case is a support case as supplied by the external case source.
// The engine only reads it; lifecycle is owned upstream.
type Case struct {
	ID         string
	Title      string
	Status     CaseStatus
	Priority   CasePriority
	EngineerID string
	CustomerID string
	CreatedAt  time.Time
	ModifiedAt time.Time
}
