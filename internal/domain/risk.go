package domain

import "time"

// RiskTier classifies a case's current state.
type RiskTier string

const (
	RiskTierHealthy RiskTier = "HEALTHY"
	RiskTierAtRisk  RiskTier = "AT_RISK"
	RiskTierBreach  RiskTier = "BREACH"
)

// ReasonCategory groups contributing reasons for alert routing and coaching.
type ReasonCategory string

const (
	ReasonSentiment   ReasonCategory = "SENTIMENT"
	ReasonResponseGap ReasonCategory = "RESPONSE_GAP"
	ReasonNoteGap     ReasonCategory = "NOTE_GAP"
)

// RiskReason is one contributing cause, in priority order. The Message is
// reused verbatim by alerts and coaching output.
type RiskReason struct {
	Category ReasonCategory `json:"category"`
	Message  string         `json:"message"`
}

// RiskAssessment is the derived classification of one case at one instant.
// Stale marks an assessment carried forward after a failed or degraded
// evaluation; a stale assessment is never silently reset to healthy.
type RiskAssessment struct {
	CaseID      string       `json:"case_id"`
	Tier        RiskTier     `json:"tier"`
	Reasons     []RiskReason `json:"reasons"`
	Stale       bool         `json:"stale"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
	// CategoryTiers records the worst tier contributed per reason category;
	// the alert step derives per-kind severity from it.
	CategoryTiers map[ReasonCategory]RiskTier `json:"-"`
}

// ReasonsFor returns the reasons matching a category, preserving order.
func (a RiskAssessment) ReasonsFor(category ReasonCategory) []RiskReason {
	var out []RiskReason
	for _, r := range a.Reasons {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out
}
