package dto

import (
	"time"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

// RiskResponse is the query surface view of a RiskAssessment.
type RiskResponse struct {
	CaseID      string              `json:"case_id"`
	Tier        domain.RiskTier     `json:"tier"`
	Reasons     []domain.RiskReason `json:"reasons"`
	Stale       bool                `json:"stale"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
	Summary     string              `json:"summary,omitempty"`
	Actions     []string            `json:"actions,omitempty"`
	Coaching    string              `json:"coaching,omitempty"`
}

// ComplianceResponse is the query surface view of a ComplianceFinding.
type ComplianceResponse struct {
	CaseID               string                 `json:"case_id"`
	EvaluatedAt          time.Time              `json:"evaluated_at"`
	SinceLastOutboundSec float64                `json:"since_last_outbound_seconds"`
	ResponseState        domain.ComplianceState `json:"response_state"`
	SinceLastNoteSec     float64                `json:"since_last_note_seconds"`
	NoteState            domain.ComplianceState `json:"note_state"`
}

// SentimentResponse is the query surface view of a SentimentTrajectory.
type SentimentResponse struct {
	CaseID     string                   `json:"case_id"`
	Samples    []domain.SentimentSample `json:"samples"`
	Trend      domain.TrendDirection    `json:"trend"`
	Slope      float64                  `json:"slope"`
	Volatility float64                  `json:"volatility"`
	Stale      bool                     `json:"stale"`
}

// AlertSummary is the query surface view of an open Alert.
type AlertSummary struct {
	ID         string               `json:"id"`
	CaseID     string               `json:"case_id"`
	EngineerID string               `json:"engineer_id"`
	Kind       domain.AlertKind     `json:"kind"`
	Severity   domain.AlertSeverity `json:"severity"`
	Message    string               `json:"message"`
	CreatedAt  time.Time            `json:"created_at"`
}
