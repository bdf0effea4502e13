package domain

import "time"

// ComplianceState classifies one cadence dimension.
type ComplianceState string

const (
	ComplianceOK      ComplianceState = "OK"
	ComplianceWarning ComplianceState = "WARNING"
	ComplianceBreach  ComplianceState = "BREACH"
)

// ComplianceFinding is the per-case result of the cadence rules. Each
// dimension classifies independently; a case with no qualifying events in
// a dimension measures elapsed time from case creation.
type ComplianceFinding struct {
	CaseID            string
	EvaluatedAt       time.Time
	SinceLastOutbound time.Duration
	ResponseState     ComplianceState
	SinceLastNote     time.Duration
	NoteState         ComplianceState
}

// Worst returns the more severe of the two dimension states.
func (f ComplianceFinding) Worst() ComplianceState {
	if f.ResponseState == ComplianceBreach || f.NoteState == ComplianceBreach {
		return ComplianceBreach
	}
	if f.ResponseState == ComplianceWarning || f.NoteState == ComplianceWarning {
		return ComplianceWarning
	}
	return ComplianceOK
}
