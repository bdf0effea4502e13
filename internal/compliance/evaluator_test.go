package compliance

import (
	"testing"
	"time"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

var testNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

func testCase(age time.Duration) domain.Case {
	return domain.Case{
		ID:         "case-1",
		CreatedAt:  testNow.Add(-age),
		EngineerID: "eng-1",
	}
}

func note(age time.Duration) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:         "note",
		CaseID:     "case-1",
		Kind:       domain.EventKindInternalNote,
		OccurredAt: testNow.Add(-age),
	}
}

func outbound(age time.Duration) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:         "reply",
		CaseID:     "case-1",
		Kind:       domain.EventKindCustomerMessage,
		OccurredAt: testNow.Add(-age),
		Outbound:   true,
	}
}

func TestEvaluate_NoteDimension(t *testing.T) {
	rules := config.DefaultRiskRules() // warning 120h, breach 168h

	tests := []struct {
		name    string
		caseAge time.Duration
		events  []domain.TimelineEvent
		want    domain.ComplianceState
	}{
		{"fresh note is ok", 30 * 24 * time.Hour, []domain.TimelineEvent{note(24 * time.Hour)}, domain.ComplianceOK},
		{"five day old note warns", 30 * 24 * time.Hour, []domain.TimelineEvent{note(121 * time.Hour)}, domain.ComplianceWarning},
		{"ten day old note breaches", 30 * 24 * time.Hour, []domain.TimelineEvent{note(10 * 24 * time.Hour)}, domain.ComplianceBreach},
		{"no notes at all: silence from creation breaches", 10 * 24 * time.Hour, nil, domain.ComplianceBreach},
		{"no notes on young case is ok", 24 * time.Hour, nil, domain.ComplianceOK},
		{"exactly at warning threshold warns", 30 * 24 * time.Hour, []domain.TimelineEvent{note(120 * time.Hour)}, domain.ComplianceWarning},
		{"exactly at breach threshold breaches", 30 * 24 * time.Hour, []domain.TimelineEvent{note(168 * time.Hour)}, domain.ComplianceBreach},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding := Evaluate(testCase(tt.caseAge), tt.events, testNow, rules)
			if finding.NoteState != tt.want {
				t.Errorf("NoteState = %s, want %s (elapsed %s)", finding.NoteState, tt.want, finding.SinceLastNote)
			}
		})
	}
}

func TestEvaluate_ResponseDimension(t *testing.T) {
	rules := config.DefaultRiskRules() // breach 48h, warning 24h

	tests := []struct {
		name    string
		caseAge time.Duration
		events  []domain.TimelineEvent
		want    domain.ComplianceState
	}{
		{"recent reply is ok", 30 * 24 * time.Hour, []domain.TimelineEvent{outbound(2 * time.Hour)}, domain.ComplianceOK},
		{"day old reply warns", 30 * 24 * time.Hour, []domain.TimelineEvent{outbound(30 * time.Hour)}, domain.ComplianceWarning},
		{"three day old reply breaches", 30 * 24 * time.Hour, []domain.TimelineEvent{outbound(72 * time.Hour)}, domain.ComplianceBreach},
		{"no outbound ever: measured from creation", 72 * time.Hour, nil, domain.ComplianceBreach},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finding := Evaluate(testCase(tt.caseAge), tt.events, testNow, rules)
			if finding.ResponseState != tt.want {
				t.Errorf("ResponseState = %s, want %s (elapsed %s)", finding.ResponseState, tt.want, finding.SinceLastOutbound)
			}
		})
	}
}

func TestEvaluate_DimensionsAreIndependent(t *testing.T) {
	rules := config.DefaultRiskRules()

	// Ten day old case: note ten days ago, fresh engineer reply.
	events := []domain.TimelineEvent{
		note(10 * 24 * time.Hour),
		outbound(1 * time.Hour),
	}
	finding := Evaluate(testCase(10*24*time.Hour), events, testNow, rules)

	if finding.NoteState != domain.ComplianceBreach {
		t.Errorf("NoteState = %s, want BREACH", finding.NoteState)
	}
	if finding.ResponseState != domain.ComplianceOK {
		t.Errorf("ResponseState = %s, want OK", finding.ResponseState)
	}
	if finding.Worst() != domain.ComplianceBreach {
		t.Errorf("Worst() = %s, want BREACH", finding.Worst())
	}
}

func TestEvaluate_ScansBackwardForLatest(t *testing.T) {
	rules := config.DefaultRiskRules()

	// An old note followed by a recent one: the recent one governs.
	events := []domain.TimelineEvent{
		note(10 * 24 * time.Hour),
		note(2 * time.Hour),
	}
	finding := Evaluate(testCase(30*24*time.Hour), events, testNow, rules)
	if finding.NoteState != domain.ComplianceOK {
		t.Errorf("NoteState = %s, want OK: latest note should govern", finding.NoteState)
	}
	if finding.SinceLastNote != 2*time.Hour {
		t.Errorf("SinceLastNote = %s, want 2h", finding.SinceLastNote)
	}
}

func TestEvaluate_CustomerMessagesDoNotSatisfyEitherDimension(t *testing.T) {
	rules := config.DefaultRiskRules()

	events := []domain.TimelineEvent{
		{ID: "c1", Kind: domain.EventKindCustomerMessage, OccurredAt: testNow.Add(-time.Hour)},
	}
	finding := Evaluate(testCase(10*24*time.Hour), events, testNow, rules)
	if finding.ResponseState != domain.ComplianceBreach {
		t.Errorf("inbound customer message must not count as engineer response, got %s", finding.ResponseState)
	}
	if finding.NoteState != domain.ComplianceBreach {
		t.Errorf("inbound customer message must not count as a note, got %s", finding.NoteState)
	}
}
