package risk

import (
	"strings"
	"testing"
	"time"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

var testNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

func okFinding() domain.ComplianceFinding {
	return domain.ComplianceFinding{
		CaseID:        "case-1",
		EvaluatedAt:   testNow,
		ResponseState: domain.ComplianceOK,
		NoteState:     domain.ComplianceOK,
	}
}

func samples(scores ...float64) []domain.SentimentSample {
	out := make([]domain.SentimentSample, len(scores))
	for i, score := range scores {
		out[i] = domain.SentimentSample{EventID: "e", Score: score, OccurredAt: testNow}
	}
	return out
}

func TestClassify_Tiers(t *testing.T) {
	rules := config.DefaultRiskRules()

	tests := []struct {
		name       string
		trajectory domain.SentimentTrajectory
		finding    domain.ComplianceFinding
		wantTier   domain.RiskTier
	}{
		{
			name:       "all quiet is healthy",
			trajectory: domain.SentimentTrajectory{Trend: domain.TrendStable, Samples: samples(0.4, 0.5)},
			finding:    okFinding(),
			wantTier:   domain.RiskTierHealthy,
		},
		{
			name:       "note breach dominates",
			trajectory: domain.SentimentTrajectory{Trend: domain.TrendStable},
			finding: func() domain.ComplianceFinding {
				f := okFinding()
				f.NoteState = domain.ComplianceBreach
				f.SinceLastNote = 10 * 24 * time.Hour
				return f
			}(),
			wantTier: domain.RiskTierBreach,
		},
		{
			name:       "response warning is at-risk",
			trajectory: domain.SentimentTrajectory{Trend: domain.TrendStable},
			finding: func() domain.ComplianceFinding {
				f := okFinding()
				f.ResponseState = domain.ComplianceWarning
				f.SinceLastOutbound = 30 * time.Hour
				return f
			}(),
			wantTier: domain.RiskTierAtRisk,
		},
		{
			name:       "declining above floor is at-risk",
			trajectory: domain.SentimentTrajectory{Trend: domain.TrendDeclining, Slope: -0.2, Samples: samples(0.5, 0.3, 0.1)},
			finding:    okFinding(),
			wantTier:   domain.RiskTierAtRisk,
		},
		{
			name:       "declining below floor is breach",
			trajectory: domain.SentimentTrajectory{Trend: domain.TrendDeclining, Slope: -0.55, Samples: samples(0.6, 0.1, -0.5)},
			finding:    okFinding(),
			wantTier:   domain.RiskTierBreach,
		},
		{
			name:       "improving trend alone never raises risk",
			trajectory: domain.SentimentTrajectory{Trend: domain.TrendImproving, Slope: 0.3, Samples: samples(-0.5, -0.1, 0.3)},
			finding:    okFinding(),
			wantTier:   domain.RiskTierHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assessment := Classify("case-1", tt.trajectory, tt.finding, rules, testNow)
			if assessment.Tier != tt.wantTier {
				t.Errorf("Tier = %s, want %s (reasons: %v)", assessment.Tier, tt.wantTier, assessment.Reasons)
			}
		})
	}
}

func TestClassify_NoteBreachReasonWording(t *testing.T) {
	rules := config.DefaultRiskRules()

	finding := okFinding()
	finding.NoteState = domain.ComplianceBreach
	finding.SinceLastNote = 10 * 24 * time.Hour
	finding.ResponseState = domain.ComplianceBreach
	finding.SinceLastOutbound = 10 * 24 * time.Hour

	assessment := Classify("case-1", domain.SentimentTrajectory{Trend: domain.TrendUnknown}, finding, rules, testNow)

	if assessment.Tier != domain.RiskTierBreach {
		t.Fatalf("Tier = %s, want BREACH", assessment.Tier)
	}
	var found bool
	for _, reason := range assessment.Reasons {
		if reason.Message == "no case note update in 10 days" {
			found = true
		}
	}
	if !found {
		t.Errorf("reasons %v missing %q", assessment.Reasons, "no case note update in 10 days")
	}
}

func TestClassify_ReasonsKeepPriorityOrder(t *testing.T) {
	rules := config.DefaultRiskRules()

	finding := okFinding()
	finding.NoteState = domain.ComplianceBreach
	finding.SinceLastNote = 8 * 24 * time.Hour
	finding.ResponseState = domain.ComplianceWarning
	finding.SinceLastOutbound = 30 * time.Hour

	trajectory := domain.SentimentTrajectory{Trend: domain.TrendDeclining, Slope: -0.2, Samples: samples(0.5, 0.3, 0.1)}
	assessment := Classify("case-1", trajectory, finding, rules, testNow)

	if len(assessment.Reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %d: %v", len(assessment.Reasons), assessment.Reasons)
	}
	// Breach-tier causes come first.
	if assessment.Reasons[0].Category != domain.ReasonNoteGap {
		t.Errorf("leading reason = %s, want NOTE_GAP", assessment.Reasons[0].Category)
	}
	if assessment.CategoryTiers[domain.ReasonNoteGap] != domain.RiskTierBreach {
		t.Errorf("note gap category tier = %s, want BREACH", assessment.CategoryTiers[domain.ReasonNoteGap])
	}
	if assessment.CategoryTiers[domain.ReasonResponseGap] != domain.RiskTierAtRisk {
		t.Errorf("response gap category tier = %s, want AT_RISK", assessment.CategoryTiers[domain.ReasonResponseGap])
	}
}

func TestClassify_SentimentReasonNotDuplicatedAcrossTiers(t *testing.T) {
	rules := config.DefaultRiskRules()

	trajectory := domain.SentimentTrajectory{Trend: domain.TrendDeclining, Slope: -0.55, Samples: samples(0.6, 0.1, -0.5)}
	assessment := Classify("case-1", trajectory, okFinding(), rules, testNow)

	sentimentReasons := assessment.ReasonsFor(domain.ReasonSentiment)
	if len(sentimentReasons) != 1 {
		t.Fatalf("expected exactly 1 sentiment reason, got %d: %v", len(sentimentReasons), sentimentReasons)
	}
	if !strings.Contains(sentimentReasons[0].Message, "floor") {
		t.Errorf("breach-tier sentiment reason should mention the floor, got %q", sentimentReasons[0].Message)
	}
}

func TestClassify_StaleTrajectoryPropagates(t *testing.T) {
	rules := config.DefaultRiskRules()
	trajectory := domain.SentimentTrajectory{Trend: domain.TrendUnknown, Stale: true}
	assessment := Classify("case-1", trajectory, okFinding(), rules, testNow)
	if !assessment.Stale {
		t.Error("assessment should inherit trajectory staleness")
	}
}

func TestSeverityForTier(t *testing.T) {
	if SeverityForTier(domain.RiskTierBreach) != domain.AlertSeverityCritical {
		t.Error("breach should map to critical")
	}
	if SeverityForTier(domain.RiskTierAtRisk) != domain.AlertSeverityWarning {
		t.Error("at-risk should map to warning")
	}
}
