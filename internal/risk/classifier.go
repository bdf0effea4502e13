// Package risk combines the sentiment trajectory and compliance finding into
// a risk tier with traceable reasons.
package risk

import (
	"fmt"
	"time"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

// input bundles everything one rule may inspect.
type input struct {
	trajectory domain.SentimentTrajectory
	finding    domain.ComplianceFinding
	rules      config.RiskRules
}

// rule is one row of the priority-ordered table. The first matching rule per
// category contributes its tier and reason; the final tier is the worst
// contributed tier. Keeping the table explicit avoids the nested-conditional
// trap called out in the design notes.
type rule struct {
	tier  domain.RiskTier
	match func(in input) (domain.RiskReason, bool)
}

var ruleTable = []rule{
	{
		tier: domain.RiskTierBreach,
		match: func(in input) (domain.RiskReason, bool) {
			if in.finding.NoteState != domain.ComplianceBreach {
				return domain.RiskReason{}, false
			}
			return noteReason(in.finding), true
		},
	},
	{
		tier: domain.RiskTierBreach,
		match: func(in input) (domain.RiskReason, bool) {
			if in.finding.ResponseState != domain.ComplianceBreach {
				return domain.RiskReason{}, false
			}
			return responseReason(in.finding), true
		},
	},
	{
		tier: domain.RiskTierBreach,
		match: func(in input) (domain.RiskReason, bool) {
			latest, ok := in.trajectory.LatestScore()
			if !ok || in.trajectory.Trend != domain.TrendDeclining || latest > in.rules.SentimentDeclineFloor {
				return domain.RiskReason{}, false
			}
			return domain.RiskReason{
				Category: domain.ReasonSentiment,
				Message:  fmt.Sprintf("customer sentiment declining and latest score %.2f is at or below the %.2f floor", latest, in.rules.SentimentDeclineFloor),
			}, true
		},
	},
	{
		tier: domain.RiskTierAtRisk,
		match: func(in input) (domain.RiskReason, bool) {
			if in.finding.NoteState != domain.ComplianceWarning {
				return domain.RiskReason{}, false
			}
			return noteReason(in.finding), true
		},
	},
	{
		tier: domain.RiskTierAtRisk,
		match: func(in input) (domain.RiskReason, bool) {
			if in.finding.ResponseState != domain.ComplianceWarning {
				return domain.RiskReason{}, false
			}
			return responseReason(in.finding), true
		},
	},
	{
		tier: domain.RiskTierAtRisk,
		match: func(in input) (domain.RiskReason, bool) {
			latest, ok := in.trajectory.LatestScore()
			if in.trajectory.Trend != domain.TrendDeclining {
				return domain.RiskReason{}, false
			}
			if ok && latest <= in.rules.SentimentDeclineFloor {
				// already contributed as breach
				return domain.RiskReason{}, false
			}
			return domain.RiskReason{
				Category: domain.ReasonSentiment,
				Message:  fmt.Sprintf("customer sentiment declining (slope %.2f over last %d messages)", in.trajectory.Slope, in.rules.TrendWindow),
			}, true
		},
	},
}

// Classify evaluates the rule table top-down and assembles the assessment.
// Reasons keep table order, so the most severe cause always leads.
func Classify(caseID string, trajectory domain.SentimentTrajectory, finding domain.ComplianceFinding, rules config.RiskRules, now time.Time) domain.RiskAssessment {
	in := input{trajectory: trajectory, finding: finding, rules: rules}

	assessment := domain.RiskAssessment{
		CaseID:        caseID,
		Tier:          domain.RiskTierHealthy,
		Stale:         trajectory.Stale,
		EvaluatedAt:   now,
		CategoryTiers: map[domain.ReasonCategory]domain.RiskTier{},
	}

	for _, r := range ruleTable {
		reason, ok := r.match(in)
		if !ok {
			continue
		}
		assessment.Reasons = append(assessment.Reasons, reason)
		if tierRank(r.tier) > tierRank(assessment.Tier) {
			assessment.Tier = r.tier
		}
		if tierRank(r.tier) > tierRank(assessment.CategoryTiers[reason.Category]) {
			assessment.CategoryTiers[reason.Category] = r.tier
		}
	}
	return assessment
}

func tierRank(tier domain.RiskTier) int {
	switch tier {
	case domain.RiskTierBreach:
		return 3
	case domain.RiskTierAtRisk:
		return 2
	default:
		return 1
	}
}

// SeverityForTier maps a tier onto alert severity.
func SeverityForTier(tier domain.RiskTier) domain.AlertSeverity {
	if tier == domain.RiskTierBreach {
		return domain.AlertSeverityCritical
	}
	return domain.AlertSeverityWarning
}

func noteReason(finding domain.ComplianceFinding) domain.RiskReason {
	return domain.RiskReason{
		Category: domain.ReasonNoteGap,
		Message:  fmt.Sprintf("no case note update in %s", humanDays(finding.SinceLastNote)),
	}
}

func responseReason(finding domain.ComplianceFinding) domain.RiskReason {
	return domain.RiskReason{
		Category: domain.ReasonResponseGap,
		Message:  fmt.Sprintf("no engineer response to the customer in %s", humanDays(finding.SinceLastOutbound)),
	}
}

func humanDays(d time.Duration) string {
	days := int(d.Hours() / 24)
	switch {
	case days >= 2:
		return fmt.Sprintf("%d days", days)
	case days == 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d hours", int(d.Hours()))
	}
}
