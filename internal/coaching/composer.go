// Package coaching turns a risk assessment into a structured, human-readable
// recommendation for the owning engineer.
package coaching

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/observability"
)

// Recommendation is the composer output: a skeleton that is always
// producible, optionally elaborated for phrasing.
type Recommendation struct {
	CaseID string `json:"case_id"`
	// Summary names the tier and leading cause.
	Summary string `json:"summary"`
	// Actions are ranked next steps, one per contributing reason.
	Actions []string `json:"actions"`
	// Elaborated is the generative rewrite of the skeleton; empty when the
	// collaborator is unavailable or not configured.
	Elaborated string `json:"elaborated,omitempty"`
}

// Composer builds recommendations from assessments and open alerts.
type Composer struct {
	elaborator Elaborator
	logger     *zap.Logger
}

// NewComposer constructs the composer. The elaborator may be nil.
func NewComposer(elaborator Elaborator, logger *zap.Logger) *Composer {
	return &Composer{elaborator: elaborator, logger: logger}
}

// Compose builds the skeleton and, when possible, enriches its phrasing.
// Enrichment is additive: any elaborator failure returns the plain skeleton.
func (c *Composer) Compose(ctx context.Context, caseMeta domain.Case, assessment domain.RiskAssessment, openAlerts []domain.Alert) Recommendation {
	rec := Recommendation{
		CaseID:  caseMeta.ID,
		Summary: summarize(caseMeta, assessment, openAlerts),
		Actions: rankedActions(assessment),
	}

	if c.elaborator == nil || assessment.Tier == domain.RiskTierHealthy {
		return rec
	}

	elaborated, err := c.elaborator.Elaborate(ctx, skeletonPrompt(rec))
	if err != nil {
		observability.ObserveCollaboratorFailure("generative")
		c.logger.Warn("coaching elaboration failed; serving skeleton",
			zap.String("case_id", caseMeta.ID), zap.Error(err))
		return rec
	}
	rec.Elaborated = strings.TrimSpace(elaborated)
	return rec
}

func summarize(caseMeta domain.Case, assessment domain.RiskAssessment, openAlerts []domain.Alert) string {
	var b strings.Builder
	switch assessment.Tier {
	case domain.RiskTierBreach:
		fmt.Fprintf(&b, "Case %q needs immediate attention", caseMeta.Title)
	case domain.RiskTierAtRisk:
		fmt.Fprintf(&b, "Case %q is trending toward dissatisfaction", caseMeta.Title)
	default:
		fmt.Fprintf(&b, "Case %q looks healthy", caseMeta.Title)
	}
	if len(assessment.Reasons) > 0 {
		// Lead with the highest-priority reason, verbatim for traceability.
		fmt.Fprintf(&b, ": %s", assessment.Reasons[0].Message)
	}
	if len(openAlerts) > 0 {
		fmt.Fprintf(&b, " (%d open alert%s)", len(openAlerts), plural(len(openAlerts)))
	}
	b.WriteString(".")
	return b.String()
}

// rankedActions maps each reason onto a concrete next step, preserving the
// assessment's priority order.
func rankedActions(assessment domain.RiskAssessment) []string {
	actions := make([]string, 0, len(assessment.Reasons))
	for _, reason := range assessment.Reasons {
		switch reason.Category {
		case domain.ReasonResponseGap:
			actions = append(actions, fmt.Sprintf("Reply to the customer today (%s).", reason.Message))
		case domain.ReasonNoteGap:
			actions = append(actions, fmt.Sprintf("Add a case note with current status and next steps (%s).", reason.Message))
		case domain.ReasonSentiment:
			actions = append(actions, fmt.Sprintf("Call the customer to reset expectations (%s).", reason.Message))
		}
	}
	if len(actions) == 0 {
		actions = append(actions, "Keep the current cadence of customer updates and case notes.")
	}
	return actions
}

func skeletonPrompt(rec Recommendation) string {
	var b strings.Builder
	b.WriteString(rec.Summary)
	b.WriteString("\n\nRecommended actions:\n")
	for i, action := range rec.Actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, action)
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
