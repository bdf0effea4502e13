package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/api/dto"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/engine"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/repository"
	apperrors "github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// QueryHandler serves the per-case evaluation artifacts read-only. It holds
// no session state and has no mutation path back into the engine beyond the
// explicit re-evaluation trigger.
type QueryHandler struct {
	snapshots   *engine.SnapshotStore
	assessments repository.AssessmentRepository
	scheduler   *engine.Scheduler
}

// NewQueryHandler constructs the handler.
func NewQueryHandler(snapshots *engine.SnapshotStore, assessments repository.AssessmentRepository, scheduler *engine.Scheduler) *QueryHandler {
	return &QueryHandler{snapshots: snapshots, assessments: assessments, scheduler: scheduler}
}

// GetRisk GET /cases/:id/risk. A snapshot miss falls back to the persisted
// assessment so tiers survive a restart; coaching content lives only in the
// snapshot and is absent until the case is re-evaluated.
func (h *QueryHandler) GetRisk(c *fiber.Ctx) error {
	caseID := c.Params("id")
	snapshot, ok := h.snapshots.Get(caseID)
	if !ok {
		assessment, err := h.assessments.GetByCase(c.UserContext(), caseID)
		if err != nil {
			return err
		}
		if assessment == nil {
			return apperrors.NewNotFound("case assessment", map[string]any{"case_id": caseID})
		}
		resp := dto.RiskResponse{
			CaseID:      assessment.CaseID,
			Tier:        assessment.Tier,
			Reasons:     assessment.Reasons,
			Stale:       assessment.Stale,
			EvaluatedAt: assessment.EvaluatedAt,
		}
		return c.JSON(fiber.Map{"data": resp})
	}
	resp := dto.RiskResponse{
		CaseID:      snapshot.Assessment.CaseID,
		Tier:        snapshot.Assessment.Tier,
		Reasons:     snapshot.Assessment.Reasons,
		Stale:       snapshot.Assessment.Stale,
		EvaluatedAt: snapshot.Assessment.EvaluatedAt,
		Summary:     snapshot.Recommendation.Summary,
		Actions:     snapshot.Recommendation.Actions,
		Coaching:    snapshot.Recommendation.Elaborated,
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetCompliance GET /cases/:id/compliance.
func (h *QueryHandler) GetCompliance(c *fiber.Ctx) error {
	snapshot, ok := h.snapshots.Get(c.Params("id"))
	if !ok {
		return apperrors.NewNotFound("case assessment", map[string]any{"case_id": c.Params("id")})
	}
	finding := snapshot.Finding
	resp := dto.ComplianceResponse{
		CaseID:               finding.CaseID,
		EvaluatedAt:          finding.EvaluatedAt,
		SinceLastOutboundSec: finding.SinceLastOutbound.Seconds(),
		ResponseState:        finding.ResponseState,
		SinceLastNoteSec:     finding.SinceLastNote.Seconds(),
		NoteState:            finding.NoteState,
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetSentiment GET /cases/:id/sentiment.
func (h *QueryHandler) GetSentiment(c *fiber.Ctx) error {
	snapshot, ok := h.snapshots.Get(c.Params("id"))
	if !ok {
		return apperrors.NewNotFound("case assessment", map[string]any{"case_id": c.Params("id")})
	}
	trajectory := snapshot.Trajectory
	resp := dto.SentimentResponse{
		CaseID:     trajectory.CaseID,
		Samples:    trajectory.Samples,
		Trend:      trajectory.Trend,
		Slope:      trajectory.Slope,
		Volatility: trajectory.Volatility,
		Stale:      trajectory.Stale,
	}
	return c.JSON(fiber.Map{"data": resp})
}

// GetAlerts GET /cases/:id/alerts.
func (h *QueryHandler) GetAlerts(c *fiber.Ctx) error {
	snapshot, ok := h.snapshots.Get(c.Params("id"))
	if !ok {
		return apperrors.NewNotFound("case assessment", map[string]any{"case_id": c.Params("id")})
	}
	items := make([]dto.AlertSummary, 0, len(snapshot.OpenAlerts))
	for _, alert := range snapshot.OpenAlerts {
		items = append(items, dto.AlertSummary{
			ID:         alert.ID,
			CaseID:     alert.CaseID,
			EngineerID: alert.EngineerID,
			Kind:       alert.Kind,
			Severity:   alert.Severity,
			Message:    alert.Message,
			CreatedAt:  alert.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// TriggerEvaluation POST /cases/:id/evaluate. Enqueues the case for
// evaluation through the same engine the scheduler uses.
func (h *QueryHandler) TriggerEvaluation(c *fiber.Ctx) error {
	caseID := c.Params("id")
	if caseID == "" {
		return apperrors.NewValidationError("case id required", nil)
	}
	if err := h.scheduler.Trigger(c.UserContext(), caseID); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"case_id": caseID, "status": "queued"}})
}
