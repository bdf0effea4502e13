package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
)

// AssessmentRepository stores the latest risk assessment per case, so a case
// that fails a later evaluation still surfaces its last-known tier.
type AssessmentRepository interface {
	Upsert(ctx context.Context, assessment domain.RiskAssessment) error
	GetByCase(ctx context.Context, caseID string) (*domain.RiskAssessment, error)
	MarkStale(ctx context.Context, caseID string) error
}

type assessmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssessmentRepository instantiates the pgx-backed repository.
func NewAssessmentRepository(pool *pgxpool.Pool) AssessmentRepository {
	return &assessmentRepository{pool: pool}
}

func (r *assessmentRepository) Upsert(ctx context.Context, assessment domain.RiskAssessment) error {
	reasons, err := json.Marshal(assessment.Reasons)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO risk_assessments (case_id, tier, reasons, stale, evaluated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (case_id) DO UPDATE
        SET tier=EXCLUDED.tier, reasons=EXCLUDED.reasons, stale=EXCLUDED.stale, evaluated_at=EXCLUDED.evaluated_at`
	_, err = r.pool.Exec(ctx, query,
		assessment.CaseID,
		assessment.Tier,
		reasons,
		assessment.Stale,
		assessment.EvaluatedAt,
	)
	return err
}

func (r *assessmentRepository) GetByCase(ctx context.Context, caseID string) (*domain.RiskAssessment, error) {
	const query = `
        SELECT case_id, tier, reasons, stale, evaluated_at
        FROM risk_assessments WHERE case_id=$1`
	var (
		assessment domain.RiskAssessment
		reasons    []byte
	)
	err := r.pool.QueryRow(ctx, query, caseID).Scan(
		&assessment.CaseID,
		&assessment.Tier,
		&reasons,
		&assessment.Stale,
		&assessment.EvaluatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reasons, &assessment.Reasons); err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *assessmentRepository) MarkStale(ctx context.Context, caseID string) error {
	const query = `UPDATE risk_assessments SET stale=TRUE WHERE case_id=$1`
	_, err := r.pool.Exec(ctx, query, caseID)
	return err
}

// MemoryAssessmentRepository backs DB-less runs and tests.
type MemoryAssessmentRepository struct {
	mu          sync.RWMutex
	assessments map[string]domain.RiskAssessment
}

// NewMemoryAssessmentRepository creates an empty repository.
func NewMemoryAssessmentRepository() *MemoryAssessmentRepository {
	return &MemoryAssessmentRepository{assessments: make(map[string]domain.RiskAssessment)}
}

func (r *MemoryAssessmentRepository) Upsert(_ context.Context, assessment domain.RiskAssessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assessments[assessment.CaseID] = assessment
	return nil
}

func (r *MemoryAssessmentRepository) GetByCase(_ context.Context, caseID string) (*domain.RiskAssessment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	assessment, ok := r.assessments[caseID]
	if !ok {
		return nil, nil
	}
	return &assessment, nil
}

func (r *MemoryAssessmentRepository) MarkStale(_ context.Context, caseID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	assessment, ok := r.assessments[caseID]
	if !ok {
		return nil
	}
	assessment.Stale = true
	r.assessments[caseID] = assessment
	return nil
}

var (
	_ AssessmentRepository = (*assessmentRepository)(nil)
	_ AssessmentRepository = (*MemoryAssessmentRepository)(nil)
)
