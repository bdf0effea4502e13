package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// AlertRepository encapsulates alert persistence. The open-alert invariant
// is backed by a partial unique index on (case_id, kind) WHERE resolved_at
// IS NULL; Create surfaces a violation as CONCURRENCY_CONFLICT so the state
// machine can retry against latest state.
type AlertRepository interface {
	GetOpen(ctx context.Context, caseID string, kind domain.AlertKind) (*domain.Alert, error)
	ListOpenByCase(ctx context.Context, caseID string) ([]domain.Alert, error)
	Create(ctx context.Context, alert *domain.Alert) error
	UpdateSeverity(ctx context.Context, id string, severity domain.AlertSeverity, message string) error
	Resolve(ctx context.Context, id string, at time.Time) error
}

type alertRepository struct {
	pool *pgxpool.Pool
}

// NewAlertRepository instantiates the pgx-backed repository.
func NewAlertRepository(pool *pgxpool.Pool) AlertRepository {
	return &alertRepository{pool: pool}
}

func (r *alertRepository) GetOpen(ctx context.Context, caseID string, kind domain.AlertKind) (*domain.Alert, error) {
	const query = `
        SELECT id, case_id, engineer_id, kind, severity, message, created_at, resolved_at
        FROM alerts WHERE case_id=$1 AND kind=$2 AND resolved_at IS NULL`
	var alert domain.Alert
	err := r.pool.QueryRow(ctx, query, caseID, kind).Scan(
		&alert.ID,
		&alert.CaseID,
		&alert.EngineerID,
		&alert.Kind,
		&alert.Severity,
		&alert.Message,
		&alert.CreatedAt,
		&alert.ResolvedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) ListOpenByCase(ctx context.Context, caseID string) ([]domain.Alert, error) {
	const query = `
        SELECT id, case_id, engineer_id, kind, severity, message, created_at, resolved_at
        FROM alerts WHERE case_id=$1 AND resolved_at IS NULL
        ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []domain.Alert{}
	for rows.Next() {
		var alert domain.Alert
		if err := rows.Scan(
			&alert.ID,
			&alert.CaseID,
			&alert.EngineerID,
			&alert.Kind,
			&alert.Severity,
			&alert.Message,
			&alert.CreatedAt,
			&alert.ResolvedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *alertRepository) Create(ctx context.Context, alert *domain.Alert) error {
	const query = `
        INSERT INTO alerts (id, case_id, engineer_id, kind, severity, message)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, query,
		alert.ID,
		alert.CaseID,
		alert.EngineerID,
		alert.Kind,
		alert.Severity,
		alert.Message,
	).Scan(&alert.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errorutil.NewConcurrencyConflict("open alert already exists for case and kind", err)
		}
		return err
	}
	return nil
}

func (r *alertRepository) UpdateSeverity(ctx context.Context, id string, severity domain.AlertSeverity, message string) error {
	const query = `UPDATE alerts SET severity=$1, message=$2 WHERE id=$3 AND resolved_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, severity, message, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errorutil.NewConcurrencyConflict("alert no longer open", nil)
	}
	return nil
}

func (r *alertRepository) Resolve(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE alerts SET resolved_at=$1 WHERE id=$2 AND resolved_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errorutil.NewConcurrencyConflict("alert no longer open", nil)
	}
	return nil
}

// MemoryAlertRepository backs DB-less runs and tests. It enforces the same
// open-alert invariant the partial unique index enforces in SQL.
type MemoryAlertRepository struct {
	mu     sync.Mutex
	alerts map[string]*domain.Alert
}

// NewMemoryAlertRepository creates an empty repository.
func NewMemoryAlertRepository() *MemoryAlertRepository {
	return &MemoryAlertRepository{alerts: make(map[string]*domain.Alert)}
}

func (r *MemoryAlertRepository) GetOpen(_ context.Context, caseID string, kind domain.AlertKind) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, alert := range r.alerts {
		if alert.CaseID == caseID && alert.Kind == kind && alert.ResolvedAt == nil {
			copied := *alert
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *MemoryAlertRepository) ListOpenByCase(_ context.Context, caseID string) ([]domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	alerts := []domain.Alert{}
	for _, alert := range r.alerts {
		if alert.CaseID == caseID && alert.ResolvedAt == nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts, nil
}

func (r *MemoryAlertRepository) Create(_ context.Context, alert *domain.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.alerts {
		if existing.CaseID == alert.CaseID && existing.Kind == alert.Kind && existing.ResolvedAt == nil {
			return errorutil.NewConcurrencyConflict("open alert already exists for case and kind", nil)
		}
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	copied := *alert
	r.alerts[alert.ID] = &copied
	return nil
}

func (r *MemoryAlertRepository) UpdateSeverity(_ context.Context, id string, severity domain.AlertSeverity, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok || alert.ResolvedAt != nil {
		return errorutil.NewConcurrencyConflict("alert no longer open", nil)
	}
	alert.Severity = severity
	alert.Message = message
	return nil
}

func (r *MemoryAlertRepository) Resolve(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	alert, ok := r.alerts[id]
	if !ok || alert.ResolvedAt != nil {
		return errorutil.NewConcurrencyConflict("alert no longer open", nil)
	}
	resolved := at
	alert.ResolvedAt = &resolved
	return nil
}

var (
	_ AlertRepository = (*alertRepository)(nil)
	_ AlertRepository = (*MemoryAlertRepository)(nil)
)
