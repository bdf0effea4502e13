package alerting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/repository"
)

// fakeNotifier records payloads and can be forced to fail.
type fakeNotifier struct {
	mu        sync.Mutex
	raised    []Notification
	escalated []Notification
	fail      bool
}

func (f *fakeNotifier) AlertRaised(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker down")
	}
	f.raised = append(f.raised, n)
	return nil
}

func (f *fakeNotifier) AlertEscalated(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker down")
	}
	f.escalated = append(f.escalated, n)
	return nil
}

func (f *fakeNotifier) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.raised), len(f.escalated)
}

var machineNow = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)

func testCase() domain.Case {
	return domain.Case{ID: "case-1", EngineerID: "eng-7", Status: domain.CaseStatusOpen}
}

func assessment(tier domain.RiskTier, reasons ...domain.RiskReason) domain.RiskAssessment {
	a := domain.RiskAssessment{
		CaseID:        "case-1",
		Tier:          tier,
		Reasons:       reasons,
		EvaluatedAt:   machineNow,
		CategoryTiers: map[domain.ReasonCategory]domain.RiskTier{},
	}
	for _, r := range reasons {
		a.CategoryTiers[r.Category] = tier
	}
	return a
}

func noteBreach() domain.RiskAssessment {
	return assessment(domain.RiskTierBreach,
		domain.RiskReason{Category: domain.ReasonNoteGap, Message: "no case note update in 8 days"})
}

func responseWarning() domain.RiskAssessment {
	return assessment(domain.RiskTierAtRisk,
		domain.RiskReason{Category: domain.ReasonResponseGap, Message: "no engineer response to the customer in 30 hours"})
}

func healthy() domain.RiskAssessment {
	return assessment(domain.RiskTierHealthy)
}

func newMachine(t *testing.T) (*StateMachine, *repository.MemoryAlertRepository, *fakeNotifier) {
	t.Helper()
	repo := repository.NewMemoryAlertRepository()
	notifier := &fakeNotifier{}
	return NewStateMachine(repo, notifier, zap.NewNop()), repo, notifier
}

func TestApply_OpensAlertForTriggeredKind(t *testing.T) {
	machine, _, notifier := newMachine(t)

	open, err := machine.Apply(context.Background(), testCase(), noteBreach())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(open) != 1 {
		t.Fatalf("open alerts = %d, want 1", len(open))
	}
	alert := open[0]
	if alert.Kind != domain.AlertKindNoteGap {
		t.Errorf("Kind = %s, want NOTE_GAP", alert.Kind)
	}
	if alert.Severity != domain.AlertSeverityCritical {
		t.Errorf("Severity = %s, want CRITICAL", alert.Severity)
	}
	if alert.Message != "no case note update in 8 days" {
		t.Errorf("Message = %q, want the reason verbatim", alert.Message)
	}
	raised, escalated := notifier.counts()
	if raised != 1 || escalated != 0 {
		t.Errorf("notifications raised=%d escalated=%d, want 1/0", raised, escalated)
	}
}

func TestApply_RepeatedAssessmentIsIdempotent(t *testing.T) {
	machine, _, notifier := newMachine(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		open, err := machine.Apply(ctx, testCase(), responseWarning())
		if err != nil {
			t.Fatalf("Apply() run %d error = %v", i, err)
		}
		if len(open) != 1 {
			t.Fatalf("run %d open alerts = %d, want 1", i, len(open))
		}
	}

	raised, escalated := notifier.counts()
	if raised != 1 || escalated != 0 {
		t.Errorf("notifications raised=%d escalated=%d, want 1/0", raised, escalated)
	}
}

func TestApply_EscalatesWarningToCritical(t *testing.T) {
	machine, _, notifier := newMachine(t)
	ctx := context.Background()

	warning := assessment(domain.RiskTierAtRisk,
		domain.RiskReason{Category: domain.ReasonNoteGap, Message: "no case note update in 6 days"})
	if _, err := machine.Apply(ctx, testCase(), warning); err != nil {
		t.Fatalf("Apply(warning) error = %v", err)
	}

	open, err := machine.Apply(ctx, testCase(), noteBreach())
	if err != nil {
		t.Fatalf("Apply(breach) error = %v", err)
	}

	if len(open) != 1 {
		t.Fatalf("open alerts = %d, want 1 (escalate must not duplicate)", len(open))
	}
	if open[0].Severity != domain.AlertSeverityCritical {
		t.Errorf("Severity = %s, want CRITICAL", open[0].Severity)
	}
	if open[0].Message != "no case note update in 8 days" {
		t.Errorf("Message = %q, want the breach reason", open[0].Message)
	}
	raised, escalated := notifier.counts()
	if raised != 1 || escalated != 1 {
		t.Errorf("notifications raised=%d escalated=%d, want 1/1", raised, escalated)
	}
}

func TestApply_MessageRefreshWithoutRankIncreaseStaysQuiet(t *testing.T) {
	machine, _, notifier := newMachine(t)
	ctx := context.Background()

	if _, err := machine.Apply(ctx, testCase(), noteBreach()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	later := assessment(domain.RiskTierBreach,
		domain.RiskReason{Category: domain.ReasonNoteGap, Message: "no case note update in 9 days"})
	open, err := machine.Apply(ctx, testCase(), later)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if open[0].Message != "no case note update in 9 days" {
		t.Errorf("Message = %q, want refreshed wording", open[0].Message)
	}
	raised, escalated := notifier.counts()
	if raised != 1 || escalated != 0 {
		t.Errorf("notifications raised=%d escalated=%d, want 1/0 (same rank)", raised, escalated)
	}
}

func TestApply_ResolvesWhenConditionClears(t *testing.T) {
	machine, repo, _ := newMachine(t)
	ctx := context.Background()

	if _, err := machine.Apply(ctx, testCase(), noteBreach()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	open, err := machine.Apply(ctx, testCase(), healthy())
	if err != nil {
		t.Fatalf("Apply(healthy) error = %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("open alerts = %d, want 0", len(open))
	}

	// A later recurrence opens a fresh alert rather than reviving the old one.
	reopened, err := machine.Apply(ctx, testCase(), noteBreach())
	if err != nil {
		t.Fatalf("Apply(recurrence) error = %v", err)
	}
	if len(reopened) != 1 {
		t.Fatalf("open alerts after recurrence = %d, want 1", len(reopened))
	}
	current, err := repo.GetOpen(ctx, "case-1", domain.AlertKindNoteGap)
	if err != nil {
		t.Fatalf("GetOpen() error = %v", err)
	}
	if current == nil || current.CreatedAt.IsZero() {
		t.Error("recurrence should be a fresh open alert")
	}
}

func TestApply_StaleAssessmentNeverResolvesSentimentAlert(t *testing.T) {
	machine, _, _ := newMachine(t)
	ctx := context.Background()

	declining := assessment(domain.RiskTierAtRisk,
		domain.RiskReason{Category: domain.ReasonSentiment, Message: "customer sentiment declining (slope -0.30 over last 3 messages)"})
	if _, err := machine.Apply(ctx, testCase(), declining); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	stale := healthy()
	stale.Stale = true
	open, err := machine.Apply(ctx, testCase(), stale)
	if err != nil {
		t.Fatalf("Apply(stale) error = %v", err)
	}
	if len(open) != 1 || open[0].Kind != domain.AlertKindSentiment {
		t.Fatalf("sentiment alert must survive a stale assessment, got %v", open)
	}

	// Compliance kinds are computed fresh each cycle, so staleness does not
	// protect them.
	machine2, _, _ := newMachine(t)
	if _, err := machine2.Apply(ctx, testCase(), noteBreach()); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	open2, err := machine2.Apply(ctx, testCase(), stale)
	if err != nil {
		t.Fatalf("Apply(stale) error = %v", err)
	}
	if len(open2) != 0 {
		t.Errorf("note gap alert should resolve under a stale assessment, got %v", open2)
	}
}

func TestApply_NotifierFailureDoesNotBlockTransition(t *testing.T) {
	machine, repo, notifier := newMachine(t)
	notifier.fail = true

	open, err := machine.Apply(context.Background(), testCase(), noteBreach())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open alerts = %d, want 1 despite delivery failure", len(open))
	}
	persisted, err := repo.GetOpen(context.Background(), "case-1", domain.AlertKindNoteGap)
	if err != nil || persisted == nil {
		t.Fatalf("alert must be persisted despite notifier failure (err=%v)", err)
	}
}

func TestApply_ConcurrentEvaluationsKeepSingleOpenAlert(t *testing.T) {
	machine, repo, _ := newMachine(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := machine.Apply(ctx, testCase(), noteBreach()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Apply() error = %v", err)
	}

	open, err := repo.ListOpenByCase(ctx, "case-1")
	if err != nil {
		t.Fatalf("ListOpenByCase() error = %v", err)
	}
	if len(open) != 1 {
		t.Errorf("open alerts = %d, want exactly 1", len(open))
	}
}

func TestApply_MultipleKindsOpenIndependently(t *testing.T) {
	machine, _, _ := newMachine(t)

	combined := domain.RiskAssessment{
		CaseID: "case-1",
		Tier:   domain.RiskTierBreach,
		Reasons: []domain.RiskReason{
			{Category: domain.ReasonNoteGap, Message: "no case note update in 8 days"},
			{Category: domain.ReasonResponseGap, Message: "no engineer response to the customer in 30 hours"},
		},
		EvaluatedAt: machineNow,
		CategoryTiers: map[domain.ReasonCategory]domain.RiskTier{
			domain.ReasonNoteGap:     domain.RiskTierBreach,
			domain.ReasonResponseGap: domain.RiskTierAtRisk,
		},
	}

	open, err := machine.Apply(context.Background(), testCase(), combined)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("open alerts = %d, want 2", len(open))
	}
	bySeverity := map[domain.AlertKind]domain.AlertSeverity{}
	for _, alert := range open {
		bySeverity[alert.Kind] = alert.Severity
	}
	if bySeverity[domain.AlertKindNoteGap] != domain.AlertSeverityCritical {
		t.Errorf("note gap severity = %s, want CRITICAL", bySeverity[domain.AlertKindNoteGap])
	}
	if bySeverity[domain.AlertKindResponseGap] != domain.AlertSeverityWarning {
		t.Errorf("response gap severity = %s, want WARNING", bySeverity[domain.AlertKindResponseGap])
	}
}
