package engine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

func newSchedulerFixture(t *testing.T, interval time.Duration) (*pipelineFixture, *Scheduler) {
	t.Helper()
	f := newPipelineFixture()

	rules := config.DefaultRiskRules()
	rules.EvaluationInterval = interval
	if err := f.rules.Replace(rules); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	cfg := config.EngineConfig{Workers: 2, QueueSize: 16}
	return f, NewScheduler(f.pipeline, f.source, cfg, f.rules, zap.NewNop())
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before the deadline")
}

func TestScheduler_SweepEvaluatesOpenCases(t *testing.T) {
	f, scheduler := newSchedulerFixture(t, time.Hour)
	created := pipelineNow.Add(-2 * time.Hour)
	c := domain.Case{ID: "case-a", Title: "Webhook retries", EngineerID: "eng-1", Status: domain.CaseStatusOpen, CreatedAt: created}
	f.addCase(c, raw("m1", "customer_message", "hello", created.Add(time.Minute)))

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)

	// The first sweep runs immediately, before any tick.
	waitFor(t, time.Second, func() bool {
		_, ok := f.snapshots.Get("case-a")
		return ok
	})

	cancel()
	scheduler.Wait()
}

func TestScheduler_IntervalFollowsRuleEdits(t *testing.T) {
	f, scheduler := newSchedulerFixture(t, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)
	defer func() {
		cancel()
		scheduler.Wait()
	}()

	// Prove the short cadence is live.
	waitFor(t, time.Second, func() bool { return f.source.listCalls.Load() >= 4 })

	// Widen the interval through the rules provider. At most one residual
	// short tick can fire before the ticker resets.
	slow := config.DefaultRiskRules()
	slow.EvaluationInterval = time.Hour
	if err := f.rules.Replace(slow); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	settled := f.source.listCalls.Load()
	time.Sleep(300 * time.Millisecond)
	if got := f.source.listCalls.Load(); got != settled {
		t.Errorf("sweeps continued at the old cadence after the interval was widened: %d then %d", settled, got)
	}
}

func TestScheduler_TriggerUnknownCase(t *testing.T) {
	_, scheduler := newSchedulerFixture(t, time.Hour)

	err := scheduler.Trigger(context.Background(), "no-such-case")
	if err == nil {
		t.Fatal("Trigger() should fail for an unknown case")
	}
	if !errorutil.IsCode(err, errorutil.CodeNotFound) {
		t.Errorf("error code = %v, want NOT_FOUND", err)
	}
}
