package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/source"
)

// Scheduler fans case evaluations out over a worker pool. Cases are
// independent: there is no cross-case ordering guarantee and no global lock.
type Scheduler struct {
	pipeline *Pipeline
	source   source.CaseSource
	cfg      config.EngineConfig
	rules    *config.RulesProvider
	logger   *zap.Logger

	queue chan domain.Case

	mu      sync.Mutex
	pending map[string]struct{}

	wg sync.WaitGroup
}

// NewScheduler constructs the scheduler. The sweep cadence comes from the
// rules provider, so interval edits apply without a restart.
func NewScheduler(pipeline *Pipeline, src source.CaseSource, cfg config.EngineConfig, rules *config.RulesProvider, logger *zap.Logger) *Scheduler {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Scheduler{
		pipeline: pipeline,
		source:   src,
		cfg:      cfg,
		rules:    rules,
		logger:   logger,
		queue:    make(chan domain.Case, queueSize),
		pending:  make(map[string]struct{}),
	}
}

// Start launches the workers and the poll loop. It returns immediately;
// cancellation of ctx stops the ticker and drains the workers.
func (s *Scheduler) Start(ctx context.Context) {
	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}

	s.wg.Add(1)
	go s.pollLoop(ctx)
}

// Wait blocks until all workers exit after cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Trigger enqueues one case for on-demand evaluation (timeline update,
// interactive query). A case already queued is not enqueued twice.
func (s *Scheduler) Trigger(ctx context.Context, caseID string) error {
	c, err := s.source.GetCase(ctx, caseID)
	if err != nil {
		return err
	}
	s.enqueue(*c)
	return nil
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	defer s.wg.Done()

	// First sweep runs immediately; later sweeps follow the interval.
	s.sweep(ctx)

	interval := s.rules.Rules().EvaluationInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
			if next := s.rules.Rules().EvaluationInterval; next != interval {
				interval = next
				ticker.Reset(interval)
				s.logger.Info("evaluation interval updated", zap.Duration("interval", interval))
			}
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	cases, err := s.source.ListOpenCases(ctx)
	if err != nil {
		s.logger.Warn("open case sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduling evaluation sweep", zap.Int("cases", len(cases)))
	for _, c := range cases {
		s.enqueue(c)
	}
}

func (s *Scheduler) enqueue(c domain.Case) {
	s.mu.Lock()
	if _, queued := s.pending[c.ID]; queued {
		s.mu.Unlock()
		return
	}
	s.pending[c.ID] = struct{}{}
	s.mu.Unlock()

	select {
	case s.queue <- c:
	default:
		// Queue full: drop and let the next sweep pick the case up.
		s.mu.Lock()
		delete(s.pending, c.ID)
		s.mu.Unlock()
		s.logger.Warn("evaluation queue full; case deferred", zap.String("case_id", c.ID))
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-s.queue:
			s.mu.Lock()
			delete(s.pending, c.ID)
			s.mu.Unlock()

			if _, err := s.pipeline.EvaluateCase(ctx, c); err != nil {
				// Per-case failures are isolated; other cases continue.
				s.logger.Error("case evaluation failed",
					zap.String("case_id", c.ID),
					zap.String("stage", Stage(err)),
					zap.Error(err))
			}
		}
	}
}
