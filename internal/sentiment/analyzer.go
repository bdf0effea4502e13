package sentiment

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/observability"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// Analyzer assembles the sentiment trajectory for a case. Submissions are
// idempotent per event id: a cache hit returns the prior value and never
// re-submits. Classifier unavailability degrades to the best-known prior
// series annotated stale instead of failing the assessment.
type Analyzer struct {
	classifier Classifier
	cache      SampleCache
	logger     *zap.Logger
}

// NewAnalyzer constructs the analyzer.
func NewAnalyzer(classifier Classifier, cache SampleCache, logger *zap.Logger) *Analyzer {
	return &Analyzer{classifier: classifier, cache: cache, logger: logger}
}

// Analyze resolves a sample for every customer-authored event and summarizes
// trend and volatility over the rule-configured window.
func (a *Analyzer) Analyze(ctx context.Context, caseID string, events []domain.TimelineEvent, rules config.RiskRules) (domain.SentimentTrajectory, error) {
	trajectory := domain.SentimentTrajectory{CaseID: caseID}

	var cachedIdx []int

	for _, event := range events {
		if !event.IsCustomerAuthored() {
			continue
		}

		cached, err := a.cache.Get(ctx, event.ID)
		if err != nil {
			a.logger.Warn("sample cache read failed", zap.String("case_id", caseID), zap.String("event_id", event.ID), zap.Error(err))
		}
		if cached != nil {
			sample := *cached
			sample.Stale = false
			cachedIdx = append(cachedIdx, len(trajectory.Samples))
			trajectory.Samples = append(trajectory.Samples, sample)
			continue
		}

		score, label, err := a.classifier.Classify(ctx, event.Text)
		if err != nil {
			if errorutil.IsCode(err, errorutil.CodeCollaboratorUnavailable) {
				observability.ObserveCollaboratorFailure("sentiment_classifier")
				a.logger.Warn("classifier unavailable; series marked stale",
					zap.String("case_id", caseID), zap.String("event_id", event.ID), zap.Error(err))
				trajectory.Stale = true
				continue
			}
			return domain.SentimentTrajectory{}, err
		}

		sample := domain.SentimentSample{
			EventID:    event.ID,
			Score:      score,
			Label:      label,
			OccurredAt: event.OccurredAt,
		}
		if err := a.cache.Put(ctx, sample); err != nil {
			a.logger.Warn("sample cache write failed", zap.String("case_id", caseID), zap.String("event_id", event.ID), zap.Error(err))
		}
		trajectory.Samples = append(trajectory.Samples, sample)
	}

	// During an outage the cache-served samples are the stale part of the
	// series; samples classified before the failure stay fresh.
	if trajectory.Stale {
		for _, i := range cachedIdx {
			trajectory.Samples[i].Stale = true
		}
	}

	trajectory.Slope = windowSlope(trajectory.Samples, rules.TrendWindow)
	trajectory.Trend = classifyTrend(trajectory.Samples, trajectory.Slope, rules.TrendSlopeThreshold)
	trajectory.Volatility = windowStdDev(trajectory.Samples, rules.TrendWindow)
	return trajectory, nil
}

// windowSlope fits a least-squares line over the last n samples, with the
// sample index as x. Returns 0 when fewer than two samples exist.
func windowSlope(samples []domain.SentimentSample, n int) float64 {
	window := lastN(samples, n)
	count := len(window)
	if count < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, sample := range window {
		x := float64(i)
		sumX += x
		sumY += sample.Score
		sumXY += x * sample.Score
		sumXX += x * x
	}
	fc := float64(count)
	denom := fc*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (fc*sumXY - sumX*sumY) / denom
}

func classifyTrend(samples []domain.SentimentSample, slope, threshold float64) domain.TrendDirection {
	if len(samples) < 2 {
		return domain.TrendUnknown
	}
	switch {
	case slope <= -threshold:
		return domain.TrendDeclining
	case slope >= threshold:
		return domain.TrendImproving
	default:
		return domain.TrendStable
	}
}

// windowStdDev computes the population standard deviation over the last n samples.
func windowStdDev(samples []domain.SentimentSample, n int) float64 {
	window := lastN(samples, n)
	count := len(window)
	if count < 2 {
		return 0
	}

	var sum float64
	for _, sample := range window {
		sum += sample.Score
	}
	mean := sum / float64(count)

	var variance float64
	for _, sample := range window {
		diff := sample.Score - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(count))
}

func lastN(samples []domain.SentimentSample, n int) []domain.SentimentSample {
	if n <= 0 || len(samples) <= n {
		return samples
	}
	return samples[len(samples)-n:]
}
