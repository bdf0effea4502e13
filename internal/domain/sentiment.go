package domain

import "time"

// SentimentLabel is the coarse classification of a sample.
type SentimentLabel string

const (
	SentimentLabelPositive SentimentLabel = "POSITIVE"
	SentimentLabelNeutral  SentimentLabel = "NEUTRAL"
	SentimentLabelNegative SentimentLabel = "NEGATIVE"
)

// SentimentSample is the cached classifier output for one customer event.
// Score is bounded to [-1, 1]. Stale marks values served from cache while
// the classifier was unreachable.
type SentimentSample struct {
	EventID    string         `json:"event_id"`
	Score      float64        `json:"score"`
	Label      SentimentLabel `json:"label"`
	OccurredAt time.Time      `json:"occurred_at"`
	Stale      bool           `json:"stale"`
}

// TrendDirection classifies the recent slope of a sentiment series.
type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendDeclining TrendDirection = "DECLINING"
	TrendStable    TrendDirection = "STABLE"
	// TrendUnknown is reported when fewer than two samples exist.
	TrendUnknown TrendDirection = "UNKNOWN"
)

// SentimentTrajectory summarizes the ordered sample series for a case.
type SentimentTrajectory struct {
	CaseID     string
	Samples    []SentimentSample
	Trend      TrendDirection
	Slope      float64
	Volatility float64
	// Stale is true when at least one sample could not be refreshed
	// because the classifier was unavailable.
	Stale bool
}

// LatestScore returns the most recent sample score, or ok=false when the
// series is empty.
func (t SentimentTrajectory) LatestScore() (float64, bool) {
	if len(t.Samples) == 0 {
		return 0, false
	}
	return t.Samples[len(t.Samples)-1].Score, true
}
