// Package sentiment derives the per-case sentiment trajectory from customer
// communications, delegating raw scoring to an external text classifier.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// Classifier scores a single piece of customer text. Unavailability must be
// distinguishable from a neutral result, so implementations return
// COLLABORATOR_UNAVAILABLE errors rather than zero scores.
type Classifier interface {
	Classify(ctx context.Context, text string) (score float64, label domain.SentimentLabel, err error)
}

// HTTPClassifier calls the external text-classification service.
type HTTPClassifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClassifier builds a classifier client with a bounded timeout.
func NewHTTPClassifier(cfg config.ClassifierConfig) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Score float64 `json:"score"`
	Label string  `json:"label"`
}

type classifyErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Classify submits text and returns the bounded score with its label.
func (c *HTTPClassifier) Classify(ctx context.Context, text string) (float64, domain.SentimentLabel, error) {
	if c.baseURL == "" {
		return 0, "", errorutil.NewCollaboratorUnavailable("sentiment classifier", fmt.Errorf("base URL not configured"))
	}

	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return 0, "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts and connection failures degrade, never fail the pipeline.
		return 0, "", errorutil.NewCollaboratorUnavailable("sentiment classifier", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", errorutil.NewCollaboratorUnavailable("sentiment classifier", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp classifyErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return 0, "", errorutil.NewCollaboratorUnavailable("sentiment classifier",
				fmt.Errorf("api error %d: %s", resp.StatusCode, errResp.Error.Message))
		}
		return 0, "", errorutil.NewCollaboratorUnavailable("sentiment classifier",
			fmt.Errorf("api error %d", resp.StatusCode))
	}

	var apiResp classifyResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return 0, "", fmt.Errorf("unmarshal response: %w", err)
	}

	return clampScore(apiResp.Score), labelFor(apiResp.Label, apiResp.Score), nil
}

func clampScore(score float64) float64 {
	if score < -1 {
		return -1
	}
	if score > 1 {
		return 1
	}
	return score
}

func labelFor(raw string, score float64) domain.SentimentLabel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(domain.SentimentLabelPositive):
		return domain.SentimentLabelPositive
	case string(domain.SentimentLabelNeutral):
		return domain.SentimentLabelNeutral
	case string(domain.SentimentLabelNegative):
		return domain.SentimentLabelNegative
	}
	// Some classifier deployments omit the label field.
	switch {
	case score >= 0.2:
		return domain.SentimentLabelPositive
	case score <= -0.2:
		return domain.SentimentLabelNegative
	default:
		return domain.SentimentLabelNeutral
	}
}

var _ Classifier = (*HTTPClassifier)(nil)
