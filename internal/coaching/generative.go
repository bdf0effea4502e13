package coaching

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

const generativeAPIURL = "https://api.anthropic.com/v1/messages"

// Elaborator rewrites a coaching skeleton into friendlier prose. It is
// purely additive: every failure path degrades to the skeleton.
type Elaborator interface {
	Elaborate(ctx context.Context, prompt string) (string, error)
}

// GenerativeClient calls the Anthropic messages API.
type GenerativeClient struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// NewGenerativeClient builds the client with a bounded timeout.
func NewGenerativeClient(cfg config.GenerativeConfig) *GenerativeClient {
	return &GenerativeClient{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: cfg.Timeout()},
	}
}

type generativeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generativeRequest struct {
	Model     string              `json:"model"`
	MaxTokens int                 `json:"max_tokens"`
	System    string              `json:"system,omitempty"`
	Messages  []generativeMessage `json:"messages"`
}

type generativeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type generativeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const elaboratorSystemPrompt = "You help support engineers phrase coaching advice. " +
	"Rewrite the provided recommendation so it reads naturally, keeping every listed action. " +
	"Reply with the rewritten text only."

// Elaborate sends the skeleton text and returns the rewritten version.
func (c *GenerativeClient) Elaborate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errorutil.NewCollaboratorUnavailable("generative collaborator", fmt.Errorf("api key not configured"))
	}

	body, err := json.Marshal(generativeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    elaboratorSystemPrompt,
		Messages:  []generativeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, generativeAPIURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errorutil.NewCollaboratorUnavailable("generative collaborator", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errorutil.NewCollaboratorUnavailable("generative collaborator", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp generativeErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return "", errorutil.NewCollaboratorUnavailable("generative collaborator",
				fmt.Errorf("api error %d: %s", resp.StatusCode, errResp.Error.Message))
		}
		return "", errorutil.NewCollaboratorUnavailable("generative collaborator",
			fmt.Errorf("api error %d", resp.StatusCode))
	}

	var apiResp generativeResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response content")
	}
	return apiResp.Content[0].Text, nil
}

var _ Elaborator = (*GenerativeClient)(nil)
