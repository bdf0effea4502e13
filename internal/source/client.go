// Package source reads cases and raw activity records from the external
// case management system. Access is strictly read-only.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/config"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/domain"
	"github.com/KyleMonteagudo/csat-guardian-sub001/internal/timeline"
	"github.com/KyleMonteagudo/csat-guardian-sub001/pkg/util/errorutil"
)

// CaseSource supplies cases and their raw timelines.
type CaseSource interface {
	ListOpenCases(ctx context.Context) ([]domain.Case, error)
	GetCase(ctx context.Context, caseID string) (*domain.Case, error)
	ListActivity(ctx context.Context, caseID string) ([]timeline.RawRecord, error)
}

// Client is the HTTP implementation of CaseSource.
type Client struct {
	baseURL      string
	casesPath    string
	activityPath string
	httpClient   *http.Client
}

// NewClient constructs a client targeting the configured source instance.
func NewClient(cfg config.SourceConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		casesPath:    cfg.CasesPath,
		activityPath: cfg.ActivityPath,
		httpClient:   &http.Client{Timeout: cfg.Timeout()},
	}
}

type caseRecord struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	EngineerID string    `json:"engineer_id"`
	CustomerID string    `json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// ListOpenCases returns all cases still eligible for evaluation.
func (c *Client) ListOpenCases(ctx context.Context) ([]domain.Case, error) {
	var response struct {
		Cases []caseRecord `json:"cases"`
	}
	if err := c.get(ctx, c.baseURL+c.casesPath+"?status=open", &response); err != nil {
		return nil, err
	}
	cases := make([]domain.Case, 0, len(response.Cases))
	for _, record := range response.Cases {
		cases = append(cases, toDomainCase(record))
	}
	return cases, nil
}

// GetCase fetches one case by id.
func (c *Client) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	var record caseRecord
	if err := c.get(ctx, c.baseURL+c.casesPath+"/"+caseID, &record); err != nil {
		return nil, err
	}
	result := toDomainCase(record)
	return &result, nil
}

// ListActivity fetches the raw timeline records for a case. Normalization
// happens downstream; the source's representation is passed through as-is.
func (c *Client) ListActivity(ctx context.Context, caseID string) ([]timeline.RawRecord, error) {
	var response struct {
		Records []timeline.RawRecord `json:"records"`
	}
	if err := c.get(ctx, c.baseURL+fmt.Sprintf(c.activityPath, caseID), &response); err != nil {
		return nil, err
	}
	return response.Records, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorutil.NewCollaboratorUnavailable("case source", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorutil.NewCollaboratorUnavailable("case source", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return errorutil.NewNotFound("case", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return errorutil.NewCollaboratorUnavailable("case source", fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func toDomainCase(record caseRecord) domain.Case {
	return domain.Case{
		ID:         record.ID,
		Title:      record.Title,
		Status:     domain.CaseStatus(strings.ToUpper(record.Status)),
		Priority:   domain.CasePriority(strings.ToUpper(record.Priority)),
		EngineerID: record.EngineerID,
		CustomerID: record.CustomerID,
		CreatedAt:  record.CreatedAt,
		ModifiedAt: record.ModifiedAt,
	}
}

var _ CaseSource = (*Client)(nil)
