// Package statuspage reads incidents from an Atlassian Statuspage v2 API
// and turns them into incident update events.
package statuspage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Priya8975/status-relay/internal/domain"
)

// Component is a status page component. Group components list their
// children in Components.
type Component struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Status     string   `json:"status"`
	GroupID    string   `json:"group_id"`
	Group      bool     `json:"group"`
	Position   int      `json:"position"`
	Components []string `json:"components"`
}

type PageStatus struct {
	Indicator   string `json:"indicator"`
	Description string `json:"description"`
}

// Summary is the response of /api/v2/summary.json.
type Summary struct {
	Status     PageStatus        `json:"status"`
	Components []Component       `json:"components"`
	Incidents  []domain.Incident `json:"incidents"`
}

type incidentsResponse struct {
	Incidents []domain.Incident `json:"incidents"`
}

// Client fetches status page documents.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Incidents returns the most recent incidents, newest first.
func (c *Client) Incidents(ctx context.Context) ([]domain.Incident, error) {
	var body incidentsResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v2/incidents.json")
	if err != nil {
		return nil, fmt.Errorf("fetching incidents: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching incidents: unexpected status %d", resp.StatusCode())
	}
	return body.Incidents, nil
}

// Summary returns the overall page status and component states.
func (c *Client) Summary(ctx context.Context) (*Summary, error) {
	var body Summary
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/api/v2/summary.json")
	if err != nil {
		return nil, fmt.Errorf("fetching summary: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetching summary: unexpected status %d", resp.StatusCode())
	}
	return &body, nil
}
