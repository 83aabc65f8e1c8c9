// Package collector is the HTTP client for the external evidence collector,
// which owns the raw log-store queries for an incident.
package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"inquest/internal/domain"
)

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base: baseURL,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Collect(ctx context.Context, incidentID string) (domain.Evidence, error) {
	var ev domain.Evidence

	u := fmt.Sprintf("%s/incidents/%s/evidence", c.base, url.PathEscape(incidentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ev, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ev, fmt.Errorf("evidence collector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return ev, fmt.Errorf("evidence collector: %s: %s", resp.Status, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return ev, fmt.Errorf("evidence collector: decode: %w", err)
	}
	return ev, nil
}
