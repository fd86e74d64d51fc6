package holidays

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"daybook/internal/models"
)

// DefaultNagerBaseURL is the public Nager.Date API.
const DefaultNagerBaseURL = "https://date.nager.at"

// NagerClient queries the Nager.Date public holiday API.
type NagerClient struct {
	baseURL string
	http    *http.Client
}

// NewNagerClient returns a client for baseURL. A nil httpClient gets a 10s timeout client.
func NewNagerClient(baseURL string, httpClient *http.Client) *NagerClient {
	if baseURL == "" {
		baseURL = DefaultNagerBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &NagerClient{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// ListHolidays implements Provider. An unknown country yields an empty list.
func (c *NagerClient) ListHolidays(ctx context.Context, year int, countryCode string) ([]models.Holiday, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}
	country, err := normalizeCountry(countryCode)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.baseURL, year, country)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build holiday request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return []models.Holiday{}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch holidays: unexpected status %d", resp.StatusCode)
	}

	var out []models.Holiday
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}
	if out == nil {
		out = []models.Holiday{}
	}
	return out, nil
}
