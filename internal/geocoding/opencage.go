package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rigger-connect-backend/pkg/geo"
)

type OpenCageProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenCageProvider(cfg Config) *OpenCageProvider {
	cfg = cfg.withDefaults()
	return &OpenCageProvider{
		apiKey:  cfg.OpenCageAPIKey,
		baseURL: cfg.OpenCageBaseURL,
		client:  cfg.HTTPClient,
	}
}

func (p *OpenCageProvider) Name() string { return ProviderOpenCage }

func (p *OpenCageProvider) ResolveAddress(ctx context.Context, c geo.Coordinate) (string, error) {
	if p.apiKey == "" {
		return "", ErrNotConfigured
	}

	params := url.Values{
		"q":              {formatFloat(c.Latitude) + " " + formatFloat(c.Longitude)},
		"key":            {p.apiKey},
		"language":       {"en"},
		"no_annotations": {"1"},
		"limit":          {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("opencage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("opencage: HTTP %d", resp.StatusCode)
	}

	var data struct {
		Results []struct {
			Formatted string `json:"formatted"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("opencage: decode: %w", err)
	}

	if len(data.Results) == 0 || strings.TrimSpace(data.Results[0].Formatted) == "" {
		return "", ErrNoResult
	}
	return data.Results[0].Formatted, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
