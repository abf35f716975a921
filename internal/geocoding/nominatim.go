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

	"golang.org/x/time/rate"
)

// NominatimProvider talks to the OSM Nominatim API. The public instance allows
// one request per second, so every call waits on a shared limiter.
type NominatimProvider struct {
	baseURL      string
	userAgent    string
	countryCodes string
	client       *http.Client
	limiter      *rate.Limiter
}

func NewNominatimProvider(cfg Config) *NominatimProvider {
	cfg = cfg.withDefaults()
	return &NominatimProvider{
		baseURL:      cfg.NominatimBaseURL,
		userAgent:    cfg.UserAgent,
		countryCodes: cfg.CountryCodes,
		client:       cfg.HTTPClient,
		limiter:      rate.NewLimiter(rate.Limit(cfg.NominatimRPS), 1),
	}
}

func (p *NominatimProvider) Name() string { return ProviderNominatim }

type nominatimAddress struct {
	HouseNumber   string `json:"house_number"`
	Road          string `json:"road"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	City          string `json:"city"`
	Town          string `json:"town"`
	State         string `json:"state"`
}

// label builds "12 Hay Street, East Perth, Perth, Western Australia" from
// whichever components are present.
func (a *nominatimAddress) label() string {
	var parts []string
	switch {
	case a.HouseNumber != "" && a.Road != "":
		parts = append(parts, a.HouseNumber+" "+a.Road)
	case a.Road != "":
		parts = append(parts, a.Road)
	}
	if s := firstNonEmpty(a.Suburb, a.Neighbourhood); s != "" {
		parts = append(parts, s)
	}
	if s := firstNonEmpty(a.City, a.Town); s != "" {
		parts = append(parts, s)
	}
	if a.State != "" {
		parts = append(parts, a.State)
	}
	return strings.Join(parts, ", ")
}

func (p *NominatimProvider) ResolveAddress(ctx context.Context, c geo.Coordinate) (string, error) {
	params := url.Values{
		"format":         {"json"},
		"lat":            {formatFloat(c.Latitude)},
		"lon":            {formatFloat(c.Longitude)},
		"zoom":           {"16"},
		"addressdetails": {"1"},
	}

	var data struct {
		DisplayName string            `json:"display_name"`
		Address     *nominatimAddress `json:"address"`
	}
	if err := p.get(ctx, "/reverse", params, &data); err != nil {
		return "", err
	}

	if data.DisplayName == "" {
		return "", ErrNoResult
	}
	if data.Address != nil {
		if label := data.Address.label(); label != "" {
			return label, nil
		}
	}
	return data.DisplayName, nil
}

// Geocode looks up free text, restricted to the configured country codes.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	params := url.Values{
		"format": {"json"},
		"q":      {address},
		"limit":  {"1"},
	}
	if p.countryCodes != "" {
		params.Set("countrycodes", p.countryCodes)
	}

	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := p.get(ctx, "/search", params, &results); err != nil {
		return geo.Coordinate{}, err
	}
	if len(results) == 0 {
		return geo.Coordinate{}, ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("nominatim: bad lat %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("nominatim: bad lon %q: %w", results[0].Lon, err)
	}
	return geo.Coordinate{Latitude: lat, Longitude: lon}, nil
}

func (p *NominatimProvider) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("nominatim: rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept-Language", "en")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim: HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nominatim: decode: %w", err)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
