package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/event-risk-client/internal/config"
	"github.com/couchcryptid/event-risk-client/internal/domain"
	"github.com/couchcryptid/event-risk-client/internal/observability"
)

// Client implements domain.Geocoder using the Open-Meteo Geocoding API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	count      int
	language   string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an Open-Meteo geocoding client from the configuration.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.GeocodingTimeout,
		},
		baseURL:  cfg.GeocodingURL,
		count:    cfg.SuggestionCount,
		language: cfg.SuggestionLanguage,
		limiter:  rate.NewLimiter(rate.Limit(cfg.GeocodingRateLimit), 1),
		metrics:  metrics,
		logger:   logger,
	}
}

// Search returns up to count ranked places matching query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.PlaceCandidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("geocode rate limit: %w", err)
	}

	params := url.Values{
		"name":     {query},
		"count":    {strconv.Itoa(c.count)},
		"language": {c.language},
		"format":   {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var searchResp response
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(searchResp.Results) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return []domain.PlaceCandidate{}, nil
	}

	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	candidates := make([]domain.PlaceCandidate, 0, len(searchResp.Results))
	for _, r := range searchResp.Results {
		candidates = append(candidates, domain.NewPlaceCandidate(r.ID, r.Name, r.Admin1, r.Country, r.Latitude, r.Longitude))
	}
	c.logger.Debug("geocode search", "query", query, "results", len(candidates))
	return candidates, nil
}

// Open-Meteo API response types. A query with no match omits "results".

type response struct {
	Results []result `json:"results"`
}

type result struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1"`
}
