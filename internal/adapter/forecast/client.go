// Package forecast is the HTTP client for the remote event-forecast service.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/event-risk-client/internal/domain"
)

const forecastPath = "/event-forecast"

// ErrNoBaseURL is returned when neither a configured base URL nor a request
// origin is available to route the call.
var ErrNoBaseURL = errors.New("forecast service address unknown")

type originKey struct{}

// WithOrigin attaches the host page's origin (scheme://host) to ctx. It is
// used as the base URL when the client has none configured.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originKey{}, strings.TrimRight(origin, "/"))
}

func originFrom(ctx context.Context) string {
	s, _ := ctx.Value(originKey{}).(string)
	return s
}

// Client implements domain.ForecastClient over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a forecast client. An empty baseURL routes each call
// relative to the origin attached with WithOrigin. A zero timeout disables
// the client-side deadline.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Forecast posts req and decodes the classification. Non-2xx responses are
// returned as *domain.APIError.
func (c *Client) Forecast(ctx context.Context, req domain.EventRequest) (domain.ForecastResult, error) {
	base := c.baseURL
	if base == "" {
		base = originFrom(ctx)
	}
	if base == "" {
		return domain.ForecastResult{}, ErrNoBaseURL
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, base+forecastPath, bytes.NewReader(body))
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.ForecastResult{}, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &domain.APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		// Bodies that are not JSON leave Message empty.
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errBody) == nil {
			apiErr.Message = errBody.Error
		}
		c.logger.Debug("forecast service rejected request", "status", resp.StatusCode, "error", apiErr.Message)
		return domain.ForecastResult{}, apiErr
	}

	var result domain.ForecastResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.ForecastResult{}, fmt.Errorf("decode forecast: %w", err)
	}
	return result, nil
}
