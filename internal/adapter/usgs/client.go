package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// isoLayout matches the millisecond UTC timestamps browsers send, e.g.
// "2024-01-01T00:00:00.000Z".
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

const queryPath = "/fdsnws/event/1/query"

// Client fetches earthquake events from the USGS FDSN event service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS event client. baseURL is the service root,
// e.g. "https://earthquake.usgs.gov".
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchEvents queries every event in [start, end]. The service cannot filter
// by alert level, so the caller filters the result.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) (domain.FeatureCollection, error) {
	params := url.Values{
		"format":    {"geojson"},
		"starttime": {start.UTC().Format(isoLayout)},
		"endtime":   {end.UTC().Format(isoLayout)},
	}
	fullURL := c.baseURL + queryPath + "?" + params.Encode()

	began := time.Now()
	fc, err := c.doRequest(ctx, fullURL)
	c.metrics.FetchDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return domain.FeatureCollection{}, err
	}
	c.metrics.FetchRequests.WithLabelValues("success").Inc()
	c.logger.Debug("usgs events fetched", "count", len(fc.Features), "start", start, "end", end)
	return fc, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("usgs events request: %w", err)
	}
	defer resp.Body.Close()

	// The service answers 204 when the window holds no events.
	if resp.StatusCode == http.StatusNoContent {
		return domain.FeatureCollection{Type: "FeatureCollection"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.FeatureCollection{}, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var fc domain.FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode response: %w", err)
	}
	return fc, nil
}
