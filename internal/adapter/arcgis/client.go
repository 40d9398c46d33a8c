package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// Client queries ArcGIS FeatureServer layers for boundary geometry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FeatureServer client. baseURL is the services root,
// e.g. "https://services.arcgis.com/<org>/arcgis/rest/services".
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

// queryParams requests every feature with all attributes, in and out of
// Web Mercator (wkid 102100).
func queryParams() url.Values {
	return url.Values{
		"f":              {"json"},
		"where":          {"1=1"},
		"returnGeometry": {"true"},
		"spatialRel":     {"esriSpatialRelIntersects"},
		"outFields":      {"*"},
		"outSR":          {strconv.Itoa(domain.WKIDWebMercator)},
		"inSR":           {strconv.Itoa(domain.WKIDWebMercator)},
	}
}

// LayerURL returns the query URL for a layer definition.
func (c *Client) LayerURL(def domain.LayerDef) string {
	return fmt.Sprintf("%s/%s/FeatureServer/%d/query?%s",
		c.baseURL, url.PathEscape(def.Service), def.LayerID, queryParams().Encode())
}

// FetchLayer downloads one layer's features. ArcGIS reports query errors in
// a 200 response body; those are returned as errors too.
func (c *Client) FetchLayer(ctx context.Context, def domain.LayerDef) (domain.EsriFeatureSet, error) {
	set, err := c.doRequest(ctx, c.LayerURL(def))
	if err != nil {
		c.metrics.BoundaryRequests.WithLabelValues(def.Name, "error").Inc()
		return domain.EsriFeatureSet{}, fmt.Errorf("layer %s: %w", def.Name, err)
	}
	c.metrics.BoundaryRequests.WithLabelValues(def.Name, "success").Inc()
	c.logger.Debug("arcgis layer fetched", "layer", def.Name, "features", len(set.Features))
	return set, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.EsriFeatureSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.EsriFeatureSet{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.EsriFeatureSet{}, fmt.Errorf("arcgis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.EsriFeatureSet{}, fmt.Errorf("arcgis API error: status %d: %s", resp.StatusCode, body)
	}

	var set domain.EsriFeatureSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return domain.EsriFeatureSet{}, fmt.Errorf("decode response: %w", err)
	}
	if set.Error != nil {
		return domain.EsriFeatureSet{}, set.Error
	}
	return set, nil
}
