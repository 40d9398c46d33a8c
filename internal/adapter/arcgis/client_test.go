package arcgis

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
)

const faultsBody = `{
  "geometryType": "esriGeometryPolyline",
  "spatialReference": {"wkid": 102100, "latestWkid": 3857},
  "features": [
    {"attributes": {"OBJECTID": 1, "slip_type": "Dextral"},
     "geometry": {"paths": [[[13000000, 2500000], [13010000, 2510000]]]}}
  ]
}`

var faultsDef = domain.LayerDef{Name: "faults", Group: domain.GroupFaults, Service: "Active_Faults", LayerID: 0}

func testClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchLayer_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Active_Faults/FeatureServer/0/query", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("f"))
		assert.Equal(t, "1=1", q.Get("where"))
		assert.Equal(t, "true", q.Get("returnGeometry"))
		assert.Equal(t, "esriSpatialRelIntersects", q.Get("spatialRel"))
		assert.Equal(t, "*", q.Get("outFields"))
		assert.Equal(t, "102100", q.Get("outSR"))
		assert.Equal(t, "102100", q.Get("inSR"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(faultsBody))
	}))
	defer srv.Close()

	set, err := testClient(srv.URL).FetchLayer(context.Background(), faultsDef)
	require.NoError(t, err)

	assert.Equal(t, "esriGeometryPolyline", set.GeometryType)
	assert.Equal(t, 3857, set.SpatialReference.LatestWKID)
	require.Len(t, set.Features, 1)
	assert.Equal(t, "Dextral", set.Features[0].Attributes["slip_type"])
	require.NotNil(t, set.Features[0].Geometry)
	assert.Len(t, set.Features[0].Geometry.Paths[0], 2)
}

func TestClient_FetchLayer_EmbeddedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "Invalid URL", "details": []}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchLayer(context.Background(), faultsDef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layer faults")
	assert.Contains(t, err.Error(), "Invalid URL")
}

func TestClient_FetchLayer_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchLayer(context.Background(), faultsDef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_LayerURL(t *testing.T) {
	c := testClient("https://example.com/arcgis/rest/services/")
	u := c.LayerURL(domain.LayerDef{Service: "Tectonic_Plates_and_Boundaries", LayerID: 1})
	assert.Contains(t, u, "https://example.com/arcgis/rest/services/Tectonic_Plates_and_Boundaries/FeatureServer/1/query?")
	assert.Contains(t, u, "where=1%3D1")
}
