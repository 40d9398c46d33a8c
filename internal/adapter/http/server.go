package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// MapService is the map state the API reads and drives.
// It is implemented by *pipeline.Pipeline.
type MapService interface {
	CheckReadiness(ctx context.Context) error

	Records() domain.RecordSet
	RefreshRequest(ctx context.Context, req domain.FilterRequest) (domain.RecordSet, error)
	Markers() domain.MarkerLayer
	List() []domain.ListRow

	Viewport() domain.Viewport
	SetViewport(update domain.ViewportUpdate) (domain.Viewport, []domain.ListRow, error)

	Selection() domain.SelectionState
	Select(id string, source domain.SelectionSource) (domain.SelectionState, error)
	ClearSelection() domain.SelectionState

	Layers() []domain.Layer
	SetLayerVisible(group string, visible bool) error
	ReloadBoundaries(ctx context.Context)
	Controls() domain.Controls
}

// Server exposes the map API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        MapService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the /api routes and /healthz,
// /readyz, and /metrics.
func NewServer(addr string, svc MapService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: mux,
			// An explicit refresh waits on the upstream event API.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/earthquakes", s.handleEarthquakes)
	mux.HandleFunc("POST /api/earthquakes/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/markers", s.handleMarkers)
	mux.HandleFunc("GET /api/list", s.handleList)
	mux.HandleFunc("GET /api/viewport", s.handleGetViewport)
	mux.HandleFunc("PUT /api/viewport", s.handlePutViewport)
	mux.HandleFunc("GET /api/selection", s.handleGetSelection)
	mux.HandleFunc("POST /api/selection", s.handleSelect)
	mux.HandleFunc("DELETE /api/selection", s.handleClearSelection)
	mux.HandleFunc("GET /api/layers", s.handleLayers)
	mux.HandleFunc("PUT /api/layers/{group}", s.handleSetLayer)
	mux.HandleFunc("POST /api/layers/reload", s.handleReloadLayers)
	mux.HandleFunc("GET /api/controls", s.handleControls)
	mux.HandleFunc("POST /api/layout/resize", s.handleResize)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleEarthquakes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Records())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.FilterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := domain.ParseFilterRequest(req, nil); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	set, err := s.svc.RefreshRequest(r.Context(), req)
	switch {
	case errors.Is(err, pipeline.ErrStaleRefresh):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
	default:
		writeJSON(w, http.StatusOK, set)
	}
}

func (s *Server) handleMarkers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Markers())
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.List())
}

type viewportResponse struct {
	Viewport domain.Viewport  `json:"viewport"`
	List     []domain.ListRow `json:"list"`
}

func (s *Server) handleGetViewport(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewportResponse{Viewport: s.svc.Viewport(), List: s.svc.List()})
}

func (s *Server) handlePutViewport(w http.ResponseWriter, r *http.Request) {
	var update domain.ViewportUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	vp, rows, err := s.svc.SetViewport(update)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, viewportResponse{Viewport: vp, List: rows})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Selection())
}

type selectRequest struct {
	ID     string `json:"id"`
	Source string `json:"source"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("id is required"))
		return
	}
	source, err := domain.ParseSelectionSource(req.Source)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	state, err := s.svc.Select(req.ID, source)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ClearSelection())
}

type layerResponse struct {
	Name        string                          `json:"name"`
	Group       string                          `json:"group"`
	Title       string                          `json:"title"`
	Visible     bool                            `json:"visible"`
	StrokeColor string                          `json:"stroke_color,omitempty"`
	StrokeWidth float64                         `json:"stroke_width,omitempty"`
	LabelField  string                          `json:"label_field,omitempty"`
	Features    domain.GeoJSONFeatureCollection `json:"features"`
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	s.writeLayers(w)
}

func (s *Server) handleReloadLayers(w http.ResponseWriter, r *http.Request) {
	s.svc.ReloadBoundaries(r.Context())
	s.writeLayers(w)
}

func (s *Server) writeLayers(w http.ResponseWriter) {
	layers := s.svc.Layers()
	resp := make([]layerResponse, len(layers))
	for i, l := range layers {
		resp[i] = layerResponse{
			Name:        l.Def.Name,
			Group:       l.Def.Group,
			Title:       l.Def.Title,
			Visible:     l.Visible,
			StrokeColor: l.Def.StrokeColor,
			StrokeWidth: l.Def.StrokeWidth,
			LabelField:  l.Def.LabelField,
			Features:    domain.LayerGeoJSON(l.Features),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type visibilityRequest struct {
	Visible *bool `json:"visible"`
}

func (s *Server) handleSetLayer(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Visible == nil {
		writeError(w, http.StatusBadRequest, errors.New("visible is required"))
		return
	}
	group := r.PathValue("group")
	if err := s.svc.SetLayerVisible(group, *req.Visible); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group": group, "visible": *req.Visible})
}

func (s *Server) handleControls(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Controls())
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	var req domain.ResizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ContainerWidth <= 0 || req.InitialWidth <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("container_width and initial_width must be positive"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{"width": domain.ResizePane(req)})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownQuake), errors.Is(err, domain.ErrUnknownLayer):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidViewport), errors.Is(err, domain.ErrInvalidAlert):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	// An empty body leaves v at its zero value.
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
