package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
)

// ErrStaleRefresh is returned by Refresh when a newer refresh was applied
// while this one was in flight. The stale result is discarded.
var ErrStaleRefresh = errors.New("refresh superseded by a newer one")

// Fetcher queries the earthquake event service for a time window.
type Fetcher interface {
	FetchEvents(ctx context.Context, start, end time.Time) (domain.FeatureCollection, error)
}

// BoundarySource fetches one boundary layer's raw features.
type BoundarySource interface {
	FetchLayer(ctx context.Context, def domain.LayerDef) (domain.EsriFeatureSet, error)
}

// Publisher receives every applied record set.
type Publisher interface {
	Publish(ctx context.Context, set domain.RecordSet) error
}

// SnapshotStore persists the last applied record set across restarts.
type SnapshotStore interface {
	Save(ctx context.Context, set domain.RecordSet) error
	Load(ctx context.Context) (domain.RecordSet, bool, error)
	CheckReadiness(ctx context.Context) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPublisher publishes each applied record set.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) { p.publisher = pub }
}

// WithSnapshots persists each applied record set and enables Restore.
func WithSnapshots(store SnapshotStore) Option {
	return func(p *Pipeline) { p.snapshots = store }
}

// WithLayers replaces the default boundary layer catalog.
func WithLayers(defs []domain.LayerDef) Option {
	return func(p *Pipeline) { p.layerDefs = defs }
}

// WithLocation sets the time zone used for formatted timestamps.
func WithLocation(loc *time.Location) Option {
	return func(p *Pipeline) { p.loc = loc }
}

// WithRefreshInterval re-runs the last filter periodically. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(p *Pipeline) { p.refreshInterval = d }
}

// WithClock sets the clock driving the flash animation and periodic refresh.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// Pipeline fetches, filters and holds the earthquake record set together with
// the view state derived from it: markers, viewport, list, boundary layers and
// the current selection.
type Pipeline struct {
	fetcher    Fetcher
	boundaries BoundarySource
	publisher  Publisher
	snapshots  SnapshotStore

	layerDefs       []domain.LayerDef
	loc             *time.Location
	refreshInterval time.Duration
	clock           clockwork.Clock
	logger          *slog.Logger
	metrics         *observability.Metrics

	ready atomic.Bool
	seq   atomic.Uint64

	mu          sync.RWMutex
	applied     uint64
	records     domain.RecordSet
	lastRequest domain.FilterRequest
	viewport    domain.Viewport
	layers      []domain.Layer

	// Selection state, guarded by mu.
	selectedID  string
	visual      domain.VisualState
	scrollTo    string
	flashToken  uint64
	flashCancel context.CancelFunc
}

// New creates a Pipeline. Boundary layers start visible and empty until
// LoadBoundaries runs.
func New(fetcher Fetcher, boundaries BoundarySource, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher:    fetcher,
		boundaries: boundaries,
		layerDefs:  domain.DefaultLayers,
		loc:        time.UTC,
		clock:      clockwork.NewRealClock(),
		logger:     logger,
		metrics:    metrics,
		viewport:   domain.DefaultViewport(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.layers = make([]domain.Layer, len(p.layerDefs))
	for i, def := range p.layerDefs {
		p.layers[i] = domain.Layer{Def: def, Visible: true}
	}
	return p
}

// CheckReadiness returns nil once a refresh has been applied and, when
// snapshots are enabled, the snapshot store answers.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if !p.ready.Load() {
		return errors.New("no earthquake data has been loaded yet")
	}
	if p.snapshots != nil {
		if err := p.snapshots.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("snapshot store: %w", err)
		}
	}
	return nil
}

// Run loads the boundary layers, performs the initial refresh and, when a
// refresh interval is configured, keeps refreshing with the last filter until
// the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.refreshInterval, "layers", len(p.layerDefs))
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.LoadBoundaries(ctx)
	p.refreshLast(ctx)

	if p.refreshInterval <= 0 {
		<-ctx.Done()
		p.logger.Info("pipeline stopping", "reason", ctx.Err())
		return nil
	}

	ticker := p.clock.NewTicker(p.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			p.refreshLast(ctx)
			p.LoadBoundaries(ctx)
		}
	}
}

// refreshLast re-runs the most recent filter request. Defaults are resolved
// again so an open-ended window keeps tracking the current time.
func (p *Pipeline) refreshLast(ctx context.Context) {
	p.mu.RLock()
	req := p.lastRequest
	p.mu.RUnlock()
	// Errors are logged and counted by Refresh.
	_, _ = p.RefreshRequest(ctx, req)
}

// RefreshRequest validates a filter request and refreshes with it.
func (p *Pipeline) RefreshRequest(ctx context.Context, req domain.FilterRequest) (domain.RecordSet, error) {
	filter, err := domain.ParseFilterRequest(req, p.loc)
	if err != nil {
		return domain.RecordSet{}, err
	}
	return p.refresh(ctx, filter, &req)
}

// Refresh fetches the filter's window, replaces the record set and resets the
// view. A failed fetch leaves the current state untouched. Each call takes a
// sequence number; a result that finishes after a newer one was applied is
// dropped with ErrStaleRefresh.
func (p *Pipeline) Refresh(ctx context.Context, filter domain.Filter) (domain.RecordSet, error) {
	return p.refresh(ctx, filter, nil)
}

// refresh records req as the request periodic refreshes repeat, under the
// same lock hold that applies its result.
func (p *Pipeline) refresh(ctx context.Context, filter domain.Filter, req *domain.FilterRequest) (domain.RecordSet, error) {
	seq := p.seq.Add(1)

	fc, err := p.fetcher.FetchEvents(ctx, filter.Start, filter.End)
	if err != nil {
		p.logger.Error("fetch earthquakes failed", "error", err, "seq", seq,
			"start", filter.Start, "end", filter.End)
		return domain.RecordSet{}, fmt.Errorf("fetch earthquakes: %w", err)
	}

	set := domain.RecordSet{
		Generation: seq,
		Filter:     filter,
		FetchedAt:  p.clock.Now().UTC(),
		Quakes:     filter.Apply(fc.Features, p.loc),
	}

	p.mu.Lock()
	if seq <= p.applied {
		latest := p.applied
		p.mu.Unlock()
		p.metrics.StaleRefreshes.Inc()
		p.logger.Warn("discarding stale refresh", "seq", seq, "applied", latest)
		return domain.RecordSet{}, ErrStaleRefresh
	}
	p.applyLocked(set)
	if req != nil {
		p.lastRequest = *req
	}
	p.mu.Unlock()

	p.ready.Store(true)
	p.metrics.RefreshesApplied.Inc()
	p.metrics.QuakesLoaded.Set(float64(len(set.Quakes)))
	p.metrics.QuakesExcluded.Add(float64(len(fc.Features) - len(set.Quakes)))
	p.logger.Info("record set applied", "generation", seq, "quakes", len(set.Quakes),
		"fetched", len(fc.Features), "alert", filter.Alert)

	p.persist(ctx, set)
	return set, nil
}

// applyLocked swaps in a new record set. The old markers are gone, so the
// selection is cleared and the viewport returns to its default position.
func (p *Pipeline) applyLocked(set domain.RecordSet) {
	p.records = set
	p.applied = set.Generation
	p.clearSelectionLocked()
	p.viewport = p.viewport.MoveTo(domain.DefaultCenter(), domain.DefaultZoom)
}

func (p *Pipeline) persist(ctx context.Context, set domain.RecordSet) {
	if p.snapshots != nil {
		if err := p.snapshots.Save(ctx, set); err != nil {
			p.metrics.PublishErrors.Inc()
			p.logger.Warn("save snapshot failed", "error", err, "generation", set.Generation)
		}
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, set); err != nil {
			p.metrics.PublishErrors.Inc()
			p.logger.Warn("publish record set failed", "error", err, "generation", set.Generation)
		}
	}
}

// Restore loads the last persisted record set, if any. It must run before
// the first Refresh; later refreshes continue the restored generation count.
func (p *Pipeline) Restore(ctx context.Context) error {
	if p.snapshots == nil {
		return nil
	}
	set, ok, err := p.snapshots.Load(ctx)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.applied != 0 {
		return nil
	}
	p.seq.Store(set.Generation)
	p.applyLocked(set)
	p.metrics.QuakesLoaded.Set(float64(len(set.Quakes)))
	p.logger.Info("snapshot restored", "generation", set.Generation, "quakes", len(set.Quakes),
		"fetched_at", set.FetchedAt)
	return nil
}

// LoadBoundaries fetches every boundary layer concurrently. A layer that
// fails to load is logged and keeps whatever it held before, so a layer that
// never loaded stays empty until a later call succeeds. Run calls it on every
// refresh tick; a caching source answers loaded layers from memory.
func (p *Pipeline) LoadBoundaries(ctx context.Context) {
	features := make([][]domain.BoundaryFeature, len(p.layerDefs))
	loaded := make([]bool, len(p.layerDefs))

	var g errgroup.Group
	for i, def := range p.layerDefs {
		g.Go(func() error {
			features[i], loaded[i] = p.loadLayer(ctx, def)
			return nil
		})
	}
	_ = g.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.layers {
		if loaded[i] {
			p.layers[i].Features = features[i]
		}
	}
}

// ReloadBoundaries drops any cached layer responses and fetches every layer
// again.
func (p *Pipeline) ReloadBoundaries(ctx context.Context) {
	if c, ok := p.boundaries.(interface{ Purge() }); ok {
		c.Purge()
	}
	p.LoadBoundaries(ctx)
}

func (p *Pipeline) loadLayer(ctx context.Context, def domain.LayerDef) ([]domain.BoundaryFeature, bool) {
	set, err := p.boundaries.FetchLayer(ctx, def)
	if err != nil {
		p.logger.Warn("boundary layer unavailable", "layer", def.Name, "error", err)
		return nil, false
	}
	features, err := domain.ReprojectFeatureSet(set, def.LabelField)
	if err != nil {
		p.logger.Warn("boundary layer reprojection failed", "layer", def.Name, "error", err)
		return nil, false
	}
	p.metrics.BoundaryFeatures.WithLabelValues(def.Name).Set(float64(len(features)))
	p.logger.Debug("boundary layer loaded", "layer", def.Name, "features", len(features))
	return features, true
}

// Close stops any running flash animation.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopFlashLocked()
}
