package pipeline

import (
	"fmt"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// Records returns the current record set.
func (p *Pipeline) Records() domain.RecordSet {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.records
}

// Markers renders the marker layer for the current generation.
func (p *Pipeline) Markers() domain.MarkerLayer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return domain.RenderMarkers(p.records.Generation, p.records.Quakes, p.stateOfLocked)
}

func (p *Pipeline) stateOfLocked(id string) domain.VisualState {
	if id != "" && id == p.selectedID {
		return p.visual
	}
	return domain.StateDefault
}

// List returns the sidebar rows visible in the current viewport.
func (p *Pipeline) List() []domain.ListRow {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return domain.BuildList(p.records.Quakes, p.viewport.Extent(), p.selectedID)
}

// Viewport returns the current view.
func (p *Pipeline) Viewport() domain.Viewport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.viewport
}

// SetViewport applies a pan or zoom and returns the new view together with
// the list synchronized to it. An invalid update leaves the view unchanged.
func (p *Pipeline) SetViewport(update domain.ViewportUpdate) (domain.Viewport, []domain.ListRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := update.Apply(p.viewport)
	if err != nil {
		return p.viewport, nil, err
	}
	p.viewport = next
	return next, domain.BuildList(p.records.Quakes, next.Extent(), p.selectedID), nil
}

// Layers returns a copy of the boundary layers with their visibility.
func (p *Pipeline) Layers() []domain.Layer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	layers := make([]domain.Layer, len(p.layers))
	copy(layers, p.layers)
	return layers
}

// SetLayerVisible shows or hides every layer in a group. The earthquake
// marker layer is not a boundary group and cannot be toggled here.
func (p *Pipeline) SetLayerVisible(group string, visible bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	found := false
	for i := range p.layers {
		if p.layers[i].Def.Group == group {
			p.layers[i].Visible = visible
			found = true
		}
	}
	if !found {
		return fmt.Errorf("%w: %q", domain.ErrUnknownLayer, group)
	}
	p.logger.Debug("layer visibility changed", "group", group, "visible", visible)
	return nil
}

// Controls builds the control model with one checkbox per layer group.
func (p *Pipeline) Controls() domain.Controls {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return domain.BuildControls(p.layerTogglesLocked(), p.loc)
}

// layerTogglesLocked returns one toggle per group in catalog order, labelled
// with the title of the group's first layer.
func (p *Pipeline) layerTogglesLocked() []domain.LayerToggle {
	toggles := make([]domain.LayerToggle, 0, len(p.layers))
	index := make(map[string]int, len(p.layers))
	for _, l := range p.layers {
		if i, ok := index[l.Def.Group]; ok {
			toggles[i].Checked = toggles[i].Checked || l.Visible
			continue
		}
		index[l.Def.Group] = len(toggles)
		toggles = append(toggles, domain.LayerToggle{Group: l.Def.Group, Label: l.Def.Title, Checked: l.Visible})
	}
	return toggles
}
