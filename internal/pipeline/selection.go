package pipeline

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// Select handles a click on a marker or a list row. Clicking the selected
// row again clears the selection; any other click selects id, clearing the
// previous selection first, and starts the flash animation.
func (p *Pipeline) Select(id string, source domain.SelectionSource) (domain.SelectionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	q, ok := p.findLocked(id)
	if !ok {
		return p.selectionLocked(), fmt.Errorf("%w: %q", domain.ErrUnknownQuake, id)
	}

	if source == domain.SourceList && p.selectedID == id {
		p.clearSelectionLocked()
		p.viewport = p.viewport.MoveTo(domain.DefaultCenter(), domain.DefaultZoom)
		p.metrics.SelectionChanges.WithLabelValues("clear").Inc()
		return p.selectionLocked(), nil
	}

	p.clearSelectionLocked()
	p.selectedID = q.ID
	p.scrollTo = q.ID
	p.viewport = p.viewport.MoveTo(domain.Point{X: q.X, Y: q.Y}, domain.FocusZoom)
	p.startFlashLocked()
	p.metrics.SelectionChanges.WithLabelValues("select").Inc()
	p.logger.Debug("quake selected", "id", q.ID, "source", source)
	return p.selectionLocked(), nil
}

// ClearSelection handles a click on empty map space. The viewport always
// returns to the default position, selected quake or not.
func (p *Pipeline) ClearSelection() domain.SelectionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.selectedID != "" {
		p.clearSelectionLocked()
		p.metrics.SelectionChanges.WithLabelValues("clear").Inc()
	}
	p.viewport = p.viewport.MoveTo(domain.DefaultCenter(), domain.DefaultZoom)
	return p.selectionLocked()
}

// Selection returns the current selection state.
func (p *Pipeline) Selection() domain.SelectionState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selectionLocked()
}

func (p *Pipeline) selectionLocked() domain.SelectionState {
	state := domain.SelectionState{
		SelectedID: p.selectedID,
		State:      domain.StateDefault,
		ScrollTo:   p.scrollTo,
		Viewport:   p.viewport,
	}
	if p.selectedID == "" {
		return state
	}
	state.State = p.visual
	if q, ok := p.findLocked(p.selectedID); ok {
		state.Popup = &domain.Popup{
			Title:         q.Title,
			FormattedTime: q.FormattedTime,
			Position:      domain.Point{X: q.X, Y: q.Y},
		}
	}
	return state
}

func (p *Pipeline) findLocked(id string) (domain.Quake, bool) {
	for _, q := range p.records.Quakes {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Quake{}, false
}

func (p *Pipeline) clearSelectionLocked() {
	p.stopFlashLocked()
	p.selectedID = ""
	p.scrollTo = ""
	p.visual = domain.StateDefault
}

func (p *Pipeline) stopFlashLocked() {
	if p.flashCancel != nil {
		p.flashCancel()
		p.flashCancel = nil
	}
	p.flashToken++
}

// startFlashLocked puts the selection into the flashing state and starts the
// animation. The ticker is created before returning so a fake clock sees it
// immediately.
func (p *Pipeline) startFlashLocked() {
	p.stopFlashLocked()
	ctx, cancel := context.WithCancel(context.Background())
	p.flashCancel = cancel
	token := p.flashToken
	p.visual = domain.StateFlashing

	ticker := p.clock.NewTicker(domain.FlashInterval)
	go p.flash(ctx, ticker, token)
}

// flash toggles the highlight on every tick. The last tick settles into the
// steady selected state. A cancelled context or a newer token ends it early.
func (p *Pipeline) flash(ctx context.Context, ticker clockwork.Ticker, token uint64) {
	defer ticker.Stop()
	for toggles := 1; ; toggles++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		p.mu.Lock()
		if p.flashToken != token {
			p.mu.Unlock()
			return
		}
		if toggles >= domain.FlashToggles {
			p.visual = domain.StateSelected
			p.stopFlashLocked()
			p.mu.Unlock()
			return
		}
		if p.visual == domain.StateFlashing {
			p.visual = domain.StateSelected
		} else {
			p.visual = domain.StateFlashing
		}
		p.mu.Unlock()
	}
}
