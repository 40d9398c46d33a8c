package domain

import (
	"fmt"
	"time"
)

// SelectionSource is where a selection click came from.
type SelectionSource string

const (
	// SourceMarker is a click on a map marker. Clicking the selected marker
	// again re-selects it and restarts the flash.
	SourceMarker SelectionSource = "marker"
	// SourceList is a click on a sidebar row. Clicking the selected row again
	// clears the selection.
	SourceList SelectionSource = "list"
)

// ParseSelectionSource defaults to SourceMarker for the empty string.
func ParseSelectionSource(s string) (SelectionSource, error) {
	switch SelectionSource(s) {
	case "", SourceMarker:
		return SourceMarker, nil
	case SourceList:
		return SourceList, nil
	default:
		return "", fmt.Errorf("unknown selection source %q", s)
	}
}

// Flash animation timing: the highlight toggles FlashToggles times,
// FlashInterval apart, then settles into StateSelected.
const (
	FlashInterval = 300 * time.Millisecond
	FlashToggles  = 6
)

// SelectionState reports the selected quake, if any, and the view effects of
// the last transition.
type SelectionState struct {
	SelectedID string      `json:"selected_id,omitempty"`
	State      VisualState `json:"state"`
	ScrollTo   string      `json:"scroll_to,omitempty"`
	Popup      *Popup      `json:"popup,omitempty"`
	Viewport   Viewport    `json:"viewport"`
}

// Popup is the info bubble anchored at a selected marker.
type Popup struct {
	Title         string `json:"title"`
	FormattedTime string `json:"formatted_time"`
	Position      Point  `json:"position"`
}
