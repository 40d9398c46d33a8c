package domain

import (
	"fmt"
	"math"
	"sort"
)

// Extent is a rectangle in display coordinates. Bounds are inclusive.
type Extent struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// WorldExtent covers the whole Web Mercator plane.
var WorldExtent = Extent{
	MinX: -mercatorHalfWorld,
	MinY: -mercatorHalfWorld,
	MaxX: mercatorHalfWorld,
	MaxY: mercatorHalfWorld,
}

// NewExtent orders the corners so that Min <= Max on both axes.
func NewExtent(x1, y1, x2, y2 float64) Extent {
	return Extent{
		MinX: min(x1, x2),
		MinY: min(y1, y2),
		MaxX: max(x1, x2),
		MaxY: max(y1, y2),
	}
}

// ExtentFromLonLat builds a display extent from a WGS 84 bounding box.
func ExtentFromLonLat(minLon, minLat, maxLon, maxLat float64) Extent {
	x1, y1 := FromLonLat(minLon, minLat)
	x2, y2 := FromLonLat(maxLon, maxLat)
	return NewExtent(x1, y1, x2, y2)
}

// CalculateExtent returns the rectangle visible in a width x height pixel
// viewport centered on center at the given zoom.
func CalculateExtent(center Point, zoom float64, width, height int) (Extent, error) {
	if width <= 0 || height <= 0 {
		return Extent{}, fmt.Errorf("%w: size %dx%d", ErrInvalidViewport, width, height)
	}
	res := Resolution(zoom)
	halfW := float64(width) * res / 2
	halfH := float64(height) * res / 2
	return Extent{
		MinX: center.X - halfW,
		MinY: center.Y - halfH,
		MaxX: center.X + halfW,
		MaxY: center.Y + halfH,
	}, nil
}

// PixelSize returns the width and height in pixels the extent spans at zoom,
// at least one pixel each.
func (e Extent) PixelSize(zoom float64) (int, int) {
	res := Resolution(zoom)
	w := int(math.Round((e.MaxX - e.MinX) / res))
	h := int(math.Round((e.MaxY - e.MinY) / res))
	return max(w, 1), max(h, 1)
}

// Contains reports whether the point lies inside the extent, edges included.
func (e Extent) Contains(x, y float64) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// Center returns the midpoint of the extent.
func (e Extent) Center() Point {
	return Point{X: (e.MinX + e.MaxX) / 2, Y: (e.MinY + e.MaxY) / 2}
}

// VisibleQuakes returns the quakes whose display position lies inside the
// extent, sorted by magnitude, largest first. The input is not modified.
func VisibleQuakes(quakes []Quake, extent Extent) []Quake {
	visible := make([]Quake, 0, len(quakes))
	for _, q := range quakes {
		if extent.Contains(q.X, q.Y) {
			visible = append(visible, q)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Magnitude > visible[j].Magnitude
	})
	return visible
}

// ListRow is one sidebar entry.
type ListRow struct {
	ID            string  `json:"id"`
	Place         string  `json:"place"`
	Magnitude     float64 `json:"magnitude"`
	FormattedTime string  `json:"formatted_time"`
	Color         string  `json:"color"`
	Selected      bool    `json:"selected"`
}

// BuildList renders the sidebar rows for an extent. The row whose ID equals
// selectedID is marked selected.
func BuildList(quakes []Quake, extent Extent, selectedID string) []ListRow {
	visible := VisibleQuakes(quakes, extent)
	rows := make([]ListRow, len(visible))
	for i, q := range visible {
		rows[i] = ListRow{
			ID:            q.ID,
			Place:         q.Place,
			Magnitude:     q.Magnitude,
			FormattedTime: q.FormattedTime,
			Color:         q.Color,
			Selected:      selectedID != "" && q.ID == selectedID,
		}
	}
	return rows
}
