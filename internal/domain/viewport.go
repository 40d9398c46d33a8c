package domain

import "fmt"

const (
	// DefaultZoom is the zoom the map opens at and returns to on reset.
	DefaultZoom = 2.0
	// FocusZoom is the zoom used when centering on a selected quake.
	FocusZoom = 8.0
	// MaxZoom bounds viewport updates.
	MaxZoom = 28.0

	defaultCenterLon = 114.1095 // Hong Kong
	defaultCenterLat = 22.3964
)

// DefaultCenter returns the display coordinates the map resets to.
func DefaultCenter() Point {
	x, y := FromLonLat(defaultCenterLon, defaultCenterLat)
	return Point{X: x, Y: y}
}

// Viewport is the map's current view. When BBox is set it is the visible
// extent; otherwise the extent is derived from center, zoom and pixel size,
// and without a pixel size the whole world counts as visible.
type Viewport struct {
	Center Point   `json:"center"`
	Zoom   float64 `json:"zoom"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
	BBox   *Extent `json:"bbox,omitempty"`
}

// DefaultViewport is centered on Hong Kong at zoom 2.
func DefaultViewport() Viewport {
	return Viewport{Center: DefaultCenter(), Zoom: DefaultZoom}
}

// Extent returns the visible rectangle.
func (v Viewport) Extent() Extent {
	if v.BBox != nil {
		return *v.BBox
	}
	if v.Width <= 0 || v.Height <= 0 {
		return WorldExtent
	}
	e, err := CalculateExtent(v.Center, v.Zoom, v.Width, v.Height)
	if err != nil {
		return WorldExtent
	}
	return e
}

// MoveTo recenters the view and drops any explicit bounding box, keeping the
// pixel size. A bbox update without a size sets one from the bbox and zoom,
// so the extent after a move still covers a map-sized window.
func (v Viewport) MoveTo(center Point, zoom float64) Viewport {
	v.Center = center
	v.Zoom = zoom
	v.BBox = nil
	return v
}

// ViewportUpdate is a pan/zoom reported by the map. Either BBox (WGS 84
// min lon, min lat, max lon, max lat) or Center (lon, lat) must be given.
// A bbox should come with the zoom it was drawn at; the current zoom is
// assumed otherwise.
type ViewportUpdate struct {
	Center []float64 `json:"center,omitempty"`
	Zoom   *float64  `json:"zoom,omitempty"`
	Width  int       `json:"width,omitempty"`
	Height int       `json:"height,omitempty"`
	BBox   []float64 `json:"bbox,omitempty"`
}

// Apply validates the update and returns the resulting viewport.
func (u ViewportUpdate) Apply(current Viewport) (Viewport, error) {
	next := current
	if u.Width < 0 || u.Height < 0 {
		return current, fmt.Errorf("%w: negative size", ErrInvalidViewport)
	}
	if u.Width > 0 && u.Height > 0 {
		next.Width, next.Height = u.Width, u.Height
	}
	if u.Zoom != nil {
		if *u.Zoom < 0 || *u.Zoom > MaxZoom {
			return current, fmt.Errorf("%w: zoom %g out of range", ErrInvalidViewport, *u.Zoom)
		}
		next.Zoom = *u.Zoom
	}

	switch {
	case len(u.BBox) == 4:
		e := ExtentFromLonLat(u.BBox[0], u.BBox[1], u.BBox[2], u.BBox[3])
		next.BBox = &e
		next.Center = e.Center()
		if next.Width <= 0 || next.Height <= 0 {
			next.Width, next.Height = e.PixelSize(next.Zoom)
		}
	case len(u.BBox) != 0:
		return current, fmt.Errorf("%w: bbox needs 4 values, got %d", ErrInvalidViewport, len(u.BBox))
	case len(u.Center) == 2:
		x, y := FromLonLat(u.Center[0], u.Center[1])
		next.Center = Point{X: x, Y: y}
		next.BBox = nil
	case len(u.Center) != 0:
		return current, fmt.Errorf("%w: center needs 2 values, got %d", ErrInvalidViewport, len(u.Center))
	case u.Zoom == nil && u.Width == 0 && u.Height == 0:
		return current, fmt.Errorf("%w: empty update", ErrInvalidViewport)
	default:
		next.BBox = nil
	}
	return next, nil
}
