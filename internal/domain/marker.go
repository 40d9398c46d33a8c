package domain

// VisualState is a marker's highlight state. The states are mutually exclusive.
type VisualState int

const (
	StateDefault VisualState = iota
	StateSelected
	StateFlashing
)

func (s VisualState) String() string {
	switch s {
	case StateSelected:
		return "selected"
	case StateFlashing:
		return "flashing"
	default:
		return "default"
	}
}

// MarshalText encodes the state by name.
func (s VisualState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarkerStyle describes how a quake's circle marker is drawn.
type MarkerStyle struct {
	Radius      float64 `json:"radius"`
	StrokeColor string  `json:"stroke_color"`
	StrokeWidth float64 `json:"stroke_width"`
	FillColor   string  `json:"fill_color"`
}

const flashRadiusScale = 1.5

// StyleFor derives the marker style. The radius is the magnitude itself with
// no upper bound, scaled by 1.5 while flashing.
func StyleFor(q Quake, state VisualState) MarkerStyle {
	style := MarkerStyle{
		Radius:      q.Magnitude,
		StrokeColor: q.Color,
	}
	switch state {
	case StateFlashing:
		style.Radius = q.Magnitude * flashRadiusScale
		style.StrokeWidth = 4
		style.FillColor = "rgba(255, 255, 255, 0.5)"
	case StateSelected:
		style.StrokeWidth = 3
		style.FillColor = "rgba(255, 255, 255, 0.3)"
	default:
		style.StrokeWidth = 2.5
		style.FillColor = "rgba(255, 0, 0, 0.0)"
	}
	return style
}

// Marker is a rendered point on the earthquake layer.
type Marker struct {
	ID            string      `json:"id"`
	X             float64     `json:"x"`
	Y             float64     `json:"y"`
	Title         string      `json:"title"`
	FormattedTime string      `json:"formatted_time"`
	State         VisualState `json:"state"`
	Style         MarkerStyle `json:"style"`
}

// MarkerLayer is the earthquake layer for one record set generation. A new
// refresh always produces a new generation; layers are never patched.
type MarkerLayer struct {
	Name       string   `json:"name"`
	Generation uint64   `json:"generation"`
	Markers    []Marker `json:"markers"`
}

// EarthquakeLayerName identifies the marker layer among the map's layers.
const EarthquakeLayerName = "earthquakeLayer"

// RenderMarkers builds the marker layer. stateOf reports each quake's
// highlight state; a nil stateOf renders every marker in the default state.
func RenderMarkers(generation uint64, quakes []Quake, stateOf func(id string) VisualState) MarkerLayer {
	markers := make([]Marker, len(quakes))
	for i, q := range quakes {
		state := StateDefault
		if stateOf != nil {
			state = stateOf(q.ID)
		}
		markers[i] = Marker{
			ID:            q.ID,
			X:             q.X,
			Y:             q.Y,
			Title:         q.Title,
			FormattedTime: q.FormattedTime,
			State:         state,
			Style:         StyleFor(q, state),
		}
	}
	return MarkerLayer{Name: EarthquakeLayerName, Generation: generation, Markers: markers}
}
