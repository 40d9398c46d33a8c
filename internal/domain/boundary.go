package domain

import (
	"fmt"
	"slices"
)

// Spatial reference IDs seen in ArcGIS responses.
const (
	WKIDWebMercator       = 102100
	WKIDWebMercatorEPSG   = 3857
	WKIDWebMercatorLegacy = 102113
	WKIDWGS84             = 4326
)

// LayerDef describes one boundary overlay served by an ArcGIS FeatureServer.
type LayerDef struct {
	Name        string  `json:"name"`
	Group       string  `json:"group"`
	Title       string  `json:"title"`
	Service     string  `json:"service"`
	LayerID     int     `json:"layer_id"`
	StrokeColor string  `json:"stroke_color,omitempty"`
	StrokeWidth float64 `json:"stroke_width,omitempty"`
	LabelField  string  `json:"label_field,omitempty"`
}

// Layer groups toggled together by one checkbox.
const (
	GroupTectonic = "tectonic"
	GroupFaults   = "faults"
)

// DefaultLayers are the plate boundary, plate and fault overlays.
var DefaultLayers = []LayerDef{
	{
		Name:        "plate-boundaries",
		Group:       GroupTectonic,
		Title:       "Tectonic Plates",
		Service:     "Tectonic_Plates_and_Boundaries",
		LayerID:     0,
		StrokeColor: "brown",
		StrokeWidth: 1,
	},
	{
		Name:       "plates",
		Group:      GroupTectonic,
		Title:      "Tectonic Plates",
		Service:    "Tectonic_Plates_and_Boundaries",
		LayerID:    1,
		LabelField: "PlateName",
	},
	{
		Name:        "faults",
		Group:       GroupFaults,
		Title:       "Fault Lines",
		Service:     "Active_Faults",
		LayerID:     0,
		StrokeColor: "orange",
		StrokeWidth: 1,
	},
}

// EsriFeatureSet is an ArcGIS query response in EsriJSON.
type EsriFeatureSet struct {
	GeometryType     string               `json:"geometryType"`
	SpatialReference EsriSpatialReference `json:"spatialReference"`
	Features         []EsriFeature        `json:"features"`
	Error            *EsriError           `json:"error,omitempty"`
}

// EsriSpatialReference identifies a coordinate system by well-known ID.
type EsriSpatialReference struct {
	WKID       int `json:"wkid"`
	LatestWKID int `json:"latestWkid,omitempty"`
}

// EsriError is the error object ArcGIS embeds in otherwise successful responses.
type EsriError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *EsriError) Error() string {
	return fmt.Sprintf("arcgis error %d: %s", e.Code, e.Message)
}

// EsriFeature is one feature: attributes plus a point, polyline or polygon geometry.
type EsriFeature struct {
	Attributes map[string]any `json:"attributes"`
	Geometry   *EsriGeometry  `json:"geometry"`
}

// EsriGeometry holds whichever geometry fields the feature type uses.
type EsriGeometry struct {
	X     *float64      `json:"x,omitempty"`
	Y     *float64      `json:"y,omitempty"`
	Paths [][][]float64 `json:"paths,omitempty"`
	Rings [][][]float64 `json:"rings,omitempty"`
}

// GeometryKind is the shape of a boundary feature.
type GeometryKind string

const (
	KindPoint    GeometryKind = "point"
	KindPolyline GeometryKind = "polyline"
	KindPolygon  GeometryKind = "polygon"
)

// BoundaryFeature is a reprojected boundary geometry. Parts hold display
// coordinates: one part per path or ring, a single one-point part for points.
type BoundaryFeature struct {
	Kind       GeometryKind   `json:"kind"`
	Parts      [][]Point      `json:"parts"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Label      string         `json:"label,omitempty"`
}

// Layer is a loaded boundary overlay with its visibility.
type Layer struct {
	Def      LayerDef          `json:"def"`
	Visible  bool              `json:"visible"`
	Features []BoundaryFeature `json:"features"`
}

// projector converts source coordinates into display coordinates.
type projector func(x, y float64) Point

func projectorFor(sr EsriSpatialReference) (projector, error) {
	wkid := sr.LatestWKID
	if wkid == 0 {
		wkid = sr.WKID
	}
	switch wkid {
	case WKIDWebMercator, WKIDWebMercatorEPSG, WKIDWebMercatorLegacy, 0:
		return func(x, y float64) Point { return Point{X: x, Y: y} }, nil
	case WKIDWGS84:
		return func(lon, lat float64) Point {
			x, y := FromLonLat(lon, lat)
			return Point{X: x, Y: y}
		}, nil
	default:
		return nil, fmt.Errorf("unsupported spatial reference %d", wkid)
	}
}

// ReprojectFeatureSet converts an EsriJSON feature set into display-space
// boundary features. Features without geometry are skipped. labelField, when
// set, names the attribute copied into Label.
func ReprojectFeatureSet(set EsriFeatureSet, labelField string) ([]BoundaryFeature, error) {
	if set.Error != nil {
		return nil, set.Error
	}
	project, err := projectorFor(set.SpatialReference)
	if err != nil {
		return nil, err
	}

	out := make([]BoundaryFeature, 0, len(set.Features))
	for _, f := range set.Features {
		if f.Geometry == nil {
			continue
		}
		bf, ok := reprojectGeometry(*f.Geometry, project)
		if !ok {
			continue
		}
		bf.Attributes = f.Attributes
		if labelField != "" {
			if v, ok := f.Attributes[labelField]; ok && v != nil {
				bf.Label = fmt.Sprint(v)
			}
		}
		out = append(out, bf)
	}
	return out, nil
}

func reprojectGeometry(g EsriGeometry, project projector) (BoundaryFeature, bool) {
	switch {
	case len(g.Paths) > 0:
		return BoundaryFeature{Kind: KindPolyline, Parts: reprojectParts(g.Paths, project)}, true
	case len(g.Rings) > 0:
		return BoundaryFeature{Kind: KindPolygon, Parts: reprojectParts(g.Rings, project)}, true
	case g.X != nil && g.Y != nil:
		return BoundaryFeature{Kind: KindPoint, Parts: [][]Point{{project(*g.X, *g.Y)}}}, true
	default:
		return BoundaryFeature{}, false
	}
}

func reprojectParts(parts [][][]float64, project projector) [][]Point {
	out := make([][]Point, 0, len(parts))
	for _, part := range parts {
		pts := make([]Point, 0, len(part))
		for _, c := range part {
			if len(c) < 2 {
				continue
			}
			pts = append(pts, project(c[0], c[1]))
		}
		out = append(out, pts)
	}
	return out
}

// GeoJSONFeature is a boundary feature in WGS 84 GeoJSON.
type GeoJSONFeature struct {
	Type       string          `json:"type"`
	Geometry   GeoJSONGeometry `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// GeoJSONGeometry is a GeoJSON geometry object.
type GeoJSONGeometry struct {
	Type        string `json:"type"`
	Coordinates any    `json:"coordinates"`
}

// GeoJSONFeatureCollection wraps features for a layer response.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}

// GeoJSON converts the feature back to WGS 84 longitude/latitude.
func (f BoundaryFeature) GeoJSON() GeoJSONFeature {
	props := make(map[string]any, len(f.Attributes)+1)
	for k, v := range f.Attributes {
		props[k] = v
	}
	if f.Label != "" {
		props["label"] = f.Label
	}

	var geom GeoJSONGeometry
	switch f.Kind {
	case KindPoint:
		var coord []float64
		if len(f.Parts) > 0 && len(f.Parts[0]) > 0 {
			coord = lonLat(f.Parts[0][0])
		}
		geom = GeoJSONGeometry{Type: "Point", Coordinates: coord}
	case KindPolygon:
		polygons := polygonRings(f.Parts)
		if len(polygons) == 1 {
			geom = GeoJSONGeometry{Type: "Polygon", Coordinates: polygons[0]}
		} else {
			geom = GeoJSONGeometry{Type: "MultiPolygon", Coordinates: polygons}
		}
	default:
		geom = GeoJSONGeometry{Type: "MultiLineString", Coordinates: lonLatParts(f.Parts)}
	}
	return GeoJSONFeature{Type: "Feature", Geometry: geom, Properties: props}
}

// LayerGeoJSON converts a whole layer to a FeatureCollection.
func LayerGeoJSON(features []BoundaryFeature) GeoJSONFeatureCollection {
	out := GeoJSONFeatureCollection{Type: "FeatureCollection", Features: make([]GeoJSONFeature, len(features))}
	for i, f := range features {
		out.Features[i] = f.GeoJSON()
	}
	return out
}

func lonLat(p Point) []float64 {
	lon, lat := ToLonLat(p.X, p.Y)
	return []float64{lon, lat}
}

func lonLatParts(parts [][]Point) [][][]float64 {
	out := make([][][]float64, len(parts))
	for i, part := range parts {
		coords := make([][]float64, len(part))
		for j, p := range part {
			coords[j] = lonLat(p)
		}
		out[i] = coords
	}
	return out
}

// polygonRings groups Esri rings into GeoJSON polygons. Esri outer rings run
// clockwise and holes counter-clockwise; each hole joins the first outer ring
// that contains it. When no ring is clockwise every ring is an outer ring.
// Output rings follow GeoJSON winding: outer rings counter-clockwise, holes
// clockwise.
func polygonRings(parts [][]Point) [][][][]float64 {
	var outers, holes [][]Point
	for _, ring := range parts {
		if len(ring) < 3 {
			continue
		}
		if signedArea(ring) < 0 {
			outers = append(outers, ring)
		} else {
			holes = append(holes, ring)
		}
	}
	if len(outers) == 0 {
		outers, holes = holes, nil
	}

	polygons := make([][][]Point, len(outers))
	for i, outer := range outers {
		polygons[i] = [][]Point{outer}
	}
	for _, hole := range holes {
		owner := len(polygons) - 1
		for i, outer := range outers {
			if ringContains(outer, hole[0]) {
				owner = i
				break
			}
		}
		polygons[owner] = append(polygons[owner], hole)
	}

	out := make([][][][]float64, len(polygons))
	for i, rings := range polygons {
		coords := make([][][]float64, len(rings))
		for j, ring := range rings {
			coords[j] = lonLatRing(ring, j == 0)
		}
		out[i] = coords
	}
	return out
}

// signedArea is the shoelace sum: positive for counter-clockwise rings.
func signedArea(ring []Point) float64 {
	var sum float64
	for i := range ring {
		a, b := ring[i], ring[(i+1)%len(ring)]
		sum += a.X*b.Y - b.X*a.Y
	}
	return sum / 2
}

// ringContains is an even-odd ray cast.
func ringContains(ring []Point, p Point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}

// lonLatRing converts a ring to WGS 84, reversing it when its winding does
// not match ccw.
func lonLatRing(ring []Point, ccw bool) [][]float64 {
	coords := make([][]float64, len(ring))
	for i, p := range ring {
		coords[i] = lonLat(p)
	}
	if (signedArea(ring) > 0) != ccw {
		slices.Reverse(coords)
	}
	return coords
}
