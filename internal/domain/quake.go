package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidAlert is returned when an alert filter names no PAGER tier.
	ErrInvalidAlert = errors.New("invalid alert level")
	// ErrUnknownQuake is returned when a selection names an ID not in the current set.
	ErrUnknownQuake = errors.New("unknown earthquake")
	// ErrUnknownLayer is returned for layer groups that do not exist.
	ErrUnknownLayer = errors.New("unknown layer")
	// ErrInvalidViewport is returned for viewport updates that cannot produce an extent.
	ErrInvalidViewport = errors.New("invalid viewport")
)

// AlertLevel is a PAGER impact tier.
type AlertLevel string

const (
	AlertGreen  AlertLevel = "green"
	AlertYellow AlertLevel = "yellow"
	AlertOrange AlertLevel = "orange"
	AlertRed    AlertLevel = "red"
)

// AlertLevels lists the tiers from least to most severe.
var AlertLevels = []AlertLevel{AlertGreen, AlertYellow, AlertOrange, AlertRed}

// ParseAlertLevel validates a filter value. The empty string means "all alerts"
// and is returned unchanged.
func ParseAlertLevel(s string) (AlertLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	level := AlertLevel(s)
	if !level.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAlert, s)
	}
	return level, nil
}

// Valid reports whether a is one of the four PAGER tiers.
func (a AlertLevel) Valid() bool {
	switch a {
	case AlertGreen, AlertYellow, AlertOrange, AlertRed:
		return true
	default:
		return false
	}
}

// Color returns the marker color for the tier. Every valid tier has a color;
// unclassified events never become Quakes.
func (a AlertLevel) Color() string {
	return string(a)
}

// Quake is one earthquake that passed the current filter.
type Quake struct {
	ID            string     `json:"id"`
	Magnitude     float64    `json:"magnitude"`
	Place         string     `json:"place"`
	Title         string     `json:"title"`
	Alert         AlertLevel `json:"alert"`
	Color         string     `json:"color"`
	Lon           float64    `json:"lon"`
	Lat           float64    `json:"lat"`
	Depth         float64    `json:"depth_km"`
	X             float64    `json:"x"` // EPSG:3857 meters
	Y             float64    `json:"y"`
	OccurredAt    time.Time  `json:"occurred_at"`
	FormattedTime string     `json:"formatted_time"`
}

// RecordSet is the full set of quakes produced by one refresh.
type RecordSet struct {
	Generation uint64    `json:"generation"`
	Filter     Filter    `json:"filter"`
	FetchedAt  time.Time `json:"fetched_at"`
	Quakes     []Quake   `json:"quakes"`
}

// FeatureCollection is the GeoJSON document returned by the USGS event service.
type FeatureCollection struct {
	Type     string         `json:"type"`
	Metadata FeedMetadata   `json:"metadata"`
	Features []QuakeFeature `json:"features"`
	BBox     []float64      `json:"bbox,omitempty"`
}

// FeedMetadata carries the service's bookkeeping fields.
type FeedMetadata struct {
	Generated int64  `json:"generated"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Count     int    `json:"count"`
}

// QuakeFeature is a single GeoJSON event feature.
type QuakeFeature struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Properties QuakeProperties `json:"properties"`
	Geometry   PointGeometry   `json:"geometry"`
}

// QuakeProperties holds the event attributes the map uses. Nullable fields are pointers.
type QuakeProperties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // epoch milliseconds
	Alert *string  `json:"alert"`
	Title string   `json:"title"`
}

// PointGeometry is a GeoJSON point: [lon, lat] or [lon, lat, depth].
type PointGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// EventTime converts the epoch-millisecond timestamp to UTC.
func (p QuakeProperties) EventTime() time.Time {
	return time.UnixMilli(p.Time).UTC()
}

// AlertLevel returns the feature's tier and whether it has a usable one.
// Null alerts and values outside the four tiers both count as unclassified.
func (p QuakeProperties) AlertLevel() (AlertLevel, bool) {
	if p.Alert == nil {
		return "", false
	}
	level := AlertLevel(strings.ToLower(strings.TrimSpace(*p.Alert)))
	return level, level.Valid()
}
