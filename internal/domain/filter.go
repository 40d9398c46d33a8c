package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultWindowDays is how far back the default fetch window and the date
	// pickers reach.
	DefaultWindowDays = 30

	dateLayout = "2006-01-02"

	// formattedTimeLayout renders popup and list timestamps,
	// e.g. "26 January 2024, 15:04:05 HKT".
	formattedTimeLayout = "2 January 2006, 15:04:05 MST"
)

// Filter selects which fetched events become Quakes. An empty Alert matches
// every classified event. Start and End are inclusive.
type Filter struct {
	Alert AlertLevel `json:"alert,omitempty"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// FilterRequest is a user's filter choice before defaults are applied.
type FilterRequest struct {
	Alert string `json:"alert"`
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
}

// DefaultWindow returns [local midnight 30 days ago, now]. Midnight is taken
// in loc, nil meaning UTC; both bounds are returned in UTC.
func DefaultWindow(loc *time.Location) (time.Time, time.Time) {
	now := clock.Now()
	today := localMidnight(now, loc)
	return today.AddDate(0, 0, -DefaultWindowDays).UTC(), now.UTC()
}

func localMidnight(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// NewFilter applies the default window to missing bounds and collapses an
// inverted range so that Start equals End.
func NewFilter(alert AlertLevel, start, end time.Time, loc *time.Location) Filter {
	defStart, defEnd := DefaultWindow(loc)
	if start.IsZero() {
		start = defStart
	}
	if end.IsZero() {
		end = defEnd
	}
	start, end = start.UTC(), end.UTC()
	if start.After(end) {
		start = end
	}
	return Filter{Alert: alert, Start: start, End: end}
}

// ParseFilterRequest validates a FilterRequest and resolves it into a Filter.
// Date-only values are days in loc (nil meaning UTC); a date-only To extends
// to the last millisecond of that day.
func ParseFilterRequest(req FilterRequest, loc *time.Location) (Filter, error) {
	alert, err := ParseAlertLevel(req.Alert)
	if err != nil {
		return Filter{}, err
	}
	start, err := ParseDateBound(req.From, false, loc)
	if err != nil {
		return Filter{}, fmt.Errorf("parse from: %w", err)
	}
	end, err := ParseDateBound(req.To, true, loc)
	if err != nil {
		return Filter{}, fmt.Errorf("parse to: %w", err)
	}
	return NewFilter(alert, start, end, loc), nil
}

// ParseDateBound parses "YYYY-MM-DD" (a day in loc) or RFC 3339. The empty
// string yields the zero time. With endOfDay set, a date-only value resolves
// to 23:59:59.999.
func ParseDateBound(s string, endOfDay bool, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		if endOfDay {
			d = d.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		return d.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t.UTC(), nil
}

// Matches reports whether a raw feature passes the filter: it must carry a
// PAGER tier, match the alert filter when one is set, and fall inside the window.
func (f Filter) Matches(feature QuakeFeature) bool {
	level, ok := feature.Properties.AlertLevel()
	if !ok {
		return false
	}
	if f.Alert != "" && level != f.Alert {
		return false
	}
	t := feature.Properties.EventTime()
	return !t.Before(f.Start) && !t.After(f.End)
}

// Apply converts the features that pass the filter into Quakes, preserving
// feed order. Features without two coordinates are skipped. loc controls
// FormattedTime; nil means UTC.
func (f Filter) Apply(features []QuakeFeature, loc *time.Location) []Quake {
	if loc == nil {
		loc = time.UTC
	}
	quakes := make([]Quake, 0, len(features))
	for _, feature := range features {
		if !f.Matches(feature) {
			continue
		}
		q, ok := NewQuake(feature, loc)
		if !ok {
			continue
		}
		quakes = append(quakes, q)
	}
	return quakes
}

// NewQuake builds a Quake from a classified feature and projects it into
// display coordinates.
func NewQuake(feature QuakeFeature, loc *time.Location) (Quake, bool) {
	level, ok := feature.Properties.AlertLevel()
	if !ok || len(feature.Geometry.Coordinates) < 2 {
		return Quake{}, false
	}
	coords := feature.Geometry.Coordinates
	lon, lat := coords[0], coords[1]
	var depth float64
	if len(coords) > 2 {
		depth = coords[2]
	}
	var mag float64
	if feature.Properties.Mag != nil {
		mag = *feature.Properties.Mag
	}
	occurred := feature.Properties.EventTime()
	x, y := FromLonLat(lon, lat)

	return Quake{
		ID:            feature.ID,
		Magnitude:     mag,
		Place:         feature.Properties.Place,
		Title:         feature.Properties.Title,
		Alert:         level,
		Color:         level.Color(),
		Lon:           lon,
		Lat:           lat,
		Depth:         depth,
		X:             x,
		Y:             y,
		OccurredAt:    occurred,
		FormattedTime: occurred.In(loc).Format(formattedTimeLayout),
	}, true
}
