package domain

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPlace = "94 km SSE of Hihifo, Tonga"
	testTitle = "M 6.1 - 94 km SSE of Hihifo, Tonga"
)

func strPtr(s string) *string { return &s }

func magPtr(v float64) *float64 { return &v }

func makeFeature(id string, alert *string, mag float64, at time.Time, lon, lat float64) QuakeFeature {
	return QuakeFeature{
		Type: "Feature",
		ID:   id,
		Properties: QuakeProperties{
			Mag:   magPtr(mag),
			Place: testPlace,
			Time:  at.UnixMilli(),
			Alert: alert,
			Title: testTitle,
		},
		Geometry: PointGeometry{Type: "Point", Coordinates: []float64{lon, lat, 10}},
	}
}

func januaryFilter(alert AlertLevel) Filter {
	return Filter{
		Alert: alert,
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC),
	}
}

func TestParseAlertLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected AlertLevel
		wantErr  bool
	}{
		{"empty means all", "", "", false},
		{"green", "green", AlertGreen, false},
		{"uppercase red", "RED", AlertRed, false},
		{"padded orange", "  orange ", AlertOrange, false},
		{"unknown", "purple", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := ParseAlertLevel(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAlert)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestAlertLevelColor(t *testing.T) {
	for _, level := range AlertLevels {
		assert.Equal(t, string(level), level.Color())
	}
}

func TestQuakeProperties_AlertLevel(t *testing.T) {
	t.Run("null alert is unclassified", func(t *testing.T) {
		_, ok := QuakeProperties{}.AlertLevel()
		assert.False(t, ok)
	})

	t.Run("unknown tier is unclassified", func(t *testing.T) {
		_, ok := QuakeProperties{Alert: strPtr("pending")}.AlertLevel()
		assert.False(t, ok)
	})

	t.Run("known tier", func(t *testing.T) {
		level, ok := QuakeProperties{Alert: strPtr("yellow")}.AlertLevel()
		assert.True(t, ok)
		assert.Equal(t, AlertYellow, level)
	})
}

func TestFilter_Apply_AllAlerts(t *testing.T) {
	inWindow := time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC)
	features := []QuakeFeature{
		makeFeature("us1", strPtr("green"), 5.1, inWindow, -173.5, -16.8),
		makeFeature("us2", nil, 6.4, inWindow, 142.1, 38.3),
		makeFeature("us3", strPtr("red"), 7.5, inWindow, 137.2, 37.5),
		makeFeature("us4", strPtr("orange"), 6.0, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), 120, 23),
	}

	quakes := januaryFilter("").Apply(features, time.UTC)

	require.Len(t, quakes, 2)
	assert.Equal(t, "us1", quakes[0].ID)
	assert.Equal(t, "us3", quakes[1].ID)
	for _, q := range quakes {
		assert.NotEqual(t, "us2", q.ID, "null alert must be excluded")
	}
}

func TestFilter_Apply_AlertFilter(t *testing.T) {
	at := time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC)
	features := []QuakeFeature{
		makeFeature("g", strPtr("green"), 5.1, at, 0, 0),
		makeFeature("r", strPtr("red"), 7.5, at, 0, 0),
		makeFeature("y", strPtr("yellow"), 6.2, at, 0, 0),
	}

	quakes := januaryFilter(AlertRed).Apply(features, nil)

	require.Len(t, quakes, 1)
	assert.Equal(t, "r", quakes[0].ID)
	assert.Equal(t, "red", quakes[0].Color)
}

func TestFilter_Matches_WindowIsInclusive(t *testing.T) {
	f := januaryFilter("")

	assert.True(t, f.Matches(makeFeature("start", strPtr("green"), 5, f.Start, 0, 0)))
	assert.True(t, f.Matches(makeFeature("end", strPtr("green"), 5, f.End, 0, 0)))
	assert.False(t, f.Matches(makeFeature("before", strPtr("green"), 5, f.Start.Add(-time.Millisecond), 0, 0)))
	assert.False(t, f.Matches(makeFeature("after", strPtr("green"), 5, f.End.Add(time.Millisecond), 0, 0)))
}

func TestFilter_Apply_SkipsMissingCoordinates(t *testing.T) {
	at := time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC)
	feature := makeFeature("nogeo", strPtr("green"), 5, at, 0, 0)
	feature.Geometry.Coordinates = []float64{12}

	assert.Empty(t, januaryFilter("").Apply([]QuakeFeature{feature}, nil))
}

func TestNewQuake(t *testing.T) {
	hk, err := time.LoadLocation("Asia/Hong_Kong")
	require.NoError(t, err)

	at := time.Date(2024, 1, 10, 7, 0, 0, 0, time.UTC)
	feature := makeFeature("us7000abcd", strPtr("orange"), 6.1, at, -173.5, -16.8)

	q, ok := NewQuake(feature, hk)
	require.True(t, ok)

	assert.Equal(t, "us7000abcd", q.ID)
	assert.Equal(t, 6.1, q.Magnitude)
	assert.Equal(t, testPlace, q.Place)
	assert.Equal(t, testTitle, q.Title)
	assert.Equal(t, AlertOrange, q.Alert)
	assert.Equal(t, "orange", q.Color)
	assert.Equal(t, -173.5, q.Lon)
	assert.Equal(t, -16.8, q.Lat)
	assert.Equal(t, 10.0, q.Depth)
	assert.Equal(t, at, q.OccurredAt)
	assert.Equal(t, "10 January 2024, 15:00:00 HKT", q.FormattedTime)

	x, y := FromLonLat(-173.5, -16.8)
	assert.Equal(t, x, q.X)
	assert.Equal(t, y, q.Y)
}

func TestNewQuake_NullMagnitude(t *testing.T) {
	feature := makeFeature("nomag", strPtr("green"), 0, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 1, 1)
	feature.Properties.Mag = nil

	q, ok := NewQuake(feature, time.UTC)
	require.True(t, ok)
	assert.Equal(t, 0.0, q.Magnitude)
}

func TestDefaultWindow(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	start, end := DefaultWindow(nil)

	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC), end)
}

func TestDefaultWindow_LocalMidnight(t *testing.T) {
	// 20:00 UTC is already 04:00 the next day in Hong Kong.
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 15, 20, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	hkt := time.FixedZone("HKT", 8*3600)
	start, end := DefaultWindow(hkt)

	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, hkt).UTC(), start)
	assert.Equal(t, time.UTC, start.Location())
	assert.Equal(t, time.Date(2024, 2, 15, 20, 0, 0, 0, time.UTC), end)
}

func TestNewFilter(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	t.Run("defaults missing bounds", func(t *testing.T) {
		f := NewFilter(AlertGreen, time.Time{}, time.Time{}, nil)
		assert.Equal(t, AlertGreen, f.Alert)
		assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), f.Start)
		assert.Equal(t, time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC), f.End)
	})

	t.Run("collapses inverted range to end", func(t *testing.T) {
		start := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
		end := time.Date(2024, 2, 1, 23, 59, 59, 0, time.UTC)
		f := NewFilter("", start, end, nil)
		assert.Equal(t, end, f.Start)
		assert.Equal(t, end, f.End)
	})
}

func TestParseFilterRequest(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)))
	defer SetClock(nil)

	t.Run("date-only bounds", func(t *testing.T) {
		f, err := ParseFilterRequest(FilterRequest{Alert: "red", From: "2024-02-01", To: "2024-02-03"}, nil)
		require.NoError(t, err)
		assert.Equal(t, AlertRed, f.Alert)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), f.Start)
		assert.Equal(t, time.Date(2024, 2, 3, 23, 59, 59, 999_000_000, time.UTC), f.End)
	})

	t.Run("rfc3339 bounds", func(t *testing.T) {
		f, err := ParseFilterRequest(FilterRequest{From: "2024-02-01T08:00:00+08:00", To: "2024-02-02T00:00:00Z"}, nil)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), f.Start)
		assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), f.End)
	})

	t.Run("from after to collapses", func(t *testing.T) {
		f, err := ParseFilterRequest(FilterRequest{From: "2024-02-10", To: "2024-02-05"}, nil)
		require.NoError(t, err)
		assert.Equal(t, f.End, f.Start)
	})

	t.Run("date-only bounds are local days", func(t *testing.T) {
		hkt := time.FixedZone("HKT", 8*3600)
		f, err := ParseFilterRequest(FilterRequest{From: "2024-02-01", To: "2024-02-03"}, hkt)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 31, 16, 0, 0, 0, time.UTC), f.Start)
		assert.Equal(t, time.Date(2024, 2, 3, 15, 59, 59, 999_000_000, time.UTC), f.End)
	})

	t.Run("bad alert", func(t *testing.T) {
		_, err := ParseFilterRequest(FilterRequest{Alert: "blue"}, nil)
		require.ErrorIs(t, err, ErrInvalidAlert)
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := ParseFilterRequest(FilterRequest{From: "yesterday"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse from")
	})
}
