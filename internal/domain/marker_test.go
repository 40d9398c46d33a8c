package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleFor(t *testing.T) {
	q := Quake{ID: "q", Magnitude: 6, Color: "orange"}

	tests := []struct {
		name     string
		state    VisualState
		expected MarkerStyle
	}{
		{"default", StateDefault, MarkerStyle{Radius: 6, StrokeColor: "orange", StrokeWidth: 2.5, FillColor: "rgba(255, 0, 0, 0.0)"}},
		{"selected", StateSelected, MarkerStyle{Radius: 6, StrokeColor: "orange", StrokeWidth: 3, FillColor: "rgba(255, 255, 255, 0.3)"}},
		{"flashing", StateFlashing, MarkerStyle{Radius: 9, StrokeColor: "orange", StrokeWidth: 4, FillColor: "rgba(255, 255, 255, 0.5)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StyleFor(q, tt.state))
		})
	}
}

func TestStyleFor_RadiusIsUnclamped(t *testing.T) {
	small := StyleFor(Quake{Magnitude: 1.5}, StateDefault)
	large := StyleFor(Quake{Magnitude: 9}, StateDefault)

	assert.Equal(t, 1.5, small.Radius)
	assert.Equal(t, 9.0, large.Radius)
	assert.InDelta(t, 6.0, large.Radius/small.Radius, 1e-9)
}

func TestRenderMarkers(t *testing.T) {
	quakes := []Quake{
		quakeAt("a", 4, 10, 10),
		quakeAt("b", 5, 20, 20),
	}

	layer := RenderMarkers(7, quakes, func(id string) VisualState {
		if id == "b" {
			return StateSelected
		}
		return StateDefault
	})

	assert.Equal(t, EarthquakeLayerName, layer.Name)
	assert.Equal(t, uint64(7), layer.Generation)
	require.Len(t, layer.Markers, 2)
	assert.Equal(t, StateDefault, layer.Markers[0].State)
	assert.Equal(t, StateSelected, layer.Markers[1].State)
	assert.Equal(t, quakes[1].X, layer.Markers[1].X)
	assert.Equal(t, 3.0, layer.Markers[1].Style.StrokeWidth)
}

func TestRenderMarkers_NilState(t *testing.T) {
	layer := RenderMarkers(1, []Quake{quakeAt("a", 4, 10, 10)}, nil)
	require.Len(t, layer.Markers, 1)
	assert.Equal(t, StateDefault, layer.Markers[0].State)
}

func TestVisualState_JSON(t *testing.T) {
	b, err := json.Marshal(map[string]VisualState{"s": StateFlashing})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"flashing"}`, string(b))
}
