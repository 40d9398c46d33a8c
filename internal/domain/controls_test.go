package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestBuildControls(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	toggles := []LayerToggle{{Group: GroupTectonic, Label: "Tectonic Plates", Checked: true}}
	c := BuildControls(toggles, nil)

	assert.Equal(t, DatePicker{Min: "2024-02-04", Max: "2024-03-05", Value: "2024-02-04"}, c.From)
	assert.Equal(t, DatePicker{Min: "2024-02-04", Max: "2024-03-05", Value: "2024-03-05"}, c.To)
	assert.Len(t, c.AlertOptions, 5)
	assert.Equal(t, "All Alerts", c.AlertOptions[0].Text)
	assert.Empty(t, c.AlertOptions[0].Value)
	assert.Equal(t, toggles, c.LayerToggles)
	assert.Equal(t, AlertRed, c.PagerScale[0].Alert)
	assert.Equal(t, MinPaneWidth, c.MinPaneWidth)
}

func TestBuildControls_LocalDays(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	c := BuildControls(nil, time.FixedZone("HKT", 8*3600))

	assert.Equal(t, DatePicker{Min: "2024-02-05", Max: "2024-03-06", Value: "2024-02-05"}, c.From)
	assert.Equal(t, "2024-03-06", c.To.Value)
}

func TestResizePane(t *testing.T) {
	tests := []struct {
		name     string
		req      ResizeRequest
		expected float64
	}{
		{"within bounds", ResizeRequest{InitialWidth: 300, DeltaX: 50, ContainerWidth: 1000}, 350},
		{"left of minimum keeps 200", ResizeRequest{CurrentWidth: 200, InitialWidth: 200, DeltaX: -50, ContainerWidth: 1000}, 200},
		{"left of minimum keeps current", ResizeRequest{CurrentWidth: 240, InitialWidth: 300, DeltaX: -150, ContainerWidth: 1000}, 240},
		{"map pane minimum", ResizeRequest{InitialWidth: 700, DeltaX: 150, ContainerWidth: 1000}, 700},
		{"exactly at map minimum", ResizeRequest{InitialWidth: 700, DeltaX: 100, ContainerWidth: 1000}, 800},
		{"exactly at list minimum", ResizeRequest{InitialWidth: 300, DeltaX: -100, ContainerWidth: 1000}, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ResizePane(tt.req))
		})
	}
}
