package domain

import "time"

// MinPaneWidth is the narrowest either the list pane or the map pane may get, in pixels.
const MinPaneWidth = 200.0

// Option is a dropdown entry.
type Option struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// DatePicker holds a date input's bounds and initial value, as YYYY-MM-DD.
type DatePicker struct {
	Min   string `json:"min"`
	Max   string `json:"max"`
	Value string `json:"value"`
}

// LayerToggle is a visibility checkbox for a layer group.
type LayerToggle struct {
	Group   string `json:"group"`
	Label   string `json:"label"`
	Checked bool   `json:"checked"`
}

// PagerRow is one line of the PAGER reference table.
type PagerRow struct {
	Alert      AlertLevel `json:"alert"`
	Label      string     `json:"label"`
	Fatalities string     `json:"fatalities"`
	Losses     string     `json:"losses_usd"`
}

// Controls is everything the front end needs to build its inputs.
type Controls struct {
	From         DatePicker    `json:"from"`
	To           DatePicker    `json:"to"`
	AlertOptions []Option      `json:"alert_options"`
	LayerToggles []LayerToggle `json:"layer_toggles"`
	PagerScale   []PagerRow    `json:"pager_scale"`
	MinPaneWidth float64       `json:"min_pane_width"`
}

// AlertOptions are the alert dropdown choices; the empty value means all.
var AlertOptions = []Option{
	{Value: "", Text: "All Alerts"},
	{Value: string(AlertGreen), Text: "Green Alert"},
	{Value: string(AlertYellow), Text: "Yellow Alert"},
	{Value: string(AlertOrange), Text: "Orange Alert"},
	{Value: string(AlertRed), Text: "Red Alert"},
}

// PagerScale is the PAGER impact reference, most severe first.
var PagerScale = []PagerRow{
	{Alert: AlertRed, Label: "Red", Fatalities: "1,000+", Losses: "$1B+"},
	{Alert: AlertOrange, Label: "Orange", Fatalities: "100–999", Losses: "$100M–$1B"},
	{Alert: AlertYellow, Label: "Yellow", Fatalities: "1–99", Losses: "$1M–$100M"},
	{Alert: AlertGreen, Label: "Green", Fatalities: "0", Losses: "< $1M"},
}

// BuildControls assembles the control model. Both date pickers are bounded to
// the last 30 days through today; from starts 30 days back, to starts today.
// toggles carries the current layer group visibility; days are counted in
// loc, nil meaning UTC.
func BuildControls(toggles []LayerToggle, loc *time.Location) Controls {
	today := localMidnight(clock.Now(), loc)
	earliest := today.AddDate(0, 0, -DefaultWindowDays).Format(dateLayout)
	latest := today.Format(dateLayout)

	return Controls{
		From:         DatePicker{Min: earliest, Max: latest, Value: earliest},
		To:           DatePicker{Min: earliest, Max: latest, Value: latest},
		AlertOptions: AlertOptions,
		LayerToggles: toggles,
		PagerScale:   PagerScale,
		MinPaneWidth: MinPaneWidth,
	}
}

// ResizeRequest is one pointer move during a pane drag.
type ResizeRequest struct {
	CurrentWidth   float64 `json:"current_width"`
	InitialWidth   float64 `json:"initial_width"`
	DeltaX         float64 `json:"delta_x"`
	ContainerWidth float64 `json:"container_width"`
}

// ResizePane returns the list pane width after a drag. A move that would
// leave either pane narrower than MinPaneWidth is ignored and the current
// width is kept.
func ResizePane(req ResizeRequest) float64 {
	current := req.CurrentWidth
	if current <= 0 {
		current = req.InitialWidth
	}
	next := req.InitialWidth + req.DeltaX
	if next < MinPaneWidth || next > req.ContainerWidth-MinPaneWidth {
		return current
	}
	return next
}
