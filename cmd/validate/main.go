// Command validate checks a USGS event feed fixture (and optionally a layer
// catalog and an expected record set) against the service's filtering rules.
// It re-derives the filter result independently of domain.Filter and reports
// any disagreement, so fixtures and filtering logic cannot drift apart.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -feed data/mock/usgs_feed_20240131.json \
//	  -expected data/mock/records_20240131.json \
//	  -layers layers.yaml \
//	  -from 2024-01-01 -to 2024-01-31 -alert orange
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-map-service/internal/config"
	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	feedPath     string
	expectedPath string
	layersPath   string
	request      domain.FilterRequest
	now          string
}

func main() {
	var opts options
	flag.StringVar(&opts.feedPath, "feed", "", "path to a USGS GeoJSON feed fixture")
	flag.StringVar(&opts.expectedPath, "expected", "", "path to the expected record set JSON (optional)")
	flag.StringVar(&opts.layersPath, "layers", "", "path to a YAML layer catalog (optional)")
	flag.StringVar(&opts.request.Alert, "alert", "", "alert filter: green, yellow, orange, red or empty for all")
	flag.StringVar(&opts.request.From, "from", "", "window start, YYYY-MM-DD or RFC 3339")
	flag.StringVar(&opts.request.To, "to", "", "window end, YYYY-MM-DD or RFC 3339")
	flag.StringVar(&opts.now, "now", "2024-01-31T12:00:00Z", "reference time for default window bounds")
	flag.Parse()

	if opts.feedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(opts))
}

func run(opts options) int {
	now, err := time.Parse(time.RFC3339, opts.now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse -now: %v\n", err)
		return 1
	}
	// Match genmock's clock so default windows line up.
	domain.SetClock(clockwork.NewFakeClockAt(now))
	defer domain.SetClock(nil)

	fmt.Println("=== Earthquake Feed Validation ===")
	fmt.Println()

	fc, err := loadJSON[domain.FeatureCollection](opts.feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load feed: %v\n", err)
		return 1
	}
	filter, err := domain.ParseFilterRequest(opts.request, time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: filter: %v\n", err)
		return 1
	}
	quakes := filter.Apply(fc.Features, time.UTC)

	phases := []*phase{
		validateFeedStructure(fc),
		validateAlerts(fc),
		validateFilter(fc, filter, quakes),
		validateListOrdering(quakes),
	}
	if opts.expectedPath != "" {
		phases = append(phases, validateExpected(opts.expectedPath, quakes))
	}
	if opts.layersPath != "" {
		phases = append(phases, validateLayerCatalog(opts.layersPath))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Events: %d in feed, %d after filter (alert=%q, %s to %s)\n",
		len(fc.Features), len(quakes), filter.Alert,
		filter.Start.Format(time.RFC3339), filter.End.Format(time.RFC3339))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", path, err)
	}
	return v, nil
}

// ── Phases ──

func validateFeedStructure(fc domain.FeatureCollection) *phase {
	p := &phase{name: "Feed structure"}
	if fc.Type != "FeatureCollection" {
		p.errorf("type is %q, want FeatureCollection", fc.Type)
	}
	if fc.Metadata.Count != 0 && fc.Metadata.Count != len(fc.Features) {
		p.errorf("metadata.count=%d but %d features", fc.Metadata.Count, len(fc.Features))
	}

	seen := make(map[string]bool, len(fc.Features))
	for i, f := range fc.Features {
		if f.ID == "" {
			p.errorf("feature %d: missing id", i)
		} else if seen[f.ID] {
			p.errorf("feature %d: duplicate id %s", i, f.ID)
		}
		seen[f.ID] = true

		coords := f.Geometry.Coordinates
		if len(coords) < 2 {
			p.errorf("%s: %d coordinates, want at least 2", f.ID, len(coords))
			continue
		}
		if coords[0] < -180 || coords[0] > 180 || coords[1] < -90 || coords[1] > 90 {
			p.errorf("%s: coordinates out of range: %v", f.ID, coords[:2])
		}
		if f.Properties.Time <= 0 {
			p.errorf("%s: missing time", f.ID)
		}
		if f.Properties.Alert != nil && f.Properties.Mag == nil {
			p.errorf("%s: classified event without magnitude", f.ID)
		}
	}
	return p
}

func validateAlerts(fc domain.FeatureCollection) *phase {
	p := &phase{name: "Alert classification"}
	for _, f := range fc.Features {
		if f.Properties.Alert == nil {
			continue
		}
		if _, ok := f.Properties.AlertLevel(); !ok {
			p.errorf("%s: alert %q is not a PAGER tier and will be treated as unclassified", f.ID, *f.Properties.Alert)
		}
	}
	return p
}

// validateFilter recomputes inclusion from the raw fields: an event is kept
// iff it has an alert, matches the alert filter when one is set, and its time
// lies within [start, end].
func validateFilter(fc domain.FeatureCollection, filter domain.Filter, quakes []domain.Quake) *phase {
	p := &phase{name: "Filter semantics"}

	got := make(map[string]domain.Quake, len(quakes))
	for _, q := range quakes {
		got[q.ID] = q
	}

	for _, f := range fc.Features {
		want := f.Properties.Alert != nil && len(f.Geometry.Coordinates) >= 2
		if want {
			level, ok := f.Properties.AlertLevel()
			want = ok && (filter.Alert == "" || level == filter.Alert)
		}
		if want {
			t := time.UnixMilli(f.Properties.Time).UTC()
			want = !t.Before(filter.Start) && !t.After(filter.End)
		}

		q, kept := got[f.ID]
		switch {
		case want && !kept:
			p.errorf("%s: should pass the filter but was dropped", f.ID)
		case !want && kept:
			p.errorf("%s: should be excluded but was kept", f.ID)
		case kept && q.Color != string(q.Alert):
			p.errorf("%s: color %q does not match alert %q", f.ID, q.Color, q.Alert)
		}
	}
	return p
}

func validateListOrdering(quakes []domain.Quake) *phase {
	p := &phase{name: "List ordering (world extent)"}
	rows := domain.BuildList(quakes, domain.WorldExtent, "")
	if len(rows) != len(quakes) {
		p.errorf("list has %d rows, want %d", len(rows), len(quakes))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Magnitude > rows[i-1].Magnitude {
			p.errorf("row %d (%s, M%.1f) ranks below smaller row %d (%s, M%.1f)",
				i, rows[i].ID, rows[i].Magnitude, i-1, rows[i-1].ID, rows[i-1].Magnitude)
		}
	}
	return p
}

func validateExpected(path string, quakes []domain.Quake) *phase {
	p := &phase{name: "Expected record set"}
	expected, err := loadJSON[domain.RecordSet](path)
	if err != nil {
		p.errorf("load: %v", err)
		return p
	}
	if len(expected.Quakes) != len(quakes) {
		p.errorf("expected %d quakes, filter produced %d", len(expected.Quakes), len(quakes))
	}
	for i := range min(len(expected.Quakes), len(quakes)) {
		e, g := expected.Quakes[i], quakes[i]
		if e.ID != g.ID || e.Alert != g.Alert || e.Magnitude != g.Magnitude {
			p.errorf("quake %d: expected %s/%s/M%.1f, got %s/%s/M%.1f",
				i, e.ID, e.Alert, e.Magnitude, g.ID, g.Alert, g.Magnitude)
		}
	}
	return p
}

func validateLayerCatalog(path string) *phase {
	p := &phase{name: "Layer catalog"}
	defs, err := config.LoadLayerCatalog(path)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	titles := map[string]string{}
	for _, def := range defs {
		if def.LayerID < 0 {
			p.errorf("%s: negative layer_id %d", def.Name, def.LayerID)
		}
		if t, ok := titles[def.Group]; ok && t != def.Title {
			p.errorf("%s: group %q titled %q elsewhere, %q here", def.Name, def.Group, t, def.Title)
		}
		titles[def.Group] = def.Title
	}
	return p
}
