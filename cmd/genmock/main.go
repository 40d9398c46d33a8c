// Command genmock generates a deterministic USGS event feed for local runs
// and tests, together with the record set the service derives from it. It
// uses the service's own domain package so the expected output matches real
// pipeline behavior. With -serve it also answers USGS-style queries over HTTP,
// so the service can run against it via USGS_BASE_URL.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -feed-out data/mock/usgs_feed_20240131.json \
//	  -expected-out data/mock/records_20240131.json \
//	  -serve :9090
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

// baseDate is "now" for the generated feed; events spread back 40 days so
// some fall outside the default 30-day window.
var baseDate = time.Date(2024, time.January, 31, 12, 0, 0, 0, time.UTC)

const spanDays = 40

type region struct {
	name     string
	lon, lat float64
}

var regions = []region{
	{"Noto Peninsula, Japan", 137.27, 37.49},
	{"Hualien, Taiwan", 121.6, 23.98},
	{"Valparaiso, Chile", -71.62, -33.05},
	{"Anchorage, Alaska", -149.9, 61.22},
	{"Sumatra, Indonesia", 95.32, 3.31},
	{"Kermadec Islands, New Zealand", -177.9, -29.3},
	{"Crete, Greece", 25.13, 35.34},
	{"Oaxaca, Mexico", -96.73, 16.2},
	{"Luzon, Philippines", 121.0, 16.5},
	{"Herat, Afghanistan", 62.2, 34.35},
}

// alertWeights skew toward unclassified and green events, as in the live feed.
var alertWeights = []struct {
	alert  *string
	weight int
}{
	{nil, 60},
	{ptr("green"), 25},
	{ptr("yellow"), 8},
	{ptr("orange"), 5},
	{ptr("red"), 2},
}

func ptr[T any](v T) *T { return &v }

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	feedOut := flag.String("feed-out", "", "output path for the USGS GeoJSON feed")
	expectedOut := flag.String("expected-out", "", "output path for the expected record set (optional)")
	count := flag.Int("count", 200, "number of events to generate")
	seed := flag.Uint64("seed", 1, "random seed")
	serve := flag.String("serve", "", "serve the feed at this address after writing it (optional)")
	flag.Parse()

	if *feedOut == "" {
		flag.Usage()
		return errors.New("missing required flag: -feed-out")
	}

	// Fix the clock so the default window is reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate))
	defer domain.SetClock(nil)

	fc := generate(*count, *seed)
	if err := writeJSON(*feedOut, fc); err != nil {
		return fmt.Errorf("writing feed: %w", err)
	}
	log.Printf("wrote feed: %s (%d events)", *feedOut, len(fc.Features))

	filter := domain.NewFilter("", time.Time{}, time.Time{}, time.UTC)
	quakes := filter.Apply(fc.Features, time.UTC)
	if *expectedOut != "" {
		set := domain.RecordSet{Generation: 1, Filter: filter, FetchedAt: baseDate, Quakes: quakes}
		if err := writeJSON(*expectedOut, set); err != nil {
			return fmt.Errorf("writing expected record set: %w", err)
		}
		log.Printf("wrote expected record set: %s", *expectedOut)
	}

	printStats(fc, quakes)

	if *serve != "" {
		return serveFeed(*serve, fc)
	}
	return nil
}

func generate(n int, seed uint64) domain.FeatureCollection {
	rng := rand.New(rand.NewPCG(seed, seed))
	features := make([]domain.QuakeFeature, n)
	for i := range features {
		r := regions[rng.IntN(len(regions))]
		offset := time.Duration(rng.Int64N(int64(spanDays * 24 * time.Hour)))
		at := baseDate.Add(-offset).Truncate(time.Millisecond)
		// Magnitudes 2.5 to 8.0 in tenths.
		mag := float64(25+rng.IntN(56)) / 10
		lon := r.lon + rng.Float64() - 0.5
		lat := r.lat + rng.Float64() - 0.5
		depth := float64(rng.IntN(7000)) / 10

		features[i] = domain.QuakeFeature{
			Type: "Feature",
			ID:   fmt.Sprintf("mock%06d", i+1),
			Properties: domain.QuakeProperties{
				Mag:   ptr(mag),
				Place: r.name,
				Time:  at.UnixMilli(),
				Alert: pickAlert(rng),
				Title: fmt.Sprintf("M %.1f - %s", mag, r.name),
			},
			Geometry: domain.PointGeometry{Type: "Point", Coordinates: []float64{lon, lat, depth}},
		}
	}
	return domain.FeatureCollection{
		Type: "FeatureCollection",
		Metadata: domain.FeedMetadata{
			Generated: baseDate.UnixMilli(),
			Title:     "USGS Earthquakes (mock)",
			Status:    http.StatusOK,
			Count:     n,
		},
		Features: features,
	}
}

func pickAlert(rng *rand.Rand) *string {
	total := 0
	for _, w := range alertWeights {
		total += w.weight
	}
	pick := rng.IntN(total)
	for _, w := range alertWeights {
		if pick < w.weight {
			return w.alert
		}
		pick -= w.weight
	}
	return nil
}

// serveFeed answers /fdsnws/event/1/query with the events inside the
// requested window, like the real service.
func serveFeed(addr string, fc domain.FeatureCollection) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /fdsnws/event/1/query", func(w http.ResponseWriter, r *http.Request) {
		start, err := time.Parse(time.RFC3339, r.URL.Query().Get("starttime"))
		if err != nil {
			http.Error(w, "Error 400: Bad Request\n\ninvalid starttime", http.StatusBadRequest)
			return
		}
		end, err := time.Parse(time.RFC3339, r.URL.Query().Get("endtime"))
		if err != nil {
			http.Error(w, "Error 400: Bad Request\n\ninvalid endtime", http.StatusBadRequest)
			return
		}

		out := fc
		out.Features = nil
		for _, f := range fc.Features {
			t := f.Properties.EventTime()
			if !t.Before(start) && !t.After(end) {
				out.Features = append(out.Features, f)
			}
		}
		if len(out.Features) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		out.Metadata.Count = len(out.Features)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out) //nolint:errcheck // mock server
	})

	log.Printf("serving mock USGS feed on %s", addr)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return srv.ListenAndServe()
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(fc domain.FeatureCollection, quakes []domain.Quake) {
	alertCounts := map[string]int{}
	for _, f := range fc.Features {
		key := "null"
		if f.Properties.Alert != nil {
			key = *f.Properties.Alert
		}
		alertCounts[key]++
	}
	kept := map[domain.AlertLevel]int{}
	for _, q := range quakes {
		kept[q.Alert]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total events: %d\n", len(fc.Features))
	fmt.Printf("By alert: null=%d, green=%d, yellow=%d, orange=%d, red=%d\n",
		alertCounts["null"], alertCounts["green"], alertCounts["yellow"], alertCounts["orange"], alertCounts["red"])
	fmt.Printf("In default window (all alerts): %d\n", len(quakes))
	fmt.Printf("  green=%d, yellow=%d, orange=%d, red=%d\n",
		kept[domain.AlertGreen], kept[domain.AlertYellow], kept[domain.AlertOrange], kept[domain.AlertRed])

	if visible := domain.VisibleQuakes(quakes, domain.WorldExtent); len(visible) > 0 {
		top := visible[0]
		fmt.Printf("Largest: %s M%.1f %s (%s)\n", top.ID, top.Magnitude, top.Place, top.Alert)
	}
}
