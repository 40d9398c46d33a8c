//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/quake-map-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-map-service/internal/adapter/sqlite"
	"github.com/couchcryptid/quake-map-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-map-service/internal/domain"
	"github.com/couchcryptid/quake-map-service/internal/observability"
	"github.com/couchcryptid/quake-map-service/internal/pipeline"
)

const testTopic = "test-earthquakes"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("quake-map-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedMessage struct {
	Quake   domain.Quake
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var q domain.Quake
	require.NoError(t, json.Unmarshal(msg.Value, &q), "unmarshal message")
	return publishedMessage{Quake: q, Key: string(msg.Key), Headers: headers}
}

const feedBody = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": "us7000lsze",
     "properties": {"mag": 7.5, "place": "Noto Peninsula, Japan", "time": 1704093010474, "alert": "red", "title": "M 7.5 - Noto Peninsula, Japan"},
     "geometry": {"type": "Point", "coordinates": [137.2705, 37.4874, 10]}},
    {"type": "Feature", "id": "us6000m0n6",
     "properties": {"mag": 5.1, "place": "Hualien, Taiwan", "time": 1705000000000, "alert": "green", "title": "M 5.1 - Hualien, Taiwan"},
     "geometry": {"type": "Point", "coordinates": [121.6, 23.98, 20]}},
    {"type": "Feature", "id": "ak0241a6y2c",
     "properties": {"mag": 3.0, "place": "Alaska", "time": 1704100000000, "alert": null, "title": "M 3.0 - Alaska"},
     "geometry": {"type": "Point", "coordinates": [-150.1, 61.2, 35.5]}}
  ]
}`

// TestRefreshPublishesAndSnapshots wires the pipeline to a mock USGS server,
// a real Kafka broker and a SQLite snapshot file, then checks that one
// refresh produces one message per filtered quake and a restorable snapshot.
func TestRefreshPublishesAndSnapshots(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	usgsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedBody))
	}))
	t.Cleanup(usgsSrv.Close)

	metrics := observability.NewMetricsForTesting()
	fetcher := usgs.NewClient(usgsSrv.URL, 5*time.Second, metrics, discardLogger())

	writer := kafka.NewWriter([]string{broker}, testTopic, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	snapshotPath := t.TempDir() + "/snapshot.db"
	store, err := sqlite.Open(ctx, snapshotPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p := pipeline.New(fetcher, noBoundaries{}, discardLogger(), metrics,
		pipeline.WithPublisher(writer), pipeline.WithSnapshots(store))
	t.Cleanup(p.Close)

	set, err := p.RefreshRequest(ctx, domain.FilterRequest{From: "2024-01-01", To: "2024-01-31"})
	require.NoError(t, err)
	require.Len(t, set.Quakes, 2)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]publishedMessage{}
	for len(received) < len(set.Quakes) {
		pm := readPublished(ctx, t, consumer)
		received[pm.Key] = pm
	}

	noto := received["us7000lsze"]
	assert.Equal(t, "red", noto.Headers["alert"])
	assert.Equal(t, strconv.FormatUint(set.Generation, 10), noto.Headers["generation"])
	_, err = time.Parse(time.RFC3339, noto.Headers["fetched_at"])
	assert.NoError(t, err, "fetched_at should be valid RFC3339")
	assert.Equal(t, 7.5, noto.Quake.Magnitude)
	assert.Equal(t, "Noto Peninsula, Japan", noto.Quake.Place)

	assert.Equal(t, "green", received["us6000m0n6"].Headers["alert"])
	assert.NotContains(t, received, "ak0241a6y2c", "unclassified events are never published")

	// A fresh pipeline restores the same record set from the snapshot.
	restored := pipeline.New(fetcher, noBoundaries{}, discardLogger(), observability.NewMetricsForTesting(),
		pipeline.WithSnapshots(store))
	t.Cleanup(restored.Close)
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, set.Generation, restored.Records().Generation)
	assert.Len(t, restored.Records().Quakes, 2)
}

type noBoundaries struct{}

func (noBoundaries) FetchLayer(_ context.Context, _ domain.LayerDef) (domain.EsriFeatureSet, error) {
	return domain.EsriFeatureSet{}, nil
}
