package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-map-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	occurred := time.Date(2024, 1, 1, 7, 10, 10, 0, time.UTC)
	fetched := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	q := domain.Quake{
		ID:         "us7000lsze",
		Magnitude:  7.5,
		Place:      "Noto Peninsula, Japan",
		Alert:      domain.AlertRed,
		Color:      "red",
		OccurredAt: occurred,
	}

	msg, err := serializeToMessage(q, 7, fetched)
	require.NoError(t, err)

	assert.Equal(t, []byte("us7000lsze"), msg.Key)
	assert.Equal(t, occurred, msg.Time)
	assert.Contains(t, string(msg.Value), `"alert":"red"`)
	assert.Contains(t, string(msg.Value), `"magnitude":7.5`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "alert", msg.Headers[0].Key)
	assert.Equal(t, []byte("red"), msg.Headers[0].Value)
	assert.Equal(t, "generation", msg.Headers[1].Key)
	assert.Equal(t, []byte("7"), msg.Headers[1].Value)
	assert.Equal(t, "fetched_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(fetched.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestWriter_PublishEmptySetIsNoop(t *testing.T) {
	// No broker is listening; an empty set must not attempt a write.
	w := NewWriter([]string{"127.0.0.1:1"}, "quakes", slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Publish(context.Background(), domain.RecordSet{Generation: 1}))
}
