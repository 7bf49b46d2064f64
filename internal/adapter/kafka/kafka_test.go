package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-dashboard-service/internal/domain"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (r *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msgs...)
	return nil
}

func (r *recordingWriter) Close() error {
	r.closed = true
	return nil
}

func testNotification() domain.Notification {
	return domain.Notification{
		ID:          "0b6f8c1e-2d4a-4b1f-9a51-0d3b1f0e9c11",
		AlertID:     "urn:oid:tor.1",
		Event:       "Tornado Warning",
		Description: "Take cover now.",
		Recipient:   "sam@example.com",
		Subject:     domain.AlertSubject("Tornado Warning"),
		CreatedAt:   time.Date(2026, 5, 6, 19, 14, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	n := testNotification()

	msg, err := serializeToMessage(n)
	require.NoError(t, err)

	assert.Equal(t, []byte("sam@example.com"), msg.Key)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "notification_id", msg.Headers[0].Key)
	assert.Equal(t, []byte(n.ID), msg.Headers[0].Value)
	assert.Equal(t, "event", msg.Headers[1].Key)
	assert.Equal(t, []byte("Tornado Warning"), msg.Headers[1].Value)
	assert.Equal(t, []byte("2026-05-06T19:14:00Z"), msg.Headers[2].Value)

	var decoded domain.Notification
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, n, decoded)
	assert.Contains(t, string(msg.Value), `"subject":"WEATHER ALERT: Tornado Warning"`)
}

func TestWriter_Publish(t *testing.T) {
	rec := &recordingWriter{}
	w := &Writer{writer: rec, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, w.Publish(context.Background(), testNotification()))
	require.Len(t, rec.msgs, 1)

	require.NoError(t, w.Close())
	assert.True(t, rec.closed)
}

func TestWriter_PublishError(t *testing.T) {
	rec := &recordingWriter{err: errors.New("leader not available")}
	w := &Writer{writer: rec, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	err := w.Publish(context.Background(), testNotification())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}
