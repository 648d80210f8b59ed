package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
)

// --- mocks ---

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]kafkago.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func (f *fakeWriter) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func testRecord(i int) domain.AccidentRecord {
	ts := time.Date(2025, 6, 1, i%24, 0, 0, 0, time.UTC)
	return domain.AccidentRecord{
		Timestamp:    ts,
		Latitude:     -23.5 + float64(i)/1000,
		Longitude:    -46.6,
		Hour:         ts.Hour(),
		MonthNumber:  6,
		MonthName:    "Junho",
		State:        "SP",
		Municipality: "GUARULHOS",
		Cause:        "Velocidade Incompatível",
		AccidentType: "Colisão traseira",
		Fatalities:   1,
	}
}

func testDataset(n int) *domain.Dataset {
	ds := &domain.Dataset{
		Checksum:  "abc123",
		WindowEnd: time.Date(2025, 6, 30, 18, 20, 0, 0, time.UTC),
	}
	for i := range n {
		ds.Records = append(ds.Records, testRecord(i))
	}
	return ds
}

func newTestWriter(fw *fakeWriter) (*Writer, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	return newWriter(fw, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics), metrics
}

// --- tests ---

func TestSerializeToMessage(t *testing.T) {
	rec := testRecord(3)
	ds := testDataset(0)

	msg, err := serializeToMessage(rec, ds)
	require.NoError(t, err)

	assert.Equal(t, []byte(rec.ID()), msg.Key)

	var decoded domain.AccidentRecord
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, rec.Municipality, decoded.Municipality)
	assert.True(t, rec.Timestamp.Equal(decoded.Timestamp))

	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "state", msg.Headers[0].Key)
	assert.Equal(t, []byte("SP"), msg.Headers[0].Value)
	assert.Equal(t, []byte("abc123"), msg.Headers[1].Value)
	assert.Equal(t, []byte("2025-06-30T18:20:00Z"), msg.Headers[2].Value)
	assert.Equal(t, []byte("6"), msg.Headers[3].Value)
}

func TestSerializeToMessage_KeyIsDeterministic(t *testing.T) {
	a, err := serializeToMessage(testRecord(1), testDataset(0))
	require.NoError(t, err)
	b, err := serializeToMessage(testRecord(1), testDataset(0))
	require.NoError(t, err)
	c, err := serializeToMessage(testRecord(2), testDataset(0))
	require.NoError(t, err)

	assert.Equal(t, a.Key, b.Key)
	assert.NotEqual(t, a.Key, c.Key)
}

func TestPublishDataset_Batches(t *testing.T) {
	fw := &fakeWriter{}
	w, metrics := newTestWriter(fw)

	require.NoError(t, w.PublishDataset(context.Background(), testDataset(publishBatchSize+20)))

	require.Len(t, fw.batches, 2)
	assert.Len(t, fw.batches[0], publishBatchSize)
	assert.Len(t, fw.batches[1], 20)
	assert.InDelta(t, float64(publishBatchSize+20), testutil.ToFloat64(metrics.RecordsPublished), 0)
}

func TestPublishDataset_Empty(t *testing.T) {
	fw := &fakeWriter{}
	w, _ := newTestWriter(fw)

	require.NoError(t, w.PublishDataset(context.Background(), &domain.Dataset{}))
	assert.Empty(t, fw.batches)
}

func TestPublishDataset_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker unavailable")}
	w, metrics := newTestWriter(fw)

	err := w.PublishDataset(context.Background(), testDataset(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestPublishDataset_DoesNotModifyDataset(t *testing.T) {
	fw := &fakeWriter{}
	w, _ := newTestWriter(fw)
	ds := testDataset(5)
	before := append([]domain.AccidentRecord(nil), ds.Records...)

	require.NoError(t, w.PublishDataset(context.Background(), ds))
	assert.Equal(t, before, ds.Records)
}

func TestOnLoad_CloseWaitsForPublish(t *testing.T) {
	fw := &fakeWriter{}
	w, _ := newTestWriter(fw)

	w.OnLoad(context.Background(), testDataset(7))
	require.NoError(t, w.Close())

	assert.Equal(t, 7, fw.total())
	assert.True(t, fw.closed)
}
