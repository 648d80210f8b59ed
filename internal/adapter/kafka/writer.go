package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/accident-dashboard/internal/config"
	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
)

// publishBatchSize bounds the number of messages per WriteMessages call.
const publishBatchSize = 500

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes cleaned accident records to a Kafka topic. It only reads
// the datasets it is given.
type Writer struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	wg      sync.WaitGroup
}

// NewWriter creates a Kafka producer for the configured record topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    publishBatchSize,
	}
	return newWriter(w, logger, metrics)
}

func newWriter(mw messageWriter, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	return &Writer{
		writer:  mw,
		logger:  logger.With("component", "kafka_writer"),
		metrics: metrics,
	}
}

// PublishDataset serializes every record of ds and writes them in batches.
func (w *Writer) PublishDataset(ctx context.Context, ds *domain.Dataset) error {
	if ds.Len() == 0 {
		return nil
	}

	published := 0
	for start := 0; start < len(ds.Records); start += publishBatchSize {
		end := min(start+publishBatchSize, len(ds.Records))
		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(ds.Records[i], ds)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			w.metrics.PublishErrors.Inc()
			return fmt.Errorf("publish records %d-%d: %w", start, end, err)
		}
		published += len(msgs)
		w.metrics.RecordsPublished.Add(float64(len(msgs)))
	}

	w.logger.Info("dataset published", "records", published, "checksum", ds.Checksum)
	return nil
}

// OnLoad publishes ds in the background. It has the signature of a
// pipeline load hook; Close waits for publishes still in flight.
func (w *Writer) OnLoad(ctx context.Context, ds *domain.Dataset) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.PublishDataset(ctx, ds); err != nil {
			w.logger.Error("dataset publish failed", "error", err, "checksum", ds.Checksum)
		}
	}()
}

// Close waits for background publishes and closes the producer.
func (w *Writer) Close() error {
	w.wg.Wait()
	return w.writer.Close()
}

// serializeToMessage marshals an AccidentRecord into a Kafka message keyed by
// its deterministic ID.
func serializeToMessage(rec domain.AccidentRecord, ds *domain.Dataset) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize accident record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "state", Value: []byte(rec.State)},
			{Key: "dataset_checksum", Value: []byte(ds.Checksum)},
			{Key: "window_end", Value: []byte(ds.WindowEnd.Format(time.RFC3339))},
			{Key: "month_number", Value: []byte(strconv.Itoa(rec.MonthNumber))},
		},
	}, nil
}
