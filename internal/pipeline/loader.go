package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
	"github.com/couchcryptid/accident-dashboard/internal/observability"
)

// Source is a location the raw accident file can be read from.
type Source interface {
	// Key identifies the current content version of the source. A changed
	// key means a cached dataset for the old key is stale.
	Key(ctx context.Context) (string, error)
	// Open returns the raw (decompressed) file bytes.
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// Loader runs the read, clean, and window steps for a source.
type Loader struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewLoader creates a Loader with the given observability.
func NewLoader(logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		logger:  logger.With("component", "loader"),
		metrics: metrics,
	}
}

// Load reads src and returns the cleaned dataset. Failures are terminal; no
// partial dataset is ever returned.
func (l *Loader) Load(ctx context.Context, src Source) (domain.Dataset, error) {
	start := time.Now()

	ds, err := l.load(ctx, src)
	l.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	l.metrics.Loads.WithLabelValues(loadOutcome(err)).Inc()
	if err != nil {
		l.logger.Error("dataset load failed", "source", src.String(), "error", err)
		return domain.Dataset{}, err
	}

	l.metrics.RowsDropped.WithLabelValues("invalid_timestamp").Add(float64(ds.Drops.InvalidTimestamp))
	l.metrics.RowsDropped.WithLabelValues("outside_window").Add(float64(ds.Drops.OutsideWindow))
	l.metrics.RowsDropped.WithLabelValues("invalid_coordinates").Add(float64(ds.Drops.InvalidCoordinates))
	l.metrics.DatasetRows.Set(float64(ds.Len()))

	l.logger.Info("dataset loaded",
		"source", ds.Source,
		"rows_read", ds.Drops.RowsRead,
		"rows_kept", ds.Len(),
		"dropped_timestamp", ds.Drops.InvalidTimestamp,
		"dropped_window", ds.Drops.OutsideWindow,
		"dropped_coordinates", ds.Drops.InvalidCoordinates,
		"window_start", ds.WindowStart,
		"window_end", ds.WindowEnd,
		"duration", time.Since(start),
	)
	return ds, nil
}

func (l *Loader) load(ctx context.Context, src Source) (domain.Dataset, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return domain.Dataset{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("read %s: %w", src, err)
	}

	ds, err := Parse(data)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("load %s: %w", src, err)
	}
	ds.Source = src.String()
	return ds, nil
}

// Parse turns raw file bytes into a cleaned dataset. It is a pure function of
// data: identical bytes always produce an identical dataset.
func Parse(data []byte) (domain.Dataset, error) {
	sum := sha256.Sum256(data)

	raws, err := ReadRaw(bytes.NewReader(data))
	if err != nil {
		return domain.Dataset{}, err
	}

	ds, err := domain.Clean(raws)
	if err != nil {
		return domain.Dataset{}, err
	}
	ds.Checksum = hex.EncodeToString(sum[:])
	return ds, nil
}

func loadOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrFileNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrParse):
		return "parse_error"
	case errors.Is(err, domain.ErrEmptyDataset):
		return "empty"
	default:
		return "error"
	}
}
