// Package source provides the locations the raw accident file is read from:
// local paths and http(s) URLs, optionally gzip-compressed.
package source

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/couchcryptid/accident-dashboard/internal/pipeline"
)

// New returns the source for location. http:// and https:// locations are
// fetched remotely; anything else is a filesystem path.
func New(location string, timeout time.Duration, logger *slog.Logger) pipeline.Source {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTP(location, timeout, logger)
	}
	return NewFile(location)
}

func isGzipName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gz")
}

// gzipReadCloser closes both the decompressor and the underlying stream.
type gzipReadCloser struct {
	*gzip.Reader
	underlying io.Closer
}

func newGzipReadCloser(rc io.ReadCloser) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &gzipReadCloser{Reader: zr, underlying: rc}, nil
}

func (g *gzipReadCloser) Close() error {
	zerr := g.Reader.Close()
	if err := g.underlying.Close(); err != nil {
		return err
	}
	return zerr
}
