package pipeline

import (
	"context"

	"github.com/couchcryptid/accident-dashboard/internal/domain"
)

// Provider binds a Memo to the configured source. It is what the
// presentation layer depends on.
type Provider struct {
	memo   *Memo
	source Source
}

// NewProvider creates a Provider serving datasets for src.
func NewProvider(memo *Memo, src Source) *Provider {
	return &Provider{memo: memo, source: src}
}

// Dataset returns the cached dataset, loading it when needed.
func (p *Provider) Dataset(ctx context.Context) (*domain.Dataset, error) {
	return p.memo.Get(ctx, p.source)
}

// Reload discards every cached dataset and loads the source again.
func (p *Provider) Reload(ctx context.Context) (*domain.Dataset, error) {
	p.memo.InvalidateAll()
	return p.memo.Get(ctx, p.source)
}

// CheckReadiness reports whether a dataset has been loaded.
func (p *Provider) CheckReadiness(ctx context.Context) error {
	return p.memo.CheckReadiness(ctx)
}

// SourceName returns the configured source location.
func (p *Provider) SourceName() string {
	return p.source.String()
}
