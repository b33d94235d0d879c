// Package embedding holds encoder decorators shared by every provider.
package embedding

import (
	"context"

	"golang.org/x/sync/errgroup"

	"doc-qa/internal/domain"
)

// BatchEncoder splits large inputs into provider-sized batches and encodes
// them concurrently, preserving input order in the result.
type BatchEncoder struct {
	inner       domain.VectorEncoder
	batchSize   int
	concurrency int
}

func NewBatchEncoder(inner domain.VectorEncoder, batchSize, concurrency int) *BatchEncoder {
	if batchSize < 1 {
		batchSize = 64
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchEncoder{inner: inner, batchSize: batchSize, concurrency: concurrency}
}

func (b *BatchEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) <= b.batchSize {
		return b.inner.Encode(ctx, texts)
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		g.Go(func() error {
			vectors, err := b.inner.Encode(gctx, texts[start:end])
			if err != nil {
				return err
			}
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *BatchEncoder) Version() string {
	return b.inner.Version()
}

var _ domain.VectorEncoder = (*BatchEncoder)(nil)
