package domain

import "context"

// PageExtractor turns a PDF on disk into its non-empty pages, in document order.
type PageExtractor interface {
	Extract(ctx context.Context, path string) ([]Page, error)
}
