package pdf_text

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledongthuc/pdf"

	"doc-qa/internal/domain"
)

// pageSource is the slice of a parsed PDF the extractor needs.
type pageSource interface {
	NumPage() int
	PageText(number int) (string, error)
}

type readerSource struct {
	r *pdf.Reader
}

func (s readerSource) NumPage() int { return s.r.NumPage() }

func (s readerSource) PageText(number int) (string, error) {
	p := s.r.Page(number)
	if p.V.IsNull() {
		return "", nil
	}
	return p.GetPlainText(nil)
}

// Extractor reads PDF text layers page by page. Scanned pages without a text
// layer come back empty and are dropped.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the normalized non-empty pages of the PDF at path, keeping
// their original 1-based numbers. Any parse failure yields ErrExtraction and
// no pages.
func (e *Extractor) Extract(ctx context.Context, path string) (pages []domain.Page, err error) {
	start := time.Now()

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: %v", domain.ErrExtraction, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtraction, err)
	}
	defer func() { _ = f.Close() }()

	pages, err = extractPages(ctx, readerSource{r: r})
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "pdf_extracted",
		slog.Int("page_count", r.NumPage()),
		slog.Int("text_pages", len(pages)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return pages, nil
}

func extractPages(ctx context.Context, src pageSource) ([]domain.Page, error) {
	total := src.NumPage()
	pages := make([]domain.Page, 0, total)

	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := src.PageText(n)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", domain.ErrExtraction, n, err)
		}
		text := domain.NormalizeWhitespace(raw)
		if text == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: n, Text: text})
	}
	return pages, nil
}

var _ domain.PageExtractor = (*Extractor)(nil)
