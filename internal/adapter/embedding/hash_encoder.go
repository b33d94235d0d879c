package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"doc-qa/internal/domain"
)

// HashEncoder is an offline bag-of-words encoder. Every lowercase token is
// hashed into one of dims buckets; the last bucket is a constant bias so no
// vector is ever zero. It needs no network and is deterministic, which makes
// it suitable for local runs without model credentials.
type HashEncoder struct {
	dims int
}

func NewHashEncoder(dims int) *HashEncoder {
	if dims < 2 {
		dims = 256
	}
	return &HashEncoder{dims: dims}
}

func (h *HashEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *HashEncoder) vector(text string) []float32 {
	v := make([]float32, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		f := fnv.New32a()
		_, _ = f.Write([]byte(tok))
		v[int(f.Sum32()%uint32(h.dims-1))]++
	}
	v[h.dims-1] = 0.1
	return v
}

func (h *HashEncoder) Version() string {
	return "hash-bow"
}

var _ domain.VectorEncoder = (*HashEncoder)(nil)
