package usecase

import (
	"fmt"
	"time"

	"doc-qa/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// AnswerCache memoizes answers per (document, question, k). Documents are
// immutable once ingested, so an entry only goes stale through its TTL.
type AnswerCache struct {
	lru *expirable.LRU[string, AnswerOutput]
}

// NewAnswerCache returns nil when size is not positive; a nil cache is valid
// and never hits.
func NewAnswerCache(size int, ttl time.Duration) *AnswerCache {
	if size <= 0 {
		return nil
	}
	return &AnswerCache{lru: expirable.NewLRU[string, AnswerOutput](size, nil, ttl)}
}

func (c *AnswerCache) Get(documentID, question string, k int) (*AnswerOutput, bool) {
	if c == nil {
		return nil, false
	}
	out, ok := c.lru.Get(cacheKey(documentID, question, k))
	if !ok {
		return nil, false
	}
	return cloneOutput(out), true
}

func (c *AnswerCache) Add(documentID, question string, k int, out *AnswerOutput) {
	if c == nil || out == nil {
		return
	}
	c.lru.Add(cacheKey(documentID, question, k), *cloneOutput(*out))
}

func (c *AnswerCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func cacheKey(documentID, question string, k int) string {
	return fmt.Sprintf("%s\x00%d\x00%s", documentID, k, question)
}

// cloneOutput copies the citation slice so callers cannot mutate cached entries.
func cloneOutput(out AnswerOutput) *AnswerOutput {
	cp := out
	cp.Citations = append(make([]domain.Citation, 0, len(out.Citations)), out.Citations...)
	return &cp
}
