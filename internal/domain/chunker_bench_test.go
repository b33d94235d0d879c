package domain_test

import (
	"strings"
	"testing"

	"doc-qa/internal/domain"
)

func BenchmarkChunker_Short(b *testing.B) {
	chunker, _ := domain.NewChunker(domain.DefaultChunkSize, domain.DefaultChunkOverlap)
	text := "This is a short page about AI. It has a few sentences. Machine learning is powerful."

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = chunker.Split(text)
	}
}

func BenchmarkChunker_Long(b *testing.B) {
	chunker, _ := domain.NewChunker(domain.DefaultChunkSize, domain.DefaultChunkOverlap)
	// roughly a dense PDF page
	text := strings.Repeat("This is a paragraph about artificial intelligence and machine learning. It discusses various applications of AI in modern technology. ", 40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = chunker.Split(text)
	}
}
