package rag_augur

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/retry"
)

var testPolicy = retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}

func TestBuildOptions(t *testing.T) {
	gen := NewOllamaGenerator("http://localhost:11434", "llama3.1", nil, testPolicy)

	opts := gen.buildOptions(domain.ChatOptions{Temperature: 0.2, MaxTokens: 512})
	if opts["temperature"] != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", opts["temperature"])
	}
	if opts["num_predict"] != 512 {
		t.Fatalf("expected num_predict 512, got %v", opts["num_predict"])
	}

	opts = gen.buildOptions(domain.ChatOptions{Temperature: 0.2})
	if _, ok := opts["num_predict"]; ok {
		t.Fatalf("num_predict should be omitted when MaxTokens is zero")
	}
}

func TestOllamaGenerator_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Errorf("expected non-streaming request")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages %+v", req.Messages)
		}
		_, _ = w.Write([]byte(`{"message":{"content":"\n Paris. "},"done":true}`))
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL+"/", "llama3.1", srv.Client(), testPolicy)
	resp, err := gen.Chat(context.Background(), []domain.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "q"},
	}, domain.ChatOptions{Temperature: 0.2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Paris." {
		t.Fatalf("expected trimmed answer, got %q", resp.Text)
	}
	if !resp.Done {
		t.Fatalf("expected done")
	}
}

func TestOllamaGenerator_ServerErrorIsUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	gen := NewOllamaGenerator(srv.URL, "llama3.1", srv.Client(), testPolicy)
	_, err := gen.Chat(context.Background(), []domain.Message{{Role: "user", Content: "q"}}, domain.ChatOptions{})
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestOllamaEmbedder_Encode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[0,1]]}`))
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(srv.URL, "nomic-embed-text", srv.Client(), testPolicy)
	got, err := emb.Encode(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0][0] != 1 || got[1][1] != 1 {
		t.Fatalf("unexpected embeddings %v", got)
	}
}

func TestOllamaEmbedder_CountMismatchFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[1,0]]}`))
	}))
	defer srv.Close()

	emb := NewOllamaEmbedder(srv.URL, "nomic-embed-text", srv.Client(), testPolicy)
	if _, err := emb.Encode(context.Background(), []string{"a", "b"}); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
