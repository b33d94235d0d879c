package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-qa/internal/domain"
	"doc-qa/internal/infra/retry"
)

var testPolicy = retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestEmbedder_Encode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req embeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)

		// out of order on purpose
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "sk-test", "text-embedding-3-small", srv.Client(), testPolicy)
	got, err := e.Encode(context.Background(), []string{"a", "b"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)
	assert.Equal(t, "text-embedding-3-small", e.Version())
}

func TestEmbedder_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.5]}]}`))
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "", "m", srv.Client(), testPolicy)
	got, err := e.Encode(context.Background(), []string{"x"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5}}, got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmbedder_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	e := NewEmbedder(srv.URL, "", "m", srv.Client(), testPolicy)
	_, err := e.Encode(context.Background(), []string{"x"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, int32(1), calls.Load())
}

func TestEmbedder_EmptyInputSkipsRequest(t *testing.T) {
	e := NewEmbedder("http://127.0.0.1:0", "", "m", nil, testPolicy)
	got, err := e.Encode(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestChatClient_Chat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 0.2, req.Temperature)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Paris.\n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL+"/", "sk", "gpt-4o-mini", srv.Client(), testPolicy)
	resp, err := c.Chat(context.Background(), []domain.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "q"},
	}, domain.ChatOptions{Temperature: 0.2})

	require.NoError(t, err)
	assert.Equal(t, "Paris.", resp.Text)
	assert.True(t, resp.Done)
}

func TestChatClient_ExhaustedRetriesWrapUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "", "m", srv.Client(), testPolicy)
	_, err := c.Chat(context.Background(), []domain.Message{{Role: "user", Content: "q"}}, domain.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, int32(3), calls.Load())
}
