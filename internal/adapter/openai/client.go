// Package openai talks to OpenAI-compatible /embeddings and /chat/completions
// endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"doc-qa/internal/infra/retry"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// maxErrorBody caps how much of a failed response ends up in the error.
const maxErrorBody = 512

type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	policy  retry.Policy
}

func newAPIClient(baseURL, apiKey string, httpClient *http.Client, policy retry.Policy) apiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		policy:  policy,
	}
}

// postJSON sends body to path and decodes a 200 response into out. Transport
// failures and 429/5xx answers are reported as retryable.
func (c apiClient) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return retry.Transient(fmt.Errorf("send request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &retry.StatusError{Service: "openai", StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
