package llm_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/legalai-pro/internal/adapters/llm"
)

func newAnthropicClient(t *testing.T, status int, body string, gotBody *string) *llm.AnthropicClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if gotBody != nil {
			*gotBody = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	client, err := llm.NewAnthropicClient(llm.AnthropicConfig{
		APIKey:  "test-key",
		Model:   "claude-test",
		Options: []option.RequestOption{option.WithBaseURL(srv.URL), option.WithMaxRetries(0)},
	})
	require.NoError(t, err)
	return client
}

func TestNewAnthropicClientRequiresKey(t *testing.T) {
	_, err := llm.NewAnthropicClient(llm.AnthropicConfig{})
	require.Error(t, err)
}

func TestAnthropicComplete(t *testing.T) {
	var gotBody string
	client := newAnthropicClient(t, http.StatusOK, `{
		"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
		"content":[{"type":"text","text":"A contract needs offer, "},{"type":"text","text":"acceptance and consideration."}],
		"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":8}}`, &gotBody)

	reply, err := client.Complete(context.Background(), "What makes a contract valid?")
	require.NoError(t, err)
	assert.Equal(t, "A contract needs offer, acceptance and consideration.", reply)
	assert.Contains(t, gotBody, "What makes a contract valid?")
	assert.Contains(t, gotBody, `"claude-test"`)
}

func TestAnthropicCompleteRemoteError(t *testing.T) {
	client := newAnthropicClient(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`, nil)

	_, err := client.Complete(context.Background(), "anything")
	require.Error(t, err)
}
