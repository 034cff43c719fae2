package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pizzeria-backoffice-api-server/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(srv *httptest.Server, retryMax int) *Client {
	return NewClient(config.GeminiConfig{
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Model:    "gemini-test",
		RetryMax: retryMax,
	}, srv.Client(), zap.NewNop())
}

func textReply(text string) []byte {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return b
}

func TestGenerateText_Success(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		assert.Empty(t, r.URL.RawQuery)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write(textReply("  Ciao fornitore  "))
	}))
	defer srv.Close()

	out, err := newTestClient(srv, 0).GenerateText(context.Background(), "draft an email")
	require.NoError(t, err)
	assert.Equal(t, "Ciao fornitore", out)
	assert.Equal(t, "/v1beta/models/gemini-test:generateContent", gotPath)
	assert.Equal(t, "test-key", gotKey)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "draft an email", gotBody.Contents[0].Parts[0].Text)
}

func TestGenerateFromImage_SendsInlineData(t *testing.T) {
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_, _ = w.Write(textReply(`{"lines":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 0).GenerateFromImage(context.Background(), "ocr", "image/png", []byte("PNGDATA"))
	require.NoError(t, err)
	parts := gotBody.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MimeType)
	assert.Equal(t, "UE5HREFUQQ==", parts[1].InlineData.Data)
}

func TestGenerateText_Retries5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(textReply("ok"))
	}))
	defer srv.Close()

	out, err := newTestClient(srv, 2).GenerateText(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGenerateText_ConnectionErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := NewClient(config.GeminiConfig{
		APIKey:  "SECRET-KEY-123",
		BaseURL: srv.URL,
		Model:   "m",
	}, nil, zap.NewNop())
	_, err := c.GenerateText(context.Background(), "p")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
}

func TestGenerateText_BackoffStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := newTestClient(srv, 5).GenerateText(ctx, "p")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGenerateText_4xxNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 2).GenerateText(context.Background(), "p")
	require.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestGenerateText_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 0).GenerateText(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGenerateText_NotConfigured(t *testing.T) {
	c := NewClient(config.GeminiConfig{}, nil, nil)
	_, err := c.GenerateText(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestExtractJSON(t *testing.T) {
	raw, err := ExtractJSON("Here you go:\n```json\n{\"items\": [{\"name\": \"x\"}]}\n```")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "{"))
	assert.JSONEq(t, `{"items":[{"name":"x"}]}`, raw)

	_, err = ExtractJSON("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ExtractJSON("{broken")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestDecodeJSON_RequiredKeys(t *testing.T) {
	var out struct {
		Subject string `json:"subject"`
	}
	require.NoError(t, DecodeJSON(`{"subject":"Hi","body":"x"}`, &out, "subject", "body"))
	assert.Equal(t, "Hi", out.Subject)

	err := DecodeJSON(`{"subject":"Hi"}`, &out, "subject", "body")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingKey)
	assert.Contains(t, err.Error(), `"body"`)
}
