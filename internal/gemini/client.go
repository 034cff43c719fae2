// Package gemini là client tối giản cho API generateContent của Gemini.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pizzeria-backoffice-api-server/config"
	"pizzeria-backoffice-api-server/internal/metrics"

	"go.uber.org/zap"
)

var (
	ErrNotConfigured = errors.New("gemini api key not configured")
	ErrEmptyResponse = errors.New("gemini returned no text")
	ErrNoJSON        = errors.New("no JSON object in model output")
	ErrMissingKey    = errors.New("model JSON missing required key")
	ErrInvalidJSON   = errors.New("model JSON does not match the expected shape")
)

type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generateRequest struct {
	Contents []Content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// backoff trả về thời gian chờ trước lần thử tiếp theo.
func backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

type Client struct {
	http     *http.Client
	baseURL  string
	model    string
	apiKey   string
	retryMax int
	limiter  *limiter
	logger   *zap.Logger
}

func NewClient(cfg config.GeminiConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		retryMax: cfg.RetryMax,
		limiter:  newLimiter(cfg.RequestsPerSecond),
		logger:   logger,
	}
}

// GenerateText gửi một prompt văn bản và trả về text của candidate đầu tiên.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, "text", []Part{{Text: prompt}})
}

// GenerateFromImage gửi prompt kèm ảnh base64 inline (dùng cho OCR hóa đơn).
func (c *Client) GenerateFromImage(ctx context.Context, prompt, mimeType string, image []byte) (string, error) {
	return c.generate(ctx, "image", []Part{
		{Text: prompt},
		{InlineData: &InlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
	})
}

func (c *Client) generate(ctx context.Context, operation string, parts []Part) (string, error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}
	start := time.Now()
	defer metrics.ObserveDuration(metrics.GeminiRequestDuration, start, operation)

	if err := c.limiter.wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(generateRequest{Contents: []Content{{Role: "user", Parts: parts}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)

	var out generateResponse
	if err := c.doJSON(ctx, url, body, &out); err != nil {
		metrics.GeminiRequests.WithLabelValues(operation, "error").Inc()
		return "", err
	}

	text := out.text()
	if text == "" {
		metrics.GeminiRequests.WithLabelValues(operation, "empty").Inc()
		return "", ErrEmptyResponse
	}
	metrics.GeminiRequests.WithLabelValues(operation, "ok").Inc()
	return text, nil
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

// doJSON thử lại khi lỗi mạng hoặc 5xx; 4xx trả lỗi ngay.
func (c *Client) doJSON(ctx context.Context, url string, body []byte, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		// Key nằm trong header để không lọt vào *url.Error và log.
		req.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			c.logger.Warn("gemini.http_failed", zap.Error(err), zap.Int("attempt", attempt))
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return err
			}
			continue
		}
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("gemini server error: %d", resp.StatusCode)
			c.logger.Warn("gemini.server_error", zap.Int("status", resp.StatusCode), zap.Int("attempt", attempt))
			if err := sleepCtx(ctx, backoff(attempt)); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("gemini returned %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			c.logger.Warn("gemini.decode_failed", zap.Error(err))
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("gemini request failed after %d attempts: %w", c.retryMax+1, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ExtractJSON lấy đối tượng JSON nhúng trong output tự do của model:
// từ dấu '{' đầu tiên tới dấu '}' cuối cùng.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	candidate := text[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", ErrNoJSON
	}
	return candidate, nil
}

// DecodeJSON trích JSON từ text, kiểm tra các key bắt buộc rồi decode vào out.
func DecodeJSON(text string, out any, requiredKeys ...string) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if len(requiredKeys) > 0 {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal([]byte(raw), &keys); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		for _, k := range requiredKeys {
			if _, ok := keys[k]; !ok {
				return fmt.Errorf("%w: %q", ErrMissingKey, k)
			}
		}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}
