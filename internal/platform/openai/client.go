package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/httpx"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/promptstyle"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
)

var ErrMissingAPIKey = errors.New("missing OPENAI_API_KEY")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	Timeout     time.Duration
	MaxRetries  int
}

// Client talks to the Responses API. It serves both as an ai.Generator and
// as an ai.VisionChat.
type Client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	visionModel string
	httpClient  *http.Client
	maxRetries  int

	// Models that rejected the temperature parameter once are sent without it.
	noTempMu   sync.RWMutex
	noTempSeen map[string]time.Time
	noTempTTL  time.Duration
}

var (
	_ ai.Generator  = (*Client)(nil)
	_ ai.VisionChat = (*Client)(nil)
)

func NewClient(log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	visionModel := strings.TrimSpace(cfg.VisionModel)
	if visionModel == "" {
		visionModel = model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		log:         log.With("service", "OpenAIClient"),
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		visionModel: visionModel,
		httpClient:  &http.Client{Timeout: timeout},
		maxRetries:  maxRetries,
		noTempSeen:  map[string]time.Time{},
		noTempTTL:   24 * time.Hour,
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *openAIHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type inputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model       string         `json:"model"`
	Input       []inputMessage `json:"input"`
	Temperature *float64       `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

// Generate never returns an error value. Transport and model failures come
// back as Success=false with Err set for logging.
func (c *Client) Generate(ctx context.Context, prompt, model string, opts ai.GenerateOptions) ai.GenerateResult {
	model = c.pick(model, c.model)
	req := &responsesRequest{Model: model}
	if sys := strings.TrimSpace(opts.SystemPrompt); sys != "" {
		req.Input = append(req.Input, inputMessage{Role: "system", Content: promptstyle.ApplySystem(sys, "text")})
	}
	req.Input = append(req.Input, inputMessage{Role: "user", Content: prompt})
	if opts.Temperature != nil && !c.modelIsNoTemp(model) {
		req.Temperature = opts.Temperature
	}

	text, err := c.respond(ctx, req)
	if err != nil {
		c.log.Warn("OpenAI generate failed", "model", model, "error", err)
		return ai.Failed(err)
	}
	return ai.Succeeded(text)
}

// Chat sends the prompt together with base64 images (no data: prefix).
func (c *Client) Chat(ctx context.Context, prompt, model string, images []string) (string, error) {
	model = c.pick(model, c.visionModel)
	content := make([]map[string]any, 0, 1+len(images))
	content = append(content, map[string]any{"type": "input_text", "text": prompt})
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		content = append(content, map[string]any{
			"type":      "input_image",
			"image_url": "data:image/jpeg;base64," + img,
		})
	}
	if len(content) == 1 {
		return "", fmt.Errorf("openai chat: no images")
	}
	return c.respond(ctx, &responsesRequest{
		Model: model,
		Input: []inputMessage{{Role: "user", Content: content}},
	})
}

func (c *Client) pick(model, def string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return def
}

func (c *Client) respond(ctx context.Context, req *responsesRequest) (string, error) {
	var resp responsesResponse
	err := c.do(ctx, "/v1/responses", req, &resp)
	if err != nil && req.Temperature != nil && isUnsupportedTemperatureParam(err) {
		c.noteNoTempModel(req.Model)
		req.Temperature = nil
		err = c.do(ctx, "/v1/responses", req, &resp)
	}
	if err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}
	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyOutput
	}
	return text, nil
}

func (c *Client) doOnce(ctx context.Context, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *Client) do(ctx context.Context, path string, body any, out any) error {
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := c.doOnce(ctx, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func isUnsupportedTemperatureParam(err error) bool {
	var httpErr *openAIHTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(httpErr.Body)
	if !strings.Contains(msg, "temperature") {
		return false
	}
	for _, hint := range []string{"unsupported", "unknown parameter", "unrecognized", "not supported", "does not support", "only the default"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}

func (c *Client) modelIsNoTemp(model string) bool {
	key := strings.ToLower(strings.TrimSpace(model))
	c.noTempMu.RLock()
	seen, ok := c.noTempSeen[key]
	c.noTempMu.RUnlock()
	return ok && time.Since(seen) < c.noTempTTL
}

func (c *Client) noteNoTempModel(model string) {
	key := strings.ToLower(strings.TrimSpace(model))
	if key == "" {
		return
	}
	c.noTempMu.Lock()
	c.noTempSeen[key] = time.Now()
	c.noTempMu.Unlock()
	c.log.Info("model rejects temperature, omitting it from now on", "model", model)
}
