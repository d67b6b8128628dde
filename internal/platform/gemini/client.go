// Package gemini is the alternate AI provider, backed by the Gen AI SDK.
package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/promptstyle"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 60 * time.Second
)

var ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

type Config struct {
	APIKey      string
	Model       string
	VisionModel string
	// Timeout bounds each GenerateContent call.
	Timeout time.Duration
}

// models is the part of *genai.Models the client calls.
type models interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	log         *logger.Logger
	models      models
	model       string
	visionModel string
	timeout     time.Duration
}

var (
	_ ai.Generator  = (*Client)(nil)
	_ ai.VisionChat = (*Client)(nil)
)

func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newClient(log, gc.Models, cfg), nil
}

func newClient(log *logger.Logger, m models, cfg Config) *Client {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	vision := strings.TrimSpace(cfg.VisionModel)
	if vision == "" {
		vision = model
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		log:         log.With("service", "GeminiClient"),
		models:      m,
		model:       model,
		visionModel: vision,
		timeout:     timeout,
	}
}

func (c *Client) Generate(ctx context.Context, prompt, model string, opts ai.GenerateOptions) ai.GenerateResult {
	model = pick(model, c.model)
	cfg := &genai.GenerateContentConfig{}
	if sys := strings.TrimSpace(opts.SystemPrompt); sys != "" {
		cfg.SystemInstruction = genai.NewContentFromText(promptstyle.ApplySystem(sys, "text"), genai.RoleUser)
	}
	if opts.Temperature != nil {
		t := float32(*opts.Temperature)
		cfg.Temperature = &t
	}
	text, err := c.call(ctx, model, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, cfg)
	if err != nil {
		c.log.Warn("Gemini generate failed", "model", model, "error", err)
		return ai.Failed(err)
	}
	return ai.Succeeded(text)
}

// Chat decodes the base64 images and sends them inline as JPEG parts.
func (c *Client) Chat(ctx context.Context, prompt, model string, images []string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for i, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return "", fmt.Errorf("gemini chat: image %d: %w", i, err)
		}
		parts = append(parts, genai.NewPartFromBytes(raw, "image/jpeg"))
	}
	if len(parts) == 1 {
		return "", fmt.Errorf("gemini chat: no images")
	}
	return c.call(ctx, pick(model, c.visionModel), []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
}

func (c *Client) call(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	resp, err := c.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ai.ErrEmptyOutput
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ai.ErrEmptyOutput
	}
	return text, nil
}

func pick(model, def string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return def
}
