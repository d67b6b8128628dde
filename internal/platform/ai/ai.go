// Package ai defines the generative collaborators the content pipeline
// consumes. Transports live in platform/openai and platform/gemini.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable = errors.New("ai backend unavailable")
	ErrEmptyOutput = errors.New("ai backend returned no text")
)

type GenerateOptions struct {
	Temperature  *float64
	SystemPrompt string
}

// GenerateResult is the outcome of a text generation call. Ordinary
// failures are reported with Success=false; Err is kept for logging only.
type GenerateResult struct {
	Success bool
	Text    string
	Err     error
}

func Succeeded(text string) GenerateResult {
	return GenerateResult{Success: true, Text: text}
}

func Failed(err error) GenerateResult {
	if err == nil {
		err = ErrUnavailable
	}
	return GenerateResult{Success: false, Err: err}
}

// Usable reports whether the result carries non-blank text.
func (r GenerateResult) Usable() bool {
	return r.Success && strings.TrimSpace(r.Text) != ""
}

// Generator is the text-generation call. Implementations must not return
// errors for ordinary failures; they set Success=false instead.
type Generator interface {
	Generate(ctx context.Context, prompt, model string, opts GenerateOptions) GenerateResult
}

// VisionChat sends a prompt plus base64 images (no data: prefix) to a
// vision-capable model. It may fail; callers catch.
type VisionChat interface {
	Chat(ctx context.Context, prompt, model string, images []string) (string, error)
}

// OCR is the local text-recognition fallback used when vision chat fails.
type OCR interface {
	ExtractText(ctx context.Context, imageDataURL string, languageHints []string) (string, error)
}

func Temperature(v float64) *float64 { return &v }

// SafeGenerate calls g and converts a nil generator or a panic into a
// failed result, so nothing escapes the pipeline boundary.
func SafeGenerate(ctx context.Context, g Generator, prompt, model string, opts GenerateOptions) (res GenerateResult) {
	if g == nil {
		return Failed(ErrUnavailable)
	}
	defer func() {
		if r := recover(); r != nil {
			res = Failed(fmt.Errorf("generator panic: %v", r))
		}
	}()
	res = g.Generate(ctx, prompt, model, opts)
	if res.Success && strings.TrimSpace(res.Text) == "" {
		return Failed(ErrEmptyOutput)
	}
	return res
}

// SafeChat is the VisionChat counterpart of SafeGenerate.
func SafeChat(ctx context.Context, v VisionChat, prompt, model string, images []string) (text string, err error) {
	if v == nil {
		return "", ErrUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("vision chat panic: %v", r)
		}
	}()
	return v.Chat(ctx, prompt, model, images)
}

// SafeOCR is the OCR counterpart of SafeGenerate.
func SafeOCR(ctx context.Context, o OCR, dataURL string, hints []string) (text string, err error) {
	if o == nil {
		return "", ErrUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("ocr panic: %v", r)
		}
	}()
	return o.ExtractText(ctx, dataURL, hints)
}
