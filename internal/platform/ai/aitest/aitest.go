// Package aitest provides scripted stand-ins for the ai collaborators.
package aitest

import (
	"context"
	"errors"
	"sync"

	"github.com/yungbote/fynix-backend/internal/platform/ai"
)

var ErrScripted = errors.New("scripted failure")

func Text(s string) ai.GenerateResult { return ai.Succeeded(s) }

func Fail() ai.GenerateResult { return ai.Failed(ErrScripted) }

// Generator replays its script in order and repeats the last entry once the
// script is exhausted. An empty script always fails.
type Generator struct {
	// Gate, when set, holds every call until a value is received or ctx ends.
	Gate chan struct{}
	// Started, when set, receives one value per call before it blocks on Gate.
	Started chan struct{}

	mu      sync.Mutex
	script  []ai.GenerateResult
	calls   int
	prompts []string
	models  []string
	opts    []ai.GenerateOptions
}

func NewGenerator(script ...ai.GenerateResult) *Generator {
	return &Generator{script: script}
}

func (g *Generator) Generate(ctx context.Context, prompt, model string, opts ai.GenerateOptions) ai.GenerateResult {
	g.mu.Lock()
	idx := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.models = append(g.models, model)
	g.opts = append(g.opts, opts)
	var res ai.GenerateResult
	switch {
	case len(g.script) == 0:
		res = Fail()
	case idx < len(g.script):
		res = g.script[idx]
	default:
		res = g.script[len(g.script)-1]
	}
	g.mu.Unlock()

	if g.Started != nil {
		g.Started <- struct{}{}
	}
	if g.Gate != nil {
		select {
		case <-g.Gate:
		case <-ctx.Done():
			return ai.Failed(ctx.Err())
		}
	}
	return res
}

func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *Generator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

func (g *Generator) Options() []ai.GenerateOptions {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ai.GenerateOptions(nil), g.opts...)
}

// Panicking is a generator whose every call panics.
type Panicking struct{}

func (Panicking) Generate(context.Context, string, string, ai.GenerateOptions) ai.GenerateResult {
	panic("aitest: generator exploded")
}

// Vision returns Text or Err for every call.
type Vision struct {
	Text string
	Err  error

	mu     sync.Mutex
	calls  int
	images [][]string
}

func (v *Vision) Chat(_ context.Context, _ string, _ string, images []string) (string, error) {
	v.mu.Lock()
	v.calls++
	v.images = append(v.images, images)
	v.mu.Unlock()
	if v.Err != nil {
		return "", v.Err
	}
	return v.Text, nil
}

func (v *Vision) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

func (v *Vision) Images() [][]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([][]string(nil), v.images...)
}

// OCR returns Text or Err for every call and records the hints it saw.
type OCR struct {
	Text string
	Err  error

	mu    sync.Mutex
	calls int
	hints []string
}

func (o *OCR) ExtractText(_ context.Context, _ string, hints []string) (string, error) {
	o.mu.Lock()
	o.calls++
	o.hints = append([]string(nil), hints...)
	o.mu.Unlock()
	if o.Err != nil {
		return "", o.Err
	}
	return o.Text, nil
}

func (o *OCR) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func (o *OCR) Hints() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.hints...)
}
