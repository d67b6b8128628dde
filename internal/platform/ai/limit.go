package ai

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of concurrent upstream AI calls shared by feed
// refills, quiz generation and feedback enrichment.
type Limiter struct {
	sem *semaphore.Weighted
}

func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(maxConcurrent))}
}

func (l *Limiter) acquire(ctx context.Context) (func(), error) {
	if l == nil || l.sem == nil {
		return func() {}, nil
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { l.sem.Release(1) }, nil
}

func (l *Limiter) Generator(g Generator) Generator {
	if g == nil {
		return nil
	}
	return &limitedGenerator{l: l, next: g}
}

func (l *Limiter) VisionChat(v VisionChat) VisionChat {
	if v == nil {
		return nil
	}
	return &limitedVision{l: l, next: v}
}

type limitedGenerator struct {
	l    *Limiter
	next Generator
}

func (g *limitedGenerator) Generate(ctx context.Context, prompt, model string, opts GenerateOptions) GenerateResult {
	release, err := g.l.acquire(ctx)
	if err != nil {
		return Failed(err)
	}
	defer release()
	return g.next.Generate(ctx, prompt, model, opts)
}

type limitedVision struct {
	l    *Limiter
	next VisionChat
}

func (v *limitedVision) Chat(ctx context.Context, prompt, model string, images []string) (string, error) {
	release, err := v.l.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return v.next.Chat(ctx, prompt, model, images)
}
