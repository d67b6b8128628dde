package ai_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/ai/aitest"
)

func TestSafeGenerate(t *testing.T) {
	ctx := context.Background()

	if res := ai.SafeGenerate(ctx, nil, "p", "m", ai.GenerateOptions{}); res.Success || !errors.Is(res.Err, ai.ErrUnavailable) {
		t.Fatalf("nil generator: %+v", res)
	}
	if res := ai.SafeGenerate(ctx, aitest.Panicking{}, "p", "m", ai.GenerateOptions{}); res.Success || res.Err == nil {
		t.Fatalf("panicking generator: %+v", res)
	}
	if res := ai.SafeGenerate(ctx, aitest.NewGenerator(aitest.Text("   ")), "p", "m", ai.GenerateOptions{}); res.Success {
		t.Fatalf("blank text must count as failure: %+v", res)
	}
	if res := ai.SafeGenerate(ctx, aitest.NewGenerator(aitest.Text("ok")), "p", "m", ai.GenerateOptions{}); !res.Usable() || res.Text != "ok" {
		t.Fatalf("happy path: %+v", res)
	}
}

func TestLimiterBoundsConcurrency(t *testing.T) {
	gen := aitest.NewGenerator(aitest.Text("x"))
	gen.Gate = make(chan struct{})
	gen.Started = make(chan struct{}, 8)
	limited := ai.NewLimiter(1).Generator(gen)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = limited.Generate(context.Background(), "p", "m", ai.GenerateOptions{})
		}()
	}

	<-gen.Started
	select {
	case <-gen.Started:
		t.Fatalf("second call started while the first held the only slot")
	case <-time.After(50 * time.Millisecond):
	}
	gen.Gate <- struct{}{}
	<-gen.Started
	gen.Gate <- struct{}{}
	wg.Wait()

	if gen.Calls() != 2 {
		t.Fatalf("calls=%d, want 2", gen.Calls())
	}
}

func TestLimiterRespectsContext(t *testing.T) {
	gen := aitest.NewGenerator(aitest.Text("x"))
	gen.Gate = make(chan struct{})
	gen.Started = make(chan struct{}, 1)
	limited := ai.NewLimiter(1).Generator(gen)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = limited.Generate(context.Background(), "p", "m", ai.GenerateOptions{})
	}()
	<-gen.Started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if res := limited.Generate(ctx, "p", "m", ai.GenerateOptions{}); res.Success {
		t.Fatalf("expected failure while waiting for a slot")
	}
	close(gen.Gate)
	<-done
}
