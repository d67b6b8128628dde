package task

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func waitDone[V any](t *testing.T, f *Future[V]) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("future did not finish")
	}
}

func TestEnrichReplacesPlaceholder(t *testing.T) {
	var s Slot[int, string]
	tk := s.Begin(3, "Correct!")
	if _, v, pending := s.Get(); v != "Correct!" || !pending {
		t.Fatalf("placeholder not visible immediately: %q pending=%v", v, pending)
	}

	f := Enrich(context.Background(), &s, tk, func(context.Context) (string, bool) { return "Nice work", true })
	waitDone(t, f)

	if !f.Applied() {
		t.Fatalf("result should have been applied")
	}
	if k, v, pending := s.Get(); k != 3 || v != "Nice work" || pending {
		t.Fatalf("slot=(%d,%q,%v)", k, v, pending)
	}
}

func TestEnrichDiscardsStaleResult(t *testing.T) {
	var s Slot[int, string]
	release := make(chan struct{})

	tk3 := s.Begin(3, "Correct!")
	f := Enrich(context.Background(), &s, tk3, func(context.Context) (string, bool) {
		<-release
		return "feedback for q3", true
	})

	s.Advance(4)
	tk4 := s.Begin(4, "Wrong")
	close(release)
	waitDone(t, f)

	if f.Applied() {
		t.Fatalf("stale result was applied")
	}
	if s.Current(tk3) {
		t.Fatalf("ticket for q3 should be stale")
	}
	if k, v, _ := s.Get(); k != 4 || v != "Wrong" {
		t.Fatalf("q4 feedback clobbered: (%d,%q)", k, v)
	}
	if !s.Current(tk4) {
		t.Fatalf("q4 ticket should be current")
	}
}

func TestEnrichWithoutValueKeepsPlaceholder(t *testing.T) {
	var s Slot[string, string]
	tk := s.Begin("a", "Wrong 💀")
	f := Enrich(context.Background(), &s, tk, func(context.Context) (string, bool) { return "", false })
	waitDone(t, f)
	if _, v, pending := s.Get(); v != "Wrong 💀" || pending {
		t.Fatalf("slot=(%q,%v)", v, pending)
	}
}

func TestGoRecoversPanic(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, bool) { panic("boom") })
	waitDone(t, f)
	if _, ok := f.Result(); ok {
		t.Fatalf("panicking task must not report a value")
	}
	if f.Err() == nil {
		t.Fatalf("panic should surface as Err")
	}
}

func TestWaitHonorsContext(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(context.Context) (int, bool) {
		<-release
		return 1, true
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, ok := f.Wait(ctx); ok {
		t.Fatalf("Wait should give up with the context")
	}
	close(release)
	if v, ok := f.Wait(context.Background()); !ok || v != 1 {
		t.Fatalf("Wait=(%d,%v)", v, ok)
	}
}
