package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/goleak"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/modules/content/fallback"
	"github.com/yungbote/fynix-backend/internal/modules/feed/buffer"
	"github.com/yungbote/fynix-backend/internal/modules/feedback"
	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/ai/aitest"
	"github.com/yungbote/fynix-backend/internal/platform/apierr"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLearners struct {
	roast int

	mu    sync.Mutex
	req   types.GenerationRequest
	xp    int
	moves []int
}

func (f *fakeLearners) Persona(context.Context, uuid.UUID) (types.Persona, error) {
	return types.Persona{Name: "Sam", RoastLevel: f.roast, Language: "en"}, nil
}

func (f *fakeLearners) Request(context.Context, uuid.UUID) (types.GenerationRequest, error) {
	return f.req, nil
}

func (f *fakeLearners) AddXP(_ context.Context, _ uuid.UUID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xp += n
	f.moves = append(f.moves, n)
	return nil
}

func (f *fakeLearners) RemoveXP(_ context.Context, _ uuid.UUID, n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xp = max(0, f.xp-n)
	f.moves = append(f.moves, -n)
	return nil
}

func (f *fakeLearners) snapshot() (int, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.xp, append([]int(nil), f.moves...)
}

type fakeFacts struct {
	mu    sync.Mutex
	saved map[string]types.ContentItem
}

func (f *fakeFacts) Save(_ context.Context, userID uuid.UUID, item types.ContentItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]types.ContentItem{}
	}
	key := userID.String() + "|" + item.Key()
	if _, ok := f.saved[key]; ok {
		return false, nil
	}
	f.saved[key] = item
	return true, nil
}

type scriptedProducer struct {
	mu    sync.Mutex
	calls int
}

func (p *scriptedProducer) Produce(_ context.Context, req types.GenerationRequest, n int) ([]types.ContentItem, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	p.mu.Unlock()
	out := make([]types.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.ContentItem{
			Category: "Space",
			Title:    fmt.Sprintf("Generated %d-%d (%s)", call, i, req.Language),
			Content:  "A generated fact.",
			Quiz: types.QuizSpec{
				Question: "True?",
				Options:  []string{"True", "False"},
				Correct:  0,
				Kind:     types.QuizTrueFalse,
			},
		})
	}
	return out, nil
}

type harness struct {
	svc      Service
	learners *fakeLearners
	facts    *fakeFacts
	fbGen    *aitest.Generator
	user     uuid.UUID
}

func newHarness(t *testing.T, producer buffer.Producer, fbGen *aitest.Generator) *harness {
	t.Helper()
	store, err := fallback.Default()
	if err != nil {
		t.Fatalf("fallback.Default: %v", err)
	}
	var g ai.Generator
	if fbGen != nil {
		g = fbGen
	}
	fb, err := feedback.New(logger.Nop(), g, "text", "test", 0)
	if err != nil {
		t.Fatalf("feedback.New: %v", err)
	}
	h := &harness{
		learners: &fakeLearners{req: types.GenerationRequest{Grade: "9", Interests: "Space", Language: "en"}},
		facts:    &fakeFacts{},
		fbGen:    fbGen,
		user:     uuid.New(),
	}
	svc, err := NewService(logger.Nop(), producer, buffer.NewMemoryQueue(), store, fb, h.learners, h.facts, Config{})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	h.svc = svc
	t.Cleanup(svc.Close)
	return h
}

func apiCode(err error) string {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestInitCacheServesFallbackInProfileLanguage(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	items, err := h.svc.InitCache(ctx, h.user, types.GenerationRequest{})
	if err != nil {
		t.Fatalf("InitCache: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("InitCache returned %d items", len(items))
	}
	store, _ := fallback.Default()
	english := map[string]bool{}
	for _, it := range store.Items("en") {
		english[it.Title] = true
	}
	for _, it := range items {
		if it.Source != types.SourceFallback || !english[it.Title] {
			t.Fatalf("unexpected init item %q (%s)", it.Title, it.Source)
		}
	}

	got, err := h.svc.NextFacts(ctx, h.user, 3, types.GenerationRequest{}, false)
	if err != nil || len(got) != 0 {
		t.Fatalf("NextFacts without producer = %d items, %v", len(got), err)
	}
	one, err := h.svc.NextFact(ctx, h.user, types.GenerationRequest{})
	if err != nil || one != nil {
		t.Fatalf("NextFact without producer = %v, %v", one, err)
	}
	got, _ = h.svc.NextFacts(ctx, h.user, 3, types.GenerationRequest{}, true)
	if len(got) != 3 {
		t.Fatalf("NextFacts with fallback returned %d items", len(got))
	}
}

func TestGeneratedItemsArriveAfterInit(t *testing.T) {
	p := &scriptedProducer{}
	h := newHarness(t, p, nil)
	ctx := context.Background()

	if _, err := h.svc.InitCache(ctx, h.user, types.GenerationRequest{}); err != nil {
		t.Fatalf("InitCache: %v", err)
	}
	var got []types.ContentItem
	waitFor(t, "generated items", func() bool {
		got, _ = h.svc.NextFacts(ctx, h.user, 2, types.GenerationRequest{}, false)
		return len(got) > 0
	})
	want := []string{"Generated 1-0 (en)", "Generated 1-1 (en)"}
	titles := make([]string, len(got))
	for i, it := range got {
		titles[i] = it.Title
		if it.Source != types.SourceAI {
			t.Fatalf("item %q source=%q", it.Title, it.Source)
		}
	}
	if diff := cmp.Diff(want[:len(titles)], titles); diff != "" {
		t.Fatalf("FIFO order mismatch (-want +got):\n%s", diff)
	}
}

func TestAnswerGradesAndAdjustsXP(t *testing.T) {
	fb := aitest.NewGenerator(aitest.Text("Stars are suns."))
	h := newHarness(t, nil, fb)
	ctx := context.Background()

	items, _ := h.svc.InitCache(ctx, h.user, types.GenerationRequest{})
	right, wrong := items[0], items[1]

	out, err := h.svc.Answer(ctx, h.user, right.Title, right.Quiz.Correct)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !out.Correct || out.Feedback != "Correct! 🎉" || out.XPDelta != XPCorrect {
		t.Fatalf("outcome %+v", out)
	}
	if _, err := h.svc.Answer(ctx, h.user, right.Title, 0); apiCode(err) != "question_locked" {
		t.Fatalf("want question_locked, got %v", err)
	}
	waitFor(t, "enriched feedback", func() bool {
		v, err := h.svc.Feedback(ctx, h.user, out.ID)
		return err == nil && !v.Pending && v.Text == "Stars are suns."
	})

	bad := (wrong.Quiz.Correct + 1) % len(wrong.Quiz.Options)
	out2, err := h.svc.Answer(ctx, h.user, wrong.Title, bad)
	if err != nil {
		t.Fatalf("Answer wrong: %v", err)
	}
	if out2.Correct || out2.Feedback != "Wrong 💀" || out2.XPDelta != -XPWrong {
		t.Fatalf("outcome %+v", out2)
	}
	if _, err := h.svc.Feedback(ctx, h.user, out.ID); apiCode(err) != "answer_not_found" {
		t.Fatalf("older answer should no longer be current, got %v", err)
	}

	if _, err := h.svc.Answer(ctx, h.user, "never served", 0); apiCode(err) != "card_not_found" {
		t.Fatalf("want card_not_found, got %v", err)
	}
	if _, err := h.svc.Answer(ctx, h.user, items[2].Title, 7); apiCode(err) != "invalid_answer" {
		t.Fatalf("want invalid_answer, got %v", err)
	}

	h.svc.Close()
	_, moves := h.learners.snapshot()
	sort.Ints(moves)
	if diff := cmp.Diff([]int{-XPWrong, XPCorrect}, moves); diff != "" {
		t.Fatalf("xp moves mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedEnrichmentKeepsPlaceholder(t *testing.T) {
	h := newHarness(t, nil, aitest.NewGenerator(aitest.Fail()))
	ctx := context.Background()

	items, _ := h.svc.InitCache(ctx, h.user, types.GenerationRequest{})
	bad := (items[0].Quiz.Correct + 1) % len(items[0].Quiz.Options)
	out, err := h.svc.Answer(ctx, h.user, items[0].Title, bad)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	waitFor(t, "settled feedback", func() bool {
		v, err := h.svc.Feedback(ctx, h.user, out.ID)
		return err == nil && !v.Pending
	})
	v, _ := h.svc.Feedback(ctx, h.user, out.ID)
	// roast level 0 adds no roast line
	if v.Text != "Wrong 💀" {
		t.Fatalf("feedback=%q", v.Text)
	}
}

func TestStaticRoastIsStablePerCard(t *testing.T) {
	ctx := context.Background()
	var texts []string
	var card types.ContentItem
	for i := 0; i < 2; i++ {
		h := newHarness(t, nil, aitest.NewGenerator(aitest.Fail()))
		h.learners.roast = 2
		items, _ := h.svc.InitCache(ctx, h.user, types.GenerationRequest{})
		card = items[0]
		bad := (card.Quiz.Correct + 1) % len(card.Quiz.Options)
		out, err := h.svc.Answer(ctx, h.user, card.Title, bad)
		if err != nil {
			t.Fatalf("Answer: %v", err)
		}
		waitFor(t, "settled feedback", func() bool {
			v, err := h.svc.Feedback(ctx, h.user, out.ID)
			return err == nil && !v.Pending
		})
		v, _ := h.svc.Feedback(ctx, h.user, out.ID)
		texts = append(texts, v.Text)
	}

	persona := types.Persona{Name: "Sam", RoastLevel: 2, Language: "en"}
	want := feedback.Static(feedback.SurfaceFeed, feedback.Answer{Index: cardIndex(card.Key())}, persona)
	if diff := cmp.Diff([]string{want, want}, texts); diff != "" {
		t.Fatalf("roast text mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveDeduplicatesByTitle(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx := context.Background()

	items, _ := h.svc.InitCache(ctx, h.user, types.GenerationRequest{})
	res, err := h.svc.Save(ctx, h.user, types.ContentItem{Title: items[0].Title})
	if err != nil || !res.Saved || res.Status != "saved" {
		t.Fatalf("first save = %+v, %v", res, err)
	}
	res, err = h.svc.Save(ctx, h.user, items[0])
	if err != nil || res.Saved || res.Status != "already_saved" {
		t.Fatalf("second save = %+v, %v", res, err)
	}
	if _, err := h.svc.Save(ctx, h.user, types.ContentItem{Title: "  "}); apiCode(err) != "title_required" {
		t.Fatalf("want title_required, got %v", err)
	}
	if _, err := h.svc.Save(ctx, h.user, types.ContentItem{Title: "unknown"}); apiCode(err) != "invalid_item" {
		t.Fatalf("want invalid_item, got %v", err)
	}
}
