package rediscache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

func testQueue(t *testing.T) *Queue {
	t.Helper()
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis queue tests")
	}
	rdb, err := NewClient(context.Background(), addr)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	q, err := NewQueue(logger.Nop(), rdb, "fynix-test:"+uuid.NewString(), time.Minute)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	return q
}

func card(title string) types.ContentItem {
	return types.ContentItem{
		Category: "Test",
		Title:    title,
		Content:  "content of " + title,
		Quiz:     types.QuizSpec{Question: "q?", Options: []string{"yes", "no"}, Correct: 1, Kind: types.QuizTrueFalse},
		Source:   types.SourceAI,
	}
}

func TestQueueKeepsFIFOOrder(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	if err := q.Push(ctx, "u1|sig", []types.ContentItem{card("A"), card("B")}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := q.Push(ctx, "u1|sig", []types.ContentItem{card("C")}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if n, _ := q.Len(ctx, "u1|sig"); n != 3 {
		t.Fatalf("Len=%d", n)
	}

	got, err := q.Pop(ctx, "u1|sig", 2)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if diff := cmp.Diff([]types.ContentItem{card("A"), card("B")}, got); diff != "" {
		t.Fatalf("Pop mismatch (-want +got):\n%s", diff)
	}

	if err := q.Reset(ctx, "u1|sig"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, err = q.Pop(ctx, "u1|sig", 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("Pop after reset = %v, %v", got, err)
	}
}
