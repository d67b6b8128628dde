package buffer

import (
	"context"
	"sync"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
)

// Queue is the FIFO backing store of a Buffer, keyed by owner and request
// signature. Implementations must keep push order.
type Queue interface {
	Push(ctx context.Context, key string, items []types.ContentItem) error
	Pop(ctx context.Context, key string, n int) ([]types.ContentItem, error)
	Len(ctx context.Context, key string) (int, error)
	Reset(ctx context.Context, key string) error
}

// MemoryQueue is the in-process Queue.
type MemoryQueue struct {
	mu    sync.Mutex
	lists map[string][]types.ContentItem
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{lists: map[string][]types.ContentItem{}}
}

func (q *MemoryQueue) Push(_ context.Context, key string, items []types.ContentItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lists[key] = append(q.lists[key], types.CloneItems(items)...)
	return nil
}

func (q *MemoryQueue) Pop(_ context.Context, key string, n int) ([]types.ContentItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	list := q.lists[key]
	if n > len(list) {
		n = len(list)
	}
	if n <= 0 {
		return nil, nil
	}
	out := make([]types.ContentItem, n)
	copy(out, list[:n])
	if n == len(list) {
		delete(q.lists, key)
	} else {
		q.lists[key] = append([]types.ContentItem(nil), list[n:]...)
	}
	return out, nil
}

func (q *MemoryQueue) Len(_ context.Context, key string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.lists[key]), nil
}

func (q *MemoryQueue) Reset(_ context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.lists, key)
	return nil
}
