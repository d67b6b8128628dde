// Package buffer keeps a background-filled FIFO of generated feed items so
// the feed never waits on the AI backend.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/modules/content/fallback"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

// Producer generates n fresh feed items for req. It may return fewer, or an
// error; the buffer filters and swallows both.
type Producer interface {
	Produce(ctx context.Context, req types.GenerationRequest, n int) ([]types.ContentItem, error)
}

type Config struct {
	// InitCount is how many fallback items Init returns.
	InitCount int
	// Batch is the number of items requested per refill.
	Batch int
	// LowWater triggers a refill when the queue drops below it.
	LowWater int
	// Max caps the queue; refills past it are trimmed.
	Max int
	// Timeout bounds one Produce call. An expired refill clears the
	// in-flight flag so the next Fill can retry.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.InitCount <= 0 {
		c.InitCount = 5
	}
	if c.Batch <= 0 {
		c.Batch = 5
	}
	if c.LowWater <= 0 {
		c.LowWater = 3
	}
	if c.Max <= 0 {
		c.Max = 30
	}
	if c.LowWater > c.Max {
		c.LowWater = c.Max
	}
	if c.Timeout <= 0 {
		c.Timeout = 45 * time.Second
	}
	return c
}

// maxRemembered bounds the title set used for back-to-back dedup.
const maxRemembered = 256

// Buffer is owned by one consumer (a user's feed). The mutex guards only
// in-process state; Queue round-trips happen outside it and are checked
// against the epoch they started in.
type Buffer struct {
	log      *logger.Logger
	owner    string
	producer Producer
	queue    Queue
	store    *fallback.Store
	cfg      Config

	mu        sync.Mutex
	sig       string
	epoch     uint64
	inflight  map[string]bool
	cursor    uint64
	lastTitle string
	seen      map[string]bool

	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

func New(log *logger.Logger, owner string, producer Producer, queue Queue, store *fallback.Store, cfg Config) (*Buffer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("fallback store required")
	}
	if queue == nil {
		queue = NewMemoryQueue()
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Buffer{
		log:      log.With("service", "FeedBuffer", "owner", owner),
		owner:    owner,
		producer: producer,
		queue:    queue,
		store:    store,
		cfg:      cfg.withDefaults(),
		inflight: map[string]bool{},
		seen:     map[string]bool{},
		bg:       bg,
		cancel:   cancel,
	}, nil
}

// Init returns fallback items synchronously and starts a background refill.
// It never touches the network on the caller's path.
func (b *Buffer) Init(req types.GenerationRequest) []types.ContentItem {
	req = req.WithDefaults()
	b.mu.Lock()
	stale := b.switchLocked(req.Signature())
	items := b.fallbackLocked(req, b.cfg.InitCount)
	b.mu.Unlock()

	b.resetAsync(stale)
	b.Refill(req)
	return items
}

// Fill returns up to count queued items in FIFO order without waiting. An
// empty result means nothing is ready yet. A refill is started when the
// queue runs low.
func (b *Buffer) Fill(ctx context.Context, count int, req types.GenerationRequest) []types.ContentItem {
	req = req.WithDefaults()
	if count <= 0 {
		count = 1
	}
	b.mu.Lock()
	stale := b.switchLocked(req.Signature())
	key, epoch := b.keyLocked(), b.epoch
	b.mu.Unlock()
	b.reset(ctx, stale)

	items, err := b.queue.Pop(ctx, key, count)
	if err != nil {
		b.log.Warn("buffer pop failed", "error", err)
		items = nil
	}

	out := make([]types.ContentItem, 0, len(items))
	b.mu.Lock()
	if b.epoch == epoch {
		for _, it := range items {
			if it.Key() == b.lastTitle {
				continue
			}
			b.lastTitle = it.Key()
			out = append(out, it)
		}
	}
	b.mu.Unlock()

	remaining, err := b.queue.Len(ctx, key)
	if err != nil {
		remaining = 0
	}
	if remaining < b.cfg.LowWater {
		b.Refill(req)
	}
	return out
}

// Next is Fill for a single item.
func (b *Buffer) Next(ctx context.Context, req types.GenerationRequest) (types.ContentItem, bool) {
	items := b.Fill(ctx, 1, req)
	if len(items) == 0 {
		return types.ContentItem{}, false
	}
	return items[0], true
}

// Fallback returns n store items from the rotating cursor.
func (b *Buffer) Fallback(n int, req types.GenerationRequest) []types.ContentItem {
	req = req.WithDefaults()
	b.mu.Lock()
	stale := b.switchLocked(req.Signature())
	items := b.fallbackLocked(req, n)
	b.mu.Unlock()
	b.resetAsync(stale)
	return items
}

// Refill starts a background replenishment for req unless one is already
// in flight for the same signature or the buffer is closed. It reports
// whether a refill was started; a full queue is detected in the background.
func (b *Buffer) Refill(req types.GenerationRequest) bool {
	if b.producer == nil {
		return false
	}
	req = req.WithDefaults()
	sig := req.Signature()

	b.mu.Lock()
	if b.closed || b.inflight[sig] {
		b.mu.Unlock()
		return false
	}
	stale := b.switchLocked(sig)
	b.inflight[sig] = true
	epoch, key := b.epoch, b.keyLocked()
	b.wg.Add(1)
	b.mu.Unlock()

	go b.refill(req, sig, key, epoch, stale)
	return true
}

func (b *Buffer) refill(req types.GenerationRequest, sig, key string, epoch uint64, stale string) {
	defer b.wg.Done()
	defer func() {
		b.mu.Lock()
		delete(b.inflight, sig)
		b.mu.Unlock()
	}()
	b.reset(b.bg, stale)

	if n, err := b.queue.Len(b.bg, key); err == nil && n >= b.cfg.Max {
		observability.Current().IncRefill("full")
		return
	}

	items, err := b.produce(req)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			observability.Current().IncRefill("canceled")
		case errors.Is(err, context.DeadlineExceeded):
			observability.Current().IncRefill("timeout")
			b.log.Warn("feed refill timed out", "signature", sig, "timeout", b.cfg.Timeout.String())
		default:
			observability.Current().IncRefill("failed")
			b.log.Warn("feed refill failed", "signature", sig, "error", err)
		}
		return
	}

	b.mu.Lock()
	if b.epoch != epoch {
		b.mu.Unlock()
		observability.Current().IncRefill("stale")
		b.log.Debug("discarding stale refill", "signature", sig)
		return
	}
	fresh := make([]types.ContentItem, 0, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			b.log.Debug("dropping invalid generated item", "title", it.Title, "error", err)
			continue
		}
		if b.seen[it.Key()] {
			continue
		}
		b.rememberLocked(it.Key())
		it.Source = types.SourceAI
		fresh = append(fresh, it.Clone())
	}
	b.mu.Unlock()

	have, err := b.queue.Len(b.bg, key)
	if err != nil {
		observability.Current().IncRefill("failed")
		b.log.Warn("buffer length failed", "error", err)
		return
	}
	if room := b.cfg.Max - have; len(fresh) > room {
		fresh = fresh[:max(room, 0)]
	}
	if len(fresh) == 0 {
		observability.Current().IncRefill("empty")
		return
	}
	if err := b.queue.Push(b.bg, key, fresh); err != nil {
		observability.Current().IncRefill("failed")
		b.log.Warn("buffer push failed", "error", err)
		return
	}
	observability.Current().IncRefill("ok")
}

func (b *Buffer) produce(req types.GenerationRequest) (items []types.ContentItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("producer panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(b.bg, b.cfg.Timeout)
	defer cancel()
	return b.producer.Produce(ctx, req, b.cfg.Batch)
}

// Pending reports whether a refill for req is in flight.
func (b *Buffer) Pending(req types.GenerationRequest) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight[req.WithDefaults().Signature()]
}

// Len is the number of queued items for the current signature.
func (b *Buffer) Len(ctx context.Context) int {
	b.mu.Lock()
	key := b.keyLocked()
	b.mu.Unlock()
	n, err := b.queue.Len(ctx, key)
	if err != nil {
		return 0
	}
	return n
}

// Close stops accepting refills, cancels running ones and waits for them.
func (b *Buffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.cancel()
	b.wg.Wait()
}

// switchLocked moves the buffer to sig. It returns the queue key of the
// previous signature, which the caller clears once the lock is released;
// in-flight refills for that signature are discarded on arrival.
func (b *Buffer) switchLocked(sig string) (stale string) {
	if sig == b.sig {
		return ""
	}
	if b.sig != "" {
		stale = b.keyLocked()
	}
	b.sig = sig
	b.epoch++
	b.lastTitle = ""
	b.seen = map[string]bool{}
	return stale
}

// reset clears a stale queue unless the buffer has switched back to it.
func (b *Buffer) reset(ctx context.Context, key string) {
	if key == "" {
		return
	}
	b.mu.Lock()
	current := key == b.keyLocked()
	b.mu.Unlock()
	if current {
		return
	}
	if err := b.queue.Reset(ctx, key); err != nil {
		b.log.Warn("buffer reset failed", "error", err)
	}
}

// resetAsync clears key in the background so Init and Fallback stay off
// the network.
func (b *Buffer) resetAsync(key string) {
	if key == "" {
		return
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()
	go func() {
		defer b.wg.Done()
		b.reset(b.bg, key)
	}()
}

func (b *Buffer) keyLocked() string {
	return b.owner + "|" + b.sig
}

func (b *Buffer) fallbackLocked(req types.GenerationRequest, n int) []types.ContentItem {
	lang := req.LanguageBase()
	if size := b.store.Len(lang); n > size {
		n = size
	}
	out := make([]types.ContentItem, 0, n)
	for tries := 0; len(out) < n && tries <= 2*n; tries++ {
		it := b.store.At(lang, b.cursor)
		b.cursor++
		if it.Key() == b.lastTitle {
			continue
		}
		b.lastTitle = it.Key()
		b.rememberLocked(it.Key())
		out = append(out, it)
	}
	return out
}

func (b *Buffer) rememberLocked(key string) {
	if len(b.seen) >= maxRemembered {
		b.seen = map[string]bool{}
	}
	b.seen[key] = true
}
