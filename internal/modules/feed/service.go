// Package feed serves the swipe feed: fallback cards at once, generated
// cards as the per-user buffer fills, quiz answers with feedback and XP,
// and bookmarking.
package feed

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/modules/content/fallback"
	"github.com/yungbote/fynix-backend/internal/modules/feed/buffer"
	"github.com/yungbote/fynix-backend/internal/modules/feedback"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/apierr"
	"github.com/yungbote/fynix-backend/internal/platform/ctxutil"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/task"
)

const (
	XPCorrect = 25
	XPWrong   = 5

	maxCount          = 20
	maxServed         = 256
	sideEffectTimeout = 10 * time.Second
)

var (
	ErrUnknownCard    = errors.New("card was not served to this user")
	ErrAnswered       = errors.New("card quiz already answered")
	ErrInvalidAnswer  = errors.New("answer index out of range")
	ErrAnswerNotFound = errors.New("answer is not current")
	ErrTitleRequired  = errors.New("title required")
)

// Learners is what the feed needs from the learner profile.
type Learners interface {
	Persona(ctx context.Context, userID uuid.UUID) (types.Persona, error)
	Request(ctx context.Context, userID uuid.UUID) (types.GenerationRequest, error)
	AddXP(ctx context.Context, userID uuid.UUID, n int) error
	RemoveXP(ctx context.Context, userID uuid.UUID, n int) error
}

// Facts stores bookmarked cards. Save reports false when the title was
// already saved.
type Facts interface {
	Save(ctx context.Context, userID uuid.UUID, item types.ContentItem) (bool, error)
}

type Config struct {
	Buffer buffer.Config
	// MaxUsers bounds the number of live per-user buffers.
	MaxUsers int
}

type AnswerOutcome struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Choice   int       `json:"choice"`
	Correct  bool      `json:"correct"`
	Answer   int       `json:"correct_index"`
	Feedback string    `json:"feedback"`
	Pending  bool      `json:"pending"`
	XPDelta  int       `json:"xp_delta"`
}

type FeedbackView struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Pending bool      `json:"pending"`
}

type SaveResult struct {
	Saved  bool   `json:"saved"`
	Status string `json:"status"`
}

type Service interface {
	InitCache(ctx context.Context, userID uuid.UUID, req types.GenerationRequest) ([]types.ContentItem, error)
	NextFacts(ctx context.Context, userID uuid.UUID, count int, req types.GenerationRequest, withFallback bool) ([]types.ContentItem, error)
	NextFact(ctx context.Context, userID uuid.UUID, req types.GenerationRequest) (*types.ContentItem, error)
	Answer(ctx context.Context, userID uuid.UUID, title string, choice int) (AnswerOutcome, error)
	Feedback(ctx context.Context, userID, answerID uuid.UUID) (FeedbackView, error)
	Save(ctx context.Context, userID uuid.UUID, item types.ContentItem) (SaveResult, error)
	// Close stops every buffer and waits for background side effects.
	Close()
}

type userFeed struct {
	buf *buffer.Buffer

	mu       sync.Mutex
	served   map[string]types.ContentItem
	order    []string
	answered map[string]bool
	lastUsed time.Time

	feedback task.Slot[uuid.UUID, string]
}

type service struct {
	log      *logger.Logger
	producer buffer.Producer
	queue    buffer.Queue
	store    *fallback.Store
	fb       *feedback.Generator
	learners Learners
	facts    Facts
	cfg      Config

	mu    sync.Mutex
	users map[uuid.UUID]*userFeed

	wg sync.WaitGroup
}

func NewService(
	log *logger.Logger,
	producer buffer.Producer,
	queue buffer.Queue,
	store *fallback.Store,
	fb *feedback.Generator,
	learners Learners,
	facts Facts,
	cfg Config,
) (Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("fallback store required")
	}
	if queue == nil {
		queue = buffer.NewMemoryQueue()
	}
	if cfg.MaxUsers <= 0 {
		cfg.MaxUsers = 5000
	}
	return &service{
		log:      log.With("service", "FeedService"),
		producer: producer,
		queue:    queue,
		store:    store,
		fb:       fb,
		learners: learners,
		facts:    facts,
		cfg:      cfg,
		users:    map[uuid.UUID]*userFeed{},
	}, nil
}

func (s *service) InitCache(ctx context.Context, userID uuid.UUID, req types.GenerationRequest) ([]types.ContentItem, error) {
	uf, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	req = s.request(ctx, userID, req)
	items := uf.buf.Init(req)
	uf.remember(items)
	return items, nil
}

func (s *service) NextFacts(ctx context.Context, userID uuid.UUID, count int, req types.GenerationRequest, withFallback bool) ([]types.ContentItem, error) {
	uf, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 1
	}
	if count > maxCount {
		count = maxCount
	}
	req = s.request(ctx, userID, req)
	items := uf.buf.Fill(ctx, count, req)
	if len(items) == 0 && withFallback {
		observability.Current().IncFallback("feed", "buffer_empty")
		items = uf.buf.Fallback(count, req)
	}
	uf.remember(items)
	return items, nil
}

// NextFact returns nil when nothing is buffered yet.
func (s *service) NextFact(ctx context.Context, userID uuid.UUID, req types.GenerationRequest) (*types.ContentItem, error) {
	uf, err := s.user(userID)
	if err != nil {
		return nil, err
	}
	req = s.request(ctx, userID, req)
	it, ok := uf.buf.Next(ctx, req)
	if !ok {
		return nil, nil
	}
	uf.remember([]types.ContentItem{it})
	return &it, nil
}

// Answer grades a served card's quiz. The placeholder is returned
// immediately; the enriched text replaces it unless the user answers
// another card first.
func (s *service) Answer(ctx context.Context, userID uuid.UUID, title string, choice int) (AnswerOutcome, error) {
	uf, err := s.user(userID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	persona := s.persona(ctx, userID)
	id := uuid.New()

	uf.mu.Lock()
	key := types.TitleKey(title)
	item, ok := uf.served[key]
	switch {
	case !ok:
		uf.mu.Unlock()
		return AnswerOutcome{}, apierr.NotFound("card_not_found", ErrUnknownCard)
	case uf.answered[key]:
		uf.mu.Unlock()
		return AnswerOutcome{}, apierr.Conflict("question_locked", ErrAnswered)
	case choice < 0 || choice >= len(item.Quiz.Options):
		uf.mu.Unlock()
		return AnswerOutcome{}, apierr.BadRequest("invalid_answer", fmt.Errorf("%w: %d", ErrInvalidAnswer, choice))
	}
	uf.answered[key] = true
	correct := item.Quiz.IsCorrect(choice)
	placeholder := feedback.Placeholder(feedback.SurfaceFeed, correct, persona)
	ticket := uf.feedback.Begin(id, placeholder)
	uf.mu.Unlock()

	observability.Current().IncAnswer(string(feedback.SurfaceFeed), correct)

	ans := feedback.Answer{
		Question:      item.Quiz.Question,
		CorrectAnswer: item.Quiz.Option(item.Quiz.Correct),
		ChosenAnswer:  item.Quiz.Option(choice),
		Correct:       correct,
		Index:         cardIndex(key),
	}
	bg := ctxutil.Detached(ctx)
	s.wg.Add(1)
	f := task.Enrich(bg, &uf.feedback, ticket, func(ctx context.Context) (string, bool) {
		if text, ok := s.fb.PerAnswer(ctx, ans, persona); ok {
			return text, true
		}
		return feedback.Static(feedback.SurfaceFeed, ans, persona), true
	})
	go func() {
		defer s.wg.Done()
		<-f.Done()
		if err := f.Err(); err != nil {
			s.log.Warn("feed feedback task failed", "error", err)
		}
	}()

	delta := XPCorrect
	if !correct {
		delta = -XPWrong
	}
	s.adjustXP(bg, userID, delta)

	return AnswerOutcome{
		ID:       id,
		Title:    item.Title,
		Choice:   choice,
		Correct:  correct,
		Answer:   item.Quiz.Correct,
		Feedback: placeholder,
		Pending:  true,
		XPDelta:  delta,
	}, nil
}

// cardIndex picks a card's static roast line. The same card always gets the
// same line.
func cardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32())
}

func (s *service) Feedback(ctx context.Context, userID, answerID uuid.UUID) (FeedbackView, error) {
	s.mu.Lock()
	uf, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return FeedbackView{}, apierr.NotFound("answer_not_found", ErrAnswerNotFound)
	}
	id, text, pending := uf.feedback.Get()
	if id != answerID {
		return FeedbackView{}, apierr.NotFound("answer_not_found", ErrAnswerNotFound)
	}
	return FeedbackView{ID: id, Text: text, Pending: pending}, nil
}

// Save bookmarks a card. A card this user was served is saved as served;
// otherwise the submitted copy must be a valid item.
func (s *service) Save(ctx context.Context, userID uuid.UUID, item types.ContentItem) (SaveResult, error) {
	key := types.TitleKey(item.Title)
	if key == "" {
		return SaveResult{}, apierr.BadRequest("title_required", ErrTitleRequired)
	}
	if uf, err := s.user(userID); err == nil {
		uf.mu.Lock()
		if served, ok := uf.served[key]; ok {
			item = served
		}
		uf.mu.Unlock()
	}
	if err := item.Validate(); err != nil {
		return SaveResult{}, apierr.BadRequest("invalid_item", err)
	}
	if s.facts == nil {
		return SaveResult{}, fmt.Errorf("fact store not configured")
	}
	saved, err := s.facts.Save(ctx, userID, item)
	if err != nil {
		return SaveResult{}, err
	}
	if !saved {
		return SaveResult{Saved: false, Status: "already_saved"}, nil
	}
	return SaveResult{Saved: true, Status: "saved"}, nil
}

func (s *service) Close() {
	s.mu.Lock()
	users := s.users
	s.users = map[uuid.UUID]*userFeed{}
	s.mu.Unlock()
	for _, uf := range users {
		uf.buf.Close()
	}
	s.wg.Wait()
}

func (s *service) user(userID uuid.UUID) (*userFeed, error) {
	s.mu.Lock()
	if uf, ok := s.users[userID]; ok {
		uf.mu.Lock()
		uf.lastUsed = time.Now()
		uf.mu.Unlock()
		s.mu.Unlock()
		return uf, nil
	}
	var evicted *userFeed
	if len(s.users) >= s.cfg.MaxUsers {
		evicted = s.evictLocked()
	}
	buf, err := buffer.New(s.log, userID.String(), s.producer, s.queue, s.store, s.cfg.Buffer)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	uf := &userFeed{
		buf:      buf,
		served:   map[string]types.ContentItem{},
		answered: map[string]bool{},
		lastUsed: time.Now(),
	}
	s.users[userID] = uf
	s.mu.Unlock()

	if evicted != nil {
		evicted.buf.Close()
	}
	return uf, nil
}

func (s *service) evictLocked() *userFeed {
	var (
		oldestID uuid.UUID
		oldest   *userFeed
		at       time.Time
	)
	for id, uf := range s.users {
		uf.mu.Lock()
		used := uf.lastUsed
		uf.mu.Unlock()
		if oldest == nil || used.Before(at) {
			oldestID, oldest, at = id, uf, used
		}
	}
	delete(s.users, oldestID)
	return oldest
}

// request fills blank fields from the learner profile, then defaults.
func (s *service) request(ctx context.Context, userID uuid.UUID, req types.GenerationRequest) types.GenerationRequest {
	if s.learners != nil && (strings.TrimSpace(req.Grade) == "" || strings.TrimSpace(req.Interests) == "" || strings.TrimSpace(req.Language) == "") {
		prof, err := s.learners.Request(ctx, userID)
		if err != nil {
			s.log.Debug("profile unavailable for feed request", "user_id", userID, "error", err)
		} else {
			if strings.TrimSpace(req.Grade) == "" {
				req.Grade = prof.Grade
			}
			if strings.TrimSpace(req.Interests) == "" {
				req.Interests = prof.Interests
			}
			if strings.TrimSpace(req.Language) == "" {
				req.Language = prof.Language
			}
		}
	}
	return req.WithDefaults()
}

func (s *service) persona(ctx context.Context, userID uuid.UUID) types.Persona {
	if s.learners == nil {
		return types.Persona{}.WithDefaults()
	}
	p, err := s.learners.Persona(ctx, userID)
	if err != nil {
		s.log.Debug("persona unavailable, using defaults", "user_id", userID, "error", err)
		return types.Persona{}.WithDefaults()
	}
	return p.WithDefaults()
}

func (s *service) adjustXP(ctx context.Context, userID uuid.UUID, delta int) {
	if s.learners == nil || delta == 0 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
		defer cancel()
		var err error
		if delta > 0 {
			err = s.learners.AddXP(ctx, userID, delta)
		} else {
			err = s.learners.RemoveXP(ctx, userID, -delta)
		}
		if err != nil {
			s.log.Warn("xp update failed", "user_id", userID, "delta", delta, "error", err)
		}
	}()
}

func (uf *userFeed) remember(items []types.ContentItem) {
	uf.mu.Lock()
	defer uf.mu.Unlock()
	for _, it := range items {
		key := it.Key()
		if _, ok := uf.served[key]; !ok {
			uf.order = append(uf.order, key)
		}
		uf.served[key] = it.Clone()
		delete(uf.answered, key)
	}
	for len(uf.order) > maxServed {
		old := uf.order[0]
		uf.order = uf.order[1:]
		delete(uf.served, old)
		delete(uf.answered, old)
	}
}
