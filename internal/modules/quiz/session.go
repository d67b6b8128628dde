package quiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/modules/feedback"
	"github.com/yungbote/fynix-backend/internal/platform/apierr"
	"github.com/yungbote/fynix-backend/internal/platform/task"
)

var (
	ErrQuestionLocked = errors.New("question already answered")
	ErrInvalidAnswer  = errors.New("answer index out of range")
	ErrSessionDone    = errors.New("quiz session is finished")
)

// AnswerRecord is one locked-in answer. The log of these is the only
// source of the score.
type AnswerRecord struct {
	Index   int       `json:"index"`
	Choice  int       `json:"choice"`
	Correct bool      `json:"correct"`
	At      time.Time `json:"at"`
}

// Session is the Ready state of one material quiz: the items, the cursor,
// the answer log and the current question's feedback.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []types.MaterialQuizItem
	Degraded  bool
	Notice    string
	Input     InputKind
	Persona   types.Persona
	CreatedAt time.Time

	mu       sync.Mutex
	cursor   int
	done     bool
	log      []AnswerRecord
	locked   map[int]bool
	touched  time.Time
	recorded bool

	feedback task.Slot[int, string]
	summary  task.Slot[int, string]
}

func NewSession(userID uuid.UUID, res Result, persona types.Persona) *Session {
	now := time.Now()
	items := make([]types.MaterialQuizItem, len(res.Items))
	for i, it := range res.Items {
		items[i] = it.Clone()
	}
	s := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Items:     items,
		Degraded:  res.Degraded,
		Notice:    res.Notice,
		Input:     res.Input,
		Persona:   persona.WithDefaults(),
		CreatedAt: now,
		locked:    map[int]bool{},
		touched:   now,
	}
	s.feedback.Advance(0)
	s.summary.Advance(-1)
	return s
}

// Lock records choice for the current question and shows the placeholder
// for it. The first answer wins.
func (s *Session) Lock(choice int, placeholder func(correct bool) string) (AnswerRecord, types.MaterialQuizItem, task.Ticket[int], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	var none task.Ticket[int]
	if s.done || s.cursor >= len(s.Items) {
		return AnswerRecord{}, types.MaterialQuizItem{}, none, apierr.Conflict("session_finished", ErrSessionDone)
	}
	idx := s.cursor
	item := s.Items[idx]
	if s.locked[idx] {
		return AnswerRecord{}, item.Clone(), none, apierr.Conflict("question_locked", ErrQuestionLocked)
	}
	if choice < 0 || choice >= len(item.Options) {
		return AnswerRecord{}, item.Clone(), none, apierr.BadRequest("invalid_answer", fmt.Errorf("%w: %d", ErrInvalidAnswer, choice))
	}
	rec := AnswerRecord{Index: idx, Choice: choice, Correct: item.IsCorrect(choice), At: time.Now()}
	s.locked[idx] = true
	s.log = append(s.log, rec)
	// Begin under s.mu so a concurrent Advance cannot slip in between.
	ticket := s.feedback.Begin(idx, placeholder(rec.Correct))
	return rec, item.Clone(), ticket, nil
}

// Advance moves the cursor. Feedback still in flight for the question left
// behind is discarded on arrival. It reports whether the session just
// finished.
func (s *Session) Advance() (finished bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now()
	if s.done {
		return false
	}
	if s.cursor+1 >= len(s.Items) {
		s.done = true
		s.feedback.Advance(len(s.Items))
		return true
	}
	s.cursor++
	s.feedback.Advance(s.cursor)
	return false
}

// Score is the number of correct answers in the log.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked()
}

func (s *Session) scoreLocked() int {
	n := 0
	for _, r := range s.log {
		if r.Correct {
			n++
		}
	}
	return n
}

// Result tallies the answer log for the summary.
func (s *Session) Result() feedback.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resultLocked()
}

func (s *Session) resultLocked() feedback.SessionResult {
	r := feedback.SessionResult{Right: s.scoreLocked(), Total: len(s.Items), Missed: []feedback.Miss{}}
	for _, rec := range s.log {
		if rec.Correct {
			continue
		}
		it := s.Items[rec.Index]
		r.Missed = append(r.Missed, feedback.Miss{
			Question: it.Question,
			Chosen:   it.Option(rec.Choice),
			Correct:  it.Answer,
		})
	}
	return r
}

// EnrichFeedback replaces the placeholder with fn's result if the question
// is still current when it arrives.
func (s *Session) EnrichFeedback(ctx context.Context, t task.Ticket[int], fn func(context.Context) (string, bool)) *task.Future[string] {
	return task.Enrich(ctx, &s.feedback, t, fn)
}

// beginSummary starts a summary for the current log length unless one for
// that length already exists. It returns the ticket and whether it is new.
func (s *Session) beginSummary(static func(feedback.SessionResult) string) (task.Ticket[int], feedback.SessionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.log)
	res := s.resultLocked()
	if key, _, _ := s.summary.Get(); key == n {
		return task.Ticket[int]{}, res, false
	}
	return s.summary.Begin(n, static(res)), res, true
}

// Summary returns the summary currently shown.
func (s *Session) Summary() SummaryView {
	_, text, pending := s.summary.Get()
	res := s.Result()
	return SummaryView{Text: text, Pending: pending, Right: res.Right, Total: res.Total}
}

// markRecorded reports true exactly once, when the session has finished.
func (s *Session) markRecorded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done || s.recorded {
		return false
	}
	s.recorded = true
	return true
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

type FeedbackView struct {
	Index   int    `json:"index"`
	Text    string `json:"text"`
	Pending bool   `json:"pending"`
}

type SummaryView struct {
	Text    string `json:"text"`
	Pending bool   `json:"pending"`
	Right   int    `json:"right"`
	Total   int    `json:"total"`
}

// View is the Ready state as exposed to the client.
type View struct {
	ID       uuid.UUID                `json:"id"`
	Items    []types.MaterialQuizItem `json:"items"`
	Cursor   int                      `json:"cursor"`
	Score    int                      `json:"score"`
	Locked   []bool                   `json:"locked"`
	Answers  []AnswerRecord           `json:"answers"`
	Feedback *FeedbackView            `json:"feedback,omitempty"`
	Done     bool                     `json:"done"`
	Degraded bool                     `json:"degraded"`
	Notice   string                   `json:"notice,omitempty"`
	Input    InputKind                `json:"input"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:       s.ID,
		Items:    make([]types.MaterialQuizItem, len(s.Items)),
		Cursor:   s.cursor,
		Score:    s.scoreLocked(),
		Locked:   make([]bool, len(s.Items)),
		Answers:  append([]AnswerRecord{}, s.log...),
		Done:     s.done,
		Degraded: s.Degraded,
		Notice:   s.Notice,
		Input:    s.Input,
	}
	for i, it := range s.Items {
		v.Items[i] = it.Clone()
		v.Locked[i] = s.locked[i]
	}
	if idx, text, pending := s.feedback.Get(); text != "" || pending {
		v.Feedback = &FeedbackView{Index: idx, Text: text, Pending: pending}
	}
	return v
}

// Feedback returns the feedback currently shown, if any.
func (s *Session) Feedback() (FeedbackView, bool) {
	idx, text, pending := s.feedback.Get()
	if text == "" && !pending {
		return FeedbackView{}, false
	}
	return FeedbackView{Index: idx, Text: text, Pending: pending}, true
}
