package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/domain/learning"
	"github.com/yungbote/fynix-backend/internal/modules/feedback"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/ctxutil"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/task"
)

// XPPerCorrect is awarded for every correct material answer.
const XPPerCorrect = 20

const sideEffectTimeout = 10 * time.Second

// Learners is the slice of the learner profile the quiz needs.
type Learners interface {
	Persona(ctx context.Context, userID uuid.UUID) (types.Persona, error)
	AddXP(ctx context.Context, userID uuid.UUID, n int) error
}

type Results interface {
	Record(ctx context.Context, r *learning.QuizResult) error
}

// AnswerOutcome is returned the instant an answer is locked in. Feedback is
// the placeholder; the enriched text is read back through Get.
type AnswerOutcome struct {
	Index         int    `json:"index"`
	Choice        int    `json:"choice"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
	Feedback      string `json:"feedback"`
	Pending       bool   `json:"pending"`
	Score         int    `json:"score"`
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, in Input) (View, error)
	Get(ctx context.Context, userID, id uuid.UUID) (View, error)
	Answer(ctx context.Context, userID, id uuid.UUID, choice int) (AnswerOutcome, error)
	Next(ctx context.Context, userID, id uuid.UUID) (View, error)
	Summary(ctx context.Context, userID, id uuid.UUID) (SummaryView, error)
	// Wait blocks until background enrichment and side effects are done.
	Wait()
}

type service struct {
	log      *logger.Logger
	pipeline *Pipeline
	feedback *feedback.Generator
	learners Learners
	results  Results
	store    *SessionStore

	wg sync.WaitGroup
}

func NewService(log *logger.Logger, pipeline *Pipeline, fb *feedback.Generator, learners Learners, results Results, store *SessionStore) (Service, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline required")
	}
	if store == nil {
		store = NewSessionStore(0, 0)
	}
	return &service{
		log:      log.With("service", "QuizService"),
		pipeline: pipeline,
		feedback: fb,
		learners: learners,
		results:  results,
		store:    store,
	}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, in Input) (View, error) {
	persona := s.persona(ctx, userID, in.Language)
	if in.Language == "" {
		in.Language = persona.Language
	}
	res, err := s.pipeline.Run(ctx, in)
	if err != nil {
		return View{}, err
	}
	sess := NewSession(userID, res, persona)
	s.store.Put(sess)
	s.log.Info("quiz session ready", "session_id", sess.ID, "items", len(sess.Items), "degraded", res.Degraded)
	return sess.View(), nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (View, error) {
	sess, err := s.store.Get(userID, id)
	if err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

func (s *service) Answer(ctx context.Context, userID, id uuid.UUID, choice int) (AnswerOutcome, error) {
	sess, err := s.store.Get(userID, id)
	if err != nil {
		return AnswerOutcome{}, err
	}
	rec, item, ticket, err := sess.Lock(choice, func(correct bool) string {
		return feedback.Placeholder(feedback.SurfaceMaterial, correct, sess.Persona)
	})
	if err != nil {
		return AnswerOutcome{}, err
	}
	observability.Current().IncAnswer(string(feedback.SurfaceMaterial), rec.Correct)

	ans := feedback.Answer{
		Index:         rec.Index,
		Question:      item.Question,
		CorrectAnswer: item.Answer,
		ChosenAnswer:  item.Option(rec.Choice),
		Correct:       rec.Correct,
	}
	persona := sess.Persona
	bg := ctxutil.Detached(ctx)

	s.wg.Add(1)
	f := sess.EnrichFeedback(bg, ticket, func(ctx context.Context) (string, bool) {
		if text, ok := s.feedback.PerAnswer(ctx, ans, persona); ok {
			return text, true
		}
		return feedback.Static(feedback.SurfaceMaterial, ans, persona), true
	})
	go func() {
		defer s.wg.Done()
		<-f.Done()
		if err := f.Err(); err != nil {
			s.log.Warn("answer feedback task failed", "session_id", sess.ID, "error", err)
		}
	}()

	if rec.Correct {
		s.awardXP(bg, sess.UserID, XPPerCorrect)
	}

	fb, _ := sess.Feedback()
	return AnswerOutcome{
		Index:         rec.Index,
		Choice:        rec.Choice,
		Correct:       rec.Correct,
		CorrectAnswer: item.Answer,
		Feedback:      feedback.Placeholder(feedback.SurfaceMaterial, rec.Correct, persona),
		Pending:       fb.Pending && fb.Index == rec.Index,
		Score:         sess.Score(),
	}, nil
}

func (s *service) Next(ctx context.Context, userID, id uuid.UUID) (View, error) {
	sess, err := s.store.Get(userID, id)
	if err != nil {
		return View{}, err
	}
	if sess.Advance() && sess.markRecorded() {
		s.record(ctxutil.Detached(ctx), sess)
	}
	return sess.View(), nil
}

// Summary returns the banded static text at once and starts the AI recap
// for the current answer log if none is running.
func (s *service) Summary(ctx context.Context, userID, id uuid.UUID) (SummaryView, error) {
	sess, err := s.store.Get(userID, id)
	if err != nil {
		return SummaryView{}, err
	}
	persona := sess.Persona
	ticket, res, isNew := sess.beginSummary(func(r feedback.SessionResult) string {
		return feedback.StaticSummary(r, persona)
	})
	if isNew {
		s.wg.Add(1)
		f := task.Enrich(ctxutil.Detached(ctx), &sess.summary, ticket, func(ctx context.Context) (string, bool) {
			return s.feedback.Summary(ctx, res, persona)
		})
		go func() {
			defer s.wg.Done()
			<-f.Done()
			if !f.Applied() {
				s.log.Debug("keeping static summary", "session_id", sess.ID)
			}
		}()
	}
	return sess.Summary(), nil
}

func (s *service) Wait() {
	s.wg.Wait()
}

func (s *service) persona(ctx context.Context, userID uuid.UUID, language string) types.Persona {
	p := types.Persona{Language: language}
	if s.learners != nil {
		got, err := s.learners.Persona(ctx, userID)
		if err != nil {
			s.log.Warn("persona lookup failed, using defaults", "user_id", userID, "error", err)
		} else {
			p = got
			if language != "" {
				p.Language = language
			}
		}
	}
	return p.WithDefaults()
}

func (s *service) awardXP(ctx context.Context, userID uuid.UUID, n int) {
	if s.learners == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
		defer cancel()
		if err := s.learners.AddXP(ctx, userID, n); err != nil {
			s.log.Warn("xp update failed", "user_id", userID, "delta", n, "error", err)
		}
	}()
}

func (s *service) record(ctx context.Context, sess *Session) {
	if s.results == nil {
		return
	}
	res := sess.Result()
	missed, err := json.Marshal(res.Missed)
	if err != nil {
		missed = []byte("[]")
	}
	row := &learning.QuizResult{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Source:    string(sess.Input),
		Degraded:  sess.Degraded,
		Score:     res.Right,
		Total:     res.Total,
		Missed:    datatypes.JSON(missed),
		Summary:   feedback.StaticSummary(res, sess.Persona),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, sideEffectTimeout)
		defer cancel()
		if err := s.results.Record(ctx, row); err != nil {
			s.log.Warn("quiz result not recorded", "session_id", sess.ID, "error", err)
		}
	}()
}
