package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/modules/content/extract"
	"github.com/yungbote/fynix-backend/internal/modules/quiz/imaging"
	"github.com/yungbote/fynix-backend/internal/modules/quiz/synth"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/apierr"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/promptstyle"
)

const (
	MinTextRunes      = 30
	MinExtractedRunes = 20
	MaxSourceRunes    = 4000
	QuestionsWanted   = 5
	MinValidQuestions = 2

	DefaultAITimeout = 45 * time.Second
)

var (
	ErrNeedsMoreText        = errors.New("source text must be at least 30 characters")
	ErrMissingImage         = errors.New("no image supplied")
	ErrInsufficientMaterial = errors.New("too little text could be recognized in the image")
)

type State string

const (
	StateIdle            State = "idle"
	StateCollectingInput State = "collecting_input"
	StateExtractingText  State = "extracting_text"
	StateGenerating      State = "generating"
	StateReady           State = "ready"
	StateDegraded        State = "degraded"
	StateFailed          State = "failed"
)

type InputKind string

const (
	InputText  InputKind = "text"
	InputImage InputKind = "image"
)

type Input struct {
	Kind     InputKind
	Text     string
	Image    []byte
	Language string
}

// Result is what the pipeline hands to the session. Degraded means the
// items were synthesized from the source text instead of generated.
type Result struct {
	Items      []types.MaterialQuizItem
	Degraded   bool
	Notice     string
	SourceText string
	Input      InputKind
	// Transitions is the state path taken, ending in Ready or Degraded.
	Transitions []State
}

type PipelineConfig struct {
	TextModel   string
	VisionModel string
	Provider    string
	Image       imaging.Options
	OCRHints    []string
	// AITimeout bounds each vision, OCR and generation call. An expired
	// call counts as a failure and the next fallback tier takes over.
	AITimeout time.Duration
}

type Pipeline struct {
	log    *logger.Logger
	gen    ai.Generator
	vision ai.VisionChat
	ocr    ai.OCR
	cfg    PipelineConfig
}

func NewPipeline(log *logger.Logger, gen ai.Generator, vision ai.VisionChat, ocr ai.OCR, cfg PipelineConfig) (*Pipeline, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(cfg.OCRHints) == 0 {
		cfg.OCRHints = []string{"de", "en"}
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = DefaultAITimeout
	}
	return &Pipeline{
		log:    log.With("service", "QuizPipeline"),
		gen:    gen,
		vision: vision,
		ocr:    ocr,
		cfg:    cfg,
	}, nil
}

// Run takes an input through to a usable quiz. Input errors are returned
// before any network call; AI failures never are, they degrade instead.
func (p *Pipeline) Run(ctx context.Context, in Input) (Result, error) {
	ctx, span := observability.StartSpan(ctx, "quiz.pipeline", attribute.String("input", string(in.Kind)))
	res, err := p.run(ctx, in)
	span.SetAttributes(attribute.Bool("degraded", res.Degraded), attribute.Int("items", len(res.Items)))
	observability.EndSpan(span, err)

	result := "ready"
	switch {
	case err != nil:
		result = "failed"
	case res.Degraded:
		result = "degraded"
	}
	observability.Current().IncQuizSession(string(in.Kind), result)
	return res, err
}

func (p *Pipeline) run(ctx context.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.Language) == "" {
		in.Language = types.DefaultLanguage
	}
	res := Result{Input: in.Kind, Transitions: []State{StateIdle, StateCollectingInput}}
	fail := func(err error) (Result, error) {
		res.Transitions = append(res.Transitions, StateFailed)
		return res, err
	}

	var source string
	switch in.Kind {
	case InputText, "":
		res.Input = InputText
		source = strings.TrimSpace(in.Text)
		if utf8.RuneCountInString(source) < MinTextRunes {
			return fail(apierr.BadRequest("needs_more_text", ErrNeedsMoreText))
		}
	case InputImage:
		if len(in.Image) == 0 {
			return fail(apierr.BadRequest("missing_image", ErrMissingImage))
		}
		img, err := imaging.Normalize(ctx, in.Image, p.cfg.Image)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return fail(err)
			}
			if errors.Is(err, imaging.ErrTooLarge) {
				return fail(apierr.New(http.StatusRequestEntityTooLarge, "image_too_large", err))
			}
			return fail(apierr.BadRequest("invalid_image", err))
		}
		res.Transitions = append(res.Transitions, StateExtractingText)
		source = p.transcribe(ctx, img)
		if utf8.RuneCountInString(source) < MinExtractedRunes {
			return fail(apierr.Unprocessable("insufficient_material", ErrInsufficientMaterial))
		}
	default:
		return fail(apierr.BadRequest("invalid_input", fmt.Errorf("unknown input kind %q", in.Kind)))
	}
	res.SourceText = source

	res.Transitions = append(res.Transitions, StateGenerating)
	items, reason := p.generate(ctx, source, in.Language)
	if len(items) >= MinValidQuestions {
		res.Items = items
		res.Transitions = append(res.Transitions, StateReady)
		return res, nil
	}

	p.log.Warn("quiz generation degraded to synthesized questions", "reason", reason, "valid", len(items))
	observability.Current().IncFallback("quiz", reason)
	synthesized := synth.Synthesize(source, in.Language)
	switch {
	case len(synthesized) > 0:
		res.Items = synthesized
	case len(items) > 0:
		res.Items = items
	default:
		return fail(apierr.Unprocessable("insufficient_material", ErrInsufficientMaterial))
	}
	res.Degraded = true
	res.Notice = degradedNotice(in.Language)
	res.Transitions = append(res.Transitions, StateDegraded)
	return res, nil
}

// transcribe asks vision chat for a verbatim transcription and falls back to
// OCR when that fails or comes back too short.
func (p *Pipeline) transcribe(ctx context.Context, img imaging.Normalized) string {
	if p.vision != nil {
		start := time.Now()
		vctx, cancel := context.WithTimeout(ctx, p.cfg.AITimeout)
		text, err := ai.SafeChat(vctx, p.vision, transcriptionPrompt, p.cfg.VisionModel, []string{img.Base64()})
		cancel()
		text = strings.TrimSpace(text)
		status := "ok"
		if err != nil || utf8.RuneCountInString(text) < MinExtractedRunes {
			status = "failed"
		}
		observability.Current().ObserveAI(p.cfg.Provider, "vision_transcribe", status, time.Since(start))
		if status == "ok" {
			return text
		}
		p.log.Info("vision transcription unusable, trying ocr", "error", err, "chars", utf8.RuneCountInString(text))
	}
	if p.ocr == nil {
		return ""
	}
	ctx, span := observability.StartSpan(ctx, "quiz.ocr")
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AITimeout)
	defer cancel()
	text, err := ai.SafeOCR(ctx, p.ocr, img.DataURL(), p.cfg.OCRHints)
	observability.EndSpan(span, err)
	if err != nil {
		p.log.Warn("ocr failed", "error", err)
		return ""
	}
	observability.Current().IncFallback("transcription", "ocr")
	return strings.TrimSpace(text)
}

const transcriptionPrompt = "Read the complete text in this image and reproduce it verbatim. Only the text, nothing else."

// generate returns the valid AI items (at most QuestionsWanted) and, when
// there are too few, a short reason for logs and metrics.
func (p *Pipeline) generate(ctx context.Context, source, language string) ([]types.MaterialQuizItem, string) {
	if p.gen == nil {
		return nil, "no_generator"
	}
	ctx, cancel := context.WithTimeout(ctx, p.cfg.AITimeout)
	defer cancel()
	start := time.Now()
	res := ai.SafeGenerate(ctx, p.gen, BuildPrompt(source, language), p.cfg.TextModel, ai.GenerateOptions{
		SystemPrompt: promptstyle.ApplySystem("You turn study material into multiple-choice quizzes.", "json"),
	})
	if !res.Usable() {
		observability.Current().ObserveAI(p.cfg.Provider, "quiz_generate", "failed", time.Since(start))
		p.log.Warn("quiz generation call failed", "error", res.Err)
		if errors.Is(res.Err, context.DeadlineExceeded) {
			return nil, "timeout"
		}
		return nil, "transport"
	}
	observability.Current().ObserveAI(p.cfg.Provider, "quiz_generate", "ok", time.Since(start))
	elems, ok := extract.Array(res.Text, "questions")
	if !ok {
		return nil, "shape"
	}
	items := ParseQuestions(elems)
	if len(items) < MinValidQuestions {
		return items, "too_few_items"
	}
	return items, ""
}

type rawQuestion struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Options  []string `json:"options"`
}

// ParseQuestions validates each candidate on its own and keeps at most
// QuestionsWanted.
func ParseQuestions(elems []json.RawMessage) []types.MaterialQuizItem {
	out := make([]types.MaterialQuizItem, 0, QuestionsWanted)
	for _, el := range elems {
		if len(out) == QuestionsWanted {
			break
		}
		var rq rawQuestion
		if err := json.Unmarshal(el, &rq); err != nil {
			continue
		}
		item := types.MaterialQuizItem{
			Question: strings.TrimSpace(rq.Question),
			Answer:   strings.TrimSpace(rq.Answer),
		}
		for _, o := range rq.Options {
			if o = strings.TrimSpace(o); o != "" {
				item.Options = append(item.Options, o)
			}
		}
		if item.Validate() != nil {
			continue
		}
		out = append(out, item)
	}
	return out
}

// BuildPrompt asks for exactly QuestionsWanted questions over source,
// truncated to MaxSourceRunes.
func BuildPrompt(source, language string) string {
	source = truncateRunes(strings.TrimSpace(source), MaxSourceRunes)
	shape := `{"questions":[{"question":"...","answer":"...","options":["A","B","C","D"]}]}`
	if types.LanguageBase(language) == "de" || strings.TrimSpace(language) == "" {
		return fmt.Sprintf("Erstelle genau %d Multiple-Choice-Quizfragen auf Deutsch aus dem folgenden Lehrstoff. "+
			"Jede Frage hat 4 Antwortoptionen, eine ist richtig. \"answer\" muss wortgleich in \"options\" vorkommen. "+
			"Antworte NUR mit diesem JSON, sonst nichts:\n%s\n\nLehrstoff:\n%s", QuestionsWanted, shape, source)
	}
	return fmt.Sprintf("Create exactly %d multiple-choice quiz questions in language %q from the study material below. "+
		"Each question has 4 options, exactly one is correct. \"answer\" must appear verbatim in \"options\". "+
		"Reply ONLY with this JSON, nothing else:\n%s\n\nMaterial:\n%s", QuestionsWanted, language, shape, source)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func degradedNotice(language string) string {
	if types.LanguageBase(language) == "de" {
		return "Quiz aus Lehrstoff erstellt (Offline-Modus)"
	}
	return "Quiz built from your material (offline mode)"
}
