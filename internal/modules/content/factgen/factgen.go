// Package factgen asks the text generator for fresh feed facts. It is the
// producer behind the feed buffer.
package factgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/modules/content/extract"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/promptstyle"
)

var (
	ErrNoFacts      = errors.New("no facts array in model output")
	ErrNoValidFacts = errors.New("model output had no valid facts")
)

const (
	defaultTemperature = 0.9
	maxPerCall         = 10
)

type Generator struct {
	log      *logger.Logger
	gen      ai.Generator
	model    string
	provider string
}

func New(log *logger.Logger, gen ai.Generator, model, provider string) (*Generator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if gen == nil {
		return nil, fmt.Errorf("text generator required")
	}
	return &Generator{
		log:      log.With("service", "FactGenerator"),
		gen:      gen,
		model:    strings.TrimSpace(model),
		provider: provider,
	}, nil
}

// Produce generates up to n feed items for req. Items failing validation
// are dropped; an error means nothing usable came back.
func (g *Generator) Produce(ctx context.Context, req types.GenerationRequest, n int) ([]types.ContentItem, error) {
	req = req.WithDefaults()
	if n <= 0 {
		n = 1
	}
	if n > maxPerCall {
		n = maxPerCall
	}
	ctx, span := observability.StartSpan(ctx, "factgen.produce",
		attribute.String("language", req.LanguageBase()),
		attribute.Int("count", n),
	)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()
	res := ai.SafeGenerate(ctx, g.gen, BuildPrompt(req, n), g.model, ai.GenerateOptions{
		Temperature:  ai.Temperature(defaultTemperature),
		SystemPrompt: promptstyle.ApplySystem(systemPrompt(req), "json"),
	})
	status := "ok"
	if !res.Usable() {
		status = "failed"
	}
	observability.Current().ObserveAI(g.provider, "feed_facts", status, time.Since(start))
	if !res.Usable() {
		err = fmt.Errorf("generate facts: %w", errOr(res.Err, ai.ErrUnavailable))
		return nil, err
	}

	items, dropped, perr := Parse(res.Text)
	if perr != nil {
		err = perr
		return nil, err
	}
	if dropped > 0 {
		g.log.Debug("dropped invalid generated facts", "dropped", dropped, "kept", len(items))
	}
	if len(items) > n {
		items = items[:n]
	}
	span.SetAttributes(attribute.Int("facts.kept", len(items)), attribute.Int("facts.dropped", dropped))
	return items, nil
}

func errOr(err, def error) error {
	if err != nil {
		return err
	}
	return def
}

func systemPrompt(req types.GenerationRequest) string {
	if req.LanguageBase() == "de" {
		return "Du schreibst kurze, überraschende Lern-Fakten mit je einer Quizfrage für einen Swipe-Feed."
	}
	return "You write short, surprising learning facts, each with one quiz question, for a swipeable feed."
}

// BuildPrompt is the user prompt for n facts.
func BuildPrompt(req types.GenerationRequest, n int) string {
	req = req.WithDefaults()
	var b strings.Builder
	if req.LanguageBase() == "de" {
		fmt.Fprintf(&b, "Erstelle genau %d kurze Lern-Fakten für Klasse %s.\n", n, req.Grade)
		fmt.Fprintf(&b, "Interessen: %s.\n", req.Interests)
		b.WriteString("Jeder Fakt: Kategorie, knackiger Titel (einzigartig), 1-3 Sätze Inhalt, dazu ein Quiz.\n")
		b.WriteString("Quiz: entweder Multiple Choice mit 4 Optionen (\"type\":\"mc\") oder Wahr/Falsch mit den Optionen [\"True\",\"False\"] (\"type\":\"tf\").\n")
		b.WriteString("\"correct\" ist der 0-basierte Index der richtigen Option.\n")
		b.WriteString("Sprache: Deutsch. Antworte NUR mit diesem JSON:\n")
	} else {
		fmt.Fprintf(&b, "Create exactly %d short learning facts for grade %s.\n", n, req.Grade)
		fmt.Fprintf(&b, "Interests: %s.\n", req.Interests)
		b.WriteString("Each fact: a category, a catchy unique title, 1-3 sentences of content, and one quiz.\n")
		b.WriteString("Quiz: either multiple choice with 4 options (\"type\":\"mc\") or true/false with options [\"True\",\"False\"] (\"type\":\"tf\").\n")
		b.WriteString("\"correct\" is the 0-based index of the right option.\n")
		fmt.Fprintf(&b, "Language: %s. Reply ONLY with this JSON:\n", req.Language)
	}
	b.WriteString(`{"facts":[{"category":"...","title":"...","content":"...","quiz":{"question":"...","options":["A","B","C","D"],"correct":0,"type":"mc"}}]}`)
	return b.String()
}

type rawFact struct {
	Category string  `json:"category"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Quiz     rawQuiz `json:"quiz"`
}

type rawQuiz struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  *int     `json:"correct"`
	Type     string   `json:"type"`
}

// Parse extracts the facts array from model output and validates each
// element on its own. dropped counts elements that were rejected.
func Parse(raw string) (items []types.ContentItem, dropped int, err error) {
	elems, ok := extract.Array(raw, "facts")
	if !ok {
		return nil, 0, ErrNoFacts
	}
	seen := map[string]bool{}
	for _, el := range elems {
		it, ok := decodeFact(el)
		if !ok || seen[it.Key()] {
			dropped++
			continue
		}
		seen[it.Key()] = true
		items = append(items, it)
	}
	if len(items) == 0 {
		return nil, dropped, ErrNoValidFacts
	}
	return items, dropped, nil
}

func decodeFact(el json.RawMessage) (types.ContentItem, bool) {
	var rf rawFact
	if err := json.Unmarshal(el, &rf); err != nil {
		return types.ContentItem{}, false
	}
	if rf.Quiz.Correct == nil {
		return types.ContentItem{}, false
	}
	opts := make([]string, 0, len(rf.Quiz.Options))
	for _, o := range rf.Quiz.Options {
		opts = append(opts, strings.TrimSpace(o))
	}
	it := types.ContentItem{
		Category: strings.TrimSpace(rf.Category),
		Title:    strings.TrimSpace(rf.Title),
		Content:  strings.TrimSpace(rf.Content),
		Quiz: types.QuizSpec{
			Question: strings.TrimSpace(rf.Quiz.Question),
			Options:  opts,
			Correct:  *rf.Quiz.Correct,
			Kind:     quizKind(rf.Quiz.Type, len(opts)),
		},
		Source: types.SourceAI,
	}
	if it.Validate() != nil {
		return types.ContentItem{}, false
	}
	return it, true
}

func quizKind(raw string, nOptions int) types.QuizKind {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tf", "true-false", "true_false", "truefalse", "true/false", "boolean":
		return types.QuizTrueFalse
	case "mc", "multiple-choice", "multiple_choice", "multiplechoice":
		return types.QuizMultipleChoice
	case "":
		if nOptions == 2 {
			return types.QuizTrueFalse
		}
		return types.QuizMultipleChoice
	}
	return types.QuizKind(raw)
}
