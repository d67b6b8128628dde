// Package feedback produces per-answer and end-of-session feedback. Every
// operation has a deterministic form that is available instantly; the AI
// forms report ok=false instead of failing.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/observability"
	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
	"github.com/yungbote/fynix-backend/internal/platform/promptstyle"
)

const (
	answerTemperature  = 0.9
	summaryTemperature = 0.8
	DefaultTimeout     = 20 * time.Second
)

// Answer describes one answered question.
type Answer struct {
	Index         int    `json:"index"`
	Question      string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
	ChosenAnswer  string `json:"chosen_answer"`
	Correct       bool   `json:"correct"`
}

type Miss struct {
	Question string `json:"question"`
	Chosen   string `json:"chosen"`
	Correct  string `json:"correct"`
}

// SessionResult is the tally a summary is written from.
type SessionResult struct {
	Right  int    `json:"right"`
	Total  int    `json:"total"`
	Missed []Miss `json:"missed"`
}

type Generator struct {
	log      *logger.Logger
	gen      ai.Generator
	model    string
	provider string
	timeout  time.Duration
}

func New(log *logger.Logger, gen ai.Generator, model, provider string, timeout time.Duration) (*Generator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Generator{
		log:      log.With("service", "FeedbackGenerator"),
		gen:      gen,
		model:    strings.TrimSpace(model),
		provider: provider,
		timeout:  timeout,
	}, nil
}

// Placeholder is the text shown the instant correctness is known.
func Placeholder(surface Surface, correct bool, persona types.Persona) string {
	l := phrasesFor(persona.WithDefaults().Language)
	switch {
	case surface == SurfaceMaterial && correct:
		return l.materialRight
	case surface == SurfaceMaterial:
		return l.materialWrong
	case correct:
		return l.feedRight
	default:
		return l.feedWrong
	}
}

// Static is the placeholder plus, for wrong answers, a roast line picked by
// roast level and question index. It is what stays when enrichment fails.
func Static(surface Surface, a Answer, persona types.Persona) string {
	persona = persona.WithDefaults()
	base := Placeholder(surface, a.Correct, persona)
	if a.Correct {
		return base
	}
	lines := phrasesFor(persona.Language).roastLines(persona.RoastLevel)
	if len(lines) == 0 {
		return base
	}
	idx := a.Index
	if idx < 0 {
		idx = -idx
	}
	return base + " " + lines[idx%len(lines)]
}

// StaticSummary is the score-banded summary sentence.
func StaticSummary(r SessionResult, persona types.Persona) string {
	l := phrasesFor(persona.WithDefaults().Language)
	right, total := r.Right, r.Total
	switch {
	case total > 0 && right >= total:
		return l.perfect
	case total > 0 && float64(right) >= float64(total)*0.8:
		return l.great
	case total > 0 && float64(right) >= float64(total)*0.5:
		return l.solid
	default:
		return l.low
	}
}

// PerAnswer asks the generator for a short personalized reaction.
func (g *Generator) PerAnswer(ctx context.Context, a Answer, persona types.Persona) (string, bool) {
	persona = persona.WithDefaults()
	return g.call(ctx, "feedback_answer", answerPrompt(a, persona), ai.GenerateOptions{
		Temperature:  ai.Temperature(answerTemperature),
		SystemPrompt: promptstyle.ApplySystem(answerSystem(persona), "text"),
	})
}

// Summary asks the generator for the end-of-session recap.
func (g *Generator) Summary(ctx context.Context, r SessionResult, persona types.Persona) (string, bool) {
	persona = persona.WithDefaults()
	return g.call(ctx, "feedback_summary", summaryPrompt(r, persona), ai.GenerateOptions{
		Temperature:  ai.Temperature(summaryTemperature),
		SystemPrompt: promptstyle.ApplySystem(summarySystem(persona), "text"),
	})
}

func (g *Generator) call(ctx context.Context, op, prompt string, opts ai.GenerateOptions) (string, bool) {
	if g == nil || g.gen == nil {
		return "", false
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, op, attribute.String("ai.provider", g.provider))
	start := time.Now()
	res := ai.SafeGenerate(ctx, g.gen, prompt, g.model, opts)
	if !res.Usable() {
		observability.Current().ObserveAI(g.provider, op, "failed", time.Since(start))
		observability.EndSpan(span, res.Err)
		g.log.Debug("feedback enrichment unavailable", "op", op, "error", res.Err)
		return "", false
	}
	observability.Current().ObserveAI(g.provider, op, "ok", time.Since(start))
	observability.EndSpan(span, nil)
	return strings.TrimSpace(res.Text), true
}

func answerSystem(p types.Persona) string {
	if p.German() {
		return "Du bist Fynix, ein witziger Lern-Begleiter. Reagiere auf eine Quiz-Antwort in 1-2 kurzen Sätzen."
	}
	return "You are Fynix, a witty study buddy. React to a quiz answer in 1-2 short sentences."
}

func summarySystem(p types.Persona) string {
	if p.German() {
		return "Du bist Fynix, ein witziger Lern-Begleiter. Schreibe eine kurze Zusammenfassung eines Quiz-Ergebnisses."
	}
	return "You are Fynix, a witty study buddy. Write a short summary of a quiz result."
}

func answerPrompt(a Answer, p types.Persona) string {
	var b strings.Builder
	if p.German() {
		fmt.Fprintf(&b, "Schüler: %s. Roast-Level: %d von 5 (0 = nur nett, 5 = gnadenlos, aber nie verletzend).\n", p.Name, p.RoastLevel)
		fmt.Fprintf(&b, "Frage: %q\nRichtige Antwort: %q\nGewählt: %q\n", a.Question, a.CorrectAnswer, a.ChosenAnswer)
		if a.Correct {
			b.WriteString("Die Antwort war richtig. Lobe kurz und nenne einen Merksatz.\n")
		} else {
			b.WriteString("Die Antwort war falsch. Erkläre in einem Satz, warum die richtige Antwort stimmt.\n")
		}
		fmt.Fprintf(&b, "Sprache: %q. Max 150 Zeichen.", p.Language)
		return b.String()
	}
	fmt.Fprintf(&b, "Student: %s. Roast level: %d of 5 (0 = only kind, 5 = merciless but never hurtful).\n", p.Name, p.RoastLevel)
	fmt.Fprintf(&b, "Question: %q\nCorrect answer: %q\nChosen: %q\n", a.Question, a.CorrectAnswer, a.ChosenAnswer)
	if a.Correct {
		b.WriteString("The answer was correct. Praise briefly and add a memory hook.\n")
	} else {
		b.WriteString("The answer was wrong. Explain in one sentence why the correct answer is right.\n")
	}
	fmt.Fprintf(&b, "Language: %q. Max 150 characters.", p.Language)
	return b.String()
}

func summaryPrompt(r SessionResult, p types.Persona) string {
	var b strings.Builder
	if p.German() {
		fmt.Fprintf(&b, "Gib eine kurze, personalisierte Zusammenfassung (3-4 Sätze) für %s.\n", p.Name)
		fmt.Fprintf(&b, "Ergebnis: %d von %d richtig.\n", r.Right, r.Total)
		if len(r.Missed) == 0 {
			b.WriteString("Alles richtig!\n")
		} else {
			b.WriteString("Fehler:\n")
			for _, m := range r.Missed {
				fmt.Fprintf(&b, "Frage: %q → Gewählt: %q, Richtig: %q\n", m.Question, m.Chosen, m.Correct)
			}
		}
		fmt.Fprintf(&b, "Gib Tipps was zu üben ist und lobe die Stärken. Sei motivierend. Sprache: %q. Max 200 Zeichen.", p.Language)
		return b.String()
	}
	fmt.Fprintf(&b, "Write a short, personalized summary (3-4 sentences) for %s.\n", p.Name)
	fmt.Fprintf(&b, "Result: %d of %d correct.\n", r.Right, r.Total)
	if len(r.Missed) == 0 {
		b.WriteString("Everything correct!\n")
	} else {
		b.WriteString("Mistakes:\n")
		for _, m := range r.Missed {
			fmt.Fprintf(&b, "Question: %q → Chosen: %q, Correct: %q\n", m.Question, m.Chosen, m.Correct)
		}
	}
	fmt.Fprintf(&b, "Suggest what to practice and praise the strengths. Be motivating. Language: %q. Max 200 characters.", p.Language)
	return b.String()
}
