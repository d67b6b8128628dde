package feedback

import (
	"context"
	"strings"
	"testing"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/platform/ai/aitest"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

var (
	en = types.Persona{Name: "Sam", RoastLevel: 3, Language: "en"}
	de = types.Persona{Name: "Lea", RoastLevel: 3, Language: "de"}
)

func TestPlaceholder(t *testing.T) {
	cases := []struct {
		surface Surface
		correct bool
		persona types.Persona
		want    string
	}{
		{SurfaceFeed, true, en, "Correct! 🎉"},
		{SurfaceFeed, false, en, "Wrong 💀"},
		{SurfaceMaterial, true, en, "✅ Correct!"},
		{SurfaceMaterial, false, en, "❌ Wrong"},
		{SurfaceFeed, true, de, "Richtig! 🎉"},
		{SurfaceMaterial, false, de, "❌ Leider falsch"},
		{SurfaceFeed, false, types.Persona{}, "Leider falsch 💀"},
	}
	for _, tc := range cases {
		if got := Placeholder(tc.surface, tc.correct, tc.persona); got != tc.want {
			t.Fatalf("Placeholder(%s,%v,%q)=%q, want %q", tc.surface, tc.correct, tc.persona.Language, got, tc.want)
		}
	}
}

func TestStaticRoastLines(t *testing.T) {
	wrong := Answer{Index: 4, Correct: false}
	if got := Static(SurfaceFeed, wrong, types.Persona{Language: "en", RoastLevel: 0}); got != "Wrong 💀" {
		t.Fatalf("roast level 0 should not roast, got %q", got)
	}
	mild := Static(SurfaceFeed, wrong, types.Persona{Language: "en", RoastLevel: 1})
	hard := Static(SurfaceFeed, wrong, types.Persona{Language: "en", RoastLevel: 5})
	if !strings.HasSuffix(mild, english.roastMild[4%3]) {
		t.Fatalf("mild roast=%q", mild)
	}
	if !strings.HasSuffix(hard, english.roastHard[4%3]) {
		t.Fatalf("hard roast=%q", hard)
	}
	if again := Static(SurfaceFeed, wrong, types.Persona{Language: "en", RoastLevel: 5}); again != hard {
		t.Fatalf("Static not deterministic: %q vs %q", again, hard)
	}
	right := Answer{Index: 1, Correct: true}
	if got := Static(SurfaceMaterial, right, en); got != "✅ Correct!" {
		t.Fatalf("correct answers get no roast, got %q", got)
	}
}

func TestStaticSummaryBands(t *testing.T) {
	cases := []struct {
		right, total int
		want         string
	}{
		{5, 5, english.perfect},
		{4, 5, english.great},
		{3, 5, english.solid},
		{2, 4, english.solid},
		{1, 5, english.low},
		{0, 0, english.low},
	}
	for _, tc := range cases {
		if got := StaticSummary(SessionResult{Right: tc.right, Total: tc.total}, en); got != tc.want {
			t.Fatalf("StaticSummary(%d/%d)=%q, want %q", tc.right, tc.total, got, tc.want)
		}
	}
	if got := StaticSummary(SessionResult{Right: 5, Total: 5}, de); got != german.perfect {
		t.Fatalf("german perfect=%q", got)
	}
}

func TestSummaryUnavailableIsIdempotent(t *testing.T) {
	g, err := New(logger.Nop(), aitest.NewGenerator(aitest.Fail()), "", "test", 0)
	if err != nil {
		t.Fatalf("New()=%v", err)
	}
	r := SessionResult{Right: 3, Total: 5, Missed: []Miss{{Question: "Q", Chosen: "a", Correct: "b"}}}
	var outs []string
	for i := 0; i < 2; i++ {
		text, ok := g.Summary(context.Background(), r, en)
		if ok {
			t.Fatalf("Summary should be unavailable, got %q", text)
		}
		outs = append(outs, StaticSummary(r, en))
	}
	if outs[0] != outs[1] {
		t.Fatalf("static summary changed between calls: %q vs %q", outs[0], outs[1])
	}
}

func TestSummaryPrompt(t *testing.T) {
	gen := aitest.NewGenerator(aitest.Text("  Nice work, Lea!  "))
	g, _ := New(logger.Nop(), gen, "m", "test", 0)
	r := SessionResult{Right: 4, Total: 5, Missed: []Miss{{Question: "Hauptstadt?", Chosen: "Bonn", Correct: "Berlin"}}}
	text, ok := g.Summary(context.Background(), r, de)
	if !ok || text != "Nice work, Lea!" {
		t.Fatalf("Summary()=%q,%v", text, ok)
	}
	p := gen.Prompts()[0]
	for _, want := range []string{"für Lea", "4 von 5 richtig", `"Hauptstadt?"`, `"Berlin"`, "Max 200 Zeichen"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
	if opts := gen.Options()[0]; opts.Temperature == nil || *opts.Temperature != summaryTemperature {
		t.Fatalf("summary temperature=%v", opts.Temperature)
	}
}

func TestPerAnswer(t *testing.T) {
	gen := aitest.NewGenerator(aitest.Text("Nope, it's Berlin."))
	g, _ := New(logger.Nop(), gen, "m", "test", 0)
	text, ok := g.PerAnswer(context.Background(), Answer{Question: "Capital?", CorrectAnswer: "Berlin", ChosenAnswer: "Bonn"}, en)
	if !ok || text != "Nope, it's Berlin." {
		t.Fatalf("PerAnswer()=%q,%v", text, ok)
	}
	if p := gen.Prompts()[0]; !strings.Contains(p, "Student: Sam") || !strings.Contains(p, "was wrong") {
		t.Fatalf("unexpected prompt:\n%s", p)
	}

	var nilGen *Generator
	if _, ok := nilGen.PerAnswer(context.Background(), Answer{}, en); ok {
		t.Fatalf("nil generator must report unavailable")
	}
}
