package factgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
	"github.com/yungbote/fynix-backend/internal/platform/ai/aitest"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

const goodOutput = `Klar! Hier sind deine Fakten:
{"facts":[
 {"category":"Space","title":"Venus day","content":"A day on Venus is longer than its year.","quiz":{"question":"Longer on Venus?","options":["Day","Year"],"correct":0,"type":"tf"}},
 {"category":"Bio","title":"Octopus hearts","content":"Octopuses have three hearts.","quiz":{"question":"How many hearts?","options":["1","2","3","4"],"correct":2,"type":"mc"}},
 {"category":"Bad","title":"Out of range","content":"x","quiz":{"question":"?","options":["a","b"],"correct":5,"type":"mc"}},
 {"category":"Bad","title":"Wrong types","content":"x","quiz":{"question":"?","options":"a,b","correct":"1"}},
 {"category":"Bio","title":"Octopus hearts","content":"dup","quiz":{"question":"?","options":["a","b","c","d"],"correct":1,"type":"mc"}},
 {"category":"Chem","title":"No correct","content":"x","quiz":{"question":"?","options":["a","b","c","d"]}}
]}
Viel Spaß!`

func TestParse(t *testing.T) {
	items, dropped, err := Parse(goodOutput)
	if err != nil {
		t.Fatalf("Parse()=%v", err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.Title)
		if it.Source != types.SourceAI {
			t.Fatalf("%q source=%q", it.Title, it.Source)
		}
	}
	if diff := cmp.Diff([]string{"Venus day", "Octopus hearts"}, got); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if dropped != 4 {
		t.Fatalf("dropped=%d, want 4", dropped)
	}
	if items[0].Quiz.Kind != types.QuizTrueFalse || items[1].Quiz.Kind != types.QuizMultipleChoice {
		t.Fatalf("kinds=%q,%q", items[0].Quiz.Kind, items[1].Quiz.Kind)
	}
}

func TestParseErrors(t *testing.T) {
	if _, _, err := Parse("sorry, I can't"); !errors.Is(err, ErrNoFacts) {
		t.Fatalf("Parse(no json)=%v, want ErrNoFacts", err)
	}
	if _, _, err := Parse(`{"facts":[{"title":"only"}]}`); !errors.Is(err, ErrNoValidFacts) {
		t.Fatalf("Parse(invalid facts)=%v, want ErrNoValidFacts", err)
	}
}

func TestQuizKindInference(t *testing.T) {
	cases := []struct {
		raw  string
		n    int
		want types.QuizKind
	}{
		{"", 2, types.QuizTrueFalse},
		{"", 4, types.QuizMultipleChoice},
		{"True/False", 2, types.QuizTrueFalse},
		{"multiple-choice", 4, types.QuizMultipleChoice},
	}
	for _, tc := range cases {
		if got := quizKind(tc.raw, tc.n); got != tc.want {
			t.Fatalf("quizKind(%q,%d)=%q, want %q", tc.raw, tc.n, got, tc.want)
		}
	}
}

func TestProduce(t *testing.T) {
	gen := aitest.NewGenerator(aitest.Text(goodOutput))
	g, err := New(logger.Nop(), gen, "test-model", "test")
	if err != nil {
		t.Fatalf("New()=%v", err)
	}
	items, err := g.Produce(context.Background(), types.GenerationRequest{Language: "en", Interests: "Space"}, 1)
	if err != nil {
		t.Fatalf("Produce()=%v", err)
	}
	if len(items) != 1 || items[0].Title != "Venus day" {
		t.Fatalf("Produce() items=%v", items)
	}
	prompts := gen.Prompts()
	if len(prompts) != 1 || !strings.Contains(prompts[0], "Create exactly 1 short learning facts") || !strings.Contains(prompts[0], "Interests: Space") {
		t.Fatalf("unexpected prompt: %q", prompts)
	}
	opts := gen.Options()[0]
	if opts.Temperature == nil || *opts.Temperature != defaultTemperature || opts.SystemPrompt == "" {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestProduceFailures(t *testing.T) {
	for name, gen := range map[string]*aitest.Generator{
		"transport": aitest.NewGenerator(aitest.Fail()),
		"shape":     aitest.NewGenerator(aitest.Text("not json at all")),
		"blank":     aitest.NewGenerator(aitest.Text("   ")),
	} {
		t.Run(name, func(t *testing.T) {
			g, _ := New(logger.Nop(), gen, "", "test")
			items, err := g.Produce(context.Background(), types.GenerationRequest{}, 3)
			if err == nil || items != nil {
				t.Fatalf("Produce()=%v,%v want error", items, err)
			}
		})
	}
}

func TestProduceRecoversPanics(t *testing.T) {
	g, _ := New(logger.Nop(), aitest.Panicking{}, "", "test")
	if _, err := g.Produce(context.Background(), types.GenerationRequest{}, 2); err == nil {
		t.Fatalf("expected error from panicking generator")
	}
}
