// Package synth derives a low-quality but always-available multiple-choice
// quiz from raw source text, for when the AI path produced nothing usable.
package synth

import (
	"math/rand/v2"
	"strings"
	"unicode/utf8"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
)

const (
	MinSentenceRunes = 20
	MaxItems         = 5
	OptionsPerItem   = 4
)

type phrases struct {
	question string
	fillers  []string
}

var byLanguage = map[string]phrases{
	"de": {
		question: "Was steht im Lehrstoff?",
		fillers:  []string{"Nicht genannt", "Keine der Antworten", "Steht nicht im Text"},
	},
	"en": {
		question: "What does the material say?",
		fillers:  []string{"Not mentioned", "None of the above", "Not in the material"},
	},
}

func phrasesFor(language string) phrases {
	if p, ok := byLanguage[types.LanguageBase(language)]; ok {
		return p
	}
	return byLanguage["en"]
}

// Sentences splits on runs of '.', '!' and '?', trims, drops fragments
// shorter than MinSentenceRunes and repeated sentences. Order is kept.
func Sentences(source string) []string {
	parts := strings.FieldsFunc(source, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, p := range parts {
		s := strings.Join(strings.Fields(p), " ")
		if utf8.RuneCountInString(s) < MinSentenceRunes || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Synthesize builds up to MaxItems questions whose answers are sentences of
// source. Each item has OptionsPerItem options: the answer, up to three
// other sentences, then filler options. It returns nil only when source has
// no usable sentence.
func Synthesize(source, language string) []types.MaterialQuizItem {
	pool := Sentences(source)
	if len(pool) == 0 {
		return nil
	}
	p := phrasesFor(language)
	n := min(MaxItems, len(pool))
	items := make([]types.MaterialQuizItem, 0, n)
	for i := 0; i < n; i++ {
		answer := pool[i]
		others := make([]string, 0, len(pool)-1)
		for j, s := range pool {
			if j != i {
				others = append(others, s)
			}
		}
		rand.Shuffle(len(others), func(a, b int) { others[a], others[b] = others[b], others[a] })
		if len(others) > OptionsPerItem-1 {
			others = others[:OptionsPerItem-1]
		}
		options := append([]string{answer}, others...)
		for f := 0; len(options) < OptionsPerItem && f < len(p.fillers); f++ {
			options = append(options, p.fillers[f])
		}
		rand.Shuffle(len(options), func(a, b int) { options[a], options[b] = options[b], options[a] })
		items = append(items, types.MaterialQuizItem{
			Question: p.question,
			Answer:   answer,
			Options:  options,
		})
	}
	return items
}
