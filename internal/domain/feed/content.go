package feed

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidItem = errors.New("invalid content item")

type QuizKind string

const (
	QuizMultipleChoice QuizKind = "mc"
	QuizTrueFalse      QuizKind = "tf"
)

type ContentSource string

const (
	SourceAI       ContentSource = "ai"
	SourceFallback ContentSource = "fallback"
)

// QuizSpec is the quiz attached to a feed fact. Correct indexes Options.
type QuizSpec struct {
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
	Correct  int      `json:"correct" yaml:"correct"`
	Kind     QuizKind `json:"type" yaml:"type"`
}

func (q QuizSpec) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: quiz question empty", ErrInvalidItem)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: quiz needs at least 2 options, got %d", ErrInvalidItem, len(q.Options))
	}
	for i, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("%w: quiz option %d empty", ErrInvalidItem, i)
		}
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("%w: correct index %d out of range (0-%d)", ErrInvalidItem, q.Correct, len(q.Options)-1)
	}
	switch q.Kind {
	case QuizMultipleChoice:
	case QuizTrueFalse:
		if len(q.Options) != 2 {
			return fmt.Errorf("%w: true/false quiz needs exactly 2 options", ErrInvalidItem)
		}
	default:
		return fmt.Errorf("%w: unknown quiz type %q", ErrInvalidItem, q.Kind)
	}
	return nil
}

// IsCorrect reports whether option idx is the right answer. Out of range
// indexes are simply wrong.
func (q QuizSpec) IsCorrect(idx int) bool {
	return idx >= 0 && idx < len(q.Options) && idx == q.Correct
}

func (q QuizSpec) Option(idx int) string {
	if idx < 0 || idx >= len(q.Options) {
		return ""
	}
	return q.Options[idx]
}

func (q QuizSpec) Clone() QuizSpec {
	q.Options = append([]string(nil), q.Options...)
	return q
}

// ContentItem is one feed fact. Title is its identity within a session.
type ContentItem struct {
	Category string        `json:"category" yaml:"category"`
	Title    string        `json:"title" yaml:"title"`
	Content  string        `json:"content" yaml:"content"`
	Quiz     QuizSpec      `json:"quiz" yaml:"quiz"`
	Source   ContentSource `json:"source,omitempty" yaml:"-"`
}

func (c ContentItem) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: title empty", ErrInvalidItem)
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("%w: content empty", ErrInvalidItem)
	}
	return c.Quiz.Validate()
}

// Key is the dedup identity of the item.
func (c ContentItem) Key() string {
	return TitleKey(c.Title)
}

func (c ContentItem) Clone() ContentItem {
	c.Quiz = c.Quiz.Clone()
	return c
}

func TitleKey(title string) string {
	return strings.TrimSpace(title)
}

func CloneItems(items []ContentItem) []ContentItem {
	if items == nil {
		return nil
	}
	out := make([]ContentItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
