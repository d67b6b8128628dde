package feed

import (
	"fmt"
	"strings"
)

// MaterialQuizItem is a question generated from user material. Answer is
// the literal text of the correct option.
type MaterialQuizItem struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Options  []string `json:"options"`
}

func (m MaterialQuizItem) Validate() error {
	if strings.TrimSpace(m.Question) == "" {
		return fmt.Errorf("%w: question empty", ErrInvalidItem)
	}
	if strings.TrimSpace(m.Answer) == "" {
		return fmt.Errorf("%w: answer empty", ErrInvalidItem)
	}
	if len(m.Options) < 2 {
		return fmt.Errorf("%w: need at least 2 options, got %d", ErrInvalidItem, len(m.Options))
	}
	if m.AnswerIndex() < 0 {
		return fmt.Errorf("%w: answer %q not among options", ErrInvalidItem, m.Answer)
	}
	return nil
}

// AnswerIndex is the position of Answer in Options, or -1.
func (m MaterialQuizItem) AnswerIndex() int {
	for i, o := range m.Options {
		if o == m.Answer {
			return i
		}
	}
	return -1
}

func (m MaterialQuizItem) IsCorrect(idx int) bool {
	return idx >= 0 && idx < len(m.Options) && m.Options[idx] == m.Answer
}

func (m MaterialQuizItem) Option(idx int) string {
	if idx < 0 || idx >= len(m.Options) {
		return ""
	}
	return m.Options[idx]
}

func (m MaterialQuizItem) Clone() MaterialQuizItem {
	m.Options = append([]string(nil), m.Options...)
	return m
}
