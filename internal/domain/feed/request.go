package feed

import "strings"

const (
	DefaultGrade     = "8"
	DefaultLanguage  = "de"
	DefaultInterests = "Wissenschaft, Kurioses"
)

// GenerationRequest parameterizes prompt construction and fallback
// selection. It is passed by value and never modified downstream.
type GenerationRequest struct {
	Grade     string `json:"grade"`
	Interests string `json:"interests"`
	Language  string `json:"language"`
	Count     int    `json:"count,omitempty"`
}

// WithDefaults fills blank fields and returns the copy.
func (r GenerationRequest) WithDefaults() GenerationRequest {
	if strings.TrimSpace(r.Grade) == "" {
		r.Grade = DefaultGrade
	}
	if strings.TrimSpace(r.Language) == "" {
		r.Language = DefaultLanguage
	}
	if strings.TrimSpace(r.Interests) == "" {
		r.Interests = DefaultInterests
	}
	return r
}

// Signature identifies the parameter set a buffer is filled for. Count is
// not part of it: asking for more items must not split the queue.
func (r GenerationRequest) Signature() string {
	r = r.WithDefaults()
	norm := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), " "))
	}
	return norm(r.Grade) + "|" + norm(r.Interests) + "|" + norm(r.Language)
}

// LanguageBase returns the primary subtag, e.g. "de" for "de-AT".
func (r GenerationRequest) LanguageBase() string {
	return LanguageBase(r.WithDefaults().Language)
}

func LanguageBase(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	switch lang {
	case "deutsch", "german":
		return "de"
	case "englisch", "english":
		return "en"
	}
	return lang
}
