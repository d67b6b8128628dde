package feed

import "strings"

const (
	MinRoastLevel     = 0
	MaxRoastLevel     = 5
	DefaultRoastLevel = 3
)

// Persona is the tone bundle passed into feedback prompts.
type Persona struct {
	Name       string `json:"name"`
	RoastLevel int    `json:"roast_level"`
	Language   string `json:"language"`
}

func (p Persona) WithDefaults() Persona {
	if strings.TrimSpace(p.Language) == "" {
		p.Language = DefaultLanguage
	}
	if strings.TrimSpace(p.Name) == "" {
		if LanguageBase(p.Language) == "de" {
			p.Name = "du"
		} else {
			p.Name = "you"
		}
	}
	if p.RoastLevel < MinRoastLevel {
		p.RoastLevel = MinRoastLevel
	}
	if p.RoastLevel > MaxRoastLevel {
		p.RoastLevel = MaxRoastLevel
	}
	return p
}

func (p Persona) German() bool {
	return LanguageBase(p.WithDefaults().Language) == "de"
}
