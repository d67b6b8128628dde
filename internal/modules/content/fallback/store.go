// Package fallback is the static, hand-authored feed content that renders
// with no network dependency.
package fallback

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/fynix-backend/internal/domain/feed"
)

//go:embed items.yaml
var embedded []byte

var ErrEmpty = errors.New("fallback store has no items")

// Store holds validated fallback items per language. It is read-only after
// construction and safe for concurrent use.
type Store struct {
	byLang map[string][]types.ContentItem
	langs  []string
}

// Default returns the embedded store.
func Default() (*Store, error) {
	return Parse(embedded)
}

// FromFile loads an override file, e.g. FALLBACK_CONTENT_PATH.
func FromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fallback content: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Store, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fallback content: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Store, error) {
	var doc map[string][]types.ContentItem
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fallback content: %w", err)
	}
	s := &Store{byLang: make(map[string][]types.ContentItem, len(doc))}
	for lang, items := range doc {
		lang = types.LanguageBase(lang)
		if lang == "" || len(items) == 0 {
			continue
		}
		seen := make(map[string]bool, len(items))
		for i := range items {
			items[i].Source = types.SourceFallback
			if err := items[i].Validate(); err != nil {
				return nil, fmt.Errorf("fallback %s[%d]: %w", lang, i, err)
			}
			key := items[i].Key()
			if seen[key] {
				return nil, fmt.Errorf("fallback %s[%d]: duplicate title %q", lang, i, key)
			}
			seen[key] = true
		}
		s.byLang[lang] = items
		s.langs = append(s.langs, lang)
	}
	if len(s.byLang) == 0 {
		return nil, ErrEmpty
	}
	sort.Strings(s.langs)
	return s, nil
}

// Languages lists the languages with content.
func (s *Store) Languages() []string {
	return append([]string(nil), s.langs...)
}

// Items returns a copy of the set for lang. Unknown languages get English,
// then German, then whatever exists.
func (s *Store) Items(lang string) []types.ContentItem {
	return types.CloneItems(s.pick(lang))
}

func (s *Store) Len(lang string) int {
	return len(s.pick(lang))
}

// At returns the item at position i (modulo the set size) for lang.
func (s *Store) At(lang string, i uint64) types.ContentItem {
	set := s.pick(lang)
	return set[i%uint64(len(set))].Clone()
}

func (s *Store) pick(lang string) []types.ContentItem {
	for _, l := range []string{types.LanguageBase(lang), "en", types.DefaultLanguage} {
		if set, ok := s.byLang[strings.TrimSpace(l)]; ok {
			return set
		}
	}
	return s.byLang[s.langs[0]]
}
