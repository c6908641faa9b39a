package presentation

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxStatusRunes bounds status text taken from the content.
const MaxStatusRunes = 160

// TextSanitizer turns content-supplied strings into plain status text.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer strips all markup.
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize removes tags, decodes entities, collapses whitespace and
// truncates to MaxStatusRunes.
func (s *TextSanitizer) Sanitize(raw string) string {
	text := html.UnescapeString(s.policy.Sanitize(raw))
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= MaxStatusRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxStatusRunes-1]) + "…"
}
