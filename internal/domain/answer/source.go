package answer

import (
	"unicode/utf8"

	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// ExcerptLength is the number of characters of chunk text kept in a source excerpt.
const ExcerptLength = 200

// Source is a final chunk annotated with its citation status.
type Source struct {
	passage.Final
	cited   bool
	excerpt string
}

// NewSource annotates a final chunk.
func NewSource(f passage.Final, cited bool) Source {
	return Source{Final: f, cited: cited, excerpt: Excerpt(f.Text())}
}

// SourceID returns the 1-based source number used in citations.
func (s Source) SourceID() int { return s.Position() }

// Cited reports whether the generated answer referenced this source.
func (s Source) Cited() bool { return s.cited }

// Excerpt returns the shortened chunk text.
func (s Source) Excerpt() string { return s.excerpt }

// Excerpt returns the first ExcerptLength characters of text followed by an ellipsis.
func Excerpt(text string) string {
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text + "..."
	}
	return string([]rune(text)[:ExcerptLength]) + "..."
}
