package rag

import (
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragquery/internal/domain/answer"
	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

const citationOpen = "[SOURCE"

// Citations is the result of scanning generated text for [SOURCE ...] markers.
type Citations struct {
	// Indices is the union of every cited source number.
	Indices map[int]struct{}
	// Dropped lists non-empty entries that were not unsigned decimal numbers.
	Dropped []string
}

// Has reports whether source n was cited.
func (c Citations) Has(n int) bool {
	_, ok := c.Indices[n]
	return ok
}

// ParseCitations extracts source numbers from "[SOURCE n]" and "[SOURCE n, m, ...]"
// markers in a single pass. A marker needs whitespace after "SOURCE" and a closing
// bracket before any other opening bracket.
func ParseCitations(text string) Citations {
	out := Citations{Indices: make(map[int]struct{})}

	rest := text
	for {
		i := strings.Index(rest, citationOpen)
		if i < 0 {
			return out
		}
		rest = rest[i+len(citationOpen):]

		if rest == "" || !isSpace(rest[0]) {
			continue
		}

		end := strings.IndexAny(rest, "[]")
		if end < 0 {
			return out
		}
		if rest[end] == '[' {
			rest = rest[end:]
			continue
		}

		body := rest[:end]
		rest = rest[end+1:]
		for _, tok := range strings.Split(body, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			n, err := strconv.Atoi(tok)
			if err != nil || !isDigits(tok) {
				out.Dropped = append(out.Dropped, tok)
				continue
			}
			out.Indices[n] = struct{}{}
		}
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// Verify marks each final chunk as cited when its position appears in text.
func Verify(text string, chunks []passage.Final) ([]answer.Source, Citations) {
	found := ParseCitations(text)
	sources := make([]answer.Source, len(chunks))
	for i, c := range chunks {
		sources[i] = answer.NewSource(c, found.Has(c.Position()))
	}
	return sources, found
}
