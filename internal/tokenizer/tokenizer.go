// Package tokenizer counts prompt tokens with tiktoken BPE encodings.
package tokenizer

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is used when the generation model is unknown to tiktoken.
const DefaultEncoding = "cl100k_base"

// Tiktoken counts tokens with a BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// New resolves the encoding by model name first, then by encoding name.
func New(name string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("tokenizer: load encoding %q: %w", name, err)
		}
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the number of BPE tokens in text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Estimate approximates token counts at four runes per token. It is used when
// BPE ranks cannot be loaded (offline hosts).
type Estimate struct{}

// Count returns ceil(runes/4).
func (Estimate) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// Counter is satisfied by Tiktoken and Estimate.
type Counter interface {
	Count(text string) int
}

// NewOrEstimate returns a Tiktoken counter, or Estimate with the load error.
func NewOrEstimate(name string) (Counter, error) {
	t, err := New(name)
	if err == nil {
		return t, nil
	}
	if name != DefaultEncoding {
		if t, derr := New(DefaultEncoding); derr == nil {
			return t, nil
		}
	}
	return Estimate{}, err
}
