package rag

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragquery/internal/domain/passage"
)

// NotFoundAnswer is the exact reply the model must give when no source answers the question.
const NotFoundAnswer = "Information not found in the provided sources."

const sourceDelimiter = "\n\n---\n\n"

const promptHeader = `You answer questions about technical documentation using ONLY the sources below.

RULES
1. Do not invent anything. Every statement must come from the PROVIDED SOURCES.
2. Cite every sentence. End each sentence with a marker such as [SOURCE 1] or [SOURCE 1, 2].
3. Paraphrase. Explain in your own words instead of copying passages; code examples must follow the sources.
4. If the sources contain nothing that answers the question, reply with exactly this sentence and nothing else: "` + NotFoundAnswer + `"

EXAMPLE
Question: How do I open a read-only transaction?
Answer: Pass the read-only option when beginning the transaction [SOURCE 2]. Writes inside it fail with a permission error [SOURCE 1, 3].
`

// BuildPrompt renders the question and the numbered sources. The block order
// fixes the N of every [SOURCE N].
func BuildPrompt(query string, chunks []passage.Final) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\nQUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nPROVIDED SOURCES:\n---\n")
	b.WriteString(RenderSources(chunks))
	b.WriteString("\n---\n\nANSWER (with citations):")
	return b.String()
}

// RenderSources renders the context section alone.
func RenderSources(chunks []passage.Final) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf("[SOURCE %d] (Title: %s, URL: %s)\n%s",
			c.Position(), orUnknown(c.Title()), orUnknown(c.URL()), c.Text())
	}
	return strings.Join(blocks, sourceDelimiter)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
