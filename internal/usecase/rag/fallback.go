package rag

import "github.com/kailas-cloud/ragquery/internal/domain/answer"

// Decide returns a fallback when confidence is below minConfidence, otherwise the answer.
func Decide(
	confidence, minConfidence float64,
	response string, sources []answer.Source,
	t answer.Timings, llm answer.LLMInfo,
) answer.Result {
	if confidence < minConfidence {
		return answer.NewFallback(confidence, sources, t,
			answer.LowConfidenceWarning(confidence, minConfidence), llm)
	}
	return answer.NewAnswer(response, confidence, sources, t, llm)
}
