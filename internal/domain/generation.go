package domain

// Diagnostic texts returned in place of a model answer when generation fails.
const (
	DiagnosticUpstreamStatus = "Error: Could not get a response from the language model."
	DiagnosticUnexpected     = "Error: An unexpected error occurred while communicating with the language model."
)

// FailureKind classifies why a generation call produced no model output.
type FailureKind string

const (
	// FailureNone marks a successful completion.
	FailureNone FailureKind = ""
	// FailureUpstreamStatus is a non-2xx response from the model server.
	FailureUpstreamStatus FailureKind = "upstream_status"
	// FailureTransport is a network-level error.
	FailureTransport FailureKind = "transport"
	// FailureTimeout is an expired generation deadline.
	FailureTimeout FailureKind = "timeout"
	// FailureMalformed is a response without usable choices.
	FailureMalformed FailureKind = "malformed"
)

// Completion is the outcome of one generation call. It always carries text:
// the model output on success, a fixed diagnostic sentence on failure.
type Completion struct {
	Text             string
	Failure          FailureKind
	PromptTokens     int
	CompletionTokens int
}

// Completed builds a successful completion.
func Completed(text string, promptTokens, completionTokens int) Completion {
	return Completion{Text: text, PromptTokens: promptTokens, CompletionTokens: completionTokens}
}

// Failed builds a failed completion with the diagnostic text for kind.
func Failed(kind FailureKind) Completion {
	text := DiagnosticUnexpected
	if kind == FailureUpstreamStatus {
		text = DiagnosticUpstreamStatus
	}
	return Completion{Text: text, Failure: kind}
}

// OK reports whether the model produced the text.
func (c Completion) OK() bool { return c.Failure == FailureNone }
