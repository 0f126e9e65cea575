// Package ainote runs the PHI-safe summarization pipeline: authorize, redact,
// generate, re-identify, audit. Scrubbed text is the only thing that ever
// crosses the model gateway, and every invocation leaves exactly one audit
// record behind regardless of how it ends.
package ainote

import (
	"time"

	"github.com/google/uuid"

	"github.com/scrubnote/scrubnote/internal/domain/deident"
)

// PromptBuilder turns scrubbed text into the prompt and system instructions
// for the model. It receives scrubbed text only.
type PromptBuilder func(scrubbedText string) (prompt, system string)

// DefaultPromptBuilder produces a summarization prompt that instructs the
// model to keep placeholder tokens verbatim so they survive into the output
// for re-identification.
func DefaultPromptBuilder(scrubbedText string) (string, string) {
	system := "You are a clinical documentation assistant. Summarize clinical notes " +
		"concisely and factually. Bracketed tokens such as [[NAME-1]] are placeholders; " +
		"reproduce them exactly as written, never alter or expand them."
	prompt := "Summarize the following clinical note:\n\n" + scrubbedText
	return prompt, system
}

// SummaryRequest is one summarization call. Identifiers are borrowed read-only
// and never retained past the call.
type SummaryRequest struct {
	SourceText  string
	Identifiers deident.PatientIdentifiers
	PatientID   *uuid.UUID
	Actor       string
	ActorRole   string
	Prompt      PromptBuilder // nil means DefaultPromptBuilder
}

// SummaryResult is the re-identified summary plus reporting metadata.
// ElementsProtected counts the distinct identifier values actually found and
// removed; it is a reportable metric, not a security property.
type SummaryResult struct {
	Summary           string
	ElementsProtected int
	Duration          time.Duration
}
