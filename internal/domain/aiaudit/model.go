// Package aiaudit builds and persists the compliance audit trail for AI
// summarization operations. Records describe who ran what against which
// patient and how it ended, using only de-identified excerpts; no raw
// identifier value ever reaches this package.
package aiaudit

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"

	ActionSummarize = "ai-summary"
	ActionDenied    = "denied"

	ModuleAISummary = "ai-summary"
)

// MaxExcerptLen bounds the stored input/output excerpts.
const MaxExcerptLen = 500

// Record is one persisted audit fact. Created once per pipeline invocation,
// never mutated afterwards.
type Record struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	Actor         string     `db:"actor" json:"actor"`
	ActorRole     string     `db:"actor_role" json:"actor_role"`
	PatientID     *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	Module        string     `db:"module" json:"module"`
	Action        string     `db:"action" json:"action"`
	Model         string     `db:"model" json:"model"`
	InputExcerpt  string     `db:"input_excerpt" json:"input_excerpt"`
	OutputExcerpt string     `db:"output_excerpt" json:"output_excerpt"`
	DurationMs    int64      `db:"duration_ms" json:"duration_ms"`
	Outcome       string     `db:"outcome" json:"outcome"`
	ErrorDetail   string     `db:"error_detail" json:"error_detail,omitempty"`
	Recorded      time.Time  `db:"recorded" json:"recorded"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// Operation describes one finished (or refused) pipeline invocation. The
// excerpt fields must already be de-identified: the scrubbed prompt on the way
// in, the raw model output (placeholders intact) on the way out.
type Operation struct {
	Actor          string
	ActorRole      string
	PatientID      *uuid.UUID
	Action         string
	Model          string
	ScrubbedInput  string
	ScrubbedOutput string
	Duration       time.Duration
	Err            error
}

// NewRecord constructs an audit record from an operation. It is a pure
// function: no I/O, no shared state, trivially testable with an in-memory
// store behind the service.
func NewRecord(op Operation) *Record {
	rec := &Record{
		Actor:         op.Actor,
		ActorRole:     op.ActorRole,
		PatientID:     op.PatientID,
		Module:        ModuleAISummary,
		Action:        op.Action,
		Model:         op.Model,
		InputExcerpt:  Excerpt(op.ScrubbedInput),
		OutputExcerpt: Excerpt(op.ScrubbedOutput),
		DurationMs:    op.Duration.Milliseconds(),
		Outcome:       OutcomeSuccess,
		Recorded:      time.Now().UTC(),
	}
	if rec.Action == "" {
		rec.Action = ActionSummarize
	}
	if op.Err != nil {
		rec.Outcome = OutcomeFailure
		rec.ErrorDetail = op.Err.Error()
	}
	return rec
}

// Excerpt truncates s to MaxExcerptLen without splitting a UTF-8 sequence.
func Excerpt(s string) string {
	if len(s) <= MaxExcerptLen {
		return s
	}
	cut := MaxExcerptLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
