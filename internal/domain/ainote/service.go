package ainote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrubnote/scrubnote/internal/domain/aiaudit"
	"github.com/scrubnote/scrubnote/internal/domain/deident"
	"github.com/scrubnote/scrubnote/internal/platform/auth"
)

var (
	// ErrNotAuthorized means the actor's role is not permitted to request
	// AI summaries. Authorization is checked before any PHI processing.
	ErrNotAuthorized = errors.New("role not authorized for ai summary")

	// ErrEmptySource means the note text was empty or whitespace only.
	ErrEmptySource = errors.New("source text is empty")

	// ErrGeneration wraps model gateway failures.
	ErrGeneration = errors.New("model generation failed")
)

// Generator produces text from a scrubbed prompt. Satisfied by llm.Client.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}

// Recorder persists one audit record per pipeline invocation. Satisfied by
// aiaudit.Service.
type Recorder interface {
	Record(ctx context.Context, op aiaudit.Operation)
}

// Service orchestrates the de-identification pipeline. The redaction mapping
// is scoped to a single Summarize call and is discarded when it returns.
type Service struct {
	authz  auth.Authorizer
	gen    Generator
	audit  Recorder
	model  string
	logger zerolog.Logger
}

func NewService(authz auth.Authorizer, gen Generator, audit Recorder, model string, logger zerolog.Logger) *Service {
	return &Service{authz: authz, gen: gen, audit: audit, model: model, logger: logger}
}

// Summarize runs the full pipeline for one note. On every exit path exactly
// one audit record is emitted. Raw source text never reaches the generator
// and the mapping never leaves this call.
func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (*SummaryResult, error) {
	start := time.Now()

	if !s.authz.IsAuthorized(req.ActorRole, auth.FeatureAISummary) {
		s.audit.Record(ctx, aiaudit.Operation{
			Actor:     req.Actor,
			ActorRole: req.ActorRole,
			PatientID: req.PatientID,
			Action:    aiaudit.ActionDenied,
			Model:     s.model,
			Duration:  time.Since(start),
			Err:       ErrNotAuthorized,
		})
		return nil, ErrNotAuthorized
	}

	if strings.TrimSpace(req.SourceText) == "" {
		s.audit.Record(ctx, aiaudit.Operation{
			Actor:     req.Actor,
			ActorRole: req.ActorRole,
			PatientID: req.PatientID,
			Model:     s.model,
			Duration:  time.Since(start),
			Err:       ErrEmptySource,
		})
		return nil, ErrEmptySource
	}

	scrub := deident.Redact(req.SourceText, req.Identifiers)

	// Fail closed: if any identifier survives scrubbing, nothing goes to
	// the model. No excerpts are recorded because the text is not PHI-free.
	if err := deident.VerifyScrubbed(scrub.ScrubbedText, req.Identifiers); err != nil {
		s.logger.Error().Err(err).Msg("scrub verification failed, aborting before model call")
		s.audit.Record(ctx, aiaudit.Operation{
			Actor:     req.Actor,
			ActorRole: req.ActorRole,
			PatientID: req.PatientID,
			Model:     s.model,
			Duration:  time.Since(start),
			Err:       err,
		})
		return nil, fmt.Errorf("de-identification check: %w", err)
	}

	builder := req.Prompt
	if builder == nil {
		builder = DefaultPromptBuilder
	}
	prompt, system := builder(scrub.ScrubbedText)

	output, err := s.gen.Generate(ctx, prompt, system)
	if err != nil {
		s.audit.Record(ctx, aiaudit.Operation{
			Actor:         req.Actor,
			ActorRole:     req.ActorRole,
			PatientID:     req.PatientID,
			Model:         s.model,
			ScrubbedInput: scrub.ScrubbedText,
			Duration:      time.Since(start),
			Err:           err,
		})
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	final := deident.Reidentify(output, scrub.Mapping)

	s.audit.Record(ctx, aiaudit.Operation{
		Actor:          req.Actor,
		ActorRole:      req.ActorRole,
		PatientID:      req.PatientID,
		Action:         aiaudit.ActionSummarize,
		Model:          s.model,
		ScrubbedInput:  scrub.ScrubbedText,
		ScrubbedOutput: output,
		Duration:       time.Since(start),
	})

	return &SummaryResult{
		Summary:           final,
		ElementsProtected: len(scrub.Mapping),
		Duration:          time.Since(start),
	}, nil
}
