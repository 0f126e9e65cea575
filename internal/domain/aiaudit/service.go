package aiaudit

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service records audit facts and serves them back for compliance review.
// Persistence is observational: a failed insert is logged and swallowed so it
// can never mask or distort the outcome of the operation being audited.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record builds a record from the operation and persists it. It is called on
// every pipeline exit path, including denials and cancellations; a cancelled
// request context must not take the audit write down with it, so the insert
// runs detached from the caller's cancellation.
func (s *Service) Record(ctx context.Context, op Operation) {
	rec := NewRecord(op)

	if err := s.repo.Insert(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Error().Err(err).
			Str("actor", rec.Actor).
			Str("action", rec.Action).
			Str("outcome", rec.Outcome).
			Msg("audit record insert failed")
	}

	evt := s.logger.Info()
	if rec.Outcome == OutcomeFailure {
		evt = s.logger.Warn()
	}
	evt.
		Str("type", "ai_summary_audit").
		Str("actor", rec.Actor).
		Str("action", rec.Action).
		Str("model", rec.Model).
		Str("outcome", rec.Outcome).
		Int64("duration_ms", rec.DurationMs).
		Msg("ai summarization audited")
}

func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) SearchRecords(ctx context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
