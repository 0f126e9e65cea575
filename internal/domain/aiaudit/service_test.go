package aiaudit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockRepo struct {
	store     map[uuid.UUID]*Record
	insertErr error
}

func newMockRepo() *mockRepo { return &mockRepo{store: make(map[uuid.UUID]*Record)} }

func (m *mockRepo) Insert(_ context.Context, rec *Record) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC()
	m.store[rec.ID] = rec
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Record, error) {
	rec, ok := m.store[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Record, int, error) {
	var r []*Record
	for _, rec := range m.store {
		if v, ok := params["outcome"]; ok && rec.Outcome != v {
			continue
		}
		r = append(r, rec)
	}
	return r, len(r), nil
}

func TestNewRecord_Success(t *testing.T) {
	pid := uuid.New()
	rec := NewRecord(Operation{
		Actor:          "dr.smith",
		ActorRole:      "physician",
		PatientID:      &pid,
		Model:          "clinical-llama",
		ScrubbedInput:  "[[NAME-1]] presented with cough.",
		ScrubbedOutput: "Summary: [[NAME-1]] has a cough.",
		Duration:       1200 * time.Millisecond,
	})

	if rec.Outcome != OutcomeSuccess {
		t.Errorf("expected success outcome, got %q", rec.Outcome)
	}
	if rec.Action != ActionSummarize {
		t.Errorf("expected default action, got %q", rec.Action)
	}
	if rec.DurationMs != 1200 {
		t.Errorf("expected 1200ms, got %d", rec.DurationMs)
	}
	if rec.Recorded.IsZero() {
		t.Error("recorded timestamp not set")
	}
}

func TestNewRecord_Failure(t *testing.T) {
	rec := NewRecord(Operation{
		Actor:  "dr.smith",
		Action: ActionDenied,
		Err:    errors.New("feature not permitted for role"),
	})

	if rec.Outcome != OutcomeFailure {
		t.Errorf("expected failure outcome, got %q", rec.Outcome)
	}
	if rec.ErrorDetail == "" {
		t.Error("error detail not captured")
	}
	if rec.Action != ActionDenied {
		t.Errorf("expected denied action, got %q", rec.Action)
	}
}

func TestExcerpt_Bounded(t *testing.T) {
	long := strings.Repeat("a", 2*MaxExcerptLen)
	if got := Excerpt(long); len(got) != MaxExcerptLen {
		t.Errorf("expected %d chars, got %d", MaxExcerptLen, len(got))
	}
	short := "short text"
	if got := Excerpt(short); got != short {
		t.Errorf("short text must pass through, got %q", got)
	}
}

func TestExcerpt_NoSplitUTF8(t *testing.T) {
	long := strings.Repeat("é", MaxExcerptLen) // 2 bytes each
	got := Excerpt(long)
	if len(got) > MaxExcerptLen {
		t.Errorf("excerpt too long: %d", len(got))
	}
	if strings.ToValidUTF8(got, "") != got {
		t.Error("excerpt split a UTF-8 sequence")
	}
}

func TestRecord_PersistsAndSearchable(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	svc.Record(context.Background(), Operation{Actor: "dr.smith", Model: "clinical-llama"})
	svc.Record(context.Background(), Operation{Actor: "dr.smith", Err: errors.New("model timeout")})

	failures, total, err := svc.SearchRecords(context.Background(), map[string]string{"outcome": OutcomeFailure}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || len(failures) != 1 {
		t.Fatalf("expected 1 failure record, got %d", total)
	}
	if failures[0].ErrorDetail != "model timeout" {
		t.Errorf("unexpected detail %q", failures[0].ErrorDetail)
	}
}

func TestRecord_InsertFailureSwallowed(t *testing.T) {
	repo := newMockRepo()
	repo.insertErr = errors.New("connection refused")
	svc := NewService(repo, zerolog.Nop())

	// Must not panic or propagate; audit is observational.
	svc.Record(context.Background(), Operation{Actor: "dr.smith"})
}

func TestRecord_SurvivesCancelledContext(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Record(ctx, Operation{Actor: "dr.smith", Err: context.Canceled})

	_, total, _ := svc.SearchRecords(context.Background(), nil, 10, 0)
	if total != 1 {
		t.Fatalf("cancelled operation must still be audited, got %d records", total)
	}
}
