package ainote

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scrubnote/scrubnote/internal/domain/aiaudit"
	"github.com/scrubnote/scrubnote/internal/domain/deident"
)

type mockAuthz struct{ allow bool }

func (m *mockAuthz) IsAuthorized(role, feature string) bool { return m.allow }

type mockGen struct {
	output string
	err    error
	calls  int
	prompt string
	system string
}

func (m *mockGen) Generate(ctx context.Context, prompt, system string) (string, error) {
	m.calls++
	m.prompt = prompt
	m.system = system
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

type mockRecorder struct{ ops []aiaudit.Operation }

func (m *mockRecorder) Record(ctx context.Context, op aiaudit.Operation) { m.ops = append(m.ops, op) }

func testIdentifiers() deident.PatientIdentifiers {
	return deident.PatientIdentifiers{
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "555-0100",
	}
}

func newTestService(gen *mockGen, rec *mockRecorder, allow bool) *Service {
	return NewService(&mockAuthz{allow: allow}, gen, rec, "llama3", zerolog.Nop())
}

// placeholderFor returns the token the mapping assigned to a category, so the
// mock model output echoes the tokens the redactor actually produced.
func placeholderFor(t *testing.T, m deident.RedactionMapping, cat deident.IdentifierCategory) string {
	t.Helper()
	for _, e := range m {
		if e.Category == cat {
			return e.Placeholder
		}
	}
	t.Fatalf("no %s entry in mapping %+v", cat, m)
	return ""
}

func TestSummarize_RoundTrip(t *testing.T) {
	src := "Jane Doe seen today. Reached at 555-0100."
	scrub := deident.Redact(src, testIdentifiers())
	gen := &mockGen{output: "Patient " + placeholderFor(t, scrub.Mapping, deident.CategoryName) +
		" is stable. Follow up by phone at " + placeholderFor(t, scrub.Mapping, deident.CategoryPhone) + "."}
	rec := &mockRecorder{}
	svc := newTestService(gen, rec, true)

	pid := uuid.New()
	result, err := svc.Summarize(context.Background(), SummaryRequest{
		SourceText:  src,
		Identifiers: testIdentifiers(),
		PatientID:   &pid,
		Actor:       "dr-smith",
		ActorRole:   "physician",
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if !strings.Contains(result.Summary, "Jane") {
		t.Errorf("summary should be re-identified, got %q", result.Summary)
	}
	if !strings.Contains(result.Summary, "555-0100") {
		t.Errorf("phone not restored in %q", result.Summary)
	}
	if strings.Contains(result.Summary, "[[") {
		t.Errorf("placeholder left in summary %q", result.Summary)
	}
	if result.ElementsProtected != 3 {
		t.Errorf("ElementsProtected = %d, want 3", result.ElementsProtected)
	}

	if gen.calls != 1 {
		t.Fatalf("generator called %d times", gen.calls)
	}
	for _, phi := range []string{"Jane", "Doe", "555-0100"} {
		if strings.Contains(gen.prompt, phi) {
			t.Errorf("prompt sent to model contains %q", phi)
		}
	}
	if gen.system == "" {
		t.Error("default prompt builder should set a system message")
	}

	if len(rec.ops) != 1 {
		t.Fatalf("audit ops = %d, want 1", len(rec.ops))
	}
	op := rec.ops[0]
	if op.Err != nil {
		t.Errorf("success op carries error %v", op.Err)
	}
	if op.Action != aiaudit.ActionSummarize {
		t.Errorf("action = %q", op.Action)
	}
	if strings.Contains(op.ScrubbedInput, "Jane") || strings.Contains(op.ScrubbedOutput, "Jane") {
		t.Error("audit operation carries PHI")
	}
	if op.PatientID == nil || *op.PatientID != pid {
		t.Error("patient id not propagated to audit")
	}
}

func TestSummarize_Denied(t *testing.T) {
	gen := &mockGen{output: "anything"}
	rec := &mockRecorder{}
	svc := newTestService(gen, rec, false)

	_, err := svc.Summarize(context.Background(), SummaryRequest{
		SourceText:  "Jane Doe seen today.",
		Identifiers: testIdentifiers(),
		Actor:       "clerk-1",
		ActorRole:   "clerk",
	})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("err = %v, want ErrNotAuthorized", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called on denial")
	}
	if len(rec.ops) != 1 {
		t.Fatalf("audit ops = %d, want 1", len(rec.ops))
	}
	op := rec.ops[0]
	if op.Action != aiaudit.ActionDenied {
		t.Errorf("action = %q, want denied", op.Action)
	}
	if op.ScrubbedInput != "" {
		t.Error("denied op must not carry input text")
	}
}

func TestSummarize_EmptySource(t *testing.T) {
	gen := &mockGen{}
	rec := &mockRecorder{}
	svc := newTestService(gen, rec, true)

	_, err := svc.Summarize(context.Background(), SummaryRequest{
		SourceText:  "   \n ",
		Identifiers: testIdentifiers(),
		ActorRole:   "physician",
	})
	if !errors.Is(err, ErrEmptySource) {
		t.Fatalf("err = %v, want ErrEmptySource", err)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called for empty input")
	}
	if len(rec.ops) != 1 {
		t.Fatalf("audit ops = %d, want 1", len(rec.ops))
	}
}

func TestSummarize_GeneratorFailure(t *testing.T) {
	genErr := errors.New("connection refused")
	gen := &mockGen{err: genErr}
	rec := &mockRecorder{}
	svc := newTestService(gen, rec, true)

	_, err := svc.Summarize(context.Background(), SummaryRequest{
		SourceText:  "Jane Doe seen today.",
		Identifiers: testIdentifiers(),
		ActorRole:   "physician",
	})
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("err = %v, want ErrGeneration", err)
	}
	if !errors.Is(err, genErr) {
		t.Errorf("underlying cause not wrapped: %v", err)
	}
	if len(rec.ops) != 1 {
		t.Fatalf("audit ops = %d, want 1", len(rec.ops))
	}
	op := rec.ops[0]
	if op.Err == nil {
		t.Error("failure op missing error")
	}
	if op.ScrubbedInput == "" {
		t.Error("failure after scrubbing should still record scrubbed input")
	}
	if strings.Contains(op.ScrubbedInput, "Jane") {
		t.Error("audit operation carries PHI")
	}
}

func TestSummarize_CustomPromptBuilder(t *testing.T) {
	gen := &mockGen{output: "ok"}
	rec := &mockRecorder{}
	svc := newTestService(gen, rec, true)

	_, err := svc.Summarize(context.Background(), SummaryRequest{
		SourceText:  "Jane Doe seen today.",
		Identifiers: testIdentifiers(),
		ActorRole:   "physician",
		Prompt: func(scrubbed string) (string, string) {
			return "TLDR: " + scrubbed, ""
		},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !strings.HasPrefix(gen.prompt, "TLDR: ") {
		t.Errorf("custom builder not used, prompt %q", gen.prompt)
	}
	if gen.system != "" {
		t.Errorf("system = %q, want empty", gen.system)
	}
}

func TestDefaultPromptBuilder_MentionsPlaceholders(t *testing.T) {
	prompt, system := DefaultPromptBuilder("note [[NAME-1]]")
	if !strings.Contains(prompt, "note [[NAME-1]]") {
		t.Error("prompt must embed the scrubbed text")
	}
	if !strings.Contains(system, "placeholder") {
		t.Error("system message should instruct the model to preserve placeholders")
	}
}
