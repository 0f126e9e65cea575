package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{BaseURL: srv.URL, Model: "clinical-llama"}, zerolog.Nop())
	return c, srv
}

func TestGenerate_Success(t *testing.T) {
	var got chatRequest
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "summary text"}})
	})

	out, err := c.Generate(context.Background(), "summarize this", "you are a clinical scribe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "summary text" {
		t.Errorf("unexpected output %q", out)
	}
	if got.Model != "clinical-llama" || got.Stream {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "summarize this" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestGenerate_NoSystemMessage(t *testing.T) {
	var got chatRequest
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "ok"}})
	})

	if _, err := c.Generate(context.Background(), "prompt only", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestGenerate_ServerError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := c.Generate(context.Background(), "prompt", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerate_ModelError(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Error: "model not loaded"})
	})
	if _, err := c.Generate(context.Background(), "prompt", ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerate_ContextDeadline(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Content: "late"}})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Generate(ctx, "prompt", ""); err == nil {
		t.Fatal("expected deadline error")
	}
}
