package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
	"github.com/meetdshah26/backend-chatbot/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", baseURL)
	t.Setenv("OPENAI_MAX_RETRIES", "1")

	c, err := NewClient(mustTestLogger(t))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func completionBody(content string) string {
	return `{"choices":[{"message":{"role":"assistant","content":"` + content + `"}}]}`
}

func TestCompleteSendsSystemPromptFirst(t *testing.T) {
	var got chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(completionBody("hello")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	reply, err := c.Complete(context.Background(), "be nice", []Turn{{Role: "user", Content: "hi"}}, CompletionOptions{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "hello" {
		t.Fatalf("reply = %q", reply)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[0].Content != "be nice" {
		t.Fatalf("first message = %+v", got.Messages[0])
	}
	if got.Model == "" {
		t.Fatalf("model not defaulted")
	}
}

func TestCompleteRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Complete(context.Background(), "", []Turn{{Role: "user", Content: "hi"}}, CompletionOptions{})
	if !errors.Is(err, apperrors.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestCompleteRetriesServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(completionBody("second try")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	reply, err := c.Complete(context.Background(), "", []Turn{{Role: "user", Content: "hi"}}, CompletionOptions{})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "second try" {
		t.Fatalf("reply = %q", reply)
	}
	if hits.Load() != 2 {
		t.Fatalf("hits = %d, want 2", hits.Load())
	}
}

func TestCompleteNoRetryOnClientError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Complete(context.Background(), "", []Turn{{Role: "user", Content: "hi"}}, CompletionOptions{}); err == nil {
		t.Fatalf("expected error")
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Complete(context.Background(), "", []Turn{{Role: "user", Content: "hi"}}, CompletionOptions{}); err == nil {
		t.Fatalf("expected error on empty choices")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(mustTestLogger(t)); err == nil {
		t.Fatalf("expected error without api key")
	}
}
