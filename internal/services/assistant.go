package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/meetdshah26/backend-chatbot/internal/apperrors"
	"github.com/meetdshah26/backend-chatbot/internal/clients/openai"
	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/repos"
	"github.com/meetdshah26/backend-chatbot/internal/types"
)

const (
	// conversationWindow caps the rolling history sent to the model,
	// counted in turns. The system prompt rides on top of this.
	conversationWindow = 20

	fallbackRateLimited = "I'm experiencing high traffic right now. Please try again in a moment."
	fallbackGeneric     = "I apologize, but I'm having trouble processing your request. An admin will assist you shortly."
)

// AssistantService keeps a bounded per-chat conversation window and turns
// visitor messages into model replies. Respond never returns an error: any
// upstream failure degrades to a canned fallback so the visitor always hears
// something back.
type AssistantService interface {
	Respond(ctx context.Context, chatID uuid.UUID, visitorMessage string) string
	SuggestReplies(ctx context.Context, chatID uuid.UUID) ([]string, error)
	Forget(chatID uuid.UUID)
}

type assistantService struct {
	log      *logger.Logger
	llm      openai.Client
	settings *AISettings
	messages repos.MessageRepo

	mu      sync.Mutex
	windows map[uuid.UUID][]openai.Turn
}

func NewAssistantService(llm openai.Client, settings *AISettings, messages repos.MessageRepo, baseLog *logger.Logger) AssistantService {
	return &assistantService{
		log:      baseLog.With("service", "AssistantService"),
		llm:      llm,
		settings: settings,
		messages: messages,
		windows:  make(map[uuid.UUID][]openai.Turn),
	}
}

// turnRole collapses persisted senders into the two roles the model sees.
// Operator messages count as assistant turns so the model does not contradict
// a human who already answered.
func turnRole(sender string) string {
	if sender == types.SenderVisitor {
		return "user"
	}
	return "assistant"
}

// hydrate rebuilds a window from persisted history after a restart or
// eviction. A read failure just means we start from an empty window.
func (s *assistantService) hydrate(ctx context.Context, chatID uuid.UUID) []openai.Turn {
	recent, err := s.messages.ListRecent(ctx, nil, chatID, conversationWindow)
	if err != nil {
		s.log.Warn("failed to hydrate conversation window", "chat_id", chatID, "error", err)
		return nil
	}
	turns := make([]openai.Turn, 0, len(recent))
	for _, m := range recent {
		turns = append(turns, openai.Turn{Role: turnRole(m.Sender), Content: m.Body})
	}
	return turns
}

func trimWindow(turns []openai.Turn) []openai.Turn {
	if len(turns) <= conversationWindow {
		return turns
	}
	return turns[len(turns)-conversationWindow:]
}

func (s *assistantService) Respond(ctx context.Context, chatID uuid.UUID, visitorMessage string) string {
	s.mu.Lock()
	window, ok := s.windows[chatID]
	if !ok {
		window = s.hydrate(ctx, chatID)
	}
	window = trimWindow(append(window, openai.Turn{Role: "user", Content: visitorMessage}))
	s.windows[chatID] = window

	turns := make([]openai.Turn, len(window))
	copy(turns, window)
	s.mu.Unlock()

	model, temperature, maxTokens := s.settings.Generation()
	reply, err := s.llm.Complete(ctx, s.settings.SystemPrompt(), turns, openai.CompletionOptions{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		s.log.Error("completion failed", "chat_id", chatID, "error", err)
		if errors.Is(err, apperrors.ErrRateLimited) {
			return fallbackRateLimited
		}
		return fallbackGeneric
	}

	reply = strings.TrimSpace(reply)
	if reply == "" {
		s.log.Warn("completion returned empty content", "chat_id", chatID)
		return fallbackGeneric
	}

	// Only a real model reply extends the window. Fallback text is not
	// context the model should be told it said.
	s.mu.Lock()
	s.windows[chatID] = trimWindow(append(s.windows[chatID], openai.Turn{Role: "assistant", Content: reply}))
	s.mu.Unlock()

	return reply
}

const suggestPrompt = `You are assisting a human support operator. Based on the conversation so far, draft up to 3 short reply suggestions the operator could send next. Return each suggestion on its own line, with no numbering or bullets.`

// SuggestReplies drafts candidate operator replies from persisted history.
// Unlike Respond it reports errors, because the caller is an admin endpoint
// that can show them.
func (s *assistantService) SuggestReplies(ctx context.Context, chatID uuid.UUID) ([]string, error) {
	recent, err := s.messages.ListRecent(ctx, nil, chatID, conversationWindow)
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, nil
	}

	turns := make([]openai.Turn, 0, len(recent))
	for _, m := range recent {
		turns = append(turns, openai.Turn{Role: turnRole(m.Sender), Content: m.Body})
	}

	model, temperature, maxTokens := s.settings.Generation()
	raw, err := s.llm.Complete(ctx, suggestPrompt, turns, openai.CompletionOptions{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	var suggestions []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*0123456789. "))
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions, nil
}

// Forget drops the in-memory window for a chat, e.g. when an admin closes it.
func (s *assistantService) Forget(chatID uuid.UUID) {
	s.mu.Lock()
	delete(s.windows, chatID)
	s.mu.Unlock()
}
