package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/meetdshah26/backend-chatbot/internal/logger"
	"github.com/meetdshah26/backend-chatbot/internal/utils"
)

const defaultSystemPrompt = `You are a helpful customer support assistant. You are friendly, professional, and concise.
Your goal is to help users with their questions and provide accurate information.
Keep your responses clear and to the point. If you don't know something, admit it politely.`

// AISettingsView is a point-in-time copy of the mutable settings.
type AISettingsView struct {
	Enabled      bool    `json:"enabled"`
	AutoRespond  bool    `json:"auto_respond"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
	SystemPrompt string  `json:"system_prompt"`
}

// AISettings is the process-wide AI configuration cell. It is injected where
// needed and read before every assistant invocation; admins flip it at
// runtime through the AI endpoints.
type AISettings struct {
	mu           sync.RWMutex
	enabled      bool
	model        string
	temperature  float64
	maxTokens    int
	systemPrompt string
}

func NewAISettingsFromEnv(log *logger.Logger) *AISettings {
	return &AISettings{
		enabled:      utils.GetEnvAsBool("AI_AUTO_RESPOND", true, log),
		model:        utils.GetEnv("OPENAI_MODEL", "gpt-4o-mini", log),
		temperature:  utils.GetEnvAsFloat("OPENAI_TEMPERATURE", 0.7, log),
		maxTokens:    utils.GetEnvAsInt("OPENAI_MAX_TOKENS", 500, log),
		systemPrompt: utils.GetEnv("OPENAI_SYSTEM_PROMPT", defaultSystemPrompt, log),
	}
}

func (s *AISettings) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

func (s *AISettings) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *AISettings) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.systemPrompt
}

func (s *AISettings) SetSystemPrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("system prompt must not be empty")
	}
	s.mu.Lock()
	s.systemPrompt = prompt
	s.mu.Unlock()
	return nil
}

// UpdateParams overwrites the generation parameters. Zero values leave the
// corresponding field untouched so partial updates are safe.
func (s *AISettings) UpdateParams(model string, temperature float64, maxTokens int) error {
	if temperature < 0 || temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if maxTokens < 0 || maxTokens > 4096 {
		return fmt.Errorf("max_tokens must be between 0 and 4096")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if model != "" {
		s.model = model
	}
	if temperature > 0 {
		s.temperature = temperature
	}
	if maxTokens > 0 {
		s.maxTokens = maxTokens
	}
	return nil
}

// Generation returns the model parameters used for a completion call.
func (s *AISettings) Generation() (model string, temperature float64, maxTokens int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, s.temperature, s.maxTokens
}

func (s *AISettings) Snapshot() AISettingsView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return AISettingsView{
		Enabled:      s.enabled,
		AutoRespond:  s.enabled,
		Model:        s.model,
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
		SystemPrompt: s.systemPrompt,
	}
}
