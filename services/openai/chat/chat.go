package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sashabaranov/go-openai"

	"chefkit/core"
)

// DefaultSystemPrompt frames every completion. The assistant is a chef; the
// conversation store never carries system turns.
const DefaultSystemPrompt = "You are a professional chef. You provide detailed cooking instructions, tips, and advice on selecting the best ingredients."

// Config holds the configuration for the OpenAI chat service.
type Config struct {
	APIKey           string  `json:"api_key"`
	BaseURL          string  `json:"base_url,omitempty"`
	Model            string  `json:"model"`
	SystemPrompt     string  `json:"system_prompt,omitempty"`
	Temperature      float32 `json:"temperature"`
	TopP             float32 `json:"top_p"`
	FrequencyPenalty float32 `json:"frequency_penalty"`
	PresencePenalty  float32 `json:"presence_penalty"`
}

// DefaultConfig returns the reference sampling parameters: high temperature
// and penalties push the model away from repeating the same recipes.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:           apiKey,
		Model:            openai.GPT4oMini,
		SystemPrompt:     DefaultSystemPrompt,
		Temperature:      0.95,
		TopP:             0.9,
		FrequencyPenalty: 0.7,
		PresencePenalty:  0.6,
	}
}

// Service streams chat completions from OpenAI.
type Service struct {
	client *openai.Client
	config Config
	logger *core.Logger

	mu            sync.RWMutex
	isInitialized bool
}

func NewService(config Config, logger *core.Logger) *Service {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	return &Service{config: config, logger: logger}
}

// Init validates the configuration and creates the API client.
func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	if s.config.BaseURL != "" {
		cfg := openai.DefaultConfig(s.config.APIKey)
		cfg.BaseURL = s.config.BaseURL
		s.client = openai.NewClientWithConfig(cfg)
	} else {
		s.client = openai.NewClient(s.config.APIKey)
	}
	s.isInitialized = true
	return nil
}

func (s *Service) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.isInitialized = false
	return nil
}

func (s *Service) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.APIKey != "" {
		s.client = openai.NewClient(s.config.APIKey)
		s.isInitialized = true
	}
	return nil
}

// Stream opens a streaming completion for the given turns and relays each
// content delta to out in arrival order. It returns when the stream ends;
// any failure surfaces as a single terminal error and is never retried here.
func (s *Service) Stream(ctx context.Context, turns []core.Turn, out chan<- string) error {
	s.mu.RLock()
	client := s.client
	initialized := s.isInitialized
	s.mu.RUnlock()
	if !initialized {
		return fmt.Errorf("OpenAI chat service not initialized")
	}

	req := openai.ChatCompletionRequest{
		Model:            s.config.Model,
		Messages:         s.convertTurns(turns),
		Temperature:      s.config.Temperature,
		TopP:             s.config.TopP,
		FrequencyPenalty: s.config.FrequencyPenalty,
		PresencePenalty:  s.config.PresencePenalty,
		Stream:           true,
	}

	stream, err := client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return classify(err)
	}
	defer stream.Close()

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return classify(err)
		}
		if len(response.Choices) == 0 {
			continue
		}
		if delta := response.Choices[0].Delta.Content; delta != "" {
			select {
			case out <- delta:
			case <-ctx.Done():
				return classify(ctx.Err())
			}
		}
	}
}

func (s *Service) convertTurns(turns []core.Turn) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: s.config.SystemPrompt,
	})
	for _, turn := range turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == core.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Text(),
		})
	}
	return messages
}

// classify maps SDK errors onto the shared failure taxonomy so callers can
// tell an outage from a misbehaving backend.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return core.NewRemoteFailure("chat completion rejected", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return core.NewTransportFailure("chat completion stream", err)
}
