package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"chefkit/core"
)

// Config holds the configuration for the OpenAI speech service.
type Config struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
	Voice  string `json:"voice"`
}

func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey: apiKey,
		Model:  string(openai.TTSModel1),
		Voice:  string(openai.VoiceAlloy),
	}
}

// Service synthesizes narration audio from recipe text.
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
	return &Service{config: config, logger: logger}
}

func (s *Service) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	s.client = openai.NewClient(s.config.APIKey)
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

// Synthesize performs one request/response call and returns the raw audio
// bytes in the given response format ("" means MP3). Empty text is rejected
// before any remote call; a successful response with an empty body is a
// contract failure.
func (s *Service) Synthesize(ctx context.Context, text string, format string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.NewValidationFailure("speech text is empty")
	}

	s.mu.RLock()
	client := s.client
	initialized := s.isInitialized
	s.mu.RUnlock()
	if !initialized {
		return nil, fmt.Errorf("OpenAI speech service not initialized")
	}

	responseFormat := openai.SpeechResponseFormatMp3
	if format != "" {
		responseFormat = openai.SpeechResponseFormat(format)
	}

	resp, err := client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.config.Model),
		Voice:          openai.SpeechVoice(s.config.Voice),
		Input:          text,
		ResponseFormat: responseFormat,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, core.NewRemoteFailure("speech synthesis rejected", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, core.NewTransportFailure("speech synthesis request", err)
	}
	defer resp.Close()

	payload, err := io.ReadAll(resp)
	if err != nil {
		return nil, core.NewTransportFailure("reading speech payload", err)
	}
	if len(payload) == 0 {
		return nil, core.NewRemoteContractFailure("speech response contained no payload")
	}
	return payload, nil
}
