package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sashabaranov/go-openai"

	"chefkit/core"
)

// promptPrefix frames the recipe text for the image model. The combined
// prompt is truncated to maxPromptLen runes before sending.
const (
	promptPrefix = "Generate an image that describes the following recipe: "
	maxPromptLen = 250
)

// Config holds the configuration for the OpenAI image service.
type Config struct {
	APIKey            string `json:"api_key"`
	Model             string `json:"model"`
	Size              string `json:"size"`
	Quality           string `json:"quality"`
	OutputFormat      string `json:"output_format"`
	OutputCompression int    `json:"output_compression"`
}

// DefaultConfig returns the reference image parameters: low quality and
// compressed JPEG keep the embedded payload small.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		Model:             "gpt-image-1",
		Size:              openai.CreateImageSize1024x1024,
		Quality:           "low",
		OutputFormat:      "jpeg",
		OutputCompression: 60,
	}
}

// Service generates a single embedded image from recipe text.
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

// Generate performs one request/response call and returns the embedded
// base64 image payload. Empty text is rejected before any remote call; a
// successful response with no payload is a contract failure, distinct from
// a transport failure.
func (s *Service) Generate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", core.NewValidationFailure("image text is empty")
	}

	s.mu.RLock()
	client := s.client
	initialized := s.isInitialized
	s.mu.RUnlock()
	if !initialized {
		return "", fmt.Errorf("OpenAI image service not initialized")
	}

	prompt := promptPrefix + text
	if runes := []rune(prompt); len(runes) > maxPromptLen {
		prompt = string(runes[:maxPromptLen])
	}

	resp, err := client.CreateImage(ctx, openai.ImageRequest{
		Model:             s.config.Model,
		Prompt:            prompt,
		Size:              s.config.Size,
		Quality:           s.config.Quality,
		OutputFormat:      s.config.OutputFormat,
		OutputCompression: s.config.OutputCompression,
		N:                 1,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", core.NewRemoteFailure("image generation rejected", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", core.NewTransportFailure("image generation request", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return "", core.NewRemoteContractFailure("image response contained no payload")
	}
	return resp.Data[0].B64JSON, nil
}
