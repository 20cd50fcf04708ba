package factories

import (
	"errors"

	"chefkit/chat"
	"chefkit/core"
	openaichat "chefkit/services/openai/chat"
)

// ChatBackend is a chat completer with the service lifecycle attached, so
// callers outside a handler pipeline can drive Init and Cleanup themselves.
type ChatBackend interface {
	core.IService
	chat.Completer
}

// ChatFactoryConfig holds provider-specific configs for chat service
// construction. Set exactly one provider config; the rest should be left nil.
// Non-OpenAI providers use the OpenAI-compatible protocol and are implemented
// via the same service with a custom base URL.
type ChatFactoryConfig struct {
	OpenAIConfig   *openaichat.Config `json:"openai,omitempty"`
	GroqConfig     *openaichat.Config `json:"groq,omitempty"`
	TogetherConfig *openaichat.Config `json:"together,omitempty"`
}

// Default base URLs and models for OpenAI-compatible providers.
const (
	groqBaseURL     = "https://api.groq.com/openai/v1"
	groqModel       = "llama-3.3-70b-versatile"
	togetherBaseURL = "https://api.together.xyz/v1"
	togetherModel   = "meta-llama/Llama-3.3-70B-Instruct-Turbo"
)

// BuildChatService constructs a chat.Completer from the given factory config.
// Exactly one provider config must be non-nil.
func BuildChatService(config ChatFactoryConfig, logger *core.Logger) (ChatBackend, error) {
	if config.OpenAIConfig != nil {
		return openaichat.NewService(*config.OpenAIConfig, logger), nil
	}
	if config.GroqConfig != nil {
		return buildOpenAICompatible(*config.GroqConfig, groqBaseURL, groqModel, logger), nil
	}
	if config.TogetherConfig != nil {
		return buildOpenAICompatible(*config.TogetherConfig, togetherBaseURL, togetherModel, logger), nil
	}
	return nil, errors.New("ChatFactoryConfig: no provider config specified")
}

// buildOpenAICompatible creates an OpenAI-compatible chat service, applying
// the default base URL and model if not explicitly set in the config.
func buildOpenAICompatible(cfg openaichat.Config, defaultBaseURL, defaultModel string, logger *core.Logger) *openaichat.Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	return openaichat.NewService(cfg, logger)
}
