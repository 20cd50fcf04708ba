package factories

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"chefkit/audio"
	"chefkit/chat"
	"chefkit/handlers/generation"
	openaichat "chefkit/services/openai/chat"
	openaiimages "chefkit/services/openai/images"
	openaispeech "chefkit/services/openai/speech"
)

// ServerConfig configures the HTTP generation API.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr"`
}

// ChatPipelineConfig is the JSON shape of the chat orchestration settings.
// Durations are expressed in seconds so settings files stay readable.
type ChatPipelineConfig struct {
	// Window is the number of most recent turns forwarded to the backend.
	Window int `json:"window"`
	// MaxDurationSeconds bounds a single streamed completion.
	MaxDurationSeconds int `json:"max_duration_seconds"`
}

// PipelineConfig converts the JSON shape to the runtime config.
func (c ChatPipelineConfig) PipelineConfig() chat.PipelineConfig {
	cfg := chat.DefaultPipelineConfig()
	if c.Window > 0 {
		cfg.Window = c.Window
	}
	if c.MaxDurationSeconds > 0 {
		cfg.MaxDuration = time.Duration(c.MaxDurationSeconds) * time.Second
	}
	return cfg
}

// GenerationConfig is the JSON shape of the illustration and narration
// orchestration settings.
type GenerationConfig struct {
	// TriggerTurnCount is the exact conversation length at which
	// illustration unlocks.
	TriggerTurnCount int `json:"trigger_turn_count"`
	// ProbeTimeoutSeconds bounds the audio playability probe.
	ProbeTimeoutSeconds int `json:"probe_timeout_seconds"`
}

// HandlerConfig converts the JSON shape to the generation handler config.
func (c GenerationConfig) HandlerConfig() generation.Config {
	cfg := generation.DefaultConfig()
	if c.TriggerTurnCount > 0 {
		cfg.TriggerTurnCount = c.TriggerTurnCount
	}
	return cfg
}

// ResourceConfig converts the JSON shape to the audio resource manager config.
func (c GenerationConfig) ResourceConfig() audio.Config {
	cfg := audio.DefaultConfig()
	if c.ProbeTimeoutSeconds > 0 {
		cfg.ProbeTimeout = time.Duration(c.ProbeTimeoutSeconds) * time.Second
	}
	return cfg
}

// SettingsConfig is the top-level config loaded from settings.json. It bundles
// the HTTP server config with per-backend service configs and the
// orchestration settings shared by server and session processes.
type SettingsConfig struct {
	Server     ServerConfig         `json:"server"`
	Chat       ChatFactoryConfig    `json:"chat"`
	Images     *openaiimages.Config `json:"images,omitempty"`
	Speech     *openaispeech.Config `json:"speech,omitempty"`
	Pipeline   ChatPipelineConfig   `json:"pipeline"`
	Generation GenerationConfig     `json:"generation"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with provider
// defaults. API keys are injected separately via InjectAPIKeys.
func DefaultSettingsConfig() SettingsConfig {
	chatCfg := openaichat.DefaultConfig("")
	imagesCfg := openaiimages.DefaultConfig("")
	speechCfg := openaispeech.DefaultConfig("")
	return SettingsConfig{
		Server: ServerConfig{Addr: ":8080"},
		Chat:   ChatFactoryConfig{OpenAIConfig: &chatCfg},
		Images: &imagesCfg,
		Speech: &speechCfg,
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig, starting
// from DefaultSettingsConfig so that fields absent from the JSON retain their
// defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// APIKeys holds API credentials for the supported providers. Pass to
// InjectAPIKeys after loading from JSON so that secrets never live in config
// files.
type APIKeys struct {
	OpenAI   string // Used for OpenAI chat, image, and speech backends.
	Groq     string // Used for the Groq OpenAI-compatible chat backend.
	Together string // Used for the Together AI OpenAI-compatible chat backend.
}

// InjectAPIKeys applies credentials to every configured backend that does not
// already carry one.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	if c.Chat.OpenAIConfig != nil && c.Chat.OpenAIConfig.APIKey == "" {
		c.Chat.OpenAIConfig.APIKey = keys.OpenAI
	}
	if c.Chat.GroqConfig != nil && c.Chat.GroqConfig.APIKey == "" {
		c.Chat.GroqConfig.APIKey = keys.Groq
	}
	if c.Chat.TogetherConfig != nil && c.Chat.TogetherConfig.APIKey == "" {
		c.Chat.TogetherConfig.APIKey = keys.Together
	}
	if c.Images != nil && c.Images.APIKey == "" {
		c.Images.APIKey = keys.OpenAI
	}
	if c.Speech != nil && c.Speech.APIKey == "" {
		c.Speech.APIKey = keys.OpenAI
	}
}
