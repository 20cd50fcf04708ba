package factories

import (
	"context"
	"fmt"

	"chefkit/chat"
	"chefkit/core"
	"chefkit/server"
	openaiimages "chefkit/services/openai/images"
	openaispeech "chefkit/services/openai/speech"
)

// BuildServer constructs the HTTP generation API described by the settings:
// the streamed chat pipeline plus the image and speech backends. The HTTP
// server has no handler pipeline driving service lifecycles, so every backend
// is initialized here. Backends left nil in the settings stay unconfigured
// and their endpoints report a configuration error instead of calling out.
func BuildServer(settings SettingsConfig, logger *core.Logger) (*server.Server, error) {
	ctx := context.Background()

	chatService, err := BuildChatService(settings.Chat, logger)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if err := chatService.Init(ctx); err != nil {
		return nil, fmt.Errorf("server: chat backend: %w", err)
	}
	pipeline := chat.NewPipeline(chatService, chat.NewInjector(nil), settings.Pipeline.PipelineConfig(), logger)

	var images server.ImageGenerator
	if settings.Images != nil {
		svc := openaiimages.NewService(*settings.Images, logger)
		if err := svc.Init(ctx); err != nil {
			return nil, fmt.Errorf("server: image backend: %w", err)
		}
		images = svc
	}

	var speech server.SpeechSynthesizer
	if settings.Speech != nil {
		svc := openaispeech.NewService(*settings.Speech, logger)
		if err := svc.Init(ctx); err != nil {
			return nil, fmt.Errorf("server: speech backend: %w", err)
		}
		speech = svc
	}

	return server.NewServer(settings.Server.Addr, pipeline, images, speech, logger), nil
}
