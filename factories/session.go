package factories

import (
	"fmt"

	"chefkit/audio"
	"chefkit/client"
	"chefkit/core"
	audioevents "chefkit/events/audio"
	chatevents "chefkit/events/chat"
	imageevents "chefkit/events/image"
	"chefkit/handlers/chatrelay"
	"chefkit/handlers/generation"
	"chefkit/runner"
)

// SessionConfig configures a client-side conversation session: the generation
// API it talks to, the orchestration settings, and an optional WebSocket
// bridge address for external observers.
type SessionConfig struct {
	// ServerURL is the base URL of the generation API, e.g.
	// "http://localhost:8080".
	ServerURL string `json:"server_url"`
	// BridgeAddr, when set, serves the event bridge on this address.
	BridgeAddr string           `json:"bridge_addr,omitempty"`
	Generation GenerationConfig `json:"generation"`
}

// Session bundles everything a running conversation needs. The Runner owns
// handler lifecycles; Store and Resources are exposed for inspection.
type Session struct {
	Runner    *runner.Runner
	Bridge    *core.EventBridge
	Store     *core.ConversationStore
	Resources *audio.Manager
	Client    *client.Client
}

// BuildSession constructs the full client-side pipeline: conversation store,
// API client, chat relay handler, generation orchestrator, audio resource
// manager, and the runner chaining them. Call Runner.Start to bring it up.
func BuildSession(config SessionConfig, logger *core.Logger) (*Session, error) {
	if config.ServerURL == "" {
		return nil, fmt.Errorf("session: server URL is required")
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	store := core.NewConversationStore()
	api := client.New(config.ServerURL, logger)
	resources := audio.NewManager(config.Generation.ResourceConfig(), logger)

	relayHandler := chatrelay.NewHandler(store, api, logger)
	genHandler := generation.NewHandler(store, api, api, resources, config.Generation.HandlerConfig(), logger)

	bridge := core.NewEventBridge(logger)
	registerInputEvents(bridge)

	run := runner.NewRunner([]core.IHandler{relayHandler, genHandler}, logger).WithBridge(bridge)

	return &Session{
		Runner:    run,
		Bridge:    bridge,
		Store:     store,
		Resources: resources,
		Client:    api,
	}, nil
}

// registerInputEvents wires the wire-event IDs a bridge client may send to
// their concrete event types.
func registerInputEvents(bridge *core.EventBridge) {
	bridge.RegisterInputEvent((&chatevents.ChatSendEvent{}).GetId(), func() core.IExternalInputEvent {
		return &chatevents.ChatSendEvent{}
	})
	bridge.RegisterInputEvent((&imageevents.ImageRequestedEvent{}).GetId(), func() core.IExternalInputEvent {
		return &imageevents.ImageRequestedEvent{}
	})
	bridge.RegisterInputEvent((&audioevents.AudioRequestedEvent{}).GetId(), func() core.IExternalInputEvent {
		return &audioevents.AudioRequestedEvent{}
	})
	bridge.RegisterInputEvent((&core.EndSessionEvent{}).GetId(), func() core.IExternalInputEvent {
		return &core.EndSessionEvent{}
	})
}
