package generation

import (
	"context"
	"strings"
	"sync"

	"chefkit/audio"
	"chefkit/core"
	audioev "chefkit/events/audio"
	chatev "chefkit/events/chat"
	imageev "chefkit/events/image"
	"chefkit/utils/text"
)

// ImageService produces an embedded base64 image for the given text.
type ImageService interface {
	GenerateImage(ctx context.Context, text string) (string, error)
}

// SpeechService produces binary narration audio for the given text.
type SpeechService interface {
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

// State is the orchestrator's position in the image/audio generation
// sequence. Transitions only move forward, except that a failed stage may be
// re-entered by an explicit user re-trigger.
type State int

const (
	StateIdle State = iota
	StateImageEligible
	StateImageLoading
	StateImageReady
	StateAudioEligible
	StateAudioLoading
	StateAudioReady
	StateImageFailed
	StateAudioFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateImageEligible:
		return "image_eligible"
	case StateImageLoading:
		return "image_loading"
	case StateImageReady:
		return "image_ready"
	case StateAudioEligible:
		return "audio_eligible"
	case StateAudioLoading:
		return "audio_loading"
	case StateAudioReady:
		return "audio_ready"
	case StateImageFailed:
		return "image_failed"
	case StateAudioFailed:
		return "audio_failed"
	default:
		return "unknown"
	}
}

type imageResult struct {
	generation uint64
	b64        string
	err        error
}

type audioResult struct {
	generation uint64
	handle     *audio.Handle
	fallback   bool
	err        error
}

// Handler is the client-side generation orchestrator. It watches the
// conversation for the trigger point, gates the image and audio stages on
// explicit user actions, and owns no resources itself: the single live audio
// handle belongs to the audio.Manager.
type Handler struct {
	core.BaseHandler
	config     Config
	store      *core.ConversationStore
	images     ImageService
	speech     SpeechService
	resources  *audio.Manager
	normalizer text.INormalizer

	mu             sync.Mutex
	state          State
	imageTriggered bool   // latches the edge at the trigger turn count
	generation     uint64 // bumped on Reset; stale completions are discarded

	imageResultChan chan imageResult
	audioResultChan chan audioResult
}

func NewHandler(
	store *core.ConversationStore,
	images ImageService,
	speech SpeechService,
	resources *audio.Manager,
	config Config,
	logger *core.Logger,
) *Handler {
	defaults := DefaultConfig()
	if config.TriggerTurnCount <= 0 {
		config.TriggerTurnCount = defaults.TriggerTurnCount
	}
	if config.AudioMIME == "" {
		config.AudioMIME = defaults.AudioMIME
	}
	if config.ImageMIME == "" {
		config.ImageMIME = defaults.ImageMIME
	}
	return &Handler{
		BaseHandler: *core.NewBaseHandler(nil, logger),
		config:      config,
		store:       store,
		images:      images,
		speech:      speech,
		resources:   resources,
		normalizer:  text.NewNarrationNormalizer(),
	}
}

func (h *Handler) Initialize(
	inputChan <-chan *core.EventPacket,
	outputNextChan chan<- *core.EventPacket,
	outputTopChan chan<- *core.EventPacket,
	ctx context.Context,
) error {
	h.imageResultChan = make(chan imageResult, 1)
	h.audioResultChan = make(chan audioResult, 1)
	if err := h.BaseHandler.Initialize(inputChan, outputNextChan, outputTopChan, ctx); err != nil {
		return err
	}
	h.SetHandleEventFunc(h.HandleEvent)
	return nil
}

func (h *Handler) Start() error {
	go h.resultLoop()
	return nil
}

// State returns the orchestrator's current state.
func (h *Handler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Reset tears the generation state down for a new conversation: the live
// audio handle is released exactly once and any in-flight completion becomes
// stale.
func (h *Handler) Reset() error {
	h.mu.Lock()
	h.state = StateIdle
	h.imageTriggered = false
	h.generation++
	h.mu.Unlock()
	return h.resources.Close()
}

func (h *Handler) Cleanup() error {
	if err := h.resources.Close(); err != nil {
		return err
	}
	return h.BaseHandler.Cleanup()
}

func (h *Handler) HandleEvent(packet *core.EventPacket) error {
	switch packet.Event.(type) {
	case *chatev.ChatCompletedEvent:
		h.evaluateEligibility()
		h.SendPacket(packet)
		return nil
	case *imageev.ImageRequestedEvent:
		h.triggerImage()
		return nil // consumed
	case *audioev.AudioRequestedEvent:
		h.triggerAudio()
		return nil // consumed
	default:
		h.SendPacket(packet)
		return nil
	}
}

// evaluateEligibility fires the Idle → ImageEligible edge. The condition is
// the exact trigger turn count, latched: once the image asset leaves absent
// the edge can never re-fire, no matter how the conversation grows.
func (h *Handler) evaluateEligibility() {
	h.mu.Lock()
	fire := !h.imageTriggered &&
		h.state == StateIdle &&
		h.store.Len() == h.config.TriggerTurnCount
	if fire {
		h.imageTriggered = true
		h.state = StateImageEligible
	}
	h.mu.Unlock()

	if fire {
		h.emit(&imageev.ImageEligibleEvent{})
	}
}

// triggerImage starts image generation on an explicit user action. Permitted
// from ImageEligible and, as a manual retry, from ImageFailed.
func (h *Handler) triggerImage() {
	h.mu.Lock()
	if h.state != StateImageEligible && h.state != StateImageFailed {
		h.Logger.With(map[string]interface{}{"state": h.state.String()}).
			Warn("image request ignored in current state")
		h.mu.Unlock()
		return
	}

	input := h.store.LastAssistantText()
	if strings.TrimSpace(input) == "" {
		h.state = StateImageFailed
		h.mu.Unlock()
		h.emit(&imageev.ImageFailedEvent{Message: core.NewValidationFailure("no assistant reply to illustrate").Error()})
		return
	}

	h.state = StateImageLoading
	generation := h.generation
	h.mu.Unlock()

	h.emit(&imageev.ImageLoadingEvent{})
	go func() {
		b64, err := h.images.GenerateImage(h.Ctx, input)
		h.imageResultChan <- imageResult{generation: generation, b64: b64, err: err}
	}()
}

// triggerAudio starts narration on an explicit user action. The input text
// is recomputed from the store, so if the conversation advanced since the
// image was generated, the narration covers the newer reply. The platform
// audio context is activated here, inside the same user action, because
// gesture-gated platforms silently refuse a deferred activation.
func (h *Handler) triggerAudio() {
	h.resources.Activate()

	h.mu.Lock()
	if h.state != StateAudioEligible && h.state != StateAudioFailed {
		h.Logger.With(map[string]interface{}{"state": h.state.String()}).
			Warn("audio request ignored in current state")
		h.mu.Unlock()
		return
	}

	input := h.normalizer.Normalize(h.store.LastAssistantText())
	if strings.TrimSpace(input) == "" {
		h.state = StateAudioFailed
		h.mu.Unlock()
		h.emit(&audioev.AudioFailedEvent{Message: core.NewValidationFailure("no assistant reply to narrate").Error()})
		return
	}

	h.state = StateAudioLoading
	generation := h.generation
	h.mu.Unlock()

	h.emit(&audioev.AudioLoadingEvent{})
	go h.generateAudio(generation, input)
}

func (h *Handler) generateAudio(generation uint64, input string) {
	payload, err := h.speech.SynthesizeSpeech(h.Ctx, input)
	if err != nil {
		h.audioResultChan <- audioResult{generation: generation, err: err}
		return
	}

	handle, err := h.resources.Allocate(payload, h.config.AudioMIME)
	if err != nil {
		h.audioResultChan <- audioResult{generation: generation, err: err}
		return
	}

	outcome := h.resources.Probe(h.Ctx, handle)
	if outcome == audio.ProbeFailed {
		// Explicit validation failure, distinct from the timeout fallback.
		if relErr := h.resources.Release(handle); relErr != nil {
			h.Logger.With(map[string]interface{}{"error": relErr}).Error("releasing unplayable handle")
		}
		h.audioResultChan <- audioResult{
			generation: generation,
			err:        core.NewResourceFailure("narration payload failed the playability probe", nil),
		}
		return
	}

	h.audioResultChan <- audioResult{
		generation: generation,
		handle:     handle,
		fallback:   outcome == audio.ProbeTimedOut,
	}
}

// resultLoop applies completions to the state machine. Results from a
// superseded generation (the user reset or tore the session down) are
// discarded, never applied.
func (h *Handler) resultLoop() {
	for {
		select {
		case r := <-h.imageResultChan:
			h.applyImageResult(r)
		case r := <-h.audioResultChan:
			h.applyAudioResult(r)
		case <-h.Ctx.Done():
			return
		}
	}
}

func (h *Handler) applyImageResult(r imageResult) {
	h.mu.Lock()
	if r.generation != h.generation {
		h.mu.Unlock()
		h.Logger.Debug("discarding stale image completion")
		return
	}
	if r.err != nil {
		h.state = StateImageFailed
		h.mu.Unlock()
		h.emit(&imageev.ImageFailedEvent{Message: r.err.Error()})
		return
	}
	// ImageReady is passed through immediately: once an image exists the
	// audio option unlocks without further user action.
	h.state = StateAudioEligible
	h.mu.Unlock()

	h.emit(&imageev.ImageReadyEvent{Base64: r.b64, MIME: h.config.ImageMIME})
	h.emit(&audioev.AudioEligibleEvent{})
}

func (h *Handler) applyAudioResult(r audioResult) {
	h.mu.Lock()
	if r.generation != h.generation {
		h.mu.Unlock()
		h.Logger.Debug("discarding stale audio completion")
		if r.handle != nil {
			if err := h.resources.Release(r.handle); err != nil {
				h.Logger.With(map[string]interface{}{"error": err}).Warn("releasing stale audio handle")
			}
		}
		return
	}
	if r.err != nil {
		h.state = StateAudioFailed
		h.mu.Unlock()
		h.emit(&audioev.AudioFailedEvent{Message: r.err.Error()})
		return
	}
	h.state = StateAudioReady
	h.mu.Unlock()
	h.emit(&audioev.AudioReadyEvent{Handle: r.handle.URI(), Fallback: r.fallback})
}

func (h *Handler) emit(event core.IEvent) {
	h.SendPacket(core.NewEventPacket(event, core.EventRelayDestinationNextService, "GenerationHandler"))
}
