package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chefkit/audio"
	"chefkit/core"
	audioev "chefkit/events/audio"
	chatev "chefkit/events/chat"
	imageev "chefkit/events/image"
)

// mp3Payload passes the default playability probe for audio/mpeg.
var mp3Payload = []byte{0xFF, 0xFB, 0x90, 0x00, 0x01, 0x02}

type fakeImageService struct {
	mu      sync.Mutex
	b64     string
	err     error
	calls   int
	gotText string
	gate    chan struct{} // when set, GenerateImage blocks until closed
}

func (f *fakeImageService) GenerateImage(ctx context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.gotText = text
	gate := f.gate
	b64, err := f.b64, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return b64, err
}

func (f *fakeImageService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSpeechService struct {
	mu      sync.Mutex
	payload []byte
	err     error
	gotText string
}

func (f *fakeSpeechService) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotText = text
	return f.payload, f.err
}

func (f *fakeSpeechService) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotText
}

type fixture struct {
	handler   *Handler
	store     *core.ConversationStore
	images    *fakeImageService
	speech    *fakeSpeechService
	resources *audio.Manager
	next      chan *core.EventPacket
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := core.NewConversationStore()
	images := &fakeImageService{b64: "aW1hZ2U="}
	speech := &fakeSpeechService{payload: mp3Payload}
	resources := audio.NewManager(audio.DefaultConfig(), core.NewDevelopmentLogger())

	h := NewHandler(store, images, speech, resources, DefaultConfig(), core.NewDevelopmentLogger())

	in := make(chan *core.EventPacket, 16)
	next := make(chan *core.EventPacket, 64)
	top := make(chan *core.EventPacket, 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := h.Initialize(in, next, top, ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := h.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return &fixture{handler: h, store: store, images: images, speech: speech, resources: resources, next: next}
}

func (f *fixture) seedConversation(userText, assistantText string) {
	f.store.Append(core.NewTextTurn(core.RoleUser, userText))
	f.store.Append(core.NewTextTurn(core.RoleAssistant, assistantText))
}

func (f *fixture) send(event core.IEvent) {
	f.handler.HandleEvent(core.NewEventPacket(event, core.EventRelayDestinationNextService, "test"))
}

func (f *fixture) chatCompleted() {
	f.send(&chatev.ChatCompletedEvent{FullText: f.store.LastAssistantText(), TurnCount: f.store.Len()})
}

func nextEvent(t *testing.T, ch chan *core.EventPacket) core.IEvent {
	t.Helper()
	select {
	case p := <-ch:
		return p.Event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// waitFor drains events until one of type T arrives.
func waitFor[T core.IEvent](t *testing.T, ch chan *core.EventPacket) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-ch:
			if ev, ok := p.Event.(T); ok {
				return ev
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func expectNoEventOf[T core.IEvent](t *testing.T, ch chan *core.EventPacket) {
	t.Helper()
	timeout := time.After(150 * time.Millisecond)
	for {
		select {
		case p := <-ch:
			if _, ok := p.Event.(T); ok {
				t.Fatalf("unexpected %q event", p.Event.GetId())
			}
		case <-timeout:
			return
		}
	}
}

func TestEligibilityEdgeFiresOnceAtTriggerCount(t *testing.T) {
	f := newFixture(t)
	f.seedConversation("pasta ideas?", "Try cacio e pepe.")

	f.chatCompleted()
	waitFor[*imageev.ImageEligibleEvent](t, f.next)
	if got := f.handler.State(); got != StateImageEligible {
		t.Fatalf("state = %v, want image_eligible", got)
	}

	// A repeated evaluation at the same turn count must not re-fire.
	f.chatCompleted()
	expectNoEventOf[*imageev.ImageEligibleEvent](t, f.next)
}

func TestEligibilityRequiresExactTurnCount(t *testing.T) {
	f := newFixture(t)
	f.store.Append(core.NewTextTurn(core.RoleUser, "only one turn"))

	f.chatCompleted()
	expectNoEventOf[*imageev.ImageEligibleEvent](t, f.next)
	if got := f.handler.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}

	// Past the trigger point the edge never fires either.
	f.seedConversation("two", "three")
	f.seedConversation("four", "five")
	f.chatCompleted()
	expectNoEventOf[*imageev.ImageEligibleEvent](t, f.next)
}

func TestImageFlowUnlocksAudio(t *testing.T) {
	f := newFixture(t)
	f.seedConversation("pasta ideas?", "Try cacio e pepe.")
	f.chatCompleted()
	waitFor[*imageev.ImageEligibleEvent](t, f.next)

	f.send(&imageev.ImageRequestedEvent{})

	waitFor[*imageev.ImageLoadingEvent](t, f.next)
	ready := waitFor[*imageev.ImageReadyEvent](t, f.next)
	waitFor[*audioev.AudioEligibleEvent](t, f.next)

	if ready.Base64 != "aW1hZ2U=" {
		t.Errorf("image payload = %q", ready.Base64)
	}
	if f.images.gotText != "Try cacio e pepe." {
		t.Errorf("image service saw input %q", f.images.gotText)
	}
	if got := f.handler.State(); got != StateAudioEligible {
		t.Fatalf("state = %v, want audio_eligible", got)
	}
}

func TestImageRequestIgnoredWhenIdle(t *testing.T) {
	f := newFixture(t)
	f.send(&imageev.ImageRequestedEvent{})
	expectNoEventOf[*imageev.ImageLoadingEvent](t, f.next)
	if f.images.callCount() != 0 {
		t.Fatalf("image backend called %d times from idle", f.images.callCount())
	}
}

func TestImageFailureKeepsAudioLockedAndAllowsRetry(t *testing.T) {
	f := newFixture(t)
	f.images.err = errors.New("image backend down")
	f.seedConversation("pasta ideas?", "Try cacio e pepe.")
	f.chatCompleted()
	waitFor[*imageev.ImageEligibleEvent](t, f.next)

	f.send(&imageev.ImageRequestedEvent{})
	waitFor[*imageev.ImageFailedEvent](t, f.next)
	if got := f.handler.State(); got != StateImageFailed {
		t.Fatalf("state = %v, want image_failed", got)
	}

	// A failed image must not unlock narration.
	f.send(&audioev.AudioRequestedEvent{})
	expectNoEventOf[*audioev.AudioLoadingEvent](t, f.next)

	// An explicit re-request retries from the failed state.
	f.images.mu.Lock()
	f.images.err = nil
	f.images.mu.Unlock()
	f.send(&imageev.ImageRequestedEvent{})
	waitFor[*imageev.ImageReadyEvent](t, f.next)
	waitFor[*audioev.AudioEligibleEvent](t, f.next)
}

func TestAudioNarratesLatestNormalizedReply(t *testing.T) {
	f := newFixture(t)
	f.seedConversation("pasta ideas?", "Try cacio e pepe.")
	f.chatCompleted()
	waitFor[*imageev.ImageEligibleEvent](t, f.next)
	f.send(&imageev.ImageRequestedEvent{})
	waitFor[*audioev.AudioEligibleEvent](t, f.next)

	// The conversation advances before the user asks for narration.
	f.seedConversation("and a wine pairing?", "## Pairing\n- a **dry** white")

	f.send(&audioev.AudioRequestedEvent{})
	waitFor[*audioev.AudioLoadingEvent](t, f.next)
	ready := waitFor[*audioev.AudioReadyEvent](t, f.next)

	if f.speech.lastText() != "Pairing\na dry white" {
		t.Errorf("speech input = %q, want the newest reply stripped of markup", f.speech.lastText())
	}
	if ready.Fallback {
		t.Error("fallback set for a payload that passed the probe")
	}
	if ready.Handle == "" {
		t.Error("ready event carries no handle")
	}
	if got := f.handler.State(); got != StateAudioReady {
		t.Fatalf("state = %v, want audio_ready", got)
	}
	if f.resources.LiveCount() != 1 {
		t.Fatalf("live handles = %d, want 1", f.resources.LiveCount())
	}
}

func TestAudioProbeFailureReleasesHandle(t *testing.T) {
	f := newFixture(t)
	f.speech.payload = []byte("not an mpeg stream at all")
	f.seedConversation("pasta ideas?", "Try cacio e pepe.")
	f.chatCompleted()
	waitFor[*imageev.ImageEligibleEvent](t, f.next)
	f.send(&imageev.ImageRequestedEvent{})
	waitFor[*audioev.AudioEligibleEvent](t, f.next)

	f.send(&audioev.AudioRequestedEvent{})
	waitFor[*audioev.AudioFailedEvent](t, f.next)

	if got := f.handler.State(); got != StateAudioFailed {
		t.Fatalf("state = %v, want audio_failed", got)
	}
	if f.resources.LiveCount() != 0 {
		t.Fatalf("live handles = %d after probe failure, want 0", f.resources.LiveCount())
	}
	allocated, released := f.resources.Accounting()
	if allocated != released {
		t.Fatalf("accounting = (%d, %d), handle leaked", allocated, released)
	}

	// The failure is retryable once the payload is good again.
	f.speech.mu.Lock()
	f.speech.payload = mp3Payload
	f.speech.mu.Unlock()
	f.send(&audioev.AudioRequestedEvent{})
	waitFor[*audioev.AudioReadyEvent](t, f.next)
}

func TestResetDiscardsStaleImageCompletion(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.images.gate = gate
	f.seedConversation("pasta ideas?", "Try cacio e pepe.")
	f.chatCompleted()
	waitFor[*imageev.ImageEligibleEvent](t, f.next)

	f.send(&imageev.ImageRequestedEvent{})
	waitFor[*imageev.ImageLoadingEvent](t, f.next)

	// The user leaves mid-generation.
	if err := f.handler.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	close(gate)

	expectNoEventOf[*imageev.ImageReadyEvent](t, f.next)
	if got := f.handler.State(); got != StateIdle {
		t.Fatalf("state = %v after reset, want idle", got)
	}
}

func TestChatCompletedRelayedDownstream(t *testing.T) {
	f := newFixture(t)
	f.send(&chatev.ChatCompletedEvent{FullText: "reply", TurnCount: 1})
	if _, ok := nextEvent(t, f.next).(*chatev.ChatCompletedEvent); !ok {
		t.Fatal("chat completion was not relayed downstream")
	}
}

func TestConfigDefaultsAppliedPerField(t *testing.T) {
	store := core.NewConversationStore()
	resources := audio.NewManager(audio.DefaultConfig(), core.NewDevelopmentLogger())
	h := NewHandler(store, &fakeImageService{}, &fakeSpeechService{}, resources,
		Config{AudioMIME: "audio/wav", ImageMIME: "image/png"}, core.NewDevelopmentLogger())

	if got, want := h.config.TriggerTurnCount, DefaultConfig().TriggerTurnCount; got != want {
		t.Fatalf("TriggerTurnCount = %d, want %d", got, want)
	}
	if h.config.AudioMIME != "audio/wav" {
		t.Fatalf("AudioMIME = %q, caller value was discarded", h.config.AudioMIME)
	}
	if h.config.ImageMIME != "image/png" {
		t.Fatalf("ImageMIME = %q, caller value was discarded", h.config.ImageMIME)
	}
}
