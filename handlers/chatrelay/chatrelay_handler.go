package chatrelay

import (
	"context"
	"strings"
	"sync/atomic"

	"chefkit/core"
	chatev "chefkit/events/chat"
)

// ChatService streams the assistant's reply for the current conversation.
// The chefkit HTTP client implements this against a remote server.
type ChatService interface {
	StreamChat(ctx context.Context, turns []core.Turn, out chan<- string) error
}

// Handler owns the conversation store's appends: a user submission appends a
// user turn, a completed stream appends the assistant turn. Fragments are
// relayed downstream in arrival order.
type Handler struct {
	core.BaseHandler
	store     *core.ConversationStore
	svc       ChatService
	streaming int32 // atomic: 1 while a reply stream is in flight
}

func NewHandler(store *core.ConversationStore, svc ChatService, logger *core.Logger) *Handler {
	return &Handler{
		BaseHandler: *core.NewBaseHandler(nil, logger),
		store:       store,
		svc:         svc,
	}
}

func (h *Handler) Initialize(
	inputChan <-chan *core.EventPacket,
	outputNextChan chan<- *core.EventPacket,
	outputTopChan chan<- *core.EventPacket,
	ctx context.Context,
) error {
	if err := h.BaseHandler.Initialize(inputChan, outputNextChan, outputTopChan, ctx); err != nil {
		return err
	}
	h.SetHandleEventFunc(h.HandleEvent)
	return nil
}

func (h *Handler) Start() error {
	return nil // purely event-driven
}

func (h *Handler) HandleEvent(packet *core.EventPacket) error {
	switch event := packet.Event.(type) {
	case *chatev.ChatSendEvent:
		h.submit(event.Text)
		return nil // consumed
	default:
		h.SendPacket(packet)
		return nil
	}
}

func (h *Handler) submit(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		h.Logger.Warn("ignoring empty chat submission")
		return
	}
	if !atomic.CompareAndSwapInt32(&h.streaming, 0, 1) {
		h.Logger.Warn("chat submission ignored, a reply stream is already in flight")
		return
	}

	h.store.Append(core.NewTextTurn(core.RoleUser, text))
	h.SendPacket(core.NewEventPacket(
		&chatev.ChatResponseStartedEvent{},
		core.EventRelayDestinationNextService,
		"ChatRelayHandler",
	))
	go h.stream()
}

// stream relays fragments downstream as they arrive and appends the
// assistant turn once the reply is complete. On failure the partial text is
// dropped: the turn is only persisted when the stream ends cleanly.
func (h *Handler) stream() {
	defer atomic.StoreInt32(&h.streaming, 0)

	out := make(chan string, 16)
	errChan := make(chan error, 1)
	go func() {
		errChan <- h.svc.StreamChat(h.Ctx, h.store.Turns(), out)
		close(out)
	}()

	var full strings.Builder
	for fragment := range out {
		full.WriteString(fragment)
		h.SendPacket(core.NewEventPacket(
			&chatev.ChatFragmentEvent{Fragment: fragment},
			core.EventRelayDestinationNextService,
			"ChatRelayHandler",
		))
	}

	if err := <-errChan; err != nil {
		h.Logger.With(map[string]interface{}{"error": err}).Error("chat stream failed")
		h.SendPacket(core.NewEventPacket(
			&chatev.ChatFailedEvent{Message: err.Error()},
			core.EventRelayDestinationNextService,
			"ChatRelayHandler",
		))
		return
	}

	reply := full.String()
	h.store.Append(core.NewTextTurn(core.RoleAssistant, reply))
	h.SendPacket(core.NewEventPacket(
		&chatev.ChatCompletedEvent{FullText: reply, TurnCount: h.store.Len()},
		core.EventRelayDestinationNextService,
		"ChatRelayHandler",
	))
}
