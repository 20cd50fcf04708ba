package core

import (
	"context"
)

// IService is the lifecycle contract for the remote-facing service a handler
// drives (chat completion, image generation, speech synthesis, ...).
type IService interface {
	Init(ctx context.Context) error
	Cleanup() error
	Reset() error
}

type IHandler interface {
	Initialize(
		inputChan <-chan *EventPacket,
		outputNextChan chan<- *EventPacket,
		outputTopChan chan<- *EventPacket,
		ctx context.Context,
	) error
	Start() error // Starts the handler's main logic. This is where the handler begins processing events.
	HandleEvent(packet *EventPacket) error

	Cleanup() error // Cleans up resources used by the handler.
	Reset() error   // Resets the handler to its initial state.
}

// BaseHandler wires a handler into the pipeline: it pumps the input channel
// into the registered event func and relays outgoing packets to the next
// handler or the pipeline top.
type BaseHandler struct {
	Service               IService
	Logger                *Logger
	Ctx                   context.Context
	InputChan             <-chan *EventPacket
	outputNextChan        chan<- *EventPacket
	outputTopChan         chan<- *EventPacket
	FatalServiceErrorChan chan error

	handleEventFunc func(packet *EventPacket) error
}

func NewBaseHandler(service IService, logger *Logger) *BaseHandler {
	if logger == nil {
		logger = GetLogger()
	}
	return &BaseHandler{
		Service: service,
		Logger:  logger,
	}
}

func (h *BaseHandler) Initialize(
	inputChan <-chan *EventPacket,
	outputNextChan chan<- *EventPacket,
	outputTopChan chan<- *EventPacket,
	ctx context.Context,
) error {
	h.InputChan = inputChan
	h.outputNextChan = outputNextChan
	h.outputTopChan = outputTopChan
	h.FatalServiceErrorChan = make(chan error, 1)
	h.Ctx = ctx
	go h.inputLoop()
	go h.fatalErrorLoop()
	if h.Service != nil {
		return h.Service.Init(ctx)
	}
	return nil
}

// SetHandleEventFunc registers the concrete handler's event func so the base
// input pump can dispatch to it.
func (h *BaseHandler) SetHandleEventFunc(fn func(packet *EventPacket) error) {
	h.handleEventFunc = fn
}

func (h *BaseHandler) Cleanup() error {
	if h.Service != nil {
		return h.Service.Cleanup()
	}
	return nil
}

func (h *BaseHandler) Reset() error {
	if h.Service != nil {
		return h.Service.Reset()
	}
	return nil
}

func (h *BaseHandler) SendPacket(packet *EventPacket) {
	switch packet.Destination {
	case EventRelayDestinationTopService:
		h.outputTopChan <- packet
	default:
		h.outputNextChan <- packet
	}
}

func (h *BaseHandler) HandleError(err error) {
	h.FatalServiceErrorChan <- err
}

func (h *BaseHandler) inputLoop() {
	for {
		select {
		case packet := <-h.InputChan:
			if h.handleEventFunc == nil {
				h.SendPacket(packet)
				continue
			}
			if err := h.handleEventFunc(packet); err != nil {
				h.Logger.With(map[string]interface{}{"error": err, "event": packet.Event.GetId()}).
					Error("handler failed to process event")
			}
		case <-h.Ctx.Done():
			return
		}
	}
}

func (h *BaseHandler) fatalErrorLoop() {
	for {
		select {
		case err := <-h.FatalServiceErrorChan:
			h.Logger.With(map[string]interface{}{"error": err}).Error("fatal service error")
			h.SendPacket(
				NewEventPacket(&CriticalErrorEvent{Error: err.Error()}, EventRelayDestinationTopService, "BaseHandler"),
			)
		case <-h.Ctx.Done():
			return
		}
	}
}
