package runner

import (
	"context"
	"sync"

	"chefkit/core"
)

// Runner owns a session pipeline: an ordered chain of handlers connected by
// buffered event-packet channels. Packets leaving the last handler are fanned
// out to the Outputs channel for the local UI and, when a bridge is attached,
// broadcast to its WebSocket clients. Packets destined for the pipeline top
// are echoed back into the first handler so every handler can observe them.
type Runner struct {
	Handlers []core.IHandler

	// Outputs receives every packet exiting the pipeline. The local UI
	// consumes it; drained internally when nobody listens is the caller's
	// concern, so the channel is buffered generously.
	Outputs chan *core.EventPacket

	// Finished is closed when the pipeline stops on its own (end-session).
	Finished chan struct{}

	bridge         *core.EventBridge
	logger         *core.Logger
	ctx            context.Context
	cancel         context.CancelFunc
	finishOnce     sync.Once
	topOutputChan  chan *core.EventPacket
	lastOutputChan chan *core.EventPacket
}

func NewRunner(handlers []core.IHandler, logger *core.Logger) *Runner {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Runner{
		Handlers: handlers,
		logger:   logger,
	}
}

// WithBridge attaches an event bridge whose clients observe pipeline outputs
// and can inject registered input events. Returns the runner for chaining.
func (r *Runner) WithBridge(bridge *core.EventBridge) *Runner {
	r.bridge = bridge
	return r
}

func (r *Runner) Start() error {
	if len(r.Handlers) == 0 {
		return nil
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.topOutputChan = make(chan *core.EventPacket, 100)
	r.lastOutputChan = make(chan *core.EventPacket, 100)
	r.Outputs = make(chan *core.EventPacket, 100)
	r.Finished = make(chan struct{})
	r.finishOnce = sync.Once{}

	if r.bridge != nil {
		r.bridge.Initialize(r.topOutputChan, r.ctx)
	}

	inputChans := make([]chan *core.EventPacket, len(r.Handlers))
	for i := range inputChans {
		inputChans[i] = make(chan *core.EventPacket, 100)
	}

	for i, handler := range r.Handlers {
		var outputNextChan chan<- *core.EventPacket
		if i < len(r.Handlers)-1 {
			outputNextChan = inputChans[i+1]
		} else {
			outputNextChan = r.lastOutputChan
		}

		err := handler.Initialize(
			inputChans[i],
			outputNextChan,
			r.topOutputChan,
			r.ctx,
		)
		if err != nil {
			r.cancel()
			return err
		}

		if err := handler.Start(); err != nil {
			r.cancel()
			return err
		}
	}

	go r.listenToOutputs()
	return nil
}

// SendInput injects an external input event at the pipeline top.
func (r *Runner) SendInput(event core.IExternalInputEvent, relayer string) {
	packet := core.NewEventPacket(event, core.EventRelayDestinationTopService, relayer)
	select {
	case r.topOutputChan <- packet:
	case <-r.ctx.Done():
	}
}

func (r *Runner) listenToOutputs() {
	for {
		select {
		case packet := <-r.lastOutputChan:
			r.processFinalOutput(packet)
		case packet := <-r.topOutputChan:
			r.processTopOutput(packet)
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) processFinalOutput(packet *core.EventPacket) {
	if r.bridge != nil {
		r.bridge.Broadcast(packet)
	}
	select {
	case r.Outputs <- packet:
	default:
		// A UI that stopped draining must not wedge the pipeline.
	}
}

func (r *Runner) processTopOutput(packet *core.EventPacket) {
	switch event := packet.Event.(type) {
	case *core.CriticalErrorEvent:
		r.logger.With(map[string]interface{}{"error": event.Error}).Error("pipeline critical error")
		r.processFinalOutput(packet)
	case *core.EndSessionEvent:
		r.logger.With(map[string]interface{}{"reason": event.Reason}).Info("session ended")
		r.finishOnce.Do(func() { close(r.Finished) })
		r.cancel()
	default:
		// Echo back to the first handler so the whole chain observes it. The
		// destination is downgraded so an unconsumed packet flows down the
		// chain instead of returning here.
		packet.Destination = core.EventRelayDestinationNextService
		r.Handlers[0].HandleEvent(packet)
	}
}

func (r *Runner) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}

	var errs []error
	for _, handler := range r.Handlers {
		if err := handler.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (r *Runner) Reset() error {
	var errs []error
	for _, handler := range r.Handlers {
		if err := handler.Reset(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
