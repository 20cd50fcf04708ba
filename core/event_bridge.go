package core

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// WireEvent is the JSON envelope used on the WebSocket connection.
//
//	{"id": "<event id>", "payload": { /* event-specific fields */ }}
type WireEvent struct {
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventBridge is a WebSocket server that exposes the session pipeline to
// external observers (a UI, a monitoring process).
//
//   - IExternalOutputEvent packets exiting the pipeline are serialised as
//     WireEvent and broadcast to every connected client.
//
//   - Incoming WireEvent messages are deserialised using a registered factory
//     and injected at the pipeline top, so the orchestrator receives user
//     triggers (illustrate, narrate) from remote clients too.
type EventBridge struct {
	logger        *Logger
	outputTopChan chan<- *EventPacket
	ctx           context.Context

	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex

	inputRegistry map[string]func() IExternalInputEvent
	registryMu    sync.RWMutex
}

func NewEventBridge(logger *Logger) *EventBridge {
	if logger == nil {
		logger = GetLogger()
	}
	return &EventBridge{
		logger:        logger,
		clients:       make(map[*websocket.Conn]struct{}),
		inputRegistry: make(map[string]func() IExternalInputEvent),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Initialize wires the bridge to the pipeline top channel.
func (b *EventBridge) Initialize(outputTopChan chan<- *EventPacket, ctx context.Context) {
	b.outputTopChan = outputTopChan
	b.ctx = ctx
}

// RegisterInputEvent registers a factory for a given event ID. When a client
// sends {"id": id, "payload": {...}}, the factory creates a zero-value event,
// the payload is unmarshalled into it, and the event is pushed pipeline-top.
func (b *EventBridge) RegisterInputEvent(id string, factory func() IExternalInputEvent) {
	b.registryMu.Lock()
	defer b.registryMu.Unlock()
	b.inputRegistry[id] = factory
}

// SendInput injects an IExternalInputEvent directly into the pipeline top
// without going through the WebSocket layer. Local UIs use this path.
func (b *EventBridge) SendInput(event IExternalInputEvent, relayer string) {
	packet := NewEventPacket(event, EventRelayDestinationTopService, relayer)
	select {
	case b.outputTopChan <- packet:
	case <-b.ctx.Done():
	}
}

// Broadcast serialises an IExternalOutputEvent and sends it to all connected
// clients. Called by the Runner when such an event exits the pipeline.
func (b *EventBridge) Broadcast(packet *EventPacket) {
	ev, ok := packet.Event.(IExternalOutputEvent)
	if !ok {
		return
	}
	payload, err := sonic.Marshal(ev)
	if err != nil {
		b.logger.Errorf("EventBridge: marshal output event %q: %v", ev.GetId(), err)
		return
	}
	wire, err := sonic.Marshal(WireEvent{ID: ev.GetId(), Payload: payload})
	if err != nil {
		return
	}
	b.broadcast(wire)
}

func (b *EventBridge) broadcast(data []byte) {
	b.clientsMu.RLock()
	conns := make([]*websocket.Conn, 0, len(b.clients))
	for conn := range b.clients {
		conns = append(conns, conn)
	}
	b.clientsMu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.logger.Errorf("EventBridge: write to client: %v", err)
		}
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (b *EventBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Errorf("EventBridge: upgrade: %v", err)
		return
	}

	b.clientsMu.Lock()
	b.clients[conn] = struct{}{}
	b.clientsMu.Unlock()

	defer func() {
		b.clientsMu.Lock()
		delete(b.clients, conn)
		b.clientsMu.Unlock()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		b.handleIncoming(data)
	}
}

func (b *EventBridge) handleIncoming(data []byte) {
	var wire WireEvent
	if err := sonic.Unmarshal(data, &wire); err != nil {
		b.logger.Errorf("EventBridge: unmarshal wire event: %v", err)
		return
	}

	b.registryMu.RLock()
	factory, ok := b.inputRegistry[wire.ID]
	b.registryMu.RUnlock()
	if !ok {
		b.logger.Warnf("EventBridge: no input event registered for %q", wire.ID)
		return
	}

	event := factory()
	if len(wire.Payload) > 0 {
		if err := sonic.Unmarshal(wire.Payload, event); err != nil {
			b.logger.Errorf("EventBridge: unmarshal payload for %q: %v", wire.ID, err)
			return
		}
	}
	b.SendInput(event, "EventBridge")
}
