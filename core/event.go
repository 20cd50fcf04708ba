package core

type IEvent interface {
	GetId() string // Returns the unique identifier of the event.
}

// IExternalOutputEvent is implemented by events that should also be surfaced
// to external observers (the event bridge) as they exit the pipeline.
type IExternalOutputEvent interface {
	IEvent
}

// IExternalInputEvent is implemented by events that originate outside the
// pipeline (user actions, bridge clients). They are pushed to the pipeline
// top so all handlers can observe them.
type IExternalInputEvent interface {
	IEvent
}
