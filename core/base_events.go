package core

type CriticalErrorEvent struct {
	Error string
}

func (e *CriticalErrorEvent) GetId() string {
	return "shared.critical_error"
}

type WarningEvent struct {
	Error string
}

func (e *WarningEvent) GetId() string {
	return "shared.warning"
}

// EndSessionEvent is fired when the user ends the conversation. The runner
// handles it by stopping the pipeline gracefully.
type EndSessionEvent struct {
	Reason string
}

func (e *EndSessionEvent) GetId() string {
	return "shared.end_session"
}
