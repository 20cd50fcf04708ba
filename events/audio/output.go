package audio

// AudioRequestedEvent is the explicit user action that starts narration.
// External input: fired by the terminal UI or a bridge client.
type AudioRequestedEvent struct{}

func (e *AudioRequestedEvent) GetId() string {
	return "audio.requested"
}

// AudioEligibleEvent announces that narration became available (the image
// for this conversation is ready and no audio asset exists yet).
type AudioEligibleEvent struct{}

func (e *AudioEligibleEvent) GetId() string {
	return "audio.eligible"
}

type AudioLoadingEvent struct{}

func (e *AudioLoadingEvent) GetId() string {
	return "audio.loading"
}

// AudioReadyEvent carries the handle of the playable narration asset.
// Fallback is true when the playability probe timed out and the asset was
// surfaced as ready anyway.
type AudioReadyEvent struct {
	Handle   string `json:"handle"`
	Fallback bool   `json:"fallback"`
}

func (e *AudioReadyEvent) GetId() string {
	return "audio.ready"
}

type AudioFailedEvent struct {
	Message string `json:"message"`
}

func (e *AudioFailedEvent) GetId() string {
	return "audio.failed"
}
