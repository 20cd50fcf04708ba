package image

// ImageRequestedEvent is the explicit user action that starts image
// generation. External input: fired by the terminal UI or a bridge client.
type ImageRequestedEvent struct{}

func (e *ImageRequestedEvent) GetId() string {
	return "image.requested"
}

// ImageEligibleEvent announces that the conversation reached the point where
// an illustration can be generated. Fires at most once per conversation.
type ImageEligibleEvent struct{}

func (e *ImageEligibleEvent) GetId() string {
	return "image.eligible"
}

type ImageLoadingEvent struct{}

func (e *ImageLoadingEvent) GetId() string {
	return "image.loading"
}

// ImageReadyEvent carries the generated image as base64-encoded bytes.
type ImageReadyEvent struct {
	Base64 string `json:"base64"`
	MIME   string `json:"mime"`
}

func (e *ImageReadyEvent) GetId() string {
	return "image.ready"
}

type ImageFailedEvent struct {
	Message string `json:"message"`
}

func (e *ImageFailedEvent) GetId() string {
	return "image.failed"
}
