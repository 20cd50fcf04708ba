package generation

// Config controls when the derived-asset affordances unlock.
type Config struct {
	// TriggerTurnCount is the exact conversation length (one user turn plus
	// one assistant reply) at which illustration becomes available. The exact
	// match, rather than "at least", keeps the trigger from reappearing as
	// the conversation grows.
	TriggerTurnCount int `json:"trigger_turn_count"`
	// AudioMIME is the declared content type of synthesized narration.
	AudioMIME string `json:"audio_mime"`
	// ImageMIME is the declared content type of generated illustrations.
	ImageMIME string `json:"image_mime"`
}

// DefaultConfig returns a Config with the reference gating behaviour.
func DefaultConfig() Config {
	return Config{
		TriggerTurnCount: 2,
		AudioMIME:        "audio/mpeg",
		ImageMIME:        "image/jpeg",
	}
}
