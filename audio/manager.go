package audio

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"chefkit/core"
	audioutil "chefkit/utils/audio"
)

// ProbeOutcome is the single resolution value of a playability probe.
type ProbeOutcome int

const (
	ProbePlayable ProbeOutcome = iota + 1
	ProbeFailed
	ProbeTimedOut
)

func (o ProbeOutcome) String() string {
	switch o {
	case ProbePlayable:
		return "playable"
	case ProbeFailed:
		return "failed"
	case ProbeTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Handle is an opaque local reference to an in-memory audio payload. It
// enables playback without re-fetching; only the Manager may release it.
type Handle struct {
	uri     string
	mime    string
	payload []byte
}

// URI returns the handle's mem:// reference.
func (h *Handle) URI() string { return h.uri }

func (h *Handle) MIME() string { return h.mime }

// Payload returns the raw audio bytes backing the handle.
func (h *Handle) Payload() []byte { return h.payload }

// Config bounds the playability probe.
type Config struct {
	// ProbeTimeout is the bounded wait on the playability probe. Expiry is a
	// fallback to ready, not an error.
	ProbeTimeout time.Duration `json:"probe_timeout"`
}

func DefaultConfig() Config {
	return Config{ProbeTimeout: 5 * time.Second}
}

// Manager owns the single live audio resource handle of a conversation.
// Allocating a new handle releases the previous one first; double releases
// and leaked handles are invariant violations the accounting surfaces.
type Manager struct {
	config Config
	logger *core.Logger

	mu        sync.Mutex
	live      *Handle
	activated bool
	allocated int
	released  int

	// validate is swapped in tests to simulate slow or failing decoders.
	validate func(payload []byte, mime string) error
}

func NewManager(config Config, logger *core.Logger) *Manager {
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.ProbeTimeout <= 0 {
		config.ProbeTimeout = DefaultConfig().ProbeTimeout
	}
	return &Manager{
		config:   config,
		logger:   logger,
		validate: validatePayload,
	}
}

// Activate marks the platform audio context as resumed. It must be called
// synchronously inside the same user action that triggers generation;
// gesture-gated platforms silently refuse playback when this is deferred to
// a later callback.
func (m *Manager) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activated = true
}

// Allocate wraps the payload in a fresh handle and makes it the live one,
// releasing any previous handle first so at most one is ever live.
func (m *Manager) Allocate(payload []byte, mime string) (*Handle, error) {
	if len(payload) == 0 {
		return nil, core.NewResourceFailure("cannot allocate handle for empty payload", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.activated {
		m.logger.Warn("allocating audio handle without a prior user-gesture activation; playback may be blocked")
	}
	if m.live != nil {
		m.logger.With(map[string]interface{}{"uri": m.live.uri}).Debug("releasing superseded audio handle")
		m.live = nil
		m.released++
	}

	h := &Handle{
		uri:     "mem://audio/" + uuid.New().String(),
		mime:    mime,
		payload: payload,
	}
	m.live = h
	m.allocated++
	return h, nil
}

// Release frees the handle. Releasing a handle that is not live (already
// released, superseded, or foreign) is an invariant violation.
func (m *Manager) Release(h *Handle) error {
	if h == nil {
		return core.NewResourceFailure("release of nil handle", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil || m.live.uri != h.uri {
		return core.NewResourceFailure("release of non-live handle "+h.uri, nil)
	}
	m.live = nil
	m.released++
	return nil
}

// Probe checks that the handle's payload is playable. The check runs
// concurrently and resolves to exactly one of Playable, Failed, or TimedOut
// within the configured bound. TimedOut is a fallback, not an error: callers
// surface the asset as ready rather than leaving it pending.
func (m *Manager) Probe(ctx context.Context, h *Handle) ProbeOutcome {
	result := make(chan error, 1)
	go func() {
		result <- m.validate(h.payload, h.mime)
	}()

	timer := time.NewTimer(m.config.ProbeTimeout)
	defer timer.Stop()

	select {
	case err := <-result:
		if err != nil {
			m.logger.With(map[string]interface{}{"uri": h.uri, "error": err}).Warn("audio playability probe failed")
			return ProbeFailed
		}
		return ProbePlayable
	case <-timer.C:
		m.logger.With(map[string]interface{}{"uri": h.uri}).Warn("audio playability probe timed out, surfacing as ready")
		return ProbeTimedOut
	case <-ctx.Done():
		return ProbeTimedOut
	}
}

// LiveCount reports how many handles are currently live (0 or 1).
func (m *Manager) LiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live != nil {
		return 1
	}
	return 0
}

// Accounting returns total allocations and releases for leak checks.
func (m *Manager) Accounting() (allocated, released int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocated, m.released
}

// Close releases the live handle, if any, exactly once. Safe on teardown.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live != nil {
		m.live = nil
		m.released++
	}
	return nil
}

// validatePayload is the default decode probe: it inspects the container
// header for the declared type.
func validatePayload(payload []byte, mime string) error {
	switch mime {
	case "audio/mpeg":
		if !audioutil.IsMP3(payload) {
			return core.NewResourceFailure("payload is not an MPEG audio stream", nil)
		}
	case "audio/wav", "audio/x-wav":
		if !audioutil.IsWAV(payload) {
			return core.NewResourceFailure("payload is not a WAV stream", nil)
		}
	case "audio/basic":
		// G.711 is headerless; non-empty is all we can check.
	default:
		if !audioutil.IsMP3(payload) && !audioutil.IsWAV(payload) {
			return core.NewResourceFailure("payload container not recognised", nil)
		}
	}
	return nil
}
