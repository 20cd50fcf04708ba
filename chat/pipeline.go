package chat

import (
	"context"
	"time"

	"chefkit/core"
)

// Completer opens a streaming completion for the given turns and delivers
// text fragments to out in generation order. It returns once the stream ends,
// with a terminal error on failure. Implementations must not reorder or
// buffer fragments beyond simple relaying.
type Completer interface {
	Stream(ctx context.Context, turns []core.Turn, out chan<- string) error
}

// PipelineConfig bounds and shapes the chat pipeline.
type PipelineConfig struct {
	// Window is the number of most recent turns (hint included) forwarded to
	// the backend.
	Window int `json:"window"`
	// MaxDuration is the hard wall-clock bound on one streaming call.
	MaxDuration time.Duration `json:"max_duration"`
}

// DefaultPipelineConfig returns a PipelineConfig with the reference bounds.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Window:      DefaultWindow,
		MaxDuration: 30 * time.Second,
	}
}

// Pipeline is the server-side chat pipeline: it appends a fresh diversity
// hint to the incoming turns, trims to the context window, and relays the
// backend's fragment stream to the caller unmodified.
type Pipeline struct {
	injector *Injector
	svc      Completer
	config   PipelineConfig
	logger   *core.Logger
}

func NewPipeline(svc Completer, injector *Injector, config PipelineConfig, logger *core.Logger) *Pipeline {
	if injector == nil {
		injector = NewInjector(nil)
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.MaxDuration <= 0 {
		config.MaxDuration = 30 * time.Second
	}
	return &Pipeline{
		injector: injector,
		svc:      svc,
		config:   config,
		logger:   logger,
	}
}

// Run streams the reply for the given conversation to out. The hint turn is
// appended to a copy of the input; the caller's slice and store are never
// touched. Failures surface as a single terminal error; retries are the
// caller's concern.
func (p *Pipeline) Run(ctx context.Context, turns []core.Turn, out chan<- string) error {
	themed := make([]core.Turn, 0, len(turns)+1)
	themed = append(themed, turns...)
	themed = append(themed, p.injector.HintTurn())

	forwarded := TrimWindow(themed, p.config.Window)

	ctx, cancel := context.WithTimeout(ctx, p.config.MaxDuration)
	defer cancel()

	p.logger.With(map[string]interface{}{
		"turns":     len(turns),
		"forwarded": len(forwarded),
	}).Debug("running chat pipeline")

	if err := p.svc.Stream(ctx, forwarded, out); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return core.NewTransportFailure("chat stream exceeded time bound", err)
		}
		return err
	}
	return nil
}
