package task

import (
	"context"
	"sync/atomic"

	"github.com/itohio/adcpipe/pkg/config"
	"github.com/rs/zerolog"
)

// Output is a binary output such as an LED pin.
type Output interface {
	Set(on bool)
}

// OutputFunc adapts a function to Output.
type OutputFunc func(on bool)

// Set calls f(on).
func (f OutputFunc) Set(on bool) { f(on) }

// LogOutput is an Output that only logs its level.
type LogOutput struct {
	log zerolog.Logger
}

// NewLogOutput creates an output logging every change at trace level.
func NewLogOutput(log zerolog.Logger) *LogOutput {
	return &LogOutput{log: log.With().Str("output", "led").Logger()}
}

// Set logs on.
func (o *LogOutput) Set(on bool) {
	o.log.Trace().Bool("on", on).Msg("heartbeat")
}

// Heartbeat toggles an output at a fixed period.
type Heartbeat struct {
	cfg config.HeartbeatConfig
	out Output
	log zerolog.Logger

	on      bool
	toggles atomic.Uint64
}

// NewHeartbeat creates the heartbeat task.
func NewHeartbeat(cfg config.HeartbeatConfig, out Output, log zerolog.Logger) *Heartbeat {
	return &Heartbeat{
		cfg: cfg,
		out: out,
		log: log.With().Str("task", "heartbeat").Logger(),
	}
}

// Step toggles the output once.
func (t *Heartbeat) Step(context.Context) error {
	t.on = !t.on
	t.out.Set(t.on)
	t.toggles.Add(1)
	return nil
}

// Run toggles every cfg.Period until ctx is cancelled.
func (t *Heartbeat) Run(ctx context.Context) error {
	t.log.Debug().
		Int("priority", t.cfg.Priority).
		Dur("period", t.cfg.Period).
		Msg("started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = t.Step(ctx)
		if err := delay(ctx, t.cfg.Period); err != nil {
			return err
		}
	}
}

// Toggles returns how many times the output was toggled.
func (t *Heartbeat) Toggles() uint64 {
	return t.toggles.Load()
}
