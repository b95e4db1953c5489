package task

import (
	"context"
	"sync/atomic"

	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/rs/zerolog"
)

// ProducerStats is a snapshot of a producer's counters.
type ProducerStats struct {
	Channel  uint8
	Sampled  uint64
	Enqueued uint64
	Dropped  uint64
}

// Producer periodically samples one converter input and publishes the result.
type Producer struct {
	cfg config.ProducerConfig
	p   *Pipeline
	log zerolog.Logger

	sampled  atomic.Uint64
	enqueued atomic.Uint64
	dropped  atomic.Uint64
}

// NewProducer creates a producer for cfg.Channel.
func NewProducer(cfg config.ProducerConfig, p *Pipeline) *Producer {
	return &Producer{
		cfg: cfg,
		p:   p,
		log: p.Log.With().
			Str("task", "producer").
			Uint8("channel", cfg.Channel).
			Logger(),
	}
}

// Channel returns the channel identifier stamped on every message.
func (t *Producer) Channel() uint8 {
	return t.cfg.Channel
}

// Step samples once and tries to queue the result. It only fails if ctx is
// cancelled while the converter is busy.
func (t *Producer) Step(ctx context.Context) error {
	t.p.Resource.Acquire()
	value, err := t.p.Resource.Sample(ctx, adc.Input(t.cfg.Input))
	t.p.Resource.Release()
	if err != nil {
		return err
	}
	t.sampled.Add(1)

	msg := t.p.Pool.Allocate()
	msg.Set(t.cfg.Channel, value)

	if !t.p.Queue.TryEnqueue(msg) {
		t.p.Drops().Increment()
		t.dropped.Add(1)

		// The drop is always counted; only the log line is rate limited.
		if _, ok := t.p.Limiter.Allow(t.cfg.Channel); ok {
			t.log.Warn().
				Uint16("value", value).
				Uint64("dropped", t.dropped.Load()).
				Msg("queue full, dropping sample")
		}
		return nil
	}

	t.enqueued.Add(1)
	t.log.Trace().Uint16("value", value).Msg("queued")
	return nil
}

// Run samples every cfg.Period until ctx is cancelled.
func (t *Producer) Run(ctx context.Context) error {
	t.log.Debug().
		Int("priority", t.cfg.Priority).
		Dur("period", t.cfg.Period).
		Msg("started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Step(ctx); err != nil {
			return err
		}
		if err := delay(ctx, t.cfg.Period); err != nil {
			return err
		}
	}
}

// Stats returns a snapshot of the producer's counters.
func (t *Producer) Stats() ProducerStats {
	return ProducerStats{
		Channel:  t.cfg.Channel,
		Sampled:  t.sampled.Load(),
		Enqueued: t.enqueued.Load(),
		Dropped:  t.dropped.Load(),
	}
}
