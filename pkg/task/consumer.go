package task

import (
	"context"
	"sync/atomic"

	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/report"
	"github.com/itohio/adcpipe/pkg/sink"
	"github.com/rs/zerolog"
)

// ConsumerStats is a snapshot of the consumer's counters.
type ConsumerStats struct {
	Reported      uint64
	Warnings      uint64
	DropsReported uint64
	WriteErrors   uint64
}

// Consumer reports queued messages, preceded by a warning whenever producers
// dropped samples since the previous report.
type Consumer struct {
	p   *Pipeline
	out sink.TextSink
	fmt *report.Formatter
	cfg config.ConsumerConfig
	log zerolog.Logger

	reported      atomic.Uint64
	warnings      atomic.Uint64
	dropsReported atomic.Uint64
	writeErrors   atomic.Uint64
}

// NewConsumer creates the reporting task writing to out.
func NewConsumer(cfg config.ConsumerConfig, p *Pipeline, out sink.TextSink) *Consumer {
	return &Consumer{
		p:   p,
		out: out,
		fmt: report.NewFormatter(cfg.ReportFormat, cfg.WarnFormat),
		cfg: cfg,
		log: p.Log.With().Str("task", "consumer").Logger(),
	}
}

// Step waits for one message and reports it.
func (t *Consumer) Step(ctx context.Context) error {
	msg, err := t.p.Queue.Dequeue(ctx)
	if err != nil {
		return err
	}

	if dropped := t.p.Drops().ReadAndReset(); dropped > 0 {
		t.warnings.Add(1)
		t.dropsReported.Add(uint64(dropped))
		t.write(t.fmt.Warning(dropped))
	}

	channel, value := msg.Load()
	t.write(t.fmt.Sample(channel, value))
	t.reported.Add(1)

	return nil
}

// write sends one line; failures are logged and not retried.
func (t *Consumer) write(line string) {
	if err := t.out.WriteLine(line); err != nil {
		t.writeErrors.Add(1)
		t.log.Error().Err(err).Str("line", line).Msg("failed to write report")
	}
}

// Run reports until ctx is cancelled.
func (t *Consumer) Run(ctx context.Context) error {
	t.log.Debug().Int("priority", t.cfg.Priority).Msg("started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.Step(ctx); err != nil {
			return err
		}
	}
}

// Stats returns a snapshot of the consumer's counters.
func (t *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Reported:      t.reported.Load(),
		Warnings:      t.warnings.Load(),
		DropsReported: t.dropsReported.Load(),
		WriteErrors:   t.writeErrors.Load(),
	}
}
