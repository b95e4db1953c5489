// Package system wires the converter, pool, queue and tasks into a running
// pipeline.
package system

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/sink"
	"github.com/itohio/adcpipe/pkg/task"
	"github.com/joeycumines/go-catrate"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidConfig is returned by New when the pipeline cannot be
	// started. No task is started in that case.
	ErrInvalidConfig = errors.New("invalid pipeline configuration")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("pipeline already running")
)

// Stats is a snapshot of all task counters.
type Stats struct {
	Producers []task.ProducerStats
	Consumer  task.ConsumerStats
	Toggles   uint64
	Queued    int
}

// scheduled is one task in start order.
type scheduled struct {
	name     string
	priority int
	run      func(context.Context) error
}

// System owns every primitive of one pipeline instance.
type System struct {
	cfg *config.Config
	log zerolog.Logger

	pipeline  *task.Pipeline
	producers []*task.Producer
	consumer  *task.Consumer
	heartbeat *task.Heartbeat
	tasks     []scheduled

	running atomic.Bool
}

// New validates cfg and creates all primitives and tasks. out receives the
// report lines; led may be nil, in which case heartbeat levels are only
// logged.
func New(cfg *config.Config, sampler adc.Sampler, out sink.TextSink, led task.Output, log zerolog.Logger) (*System, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: missing configuration", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if sampler == nil {
		return nil, fmt.Errorf("%w: missing sampler", ErrInvalidConfig)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: missing report sink", ErrInvalidConfig)
	}
	if led == nil {
		led = task.NewLogOutput(log)
	}

	res := adc.NewResource(sampler, cfg.Sampler.PollInterval)
	p, err := task.NewPipeline(res, cfg.PoolSize, cfg.QueueCapacity)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	p.Log = log
	if n := cfg.Log.DropWarningsPerSecond; n > 0 {
		p.Limiter = catrate.NewLimiter(map[time.Duration]int{time.Second: n})
	}

	s := &System{
		cfg:       cfg,
		log:       log,
		pipeline:  p,
		consumer:  task.NewConsumer(cfg.Consumer, p, out),
		heartbeat: task.NewHeartbeat(cfg.Heartbeat, led, log),
	}

	s.tasks = append(s.tasks,
		scheduled{"consumer", cfg.Consumer.Priority, s.consumer.Run},
		scheduled{"heartbeat", cfg.Heartbeat.Priority, s.heartbeat.Run},
	)
	for _, pc := range cfg.Producers {
		prod := task.NewProducer(pc, p)
		s.producers = append(s.producers, prod)
		s.tasks = append(s.tasks, scheduled{fmt.Sprintf("adc%d", pc.Channel), pc.Priority, prod.Run})
	}

	// Lower number is more urgent and starts first.
	slices.SortFunc(s.tasks, func(a, b scheduled) int { return a.priority - b.priority })

	return s, nil
}

// Run starts every task and blocks until ctx is cancelled or a task fails.
// Cancellation is a clean shutdown and returns nil.
func (s *System) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	s.log.Info().
		Int("pool_size", s.cfg.PoolSize).
		Int("queue_capacity", s.cfg.QueueCapacity).
		Int("stack_size", s.cfg.StackSize).
		Int("tasks", len(s.tasks)).
		Msg("starting pipeline")

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.tasks {
		s.log.Debug().Str("task", t.name).Int("priority", t.priority).Msg("starting task")
		g.Go(func() error {
			if err := t.run(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("task %s: %w", t.name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	s.log.Info().Err(err).Msg("pipeline stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Running reports whether Run is in progress.
func (s *System) Running() bool {
	return s.running.Load()
}

// TaskOrder returns task names in start order.
func (s *System) TaskOrder() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.name
	}
	return names
}

// Pipeline returns the shared primitives.
func (s *System) Pipeline() *task.Pipeline {
	return s.pipeline
}

// Producers returns the producer tasks in configuration order.
func (s *System) Producers() []*task.Producer {
	return s.producers
}

// Consumer returns the reporting task.
func (s *System) Consumer() *task.Consumer {
	return s.consumer
}

// Heartbeat returns the blink task.
func (s *System) Heartbeat() *task.Heartbeat {
	return s.heartbeat
}

// Stats returns a snapshot of all counters.
func (s *System) Stats() Stats {
	st := Stats{
		Consumer: s.consumer.Stats(),
		Toggles:  s.heartbeat.Toggles(),
		Queued:   s.pipeline.Queue.Len(),
	}
	for _, p := range s.producers {
		st.Producers = append(st.Producers, p.Stats())
	}
	return st
}

// Event renders st as a log event dictionary.
func (st Stats) Event() *zerolog.Event {
	e := zerolog.Dict().
		Uint64("reported", st.Consumer.Reported).
		Uint64("warnings", st.Consumer.Warnings).
		Uint64("drops_reported", st.Consumer.DropsReported).
		Uint64("write_errors", st.Consumer.WriteErrors).
		Uint64("toggles", st.Toggles).
		Int("queued", st.Queued)
	for _, p := range st.Producers {
		e = e.Dict(fmt.Sprintf("adc%d", p.Channel), zerolog.Dict().
			Uint64("sampled", p.Sampled).
			Uint64("enqueued", p.Enqueued).
			Uint64("dropped", p.Dropped))
	}
	return e
}
