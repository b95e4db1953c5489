package system

import (
	"context"
	"testing"
	"time"

	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/report"
	"github.com/itohio/adcpipe/pkg/sink"
	"github.com/itohio/adcpipe/pkg/task"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *config.Config {
	cfg := config.Default()
	cfg.Producers[0].Period = 5 * time.Millisecond
	cfg.Producers[1].Period = 5 * time.Millisecond
	cfg.Heartbeat.Period = 5 * time.Millisecond
	cfg.Sampler.ConversionTime = 10 * time.Microsecond
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Config
		sampler adc.Sampler
		out     sink.TextSink
	}{
		{"nil config", nil, adc.NewSim(nil), sink.NewRecorder()},
		{"zero pool", func() *config.Config { c := config.Default(); c.PoolSize = 0; return c }(), adc.NewSim(nil), sink.NewRecorder()},
		{"zero queue", func() *config.Config { c := config.Default(); c.QueueCapacity = 0; return c }(), adc.NewSim(nil), sink.NewRecorder()},
		{"duplicate priority", func() *config.Config {
			c := config.Default()
			c.Heartbeat.Priority = c.Producers[0].Priority
			return c
		}(), adc.NewSim(nil), sink.NewRecorder()},
		{"nil sampler", config.Default(), nil, sink.NewRecorder()},
		{"nil sink", config.Default(), adc.NewSim(nil), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, tt.sampler, tt.out, nil, zerolog.Nop())
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, s)
		})
	}
}

func TestNew_ValidationErrorKeepsCause(t *testing.T) {
	cfg := config.Default()
	cfg.StackSize = 0

	_, err := New(cfg, adc.NewSim(nil), sink.NewRecorder(), nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNew_TaskOrderFollowsPriority(t *testing.T) {
	s, err := New(config.Default(), adc.NewSim(nil), sink.NewRecorder(), nil, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{"adc1", "consumer", "adc2", "heartbeat"}, s.TaskOrder())
	assert.Len(t, s.Producers(), 2)
	assert.Equal(t, 8, s.Pipeline().Pool.Len())
	assert.Equal(t, 8, s.Pipeline().Queue.Cap())
	assert.NotNil(t, s.Pipeline().Limiter)
}

func TestNew_UnlimitedDropWarnings(t *testing.T) {
	cfg := config.Default()
	cfg.Log.DropWarningsPerSecond = 0

	s, err := New(cfg, adc.NewSim(nil), sink.NewRecorder(), nil, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, s.Pipeline().Limiter)
}

func TestSystem_RunReportsAndStops(t *testing.T) {
	rec := sink.NewRecorder()
	var toggles []bool
	led := make(chan bool, 1000)

	s, err := New(fastConfig(), adc.NewSim(nil), rec, task.OutputFunc(func(on bool) {
		select {
		case led <- on:
		default:
		}
	}), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.True(t, rec.WaitFor(6, 2*time.Second), "pipeline produced no reports")
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err, "cancellation is a clean shutdown")
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop")
	}
	assert.False(t, s.Running())

	channels := map[uint8]bool{}
	for _, line := range rec.Lines() {
		r, err := report.Parse(line)
		require.NoError(t, err, line)
		if r.Kind == report.KindSample {
			channels[r.Channel] = true
			assert.LessOrEqual(t, r.Value, uint16(1023))
		}
	}
	assert.True(t, channels[1])
	assert.True(t, channels[2])

	close(led)
	for on := range led {
		toggles = append(toggles, on)
	}
	require.NotEmpty(t, toggles)
	assert.True(t, toggles[0], "first toggle turns the output on")

	st := s.Stats()
	require.Len(t, st.Producers, 2)
	for _, p := range st.Producers {
		assert.Equal(t, p.Sampled, p.Enqueued+p.Dropped)
	}
	assert.Positive(t, st.Consumer.Reported)
	assert.Positive(t, st.Toggles)
}

func TestSystem_AlreadyRunning(t *testing.T) {
	s, err := New(fastConfig(), adc.NewSim(nil), sink.NewRecorder(), nil, zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, s.Running, time.Second, time.Millisecond)
	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)

	// A stopped system can be run again.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	assert.NoError(t, s.Run(ctx2))
}

func TestStats_Event(t *testing.T) {
	st := Stats{
		Producers: []task.ProducerStats{{Channel: 1, Sampled: 3, Enqueued: 2, Dropped: 1}},
		Consumer:  task.ConsumerStats{Reported: 2},
	}
	assert.NotNil(t, st.Event())
}
