package task

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/stretchr/testify/require"
)

// countingSampler returns base[input] plus the number of conversions done so
// far on that input, and tracks how many callers sample at once.
type countingSampler struct {
	mu     sync.Mutex
	base   map[adc.Input]uint16
	counts map[adc.Input]uint16
	input  adc.Input
	value  uint16

	active  atomic.Int32
	overlap atomic.Bool
}

func newCountingSampler(base map[adc.Input]uint16) *countingSampler {
	return &countingSampler{base: base, counts: make(map[adc.Input]uint16)}
}

func (s *countingSampler) Select(input adc.Input) {
	s.mu.Lock()
	s.input = input
	s.mu.Unlock()
}

func (s *countingSampler) BeginConversion() {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	s.mu.Lock()
	s.counts[s.input]++
	s.value = s.base[s.input] + s.counts[s.input]
	s.mu.Unlock()
}

func (s *countingSampler) IsDone() bool { return true }

func (s *countingSampler) ReadValue() uint16 {
	s.mu.Lock()
	v := s.value
	s.mu.Unlock()
	s.active.Add(-1)
	return v
}

// fixedSampler always returns the value configured for the selected input.
type fixedSampler struct {
	values map[adc.Input]uint16
	input  adc.Input
}

func (s *fixedSampler) Select(input adc.Input) { s.input = input }
func (s *fixedSampler) BeginConversion()       {}
func (s *fixedSampler) IsDone() bool           { return true }
func (s *fixedSampler) ReadValue() uint16      { return s.values[s.input] }

func newTestPipeline(t *testing.T, s adc.Sampler, poolSize, queueCapacity int) *Pipeline {
	t.Helper()
	p, err := NewPipeline(adc.NewResource(s, 0), poolSize, queueCapacity)
	require.NoError(t, err)
	return p
}

func producerConfig(channel uint8, input uint8) config.ProducerConfig {
	return config.ProducerConfig{
		Channel:  channel,
		Input:    input,
		Period:   config.Default().Producers[0].Period,
		Priority: int(channel),
	}
}

func consumerConfig() config.ConsumerConfig {
	return config.Default().Consumer
}
