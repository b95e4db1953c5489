package adc

import (
	"math"
	"sync"
	"time"

	"github.com/itohio/adcpipe/pkg/config"
)

// Sim simulates a multiplexed converter for testing and development.
//
// Every input produces a slow sine wave around mid-scale with a small amount
// of deterministic noise. A conversion completes ConversionTime after it was
// started.
type Sim struct {
	cfg *config.SamplerConfig

	mu        sync.Mutex
	startTime time.Time
	input     Input
	started   time.Time
	value     uint16
	busy      bool

	conversions uint64
}

// NewSim creates a new simulated converter. cfg is copied; later changes to
// it do not affect the converter.
func NewSim(cfg *config.SamplerConfig) *Sim {
	c := config.SamplerConfig{
		ResolutionBits: 10,
		ConversionTime: 100 * time.Microsecond,
		VRef:           5.0,
		Noise:          4,
	}
	if cfg != nil {
		c = *cfg
	}

	return &Sim{
		cfg:       &c,
		startTime: time.Now(),
	}
}

// Select switches the multiplexer to input.
func (s *Sim) Select(input Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = input
}

// BeginConversion latches the current level of the selected input.
func (s *Sim) BeginConversion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.started = now
	s.value = s.level(s.input, now.Sub(s.startTime))
	s.busy = true
}

// IsDone reports whether the conversion time has elapsed.
func (s *Sim) IsDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.busy {
		return true
	}
	if time.Since(s.started) < s.cfg.ConversionTime {
		return false
	}
	s.busy = false
	s.conversions++
	return true
}

// ReadValue returns the result of the last conversion.
func (s *Sim) ReadValue() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Conversions returns the number of completed conversions.
func (s *Sim) Conversions() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversions
}

// MaxValue returns the full-scale reading for the configured resolution.
func (s *Sim) MaxValue() uint16 {
	return maxValue(s.cfg.ResolutionBits)
}

// level computes the simulated reading of input after elapsed time.
func (s *Sim) level(input Input, elapsed time.Duration) uint16 {
	full := float64(maxValue(s.cfg.ResolutionBits))

	// Each input gets its own period so the channels are distinguishable.
	period := float64(4+int(input)) * float64(time.Second)
	phase := 2 * math.Pi * float64(elapsed) / period
	v := full/2 + full*0.4*math.Sin(phase)

	noise := (math.Sin(float64(elapsed.Nanoseconds())*0.001) +
		math.Cos(float64(elapsed.Nanoseconds())*0.0013)) *
		float64(s.cfg.Noise) * 0.5
	v += noise

	if v < 0 {
		v = 0
	} else if v > full {
		v = full
	}
	return uint16(v)
}

func maxValue(bits int) uint16 {
	if bits <= 0 {
		return 0
	}
	if bits >= 16 {
		return math.MaxUint16
	}
	return uint16(1)<<bits - 1
}
