package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate when the configuration cannot be used to
// start the pipeline.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	PoolSize      int              `yaml:"pool_size"`      // Number of preallocated message slots
	QueueCapacity int              `yaml:"queue_capacity"` // Maximum number of queued messages
	StackSize     int              `yaml:"stack_size"`     // Per-task stack budget (words)
	Producers     []ProducerConfig `yaml:"producers"`
	Consumer      ConsumerConfig   `yaml:"consumer"`
	Heartbeat     HeartbeatConfig  `yaml:"heartbeat"`
	Sampler       SamplerConfig    `yaml:"sampler"`
	Serial        SerialConfig     `yaml:"serial"`
	Log           LogConfig        `yaml:"log"`
	Monitor       MonitorConfig    `yaml:"monitor"`
}

// ProducerConfig describes one sampling task.
type ProducerConfig struct {
	Channel  uint8         `yaml:"channel"`  // Identifier stamped on every message (1..255)
	Input    uint8         `yaml:"input"`    // ADC input selected before each conversion
	Period   time.Duration `yaml:"period"`   // Delay between samples
	Priority int           `yaml:"priority"` // Lower is more urgent
}

// ConsumerConfig describes the reporting task.
type ConsumerConfig struct {
	Priority     int    `yaml:"priority"`
	ReportFormat string `yaml:"report_format"` // fmt format taking channel and value
	WarnFormat   string `yaml:"warn_format"`   // fmt format taking the drop count
}

// HeartbeatConfig describes the independent blink task.
type HeartbeatConfig struct {
	Period   time.Duration `yaml:"period"`
	Priority int           `yaml:"priority"`
}

// SamplerConfig contains simulated converter parameters.
type SamplerConfig struct {
	ResolutionBits int           `yaml:"resolution_bits"` // Converter resolution in bits
	ConversionTime time.Duration `yaml:"conversion_time"` // Simulated conversion latency
	PollInterval   time.Duration `yaml:"poll_interval"`   // 0 = yield between completion polls
	VRef           float32       `yaml:"vref"`            // Reference voltage (V)
	Noise          int           `yaml:"noise"`           // Peak noise in counts
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port       string `yaml:"port"`
	BaudRate   int    `yaml:"baud_rate"`
	LineEnding string `yaml:"line_ending"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level                 string `yaml:"level"`
	Console               bool   `yaml:"console"`
	DropWarningsPerSecond int    `yaml:"drop_warnings_per_second"` // 0 = unlimited
}

// MonitorConfig contains host-side report monitoring parameters.
type MonitorConfig struct {
	Window         time.Duration `yaml:"window"`
	AverageSamples int           `yaml:"average_samples"` // 0 = disabled
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		PoolSize:      8,
		QueueCapacity: 8,
		StackSize:     256,
		Producers: []ProducerConfig{
			{Channel: 1, Input: 0, Period: time.Second, Priority: 5},
			{Channel: 2, Input: 1, Period: time.Second, Priority: 7},
		},
		Consumer: ConsumerConfig{
			Priority:     6,
			ReportFormat: "ADC%d=%d",
			WarnFormat:   "WARN: dropped=%d",
		},
		Heartbeat: HeartbeatConfig{
			Period:   500 * time.Millisecond,
			Priority: 8,
		},
		Sampler: SamplerConfig{
			ResolutionBits: 10,
			ConversionTime: 100 * time.Microsecond,
			PollInterval:   0,
			VRef:           5.0,
			Noise:          4,
		},
		Serial: SerialConfig{
			Port:       "",
			BaudRate:   9600,
			LineEnding: "\r\n",
		},
		Log: LogConfig{
			Level:                 "info",
			Console:               true,
			DropWarningsPerSecond: 1,
		},
		Monitor: MonitorConfig{
			Window:         30 * time.Second,
			AverageSamples: 0,
		},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Producers = append([]ProducerConfig(nil), c.Producers...)
	return &out
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the startup-time constants. A configuration that fails
// validation must not be used to start any task.
func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("%w: pool_size must be positive, got %d", ErrInvalid, c.PoolSize)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("%w: queue_capacity must be positive, got %d", ErrInvalid, c.QueueCapacity)
	}
	if c.StackSize <= 0 {
		return fmt.Errorf("%w: stack_size must be positive, got %d", ErrInvalid, c.StackSize)
	}
	if len(c.Producers) == 0 {
		return fmt.Errorf("%w: at least one producer is required", ErrInvalid)
	}

	priorities := map[int]string{
		c.Consumer.Priority: "consumer",
	}
	claim := func(prio int, owner string) error {
		if other, ok := priorities[prio]; ok {
			return fmt.Errorf("%w: priority %d used by both %s and %s", ErrInvalid, prio, other, owner)
		}
		priorities[prio] = owner
		return nil
	}
	if err := claim(c.Heartbeat.Priority, "heartbeat"); err != nil {
		return err
	}

	channels := make(map[uint8]struct{}, len(c.Producers))
	for i, p := range c.Producers {
		if p.Channel == 0 {
			return fmt.Errorf("%w: producer %d: channel must be in 1..255", ErrInvalid, i)
		}
		if _, ok := channels[p.Channel]; ok {
			return fmt.Errorf("%w: producer %d: duplicate channel %d", ErrInvalid, i, p.Channel)
		}
		channels[p.Channel] = struct{}{}
		if p.Period <= 0 {
			return fmt.Errorf("%w: producer %d: period must be positive", ErrInvalid, i)
		}
		if err := claim(p.Priority, fmt.Sprintf("producer %d", p.Channel)); err != nil {
			return err
		}
	}

	if c.Heartbeat.Period <= 0 {
		return fmt.Errorf("%w: heartbeat period must be positive", ErrInvalid)
	}
	if c.Consumer.ReportFormat == "" || c.Consumer.WarnFormat == "" {
		return fmt.Errorf("%w: consumer formats must not be empty", ErrInvalid)
	}
	if c.Sampler.ResolutionBits <= 0 || c.Sampler.ResolutionBits > 16 {
		return fmt.Errorf("%w: sampler resolution must be in 1..16 bits, got %d", ErrInvalid, c.Sampler.ResolutionBits)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.PoolSize == 0 {
		c.PoolSize = def.PoolSize
	}
	if c.QueueCapacity == 0 {
		c.QueueCapacity = def.QueueCapacity
	}
	if c.StackSize == 0 {
		c.StackSize = def.StackSize
	}

	if len(c.Producers) == 0 {
		c.Producers = def.Producers
	}
	for i := range c.Producers {
		if c.Producers[i].Period == 0 {
			c.Producers[i].Period = time.Second
		}
	}

	if c.Consumer.ReportFormat == "" {
		c.Consumer.ReportFormat = def.Consumer.ReportFormat
	}
	if c.Consumer.WarnFormat == "" {
		c.Consumer.WarnFormat = def.Consumer.WarnFormat
	}

	if c.Heartbeat.Period == 0 {
		c.Heartbeat.Period = def.Heartbeat.Period
	}

	if c.Sampler.ResolutionBits == 0 {
		c.Sampler.ResolutionBits = def.Sampler.ResolutionBits
	}
	if c.Sampler.VRef == 0 {
		c.Sampler.VRef = def.Sampler.VRef
	}

	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.LineEnding == "" {
		c.Serial.LineEnding = def.Serial.LineEnding
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}

	if c.Monitor.Window == 0 {
		c.Monitor.Window = def.Monitor.Window
	}
}
