package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 8, cfg.PoolSize)
	assert.Equal(t, 8, cfg.QueueCapacity)
	assert.Equal(t, 256, cfg.StackSize)
	require.Len(t, cfg.Producers, 2)
	assert.Equal(t, uint8(1), cfg.Producers[0].Channel)
	assert.Equal(t, uint8(0), cfg.Producers[0].Input)
	assert.Equal(t, 5, cfg.Producers[0].Priority)
	assert.Equal(t, uint8(2), cfg.Producers[1].Channel)
	assert.Equal(t, uint8(1), cfg.Producers[1].Input)
	assert.Equal(t, 7, cfg.Producers[1].Priority)
	assert.Equal(t, time.Second, cfg.Producers[1].Period)
	assert.Equal(t, 6, cfg.Consumer.Priority)
	assert.Equal(t, "ADC%d=%d", cfg.Consumer.ReportFormat)
	assert.Equal(t, "WARN: dropped=%d", cfg.Consumer.WarnFormat)
	assert.Equal(t, 500*time.Millisecond, cfg.Heartbeat.Period)
	assert.Equal(t, 8, cfg.Heartbeat.Priority)
	assert.Equal(t, 9600, cfg.Serial.BaudRate)
	assert.Equal(t, "\r\n", cfg.Serial.LineEnding)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 8, cfg.PoolSize)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
pool_size: 4
queue_capacity: 2
stack_size: 128

producers:
  - channel: 3
    input: 2
    period: 250ms
    priority: 1
  - channel: 4
    input: 2
    period: 100ms
    priority: 2

consumer:
  priority: 3
  report_format: "CH%d:%d"

heartbeat:
  period: 1s
  priority: 4

serial:
  port: "/dev/ttyACM0"
  baud_rate: 115200

log:
  level: debug
  console: false
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, 2, cfg.QueueCapacity)
	assert.Equal(t, 128, cfg.StackSize)
	require.Len(t, cfg.Producers, 2)
	assert.Equal(t, uint8(3), cfg.Producers[0].Channel)
	assert.Equal(t, uint8(2), cfg.Producers[0].Input)
	assert.Equal(t, 250*time.Millisecond, cfg.Producers[0].Period)
	assert.Equal(t, 100*time.Millisecond, cfg.Producers[1].Period)
	assert.Equal(t, 3, cfg.Consumer.Priority)
	assert.Equal(t, "CH%d:%d", cfg.Consumer.ReportFormat)
	assert.Equal(t, "WARN: dropped=%d", cfg.Consumer.WarnFormat) // default
	assert.Equal(t, time.Second, cfg.Heartbeat.Period)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Log.Console)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB0"
producers:
  - channel: 1
    priority: 5
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.BaudRate) // default
	assert.Equal(t, 8, cfg.PoolSize)           // default
	require.Len(t, cfg.Producers, 1)
	assert.Equal(t, time.Second, cfg.Producers[0].Period) // default
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB0"
	cfg.QueueCapacity = 16

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", loaded.Serial.Port)
	assert.Equal(t, 16, loaded.QueueCapacity)
	assert.Equal(t, cfg.Producers, loaded.Producers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"zero pool", func(c *Config) { c.PoolSize = 0 }},
		{"negative queue", func(c *Config) { c.QueueCapacity = -1 }},
		{"zero stack", func(c *Config) { c.StackSize = 0 }},
		{"no producers", func(c *Config) { c.Producers = nil }},
		{"channel zero", func(c *Config) { c.Producers[0].Channel = 0 }},
		{"duplicate channel", func(c *Config) { c.Producers[1].Channel = c.Producers[0].Channel }},
		{"zero period", func(c *Config) { c.Producers[0].Period = 0 }},
		{"producer shares consumer priority", func(c *Config) { c.Producers[0].Priority = c.Consumer.Priority }},
		{"heartbeat shares consumer priority", func(c *Config) { c.Heartbeat.Priority = c.Consumer.Priority }},
		{"producers share priority", func(c *Config) { c.Producers[1].Priority = c.Producers[0].Priority }},
		{"zero heartbeat period", func(c *Config) { c.Heartbeat.Period = 0 }},
		{"empty report format", func(c *Config) { c.Consumer.ReportFormat = "" }},
		{"resolution too large", func(c *Config) { c.Sampler.ResolutionBits = 17 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestClone(t *testing.T) {
	cfg := Default()
	c := cfg.Clone()

	assert.Equal(t, cfg, c)

	c.PoolSize = 0
	c.Producers[0].Period = time.Millisecond
	c.Sampler.Noise = 99

	assert.Equal(t, 8, cfg.PoolSize)
	assert.Equal(t, time.Second, cfg.Producers[0].Period)
	assert.Equal(t, 4, cfg.Sampler.Noise)
}
