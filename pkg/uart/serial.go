package uart

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/itohio/adcpipe/pkg/config"
	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate matches the reference board's UART setting.
	DefaultBaudRate = 9600
	// DefaultBufferSize is the default size of the received lines channel.
	DefaultBufferSize = 100
	// DefaultLineEnding terminates every transmitted line.
	DefaultLineEnding = "\r\n"
)

var (
	// ErrNotConnected is returned when writing to a closed link.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by a second Connect.
	ErrAlreadyConnected = errors.New("already connected")
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a serial port used both to transmit report lines and to read the
// lines sent by a running pipeline.
type Serial struct {
	port     string
	baudRate int
	ending   string
	log      zerolog.Logger

	conn      serial.Port
	lines     chan string
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool
}

// New creates a serial link from cfg. A Serial can be connected once.
func New(cfg config.SerialConfig, bufSize int, log zerolog.Logger) *Serial {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.LineEnding == "" {
		cfg.LineEnding = DefaultLineEnding
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Serial{
		port:     cfg.Port,
		baudRate: cfg.BaudRate,
		ending:   cfg.LineEnding,
		log:      log.With().Str("port", cfg.Port).Logger(),
		lines:    make(chan string, bufSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the port with 8N1 framing and starts reading lines.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return ErrAlreadyConnected
	}
	if d.ctx.Err() != nil {
		return fmt.Errorf("serial port %s was already closed", d.port)
	}

	mode := &serial.Mode{
		BaudRate: d.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(d.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	d.conn = port
	d.connected = true

	go func() {
		defer close(d.lines)
		readLines(d.ctx, port, d.lines, d.log)
	}()

	return nil
}

// Close closes the port. The lines channel is closed once the reader exits.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()

	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			d.log.Error().Err(err).Msg("error closing serial port")
		}
		d.conn = nil
	}

	d.connected = false

	return nil
}

// Lines returns the channel of received lines, without line endings.
func (d *Serial) Lines() <-chan string {
	return d.lines
}

// WriteLine transmits text followed by the configured line ending.
func (d *Serial) WriteLine(text string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected {
		return ErrNotConnected
	}

	if _, err := io.WriteString(d.conn, text+d.ending); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}

	return nil
}

// IsConnected returns whether the port is currently open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// readLines scans r until EOF, a read error or ctx cancellation and forwards
// every non-empty line to out. Lines are dropped while out is full.
func readLines(ctx context.Context, r io.Reader, out chan<- string, log zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("panic in line reader")
		}
	}()

	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("error reading from serial port")
			}
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case out <- line:
		case <-ctx.Done():
			return
		default:
			log.Warn().Str("line", line).Msg("lines channel full, dropping line")
		}
	}
}
