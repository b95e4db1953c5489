package uart

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Loopback is an in-process link: every written line is delivered on Lines.
// It stands in for a serial cable when the pipeline and the monitor run in
// the same process.
type Loopback struct {
	log zerolog.Logger

	lines     chan string
	mu        sync.RWMutex
	connected bool
	closed    bool
	dropped   uint64
}

// NewLoopback creates a loopback link buffering up to bufSize lines.
func NewLoopback(bufSize int, log zerolog.Logger) *Loopback {
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Loopback{
		log:   log.With().Str("port", "loopback").Logger(),
		lines: make(chan string, bufSize),
	}
}

// Connect enables delivery.
func (l *Loopback) Connect() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.connected {
		return ErrAlreadyConnected
	}
	if l.closed {
		return ErrNotConnected
	}
	l.connected = true

	return nil
}

// Close stops delivery and closes the lines channel.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return nil
	}

	l.connected = false
	l.closed = true
	close(l.lines)

	return nil
}

// Lines returns the channel of written lines.
func (l *Loopback) Lines() <-chan string {
	return l.lines
}

// WriteLine delivers text. A full buffer drops the line without blocking the
// writer.
func (l *Loopback) WriteLine(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.connected {
		return ErrNotConnected
	}

	line := strings.TrimSpace(text)
	select {
	case l.lines <- line:
	default:
		l.dropped++
		l.log.Debug().Str("line", line).Uint64("dropped", l.dropped).Msg("loopback full, dropping line")
	}

	return nil
}

// IsConnected returns whether the loopback is delivering lines.
func (l *Loopback) IsConnected() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.connected
}

// Dropped returns how many lines were discarded because nobody read them.
func (l *Loopback) Dropped() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dropped
}
