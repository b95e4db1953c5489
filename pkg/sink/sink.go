// Package sink provides TextSink implementations the consumer reports to.
package sink

import (
	"fmt"
	"io"
	"sync"
)

// TextSink receives one report line at a time, without line terminator.
type TextSink interface {
	WriteLine(text string) error
}

var (
	_ TextSink = (*Writer)(nil)
	_ TextSink = Func(nil)
	_ TextSink = (*Recorder)(nil)
)

// Writer frames lines onto an io.Writer (stdout, a file, a UART).
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	ending string
}

// NewWriter creates a sink terminating every line with ending. An empty
// ending defaults to "\n".
func NewWriter(w io.Writer, ending string) *Writer {
	if ending == "" {
		ending = "\n"
	}
	return &Writer{w: w, ending: ending}
}

// WriteLine writes text followed by the line ending.
func (s *Writer) WriteLine(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := io.WriteString(s.w, text+s.ending); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	return nil
}

// Func adapts a function to TextSink.
type Func func(text string) error

// WriteLine calls f(text).
func (f Func) WriteLine(text string) error {
	return f(text)
}

// Tee writes every line to all sinks and returns the first error.
func Tee(sinks ...TextSink) TextSink {
	return Func(func(text string) error {
		var first error
		for _, s := range sinks {
			if err := s.WriteLine(text); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}
