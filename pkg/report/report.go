// Package report formats the consumer's text reports and parses them back on
// the host side.
package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chewxy/math32"
)

// ErrUnknownLine is returned by Parse for lines that are neither a sample
// report nor a drop warning.
var ErrUnknownLine = errors.New("unknown report line")

// Kind distinguishes the two report lines.
type Kind uint8

const (
	KindSample Kind = iota + 1
	KindWarning
)

func (k Kind) String() string {
	switch k {
	case KindSample:
		return "sample"
	case KindWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Report is one parsed line.
type Report struct {
	Timestamp time.Time
	Kind      Kind
	Channel   uint8  // KindSample only
	Value     uint16 // KindSample only
	Dropped   uint32 // KindWarning only
}

// Formatter renders reports with the configured fmt formats.
type Formatter struct {
	sample  string
	warning string
}

// NewFormatter creates a formatter. sample receives channel and value, warning
// receives the drop count.
func NewFormatter(sample, warning string) *Formatter {
	return &Formatter{sample: sample, warning: warning}
}

// Sample formats a sample report, e.g. "ADC1=512".
func (f *Formatter) Sample(channel uint8, value uint16) string {
	return fmt.Sprintf(f.sample, channel, value)
}

// Warning formats a drop warning, e.g. "WARN: dropped=5".
func (f *Formatter) Warning(dropped uint32) string {
	return fmt.Sprintf(f.warning, dropped)
}

// Parse parses a line produced with the default formats.
// Format: ADC<channel>=<value> or WARN: dropped=<count>, optionally followed
// by CR/LF.
func Parse(line string) (Report, error) {
	line = strings.TrimSpace(line)

	if rest, ok := strings.CutPrefix(line, "WARN:"); ok {
		_, count, ok := strings.Cut(rest, "dropped=")
		if !ok {
			return Report{}, fmt.Errorf("%w: %q", ErrUnknownLine, line)
		}
		n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 32)
		if err != nil {
			return Report{}, fmt.Errorf("invalid drop count: %w", err)
		}
		return Report{Kind: KindWarning, Dropped: uint32(n)}, nil
	}

	rest, ok := strings.CutPrefix(line, "ADC")
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownLine, line)
	}
	ch, val, ok := strings.Cut(rest, "=")
	if !ok {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownLine, line)
	}

	channel, err := strconv.ParseUint(ch, 10, 8)
	if err != nil {
		return Report{}, fmt.Errorf("invalid channel: %w", err)
	}
	value, err := strconv.ParseUint(val, 10, 16)
	if err != nil {
		return Report{}, fmt.Errorf("invalid value: %w", err)
	}

	return Report{
		Kind:    KindSample,
		Channel: uint8(channel),
		Value:   uint16(value),
	}, nil
}

// Volts converts a raw reading of a bits-wide converter to volts.
func Volts(value uint16, bits int, vref float32) float32 {
	if bits <= 0 {
		return 0
	}
	full := math32.Pow(2, float32(bits)) - 1
	return math32.Min(float32(value)/full, 1) * vref
}
