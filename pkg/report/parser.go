package report

import (
	"time"

	"github.com/rs/zerolog"
)

// Parser converts a channel of raw lines into a channel of reports.
type Parser func(in <-chan string) <-chan Report

// NewParser creates a parser. Unparseable lines are logged and skipped. The
// output channel is closed once in is closed and drained.
func NewParser(log zerolog.Logger, bufSize int) Parser {
	if bufSize <= 0 {
		bufSize = 100
	}

	return func(in <-chan string) <-chan Report {
		out := make(chan Report, bufSize)

		go func() {
			defer close(out)

			for line := range in {
				if line == "" {
					continue
				}

				r, err := Parse(line)
				if err != nil {
					log.Debug().Err(err).Str("line", line).Msg("skipping line")
					continue
				}
				r.Timestamp = time.Now()

				select {
				case out <- r:
				case <-time.After(time.Second):
					log.Warn().Stringer("kind", r.Kind).Msg("parser output channel full, dropping report")
				}
			}
		}()

		return out
	}
}
