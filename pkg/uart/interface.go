package uart

import "github.com/itohio/adcpipe/pkg/sink"

// Link is a line-oriented connection carrying report lines, either a real
// serial port or an in-process loopback.
type Link interface {
	sink.TextSink

	Connect() error
	Close() error
	Lines() <-chan string
	IsConnected() bool
}

var (
	_ Link = (*Serial)(nil)
	_ Link = (*Loopback)(nil)
)
