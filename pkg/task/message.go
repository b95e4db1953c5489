package task

import (
	"sync/atomic"

	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/pool"
	"github.com/itohio/adcpipe/pkg/queue"
	"github.com/joeycumines/go-catrate"
	"github.com/rs/zerolog"
)

// Message is one pool slot: the producing channel and the sampled value.
//
// Both fields live in a single word so a reader racing with a producer that
// reuses the slot sees either the old or the new message, never a mix.
type Message struct {
	word atomic.Uint32
}

// Set populates the slot.
func (m *Message) Set(channel uint8, value uint16) {
	m.word.Store(uint32(channel)<<16 | uint32(value))
}

// Load returns the channel and value.
func (m *Message) Load() (channel uint8, value uint16) {
	w := m.word.Load()
	return uint8(w >> 16), uint16(w)
}

// Channel returns the producing channel.
func (m *Message) Channel() uint8 {
	ch, _ := m.Load()
	return ch
}

// Value returns the sampled value.
func (m *Message) Value() uint16 {
	_, v := m.Load()
	return v
}

// Pipeline holds the primitives shared by all tasks.
type Pipeline struct {
	Resource *adc.Resource
	Pool     *pool.Pool[Message]
	Queue    *queue.Queue[*Message]

	// Limiter rate limits drop warnings per channel. Nil logs every drop.
	Limiter *catrate.Limiter
	Log     zerolog.Logger
}

// NewPipeline creates the pool and queue around res.
func NewPipeline(res *adc.Resource, poolSize, queueCapacity int) (*Pipeline, error) {
	p, err := pool.New[Message](poolSize)
	if err != nil {
		return nil, err
	}
	q, err := queue.New[*Message](queueCapacity)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Resource: res,
		Pool:     p,
		Queue:    q,
		Log:      zerolog.Nop(),
	}, nil
}

// Drops returns the drop counter shared by producers and the consumer.
func (p *Pipeline) Drops() *pool.DropCounter {
	return p.Pool.Drops()
}
