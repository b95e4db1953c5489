//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"context"
	"machine"
	"time"

	"github.com/itohio/adcpipe/pkg/adc"
	"github.com/itohio/adcpipe/pkg/config"
	"github.com/itohio/adcpipe/pkg/sink"
	"github.com/itohio/adcpipe/pkg/system"
	"github.com/rs/zerolog"
)

func main() {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{BaudRate: UART_BAUD_RATE})

	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	machine.InitADC()
	sampler := newBoardADC(PIN_ADC1, PIN_ADC2)

	cfg := config.Default()
	cfg.PoolSize = MSG_POOL_SIZE
	cfg.QueueCapacity = QUEUE_SIZE
	cfg.StackSize = STACK_SIZE
	cfg.Producers = []config.ProducerConfig{
		{Channel: 1, Input: 0, Period: ADC_PERIOD, Priority: PRIO_ADC1},
		{Channel: 2, Input: 1, Period: ADC_PERIOD, Priority: PRIO_ADC2},
	}
	cfg.Consumer.Priority = PRIO_UART
	cfg.Heartbeat = config.HeartbeatConfig{Period: BLINK_PERIOD, Priority: PRIO_BLINK}
	cfg.Sampler.ResolutionBits = ADC_RESOLUTION
	cfg.Log.DropWarningsPerSecond = 0

	// Reports own the UART; diagnostics are off.
	out := sink.NewWriter(uart, "\r\n")
	sys, err := system.New(cfg, sampler, out, PIN_LED, zerolog.Nop())
	if err != nil {
		// Startup failed: no task runs.
		halt()
	}

	if err := sys.Run(context.Background()); err != nil {
		halt()
	}
}

// halt blinks the LED fast forever. The UART is owned by the reporter, so
// this is the only failure signal the board has.
func halt() {
	for {
		PIN_LED.Set(!PIN_LED.Get())
		time.Sleep(100 * time.Millisecond)
	}
}

// boardADC multiplexes the on-chip converter over the configured pins.
type boardADC struct {
	inputs []machine.ADC
	input  adc.Input
	value  uint16
}

var _ adc.Sampler = (*boardADC)(nil)

func newBoardADC(pins ...machine.Pin) *boardADC {
	b := &boardADC{}
	for _, p := range pins {
		a := machine.ADC{Pin: p}
		a.Configure(machine.ADCConfig{
			Reference:  ADC_REFERENCE_MV,
			Resolution: ADC_RESOLUTION,
		})
		b.inputs = append(b.inputs, a)
	}
	return b
}

func (b *boardADC) Select(input adc.Input) {
	b.input = input
}

// BeginConversion runs the conversion to completion; machine.ADC.Get blocks.
func (b *boardADC) BeginConversion() {
	if int(b.input) >= len(b.inputs) {
		b.value = 0
		return
	}
	// Get returns a left-aligned 16-bit value.
	b.value = b.inputs[b.input].Get() >> (16 - ADC_RESOLUTION)
}

func (b *boardADC) IsDone() bool {
	return true
}

func (b *boardADC) ReadValue() uint16 {
	return b.value
}
