//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Pipeline sizing
	QUEUE_SIZE    = 8
	MSG_POOL_SIZE = 8
	STACK_SIZE    = 256

	// Task priorities, lower is more urgent
	PRIO_ADC1  = 5
	PRIO_UART  = 6
	PRIO_ADC2  = 7
	PRIO_BLINK = 8

	// Timing
	ADC_PERIOD   = time.Second
	BLINK_PERIOD = 500 * time.Millisecond

	// ADC configuration
	ADC_REFERENCE_MV = 5000
	ADC_RESOLUTION   = 10

	// Pins
	PIN_ADC1 = machine.A0
	PIN_ADC2 = machine.A1
	PIN_LED  = machine.LED

	// Serial configuration
	// Longest line is "WARN: dropped=4294967295\r\n" (26 bytes); two reports
	// and one warning per second fit comfortably in 9600 baud.
	UART_BAUD_RATE = 9600
)
