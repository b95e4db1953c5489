package adc

// Input selects one analog input of the converter.
type Input uint8

// Sampler defines the interface for converters (real or simulated).
//
// Select, BeginConversion, IsDone and ReadValue may only be called by the
// holder of the Resource wrapping the sampler.
type Sampler interface {
	Select(input Input)
	BeginConversion()
	IsDone() bool
	ReadValue() uint16
}

// Ensure Sim implements Sampler.
var _ Sampler = (*Sim)(nil)
