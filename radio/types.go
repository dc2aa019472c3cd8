package radio

import "fmt"

// Frequency is an RF frequency in Hz.
type Frequency int64

func (f Frequency) String() string {
	return fmt.Sprintf("%.6f MHz", float64(f)/1e6)
}

type Direction int

const (
	Receive Direction = iota
	Transmit
)

// Config carries everything the front-end needs when it is enabled.
type Config struct {
	TuningFrequency   Frequency
	SampleRate        uint32
	BasebandBandwidth uint32
	Direction         Direction
	RFAmp             bool
	LNAGain           int8
	VGAGain           int8
}

// Block is one chunk of IQ samples together with the rate they were taken at.
// Consumers rebuild their filters when SampleRate changes between blocks.
type Block struct {
	Samples    []complex64
	SampleRate uint32
}
