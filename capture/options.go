package capture

import (
	"fmt"

	"github.com/jrwynneiii/rxtuner/baseband"
)

// BandwidthOption is one entry of the bandwidth selector. Label names the
// radio sample rate, BaseRate is what the recording is written at.
type BandwidthOption struct {
	Label    string
	BaseRate uint32
}

func (o BandwidthOption) SampleRate() uint32 {
	return baseband.CaptureDecimation * o.BaseRate
}

var BandwidthOptions = []BandwidthOption{
	{"16k", 2000},
	{"32k", 4000},
	{"64k", 8000},
	{"100k", 12500},
	{"125k", 15625},
	{"250k", 31250},
	{"400k", 50000},
	{"500k", 62500},
	{"600k", 75000},
	{"1M", 125000},
	{"2M", 250000},
	{"2500k", 312500},
	{"4M", 500000},
}

// DefaultBandwidthIndex selects 500k.
const DefaultBandwidthIndex = 7

// BasebandBandwidth is the analog filter setting used for every capture.
const BasebandBandwidth = 2500000

func bandwidthIndex(baseRate uint32) (int, error) {
	for i, o := range BandwidthOptions {
		if o.BaseRate == baseRate {
			return i, nil
		}
	}
	return -1, fmt.Errorf("base rate %d: %w", baseRate, ErrUnsupportedBandwidth)
}

// FrequencySteps are the choices offered for the tuning step.
var FrequencySteps = []int64{10, 50, 100, 1000, 5000, 6250, 10000, 12500, 25000, 50000, 100000, 250000, 500000, 1000000}
