// Package capture keeps the radio, the baseband image, the saved tuning and
// the live spectrum display consistent while the operator retunes a capture.
package capture

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/baseband"
	"github.com/jrwynneiii/rxtuner/radio"
)

var ErrUnsupportedBandwidth = errors.New("unsupported bandwidth")

type Radio interface {
	Enable(c radio.Config) error
	Disable() error
	SetTuningFrequency(f radio.Frequency) error
	SetBasebandRate(rate uint32) error
}

type Baseband interface {
	RunImage(tag baseband.Image) error
	Shutdown()
}

type TuningStore interface {
	TunedFrequency() radio.Frequency
	SetTunedFrequency(f radio.Frequency) error
	FrequencyStep() radio.Frequency
	SetFrequencyStep(step radio.Frequency) error
}

// Display is the live spectrum view. It must not draw between Pause and
// Resume.
type Display interface {
	Pause()
	Resume()
	SetSampleRate(rate uint32)
}

type Recorder interface {
	SetSamplingRate(rate uint32)
	SetCenterFrequency(f radio.Frequency)
	SetOnError(fn func(message string))
}

// Operator shows messages the operator has to acknowledge.
type Operator interface {
	ShowModal(title, message string)
}

type Deps struct {
	Radio    Radio
	Baseband Baseband
	Store    TuningStore
	Display  Display
	Recorder Recorder
	Operator Operator
}

// Options are the front-end settings that are not changed during a session.
type Options struct {
	RFAmp          bool
	LNAGain        int8
	VGAGain        int8
	BandwidthIndex int
}

// Controller owns one capture session. Operations are serialised; each one
// completes its whole sequence before the next starts.
type Controller struct {
	deps Deps
	opts Options

	mu             sync.Mutex
	sampleRate     uint32
	bandwidthIndex int
	closed         bool
}

// New loads the capture image, enables the radio at the saved tuning and
// selects the initial bandwidth. The radio and image must be known to be
// available; a failure here is logged as fatal.
func New(deps Deps, opts Options) *Controller {
	c := &Controller{
		deps:           deps,
		opts:           opts,
		bandwidthIndex: -1,
	}

	if err := deps.Baseband.RunImage(baseband.ImageCapture); err != nil {
		log.Fatalf("Could not load the capture image: %v", err)
	}

	index := opts.BandwidthIndex
	if index < 0 || index >= len(BandwidthOptions) {
		log.Warnf("Bandwidth index %d out of range, using %s", index, BandwidthOptions[DefaultBandwidthIndex].Label)
		index = DefaultBandwidthIndex
	}
	c.sampleRate = BandwidthOptions[index].SampleRate()

	err := deps.Radio.Enable(radio.Config{
		TuningFrequency:   c.tuningFrequency(),
		SampleRate:        c.sampleRate,
		BasebandBandwidth: BasebandBandwidth,
		Direction:         radio.Receive,
		RFAmp:             opts.RFAmp,
		LNAGain:           opts.LNAGain,
		VGAGain:           opts.VGAGain,
	})
	if err != nil {
		log.Fatalf("Could not enable the radio: %v", err)
	}
	log.Infof("Capture started at %v (radio at %v, %d S/s)", deps.Store.TunedFrequency(), c.tuningFrequency(), c.sampleRate)

	c.SelectBandwidth(index)

	deps.Recorder.SetOnError(func(message string) {
		deps.Operator.ShowModal("Error", message)
	})
	return c
}

func (c *Controller) tuningFrequency() radio.Frequency {
	return c.deps.Store.TunedFrequency() - radio.Frequency(c.sampleRate/4)
}

// setTargetFrequency persists f and retunes the radio below it by the tuning
// offset. Callers hold c.mu.
func (c *Controller) setTargetFrequency(f radio.Frequency) {
	if err := c.deps.Store.SetTunedFrequency(f); err != nil {
		log.Errorf("Could not save tuned frequency: %v", err)
	}
	c.deps.Recorder.SetCenterFrequency(f)
	if err := c.deps.Radio.SetTuningFrequency(c.tuningFrequency()); err != nil {
		log.Errorf("Could not tune radio to %v: %v", c.tuningFrequency(), err)
	}
}

// ApplyFrequency retunes to f. Range checks are left to the radio.
func (c *Controller) ApplyFrequency(f radio.Frequency) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		log.Warnf("Ignoring frequency change to %v after teardown", f)
		return
	}
	log.Debugf("Target frequency %v", f)
	c.setTargetFrequency(f)
}

// ApplyFrequencyStep changes the step used by Nudge. The radio is untouched.
func (c *Controller) ApplyFrequencyStep(step radio.Frequency) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		log.Warnf("Ignoring step change after teardown")
		return
	}
	if err := c.deps.Store.SetFrequencyStep(step); err != nil {
		log.Errorf("Could not save frequency step: %v", err)
	}
}

// Nudge moves the tuned frequency by n steps.
func (c *Controller) Nudge(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	f := c.deps.Store.TunedFrequency() + radio.Frequency(n)*c.deps.Store.FrequencyStep()
	c.setTargetFrequency(f)
}

// ApplyBandwidth switches to the option with the given base rate.
func (c *Controller) ApplyBandwidth(baseRate uint32) error {
	index, err := bandwidthIndex(baseRate)
	if err != nil {
		log.Errorf("Ignoring bandwidth change: %v", err)
		return err
	}
	c.SelectBandwidth(index)
	return nil
}

// SelectBandwidth switches to BandwidthOptions[index]. The display is paused
// for the whole switch and only resumed once the radio runs at the new rate.
func (c *Controller) SelectBandwidth(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		log.Warnf("Ignoring bandwidth change after teardown")
		return
	}
	if index < 0 || index >= len(BandwidthOptions) {
		log.Errorf("Ignoring bandwidth index %d", index)
		return
	}

	option := BandwidthOptions[index]
	c.sampleRate = option.SampleRate()
	c.bandwidthIndex = index
	log.Debugf("Bandwidth %s: sample rate %d", option.Label, c.sampleRate)

	c.deps.Display.Pause()
	c.setTargetFrequency(c.deps.Store.TunedFrequency())
	c.deps.Recorder.SetSamplingRate(c.sampleRate)
	if err := c.deps.Radio.SetBasebandRate(c.sampleRate); err != nil {
		log.Errorf("Could not set baseband rate %d: %v", c.sampleRate, err)
	}
	c.deps.Display.SetSampleRate(c.sampleRate)
	c.deps.Display.Resume()
}

func (c *Controller) TunedFrequency() radio.Frequency {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deps.Store.TunedFrequency()
}

// TuningFrequency is the frequency the radio is actually tuned to.
func (c *Controller) TuningFrequency() radio.Frequency {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tuningFrequency()
}

func (c *Controller) FrequencyStep() radio.Frequency {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deps.Store.FrequencyStep()
}

func (c *Controller) SampleRate() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate
}

func (c *Controller) BandwidthIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bandwidthIndex
}

// Close tears the session down. It does not wait for anything beyond the radio
// and the image stopping, and it is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	if err := c.deps.Radio.Disable(); err != nil {
		log.Errorf("Could not disable the radio: %v", err)
	}
	c.deps.Baseband.Shutdown()
	log.Info("Capture stopped")
}
