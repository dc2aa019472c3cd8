// Package baseband runs the signal processing image a capture session streams
// radio samples into.
package baseband

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/radio"
	"github.com/racerxdl/segdsp/dsp"
	"github.com/racerxdl/segdsp/tools"
	"gonum.org/v1/gonum/dsp/fourier"
)

type Image int

const (
	ImageCapture Image = iota + 1
)

func (i Image) String() string {
	switch i {
	case ImageCapture:
		return "capture"
	}
	return fmt.Sprintf("Image(%d)", int(i))
}

// CaptureDecimation is the ratio between the radio sample rate and the rate
// the capture image hands to its sample sink.
const CaptureDecimation = 8

const (
	maxFFTSize      = 4096
	transitionRatio = 0.1
	powerFloor      = 1e-20
)

var ErrUnknownImage = errors.New("unknown baseband image")

// Available reports whether tag can be run. Callers check this before building
// a session around the image.
func Available(tag Image) bool {
	return tag == ImageCapture
}

type SampleSink interface {
	Write(samples []complex64)
}

// SpectrumSink receives one line per block, tagged with the radio rate the
// block was taken at.
type SpectrumSink interface {
	PushSpectrum(rate uint32, line []float64)
}

// Processor is the capture image. For every radio block it shifts the signal
// of interest from +fs/4 down to DC, low-passes and decimates by
// CaptureDecimation into Samples, and pushes one spectrum line to Spectrum.
type Processor struct {
	BlocksInput  <-chan radio.Block
	Samples      SampleSink
	Spectrum     SpectrumSink
	SpectrumBins int

	mu      sync.Mutex
	image   Image
	done    chan struct{}
	running sync.WaitGroup

	rate      uint32
	decimator *dsp.FirFilter
	rotation  int
	fft       *fourier.CmplxFFT
	fftIn     []complex128
	fftOut    []complex128
}

func New(input <-chan radio.Block, bins int) *Processor {
	return &Processor{
		BlocksInput:  input,
		SpectrumBins: bins,
	}
}

func (p *Processor) RunImage(tag Image) error {
	if !Available(tag) {
		return fmt.Errorf("run %v: %w", tag, ErrUnknownImage)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return fmt.Errorf("image %v is already running", p.image)
	}
	log.Debugf("[baseband] Running %v image", tag)
	p.image = tag
	p.done = make(chan struct{})
	p.running.Add(1)
	go p.run(p.done)
	return nil
}

// Shutdown stops the image and waits for the block in flight to finish.
func (p *Processor) Shutdown() {
	p.mu.Lock()
	done := p.done
	p.done = nil
	p.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	p.running.Wait()
	log.Debugf("[baseband] Shut down %v image", p.image)
}

func (p *Processor) run(done <-chan struct{}) {
	defer p.running.Done()
	for {
		select {
		case <-done:
			return
		case block, ok := <-p.BlocksInput:
			if !ok {
				return
			}
			p.process(block)
		}
	}
}

func (p *Processor) process(b radio.Block) {
	if len(b.Samples) == 0 || b.SampleRate == 0 {
		return
	}
	if b.SampleRate != p.rate {
		p.configure(b.SampleRate)
	}

	shifted := p.shift(b.Samples)
	if p.Samples != nil {
		p.Samples.Write(p.decimator.Work(shifted))
	}
	if p.Spectrum != nil && p.SpectrumBins > 0 {
		p.Spectrum.PushSpectrum(b.SampleRate, p.spectrum(shifted))
	}
}

func (p *Processor) configure(rate uint32) {
	outRate := float64(rate) / CaptureDecimation
	transition := outRate * transitionRatio
	log.Debugf("[baseband] Rebuilding decimator for %d S/s -> %.0f S/s", rate, outRate)
	p.decimator = dsp.MakeDecimationFirFilter(CaptureDecimation, dsp.MakeLowPass(1, float64(rate), outRate/2-transition/2, transition))
	p.rate = rate
	p.rotation = 0
}

// shift multiplies by exp(-j*pi/2*n), a quarter turn per sample, which moves
// +fs/4 to DC without any trig.
func (p *Processor) shift(in []complex64) []complex64 {
	out := make([]complex64, len(in))
	for i, s := range in {
		re, im := real(s), imag(s)
		switch p.rotation {
		case 0:
			out[i] = s
		case 1:
			out[i] = complex(im, -re)
		case 2:
			out[i] = complex(-re, -im)
		case 3:
			out[i] = complex(-im, re)
		}
		p.rotation = (p.rotation + 1) & 3
	}
	return out
}

// spectrum returns SpectrumBins power values in dB, lowest frequency first.
func (p *Processor) spectrum(samples []complex64) []float64 {
	n := min(len(samples), maxFFTSize)
	bins := min(p.SpectrumBins, n)
	if p.fft == nil || p.fft.Len() != n {
		p.fft = fourier.NewCmplxFFT(n)
		p.fftIn = make([]complex128, n)
		p.fftOut = make([]complex128, n)
	}
	for i := 0; i < n; i++ {
		p.fftIn[i] = complex128(samples[i])
	}
	coeff := p.fft.Coefficients(p.fftOut, p.fftIn)

	group := n / bins
	line := make([]float64, bins)
	scale := 1 / float64(n) / float64(n)
	for b := range line {
		var power float64
		for k := 0; k < group; k++ {
			c := coeff[p.fft.ShiftIdx(b*group+k)]
			power += float64(tools.ComplexAbsSquared(complex64(c)))
		}
		line[b] = 10 * math.Log10(power*scale/float64(group)+powerFloor)
	}
	return line
}
