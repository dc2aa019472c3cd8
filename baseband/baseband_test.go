package baseband

import (
	"errors"
	"math/cmplx"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/jrwynneiii/rxtuner/radio"
)

type fakeSampleSink struct {
	mu      sync.Mutex
	batches [][]complex64
}

func (f *fakeSampleSink) Write(samples []complex64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, samples)
}

type fakeSpectrumSink struct {
	mu    sync.Mutex
	lines [][]float64
	rates []uint32
}

func (f *fakeSpectrumSink) PushSpectrum(rate uint32, line []float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, line)
	f.rates = append(f.rates, rate)
}

func (f *fakeSpectrumSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

// toneAtQuarterRate is what the radio delivers when the signal of interest
// sits at the tuned frequency: tuning is offset by fs/4 below it.
func toneAtQuarterRate(n int) []complex64 {
	out := make([]complex64, n)
	for i := range out {
		out[i] = complex64(cmplx.Rect(0.5, float64(i)*3.141592653589793/2))
	}
	return out
}

func TestShiftMovesQuarterRateToDC(t *testing.T) {
	p := New(nil, 0)
	out := p.shift(toneAtQuarterRate(16))
	for i, s := range out {
		if cmplx.Abs(complex128(s)-0.5) > 1e-6 {
			t.Fatalf("sample %d = %v, want 0.5", i, s)
		}
	}

	// Rotation carries across blocks
	tone := toneAtQuarterRate(7)
	p.shift(tone[:3])
	for i, s := range p.shift(tone[3:]) {
		if cmplx.Abs(complex128(s)-0.5) > 1e-6 {
			t.Errorf("second block sample %d = %v, want 0.5", i, s)
		}
	}
}

func TestProcessSpectrumAndDecimation(t *testing.T) {
	samples := &fakeSampleSink{}
	spectrum := &fakeSpectrumSink{}
	p := New(nil, 64)
	p.Samples = samples
	p.Spectrum = spectrum

	p.process(radio.Block{Samples: toneAtQuarterRate(2048), SampleRate: 500000})

	if len(spectrum.lines) != 1 {
		t.Fatalf("expected one spectrum line, got %d", len(spectrum.lines))
	}
	line := spectrum.lines[0]
	if len(line) != 64 {
		t.Fatalf("expected 64 bins, got %d", len(line))
	}
	peak := 0
	for i, v := range line {
		if v > line[peak] {
			peak = i
		}
	}
	if peak != 32 {
		t.Errorf("peak in bin %d, want the centre bin 32", peak)
	}

	if len(samples.batches) != 1 {
		t.Fatalf("expected one decimated batch, got %d", len(samples.batches))
	}
	if n := len(samples.batches[0]); n == 0 || n > 2048/CaptureDecimation+1 {
		t.Errorf("decimated batch has %d samples, want about %d", n, 2048/CaptureDecimation)
	}
	if p.rate != 500000 {
		t.Errorf("decimator built for %d, want 500000", p.rate)
	}

	p.process(radio.Block{Samples: toneAtQuarterRate(1024), SampleRate: 2000000})
	if p.rate != 2000000 {
		t.Errorf("decimator not rebuilt for the new rate, still %d", p.rate)
	}
	if want := []uint32{500000, 2000000}; !slices.Equal(spectrum.rates, want) {
		t.Errorf("spectrum lines tagged %v, want %v", spectrum.rates, want)
	}
}

func TestRunImageLifecycle(t *testing.T) {
	if err := New(nil, 0).RunImage(Image(42)); !errors.Is(err, ErrUnknownImage) {
		t.Fatalf("expected ErrUnknownImage, got %v", err)
	}
	if Available(Image(42)) || !Available(ImageCapture) {
		t.Error("unexpected image availability")
	}

	blocks := make(chan radio.Block)
	spectrum := &fakeSpectrumSink{}
	p := New(blocks, 16)
	p.Spectrum = spectrum

	if err := p.RunImage(ImageCapture); err != nil {
		t.Fatalf("RunImage() failed: %v", err)
	}
	if err := p.RunImage(ImageCapture); err == nil {
		t.Error("running a second image should fail")
	}

	blocks <- radio.Block{Samples: toneAtQuarterRate(256), SampleRate: 500000}
	deadline := time.Now().Add(2 * time.Second)
	for spectrum.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if spectrum.count() != 1 {
		t.Fatalf("expected one spectrum line, got %d", spectrum.count())
	}

	p.Shutdown()
	p.Shutdown()

	select {
	case blocks <- radio.Block{}:
		t.Error("processor still consuming after Shutdown()")
	case <-time.After(20 * time.Millisecond):
	}
}
