package radio

import (
	"math/cmplx"
	"testing"
)

func TestSimulatorLifecycle(t *testing.T) {
	sim := NewSimulator(433920000, 1024, nil)

	if err := sim.SetTuningFrequency(1); err == nil {
		t.Error("expected an error when tuning a disabled radio")
	}

	conf := Config{TuningFrequency: 433795000, SampleRate: 500000, BasebandBandwidth: 2500000}
	if err := sim.Enable(conf); err != nil {
		t.Fatalf("Enable() failed: %v", err)
	}
	if err := sim.Enable(conf); err == nil {
		t.Error("expected a second Enable() to fail")
	}

	if err := sim.SetTuningFrequency(433420000); err != nil {
		t.Fatalf("SetTuningFrequency() failed: %v", err)
	}
	if err := sim.SetBasebandRate(2000000); err != nil {
		t.Fatalf("SetBasebandRate() failed: %v", err)
	}
	if err := sim.SetBasebandRate(0); err == nil {
		t.Error("expected a zero rate to be rejected")
	}

	state, enabled := sim.State()
	if !enabled {
		t.Fatal("simulator should report enabled")
	}
	if state.TuningFrequency != 433420000 || state.SampleRate != 2000000 {
		t.Errorf("unexpected state %+v", state)
	}

	if err := sim.Disable(); err != nil {
		t.Fatalf("Disable() failed: %v", err)
	}
	if _, enabled := sim.State(); enabled {
		t.Error("simulator should report disabled")
	}
	if err := sim.Disable(); err != nil {
		t.Errorf("second Disable() should be a no-op, got %v", err)
	}
}

func TestSimulatorGenerate(t *testing.T) {
	sim := NewSimulator(100000250, 256, nil)
	sim.NoiseLevel = 0
	if err := sim.Enable(Config{TuningFrequency: 100000000, SampleRate: 1000}); err != nil {
		t.Fatalf("Enable() failed: %v", err)
	}
	defer sim.Disable()

	block := sim.Generate(8)
	if block.SampleRate != 1000 {
		t.Errorf("expected block rate 1000, got %d", block.SampleRate)
	}
	if len(block.Samples) != 8 {
		t.Fatalf("expected 8 samples, got %d", len(block.Samples))
	}

	// A 250 Hz offset at 1 kS/s advances a quarter turn per sample
	want := []complex128{1, 1i, -1, -1i}
	for i, w := range want {
		got := complex128(block.Samples[i]) / complex(sim.Amplitude, 0)
		if cmplx.Abs(got-w) > 1e-5 {
			t.Errorf("sample %d: got %v, want %v", i, got, w)
		}
	}
}
