package tui

import "testing"

func TestWaterfallPause(t *testing.T) {
	w := NewWaterfall()
	w.SetSampleRate(500000)
	if !w.Refresh() {
		t.Error("title change should refresh")
	}

	w.Pause()
	w.PushSpectrum(500000, []float64{1, 2, 3})
	if w.Refresh() {
		t.Error("paused waterfall must not redraw")
	}
	if w.latest != nil {
		t.Error("line pushed while paused was kept")
	}

	w.Resume()
	w.PushSpectrum(500000, []float64{1, 5, 3})
	w.PushSpectrum(500000, []float64{4, 2, 3})
	if !w.Refresh() {
		t.Fatal("resumed waterfall should redraw")
	}
	want := []float64{4, 5, 3}
	for i, v := range want {
		if w.peak[i] != v {
			t.Errorf("peak[%d] = %v, want %v", i, w.peak[i], v)
		}
	}
	if w.Refresh() {
		t.Error("no new data, no redraw expected")
	}

	w.SetSampleRate(2000000)
	if w.peak != nil || w.latest != nil {
		t.Error("rate change should clear the held spectrum")
	}
}

func TestWaterfallDropsStaleRate(t *testing.T) {
	w := NewWaterfall()
	w.SetSampleRate(500000)
	w.Refresh()

	w.Pause()
	w.SetSampleRate(2000000)
	w.Resume()
	w.Refresh()

	// Blocks queued before the switch arrive after Resume
	for range 4 {
		w.PushSpectrum(500000, []float64{9, 9, 9})
	}
	if w.Refresh() {
		t.Error("lines taken at the old rate were drawn")
	}
	if w.latest != nil || w.peak != nil {
		t.Error("lines taken at the old rate were kept")
	}

	w.PushSpectrum(2000000, []float64{1, 2, 3})
	if !w.Refresh() {
		t.Error("line at the current rate should be drawn")
	}
}

func TestFormatRate(t *testing.T) {
	tests := map[uint32]string{
		500:     "500 S/s",
		62500:   "62.5 kS/s",
		500000:  "500 kS/s",
		2000000: "2 MS/s",
	}
	for rate, want := range tests {
		if got := formatRate(rate); got != want {
			t.Errorf("formatRate(%d) = %q, want %q", rate, got, want)
		}
	}
}
