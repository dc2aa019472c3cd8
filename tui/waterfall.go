package tui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/navidys/tvxwidgets"
)

// Waterfall is the live spectrum display. Spectrum lines arrive from the
// baseband goroutine; the plot itself is only touched from Refresh, on the UI
// goroutine. Nothing is drawn while paused.
type Waterfall struct {
	*tvxwidgets.Plot

	mu         sync.Mutex
	paused     bool
	sampleRate uint32
	latest     []float64
	peak       []float64
	dirty      bool
	titleDirty bool
}

func NewWaterfall() *Waterfall {
	plot := tvxwidgets.NewPlot()
	plot.SetLineColor([]tcell.Color{tcell.ColorLightSkyBlue, tcell.ColorDarkOrange})
	plot.SetMarker(tvxwidgets.PlotMarkerBraille)
	plot.SetBorder(true)
	plot.SetTitle("Spectrum")
	return &Waterfall{Plot: plot}
}

func (w *Waterfall) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = true
}

func (w *Waterfall) Resume() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paused = false
}

func (w *Waterfall) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// SetSampleRate drops everything collected at the old rate. Lines tagged with
// any other rate are ignored from here on.
func (w *Waterfall) SetSampleRate(rate uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sampleRate = rate
	w.latest = nil
	w.peak = nil
	w.dirty = false
	w.titleDirty = true
}

func (w *Waterfall) PushSpectrum(rate uint32, line []float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paused || rate != w.sampleRate {
		return
	}
	if len(w.peak) != len(line) {
		w.peak = make([]float64, len(line))
		copy(w.peak, line)
	}
	for i, v := range line {
		w.peak[i] = max(w.peak[i], v)
	}
	w.latest = line
	w.dirty = true
}

// Refresh copies the newest line into the plot and reports whether anything
// changed. Call it on the UI goroutine.
func (w *Waterfall) Refresh() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.paused {
		return false
	}
	changed := false
	if w.titleDirty {
		w.SetTitle(fmt.Sprintf("Spectrum (%s span)", formatRate(w.sampleRate)))
		w.titleDirty = false
		changed = true
	}
	if w.dirty {
		w.SetData([][]float64{w.latest, append([]float64(nil), w.peak...)})
		w.dirty = false
		changed = true
	}
	return changed
}

func formatRate(rate uint32) string {
	switch {
	case rate >= 1000000:
		return fmt.Sprintf("%g MS/s", float64(rate)/1e6)
	case rate >= 1000:
		return fmt.Sprintf("%g kS/s", float64(rate)/1e3)
	}
	return fmt.Sprintf("%d S/s", rate)
}
