// Package record writes decimated baseband samples to disk as C16 files.
package record

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/baseband"
	"github.com/jrwynneiii/rxtuner/radio"
)

var ErrNoRate = errors.New("no sampling rate set")

// Recorder implements the capture record sink. Each recording is a pair of
// files: NAME.C16 holding interleaved little-endian int16 I/Q and NAME.TXT
// holding the metadata needed to play it back.
type Recorder struct {
	Directory string
	Prefix    string

	mu           sync.Mutex
	samplingRate uint32
	center       radio.Frequency
	onError      func(string)
	file         *os.File
	w            *bufio.Writer
	name         string
	written      uint64
	buf          []byte
}

func New(dir, prefix string) *Recorder {
	return &Recorder{Directory: dir, Prefix: prefix}
}

func (r *Recorder) SetOnError(fn func(string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onError = fn
}

// SetSamplingRate takes the radio rate. A recording in progress is closed and
// continued in a new file so each file has a single rate.
func (r *Recorder) SetSamplingRate(rate uint32) {
	r.mu.Lock()
	changed := r.samplingRate != rate
	r.samplingRate = rate
	active := r.file != nil
	r.mu.Unlock()

	log.Debugf("[record] Sampling rate %d, file rate %d", rate, rate/baseband.CaptureDecimation)
	if changed && active {
		r.rotate()
	}
}

// SetCenterFrequency records the frequency the decimated samples are centred
// on. Like a rate change, it starts a new file if recording.
func (r *Recorder) SetCenterFrequency(f radio.Frequency) {
	r.mu.Lock()
	changed := r.center != f
	r.center = f
	active := r.file != nil
	r.mu.Unlock()

	if changed && active {
		r.rotate()
	}
}

func (r *Recorder) rotate() {
	if err := r.Stop(); err != nil {
		r.fail(err)
		return
	}
	if err := r.Start(); err != nil {
		r.fail(err)
	}
}

func (r *Recorder) SamplingRate() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samplingRate
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file != nil
}

// Name returns the base path of the current or last recording.
func (r *Recorder) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return nil
	}
	if r.samplingRate == 0 {
		return ErrNoRate
	}
	if err := os.MkdirAll(r.Directory, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory: %w", err)
	}
	name, err := r.nextName()
	if err != nil {
		return err
	}

	meta := fmt.Sprintf("center_frequency=%d\nsample_rate=%d\n", int64(r.center), r.samplingRate/baseband.CaptureDecimation)
	if err := os.WriteFile(name+".TXT", []byte(meta), 0644); err != nil {
		return fmt.Errorf("failed to write capture metadata: %w", err)
	}
	f, err := os.OpenFile(name+".C16", os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("failed to create capture file: %w", err)
	}
	r.file = f
	r.w = bufio.NewWriter(f)
	r.name = name
	r.written = 0
	log.Infof("Recording to %s.C16 at %d S/s around %v", name, r.samplingRate/baseband.CaptureDecimation, r.center)
	return nil
}

func (r *Recorder) nextName() (string, error) {
	for i := 0; i < 10000; i++ {
		name := filepath.Join(r.Directory, fmt.Sprintf("%s_%04d", r.Prefix, i))
		if _, err := os.Stat(name + ".C16"); errors.Is(err, os.ErrNotExist) {
			return name, nil
		}
	}
	return "", fmt.Errorf("no free capture file name in %s", r.Directory)
}

func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) closeLocked() error {
	if r.file == nil {
		return nil
	}
	flushErr := r.w.Flush()
	closeErr := r.file.Close()
	log.Infof("Stopped recording %s.C16 (%d samples)", r.name, r.written)
	r.file = nil
	r.w = nil
	if flushErr != nil {
		return fmt.Errorf("failed to flush capture file: %w", flushErr)
	}
	return closeErr
}

// Write appends samples when recording. A write failure ends the recording and
// is reported through the error callback.
func (r *Recorder) Write(samples []complex64) {
	r.mu.Lock()
	if r.file == nil {
		r.mu.Unlock()
		return
	}
	r.buf = r.buf[:0]
	for _, s := range samples {
		r.buf = binary.LittleEndian.AppendUint16(r.buf, uint16(toInt16(real(s))))
		r.buf = binary.LittleEndian.AppendUint16(r.buf, uint16(toInt16(imag(s))))
	}
	_, err := r.w.Write(r.buf)
	if err == nil {
		r.written += uint64(len(samples))
		r.mu.Unlock()
		return
	}
	r.closeLocked()
	r.mu.Unlock()

	r.fail(fmt.Errorf("write to capture file failed: %w", err))
}

func (r *Recorder) fail(err error) {
	log.Errorf("[record] %v", err)
	r.mu.Lock()
	fn := r.onError
	r.mu.Unlock()
	if fn != nil {
		fn(err.Error())
	}
}

func toInt16(v float32) int16 {
	s := math.Round(float64(v) * math.MaxInt16)
	return int16(max(math.MinInt16, min(math.MaxInt16, s)))
}
