package soapy

import (
	"testing"

	"github.com/pothosware/go-soapy-sdr/pkg/device"
	"github.com/pothosware/go-soapy-sdr/pkg/sdrerror"
)

type fakeStream struct {
	activateErr sdrerror.SDRError
	activated   bool
	deactivated bool
	closed      bool
}

func (s *fakeStream) Activate(device.StreamFlag, int, int) sdrerror.SDRError {
	if s.activateErr != nil {
		return s.activateErr
	}
	s.activated = true
	return nil
}

func (s *fakeStream) Deactivate(device.StreamFlag, int) sdrerror.SDRError {
	s.deactivated = true
	return nil
}

func (s *fakeStream) Read(_ [][]complex64, _ uint, _ []int, _ uint) (uint, uint, error) {
	return 0, 0, nil
}

func (s *fakeStream) Close() sdrerror.SDRError {
	s.closed = true
	return nil
}

func newTestRadio() *Radio {
	return &Radio{
		Driver:    "fake",
		chunksize: 16,
		buffer:    [][]complex64{make([]complex64, 16)},
	}
}

func TestStartStreamActivateFailureClosesStream(t *testing.T) {
	r := newTestRadio()
	stream := &fakeStream{activateErr: sdrerror.Err(-2)}

	r.mu.Lock()
	err := r.startStream(stream)
	r.mu.Unlock()

	if err == nil {
		t.Fatal("expected the activation error")
	}
	if !stream.closed {
		t.Error("stream left open after a failed activation")
	}
	if r.stream != nil || r.done != nil {
		t.Errorf("radio kept state from the failed start: stream %v done %v", r.stream, r.done)
	}
	if err := r.Disable(); err != nil {
		t.Errorf("Disable() after a failed start: %v", err)
	}
}

func TestStartStreamAndDisable(t *testing.T) {
	r := newTestRadio()
	stream := &fakeStream{}

	r.mu.Lock()
	err := r.startStream(stream)
	r.mu.Unlock()
	if err != nil {
		t.Fatalf("startStream() failed: %v", err)
	}
	if !stream.activated {
		t.Fatal("stream was not activated")
	}

	if err := r.Disable(); err != nil {
		t.Fatalf("Disable() failed: %v", err)
	}
	if !stream.deactivated || !stream.closed {
		t.Errorf("Disable() left the stream deactivated=%v closed=%v", stream.deactivated, stream.closed)
	}
	if r.stream != nil {
		t.Error("stream still held after Disable()")
	}
}
