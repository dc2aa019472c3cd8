// Package soapy drives a SoapySDR receiver as a radio front-end.
package soapy

// #cgo CFLAGS: -g -Wall
// #cgo LDFLAGS: -lSoapySDR
import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/config"
	"github.com/jrwynneiii/rxtuner/radio"

	"github.com/pothosware/go-soapy-sdr/pkg/device"
	"github.com/pothosware/go-soapy-sdr/pkg/modules"
	"github.com/pothosware/go-soapy-sdr/pkg/sdrerror"
	"github.com/pothosware/go-soapy-sdr/pkg/sdrlogger"
	"github.com/pothosware/go-soapy-sdr/pkg/version"
)

// Gain element names as exposed by the HackRF Soapy module. Other drivers
// that lack an element are tuned with whatever subset they do expose.
const (
	gainAmp = "AMP"
	gainLNA = "LNA"
	gainVGA = "VGA"

	ampOnGain = 14
)

// iqStream is the part of *device.SDRStreamCF32 the radio uses.
type iqStream interface {
	Activate(flags device.StreamFlag, timeNs int, numElems int) sdrerror.SDRError
	Deactivate(flags device.StreamFlag, timeNs int) sdrerror.SDRError
	Read(buffers [][]complex64, nbElems uint, outputFlags []int, timeoutUs uint) (uint, uint, error)
	Close() sdrerror.SDRError
}

// Radio drives a SoapySDR receive channel and streams CF32 blocks to BlocksOutput.
type Radio struct {
	BlocksOutput chan<- radio.Block
	Driver       string
	Address      string
	DeviceIndex  int

	//Private:
	chunksize  uint
	args       map[string]string
	device     *device.SDRDevice
	stream     iqStream
	buffer     [][]complex64
	sampleRate uint32

	mu      sync.Mutex
	done    chan struct{}
	running sync.WaitGroup
}

func InitSoapySDR() {
	log.Debugf("Using SoapySDR versions: ABI: %s API: %s Lib: %s", version.GetABIVersion(), version.GetAPIVersion(), version.GetLibVersion())
	log.Debugf("SoapySDR modules root path: %v", modules.GetRootPath())

	modulesFound := modules.ListModules()
	if len(modulesFound) > 0 {
		for _, module := range modulesFound {
			moduleVersion := modules.GetModuleVersion(module)
			if len(moduleVersion) == 0 {
				moduleVersion = "[None]"
			}
			log.Debugf("Found SoapySDR module: %v, version: %v", module, moduleVersion)
		}
	} else {
		log.Debug("No SoapySDR modules found")
	}
	sdrlogger.SetLogLevel(sdrlogger.Error)
}

func LogAllSoapySDRDevices() {
	log.Infof("Using SoapySDR versions: ABI: %s API: %s Lib: %s", version.GetABIVersion(), version.GetAPIVersion(), version.GetLibVersion())
	log.Infof("SoapySDR modules root path: %v", modules.GetRootPath())

	for _, module := range modules.ListModules() {
		log.Infof("Found SoapySDR module: %v", module)
	}

	// Tune down the logger for soapy so that it doesn't yell about rtl-tcp
	sdrlogger.SetLogLevel(sdrlogger.Error)

	devices := device.Enumerate(nil)
	log.Infof("Found %d devices", len(devices))
	args := make([]map[string]string, len(devices))
	for idx, dev := range devices {
		args[idx] = map[string]string{"driver": dev["driver"]}
	}
	devs, err := device.MakeList(args)
	if err != nil {
		log.Fatalf("SoapySDR could not open devices: %v", err)
	}
	for idx, dev := range devs {
		log.Infof("Driver: %s", args[idx]["driver"])
		LogAvailSettings(dev)
	}
	// UnmakeList double frees in the cgo bindings; the process exits right after probing.
}

func LogAvailSettings(dev *device.SDRDevice) {
	log.Infof("Current settings:")
	for _, setting := range dev.GetSettingInfo() {
		log.Infof("\t- %s: %v", setting.Key, setting.Value)
	}

	numChannels := dev.GetNumChannels(device.DirectionRX)
	log.Info("Channel info:")
	for channel := uint(0); channel < numChannels; channel++ {
		log.Infof("Channel %d:", channel)
		log.Infof("\tAvailable sample rates:")
		for _, sampleRateRange := range dev.GetSampleRateRange(device.DirectionRX, channel) {
			log.Infof("\t\t- %v", sampleRateRange.ToString())
		}
		log.Infof("\tGain elements: %v", dev.ListGains(device.DirectionRX, channel))
		log.Infof("\tIQ Sample Types: %v", dev.GetStreamFormats(device.DirectionRX, channel))
	}
}

func New(conf config.RadioConf, output chan<- radio.Block) *Radio {
	log.Debug("Initing SoapySDR")
	InitSoapySDR()

	return &Radio{
		BlocksOutput: output,
		Driver:       conf.Driver,
		Address:      conf.Address,
		DeviceIndex:  conf.DeviceIndex,
		chunksize:    conf.ChunkSize,
		buffer:       [][]complex64{make([]complex64, conf.ChunkSize)},
	}
}

// Connect opens the device. It is the hardware availability check that has to
// pass before a capture session is constructed.
func (r *Radio) Connect() error {
	r.args = map[string]string{"driver": r.Driver}
	if r.Driver == "rtltcp" {
		r.args["rtltcp"] = r.Address
	}
	if r.DeviceIndex > 0 {
		r.args["index"] = fmt.Sprintf("%d", r.DeviceIndex)
	}

	if r.device != nil {
		return nil
	}
	dev, err := device.Make(r.args)
	if err != nil {
		return fmt.Errorf("could not create SoapySDR device: %w", err)
	}
	r.device = dev
	log.Debugf("Initialized device: %v", r.Driver)
	return nil
}

func direction(d radio.Direction) device.Direction {
	if d == radio.Transmit {
		return device.DirectionTX
	}
	return device.DirectionRX
}

func (r *Radio) Enable(c radio.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return fmt.Errorf("radio %s is not connected", r.Driver)
	}
	dir := direction(c.Direction)

	log.Debugf("Setting sample rate to %d", c.SampleRate)
	if err := r.device.SetSampleRate(dir, 0, float64(c.SampleRate)); err != nil {
		return fmt.Errorf("could not set sample rate: %w", err)
	}
	if err := r.device.SetBandwidth(dir, 0, float64(c.BasebandBandwidth)); err != nil {
		log.Warnf("Could not set baseband bandwidth to %d: %v", c.BasebandBandwidth, err)
	}
	log.Debugf("Setting frequency to %v", c.TuningFrequency)
	if err := r.device.SetFrequency(dir, 0, float64(c.TuningFrequency), nil); err != nil {
		return fmt.Errorf("could not set frequency: %w", err)
	}
	r.setGains(dir, c)
	r.sampleRate = c.SampleRate

	log.Debug("Creating the IQ stream")
	stream, err := r.device.SetupSDRStreamCF32(dir, []uint{0}, nil)
	if err != nil {
		return fmt.Errorf("could not setup SDR stream: %w", err)
	}
	return r.startStream(stream)
}

// startStream activates stream and starts the read loop. A stream that fails
// to activate is closed again. Callers hold r.mu.
func (r *Radio) startStream(stream iqStream) error {
	r.stream = stream
	if err := r.streamActivate(); err != nil {
		if cerr := r.streamClose(); cerr != nil {
			log.Warnf("Could not close the IQ stream: %v", cerr)
		}
		return err
	}

	r.done = make(chan struct{})
	r.running.Add(1)
	go r.run(r.done)
	return nil
}

func (r *Radio) setGains(dir device.Direction, c radio.Config) {
	available := map[string]bool{}
	for _, name := range r.device.ListGains(dir, 0) {
		available[name] = true
	}
	amp := 0.0
	if c.RFAmp {
		amp = ampOnGain
	}
	for name, value := range map[string]float64{gainAmp: amp, gainLNA: float64(c.LNAGain), gainVGA: float64(c.VGAGain)} {
		if !available[name] {
			log.Debugf("Driver %s has no %s gain element", r.Driver, name)
			continue
		}
		if err := r.device.SetGainElement(dir, 0, name, value); err != nil {
			log.Warnf("Could not set %s gain to %v: %v", name, value, err)
		}
	}
}

func (r *Radio) Disable() error {
	r.mu.Lock()
	done := r.done
	r.done = nil
	r.mu.Unlock()

	if done == nil {
		return nil
	}
	close(done)
	r.running.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.streamDeactivate(); err != nil {
		return err
	}
	return r.streamClose()
}

func (r *Radio) SetTuningFrequency(f radio.Frequency) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return fmt.Errorf("radio %s is not connected", r.Driver)
	}
	log.Debugf("Retuning to %v", f)
	if err := r.device.SetFrequency(device.DirectionRX, 0, float64(f), nil); err != nil {
		return fmt.Errorf("could not set frequency: %w", err)
	}
	return nil
}

// SetBasebandRate stops the stream, changes the ADC rate and restarts it. It
// returns only once the stream runs at the new rate.
func (r *Radio) SetBasebandRate(rate uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.device == nil {
		return fmt.Errorf("radio %s is not connected", r.Driver)
	}
	if err := r.streamDeactivate(); err != nil {
		return err
	}
	log.Debugf("Setting sample rate to %d", rate)
	if err := r.device.SetSampleRate(device.DirectionRX, 0, float64(rate)); err != nil {
		return fmt.Errorf("could not set sample rate: %w", err)
	}
	r.sampleRate = rate
	if r.stream == nil {
		return nil
	}
	return r.streamActivate()
}

func (r *Radio) run(done <-chan struct{}) {
	defer r.running.Done()

	var buf []complex64
	var bufRate uint32
	for {
		select {
		case <-done:
			return
		default:
		}

		samples, rate := r.read()
		if len(samples) == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		if rate != bufRate {
			// Never mix samples taken at two rates in one block
			buf = nil
			bufRate = rate
		}
		buf = append(buf, samples...)

		if len(buf) >= int(r.chunksize) {
			select {
			case r.BlocksOutput <- radio.Block{Samples: buf, SampleRate: bufRate}:
			case <-done:
				return
			}
			buf = nil
		}
	}
}

func (r *Radio) read() ([]complex64, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream == nil {
		return nil, r.sampleRate
	}
	flags := make([]int, 1)
	timeout := uint(100000)
	_, numSamples, err := r.stream.Read(r.buffer, r.chunksize, flags, timeout)
	if err != nil {
		log.Debugf("Stream read failed: %v", err)
		return nil, r.sampleRate
	}
	out := make([]complex64, numSamples)
	copy(out, r.buffer[0][:numSamples])
	return out, r.sampleRate
}

func (r *Radio) streamActivate() error {
	log.Debug("Activating IQ stream...")
	if err := r.stream.Activate(0, 0, 0); err != nil {
		return fmt.Errorf("could not activate the IQ stream: %w", err)
	}
	// Discard the first samples so the pipeline only sees settled data
	flags := make([]int, 1)
	r.stream.Read(r.buffer, min(1024, r.chunksize), flags, 100000)
	clear(r.buffer[0])
	return nil
}

func (r *Radio) streamDeactivate() error {
	log.Debug("Deactivating IQ stream...")
	if r.stream == nil {
		return nil
	}
	if err := r.stream.Deactivate(0, 0); err != nil {
		return fmt.Errorf("could not deactivate the IQ stream: %w", err)
	}
	return nil
}

func (r *Radio) streamClose() error {
	log.Debug("Closing IQ stream...")
	if r.stream == nil {
		return nil
	}
	err := r.stream.Close()
	r.stream = nil
	if err != nil {
		return fmt.Errorf("could not close the IQ stream: %w", err)
	}
	return nil
}

// Destroy releases the device. The radio must be disabled first.
func (r *Radio) Destroy() {
	if err := r.Disable(); err != nil {
		log.Errorf("Could not disable radio: %v", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.device != nil {
		if err := r.device.Unmake(); err != nil {
			log.Errorf("Could not close SDR device: %v", err)
		}
		r.device = nil
	}
}
