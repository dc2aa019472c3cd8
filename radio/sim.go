package radio

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Simulator stands in for a front-end when no hardware is attached. It emits
// a single carrier at Signal plus noise, mixed down against the tuning
// frequency, so the waterfall shows the tone move as the operator retunes.
type Simulator struct {
	BlocksOutput chan<- Block
	Signal       Frequency
	Amplitude    float64
	NoiseLevel   float64

	chunksize int
	pace      bool

	mu      sync.Mutex
	config  Config
	enabled bool
	phase   float64
	done    chan struct{}
	running sync.WaitGroup
}

func NewSimulator(signal Frequency, chunksize uint, output chan<- Block) *Simulator {
	return &Simulator{
		BlocksOutput: output,
		Signal:       signal,
		Amplitude:    0.5,
		NoiseLevel:   0.05,
		chunksize:    int(chunksize),
		pace:         true,
	}
}

func (s *Simulator) Enable(c Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled {
		return fmt.Errorf("simulated radio is already enabled")
	}
	if c.SampleRate == 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	log.Debugf("[sim] Enabled at %v, %d S/s", c.TuningFrequency, c.SampleRate)
	s.config = c
	s.enabled = true
	s.done = make(chan struct{})
	if s.BlocksOutput != nil {
		s.running.Add(1)
		go s.run(s.done)
	}
	return nil
}

func (s *Simulator) Disable() error {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return nil
	}
	s.enabled = false
	close(s.done)
	s.mu.Unlock()

	s.running.Wait()
	log.Debug("[sim] Disabled")
	return nil
}

func (s *Simulator) SetTuningFrequency(f Frequency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return fmt.Errorf("simulated radio is not enabled")
	}
	s.config.TuningFrequency = f
	return nil
}

func (s *Simulator) SetBasebandRate(rate uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return fmt.Errorf("simulated radio is not enabled")
	}
	if rate == 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	s.config.SampleRate = rate
	return nil
}

// State returns the configuration the simulated hardware is currently running.
func (s *Simulator) State() (Config, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config, s.enabled
}

func (s *Simulator) run(done <-chan struct{}) {
	defer s.running.Done()

	for {
		block := s.Generate(s.chunksize)
		select {
		case s.BlocksOutput <- block:
		case <-done:
			return
		}
		if s.pace {
			time.Sleep(time.Duration(float64(s.chunksize) / float64(block.SampleRate) * float64(time.Second)))
		}
	}
}

// Generate produces the next n samples at the current tuning.
func (s *Simulator) Generate(n int) Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	rate := float64(s.config.SampleRate)
	offset := float64(s.Signal - s.config.TuningFrequency)
	step := 2 * math.Pi * offset / rate

	samples := make([]complex64, n)
	for i := range samples {
		re := s.Amplitude*math.Cos(s.phase) + s.NoiseLevel*rand.NormFloat64()
		im := s.Amplitude*math.Sin(s.phase) + s.NoiseLevel*rand.NormFloat64()
		samples[i] = complex(float32(re), float32(im))
		s.phase = math.Mod(s.phase+step, 2*math.Pi)
	}
	return Block{Samples: samples, SampleRate: s.config.SampleRate}
}
