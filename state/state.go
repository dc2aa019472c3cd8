// Package state keeps the tuning the operator last used so the next capture
// session starts where the previous one left off.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/radio"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TunedFrequency radio.Frequency `yaml:"tuned_frequency"`
	FrequencyStep  radio.Frequency `yaml:"frequency_step"`
}

// File is a YAML backed store. Every setter rewrites the file.
type File struct {
	mu     sync.Mutex
	path   string
	tuning Tuning
}

// Open loads path, or creates it from defaults if it does not exist yet.
// Zero values in an existing file fall back to defaults.
func Open(path string, defaults Tuning) (*File, error) {
	f := &File{path: path, tuning: defaults}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Infof("No saved tuning at %s, starting at %v", path, defaults.TunedFrequency)
		if err := f.save(); err != nil {
			return nil, err
		}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var saved Tuning
	if err := yaml.Unmarshal(data, &saved); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if saved.TunedFrequency > 0 {
		f.tuning.TunedFrequency = saved.TunedFrequency
	}
	if saved.FrequencyStep > 0 {
		f.tuning.FrequencyStep = saved.FrequencyStep
	}
	log.Debugf("Loaded tuning from %s: %+v", path, f.tuning)
	return f, nil
}

func (f *File) TunedFrequency() radio.Frequency {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tuning.TunedFrequency
}

func (f *File) SetTunedFrequency(v radio.Frequency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tuning.TunedFrequency = v
	return f.save()
}

func (f *File) FrequencyStep() radio.Frequency {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tuning.FrequencyStep
}

func (f *File) SetFrequencyStep(v radio.Frequency) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tuning.FrequencyStep = v
	return f.save()
}

// save writes through a temporary file so a crash never leaves a torn state file.
func (f *File) save() error {
	data, err := yaml.Marshal(f.tuning)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Memory is a store that lives only as long as the process.
type Memory struct {
	mu     sync.Mutex
	Tuning Tuning
}

func NewMemory(t Tuning) *Memory {
	return &Memory{Tuning: t}
}

func (m *Memory) TunedFrequency() radio.Frequency {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tuning.TunedFrequency
}

func (m *Memory) SetTunedFrequency(v radio.Frequency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tuning.TunedFrequency = v
	return nil
}

func (m *Memory) FrequencyStep() radio.Frequency {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Tuning.FrequencyStep
}

func (m *Memory) SetFrequencyStep(v radio.Frequency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tuning.FrequencyStep = v
	return nil
}
