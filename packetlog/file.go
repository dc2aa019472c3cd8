package packetlog

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var errNotOpen = errors.New("log file is not open")

// File is an append-only text log. A File whose open failed stays not ready
// and every Write is refused.
type File struct {
	mu   sync.Mutex
	name string
	f    *os.File
}

func OpenForAppend(name string) *File {
	lf := &File{name: name}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Errorf("Could not open packet log %s: %v", name, err)
		return lf
	}
	lf.f = f
	log.Infof("Logging packets to %s", name)
	return lf
}

func (l *File) Name() string {
	return l.name
}

func (l *File) IsReady() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f != nil
}

func (l *File) Write(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return errNotOpen
	}
	if _, err := l.f.WriteString(text); err != nil {
		return fmt.Errorf("failed to write %s: %w", l.name, err)
	}
	return nil
}

func (l *File) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
