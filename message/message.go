// Package message routes notifications raised by the baseband side to the
// handlers of whichever view is currently shown.
package message

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

type ID int

const (
	IDAISPacket ID = iota + 1
)

func (id ID) String() string {
	switch id {
	case IDAISPacket:
		return "AISPacket"
	}
	return fmt.Sprintf("ID(%d)", int(id))
}

var ErrAlreadyRegistered = errors.New("a handler is already registered for this message")

type Message interface {
	ID() ID
}

// Packet is one demodulated frame. BitCount may be less than 8*len(Bits).
type Packet struct {
	Bits     []byte
	BitCount int
}

func (Packet) ID() ID { return IDAISPacket }

type Handler func(Message)

// Map holds at most one handler per message ID. Dispatch runs the handler to
// completion before the next message is delivered.
type Map struct {
	mu       sync.Mutex
	handlers map[ID]*Subscription

	delivery sync.Mutex
}

func NewMap() *Map {
	return &Map{handlers: make(map[ID]*Subscription)}
}

// Register installs handler for id. The returned Subscription must be released
// when the owner goes away.
func (m *Map) Register(id ID, handler Handler) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.handlers[id]; ok {
		return nil, fmt.Errorf("register %v: %w", id, ErrAlreadyRegistered)
	}
	sub := &Subscription{m: m, id: id, handler: handler}
	m.handlers[id] = sub
	log.Debugf("Registered handler for %v", id)
	return sub, nil
}

// Dispatch delivers msg to its handler, if any, and reports whether one ran.
func (m *Map) Dispatch(msg Message) bool {
	m.delivery.Lock()
	defer m.delivery.Unlock()

	m.mu.Lock()
	sub, ok := m.handlers[msg.ID()]
	m.mu.Unlock()
	if !ok {
		return false
	}
	sub.handler(msg)
	return true
}

func (m *Map) Registered(id ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.handlers[id]
	return ok
}

// Subscription is the handle for one registered handler.
type Subscription struct {
	m       *Map
	id      ID
	handler Handler
	once    sync.Once
}

// Release unregisters the handler. Once it returns the handler is not running
// and will not run again. Release is safe to call more than once but must
// not be called from inside the handler.
func (s *Subscription) Release() {
	s.once.Do(func() {
		m := s.m
		// Wait out an in-flight delivery
		m.delivery.Lock()
		defer m.delivery.Unlock()

		m.mu.Lock()
		if m.handlers[s.id] == s {
			delete(m.handlers, s.id)
		}
		m.mu.Unlock()
		log.Debugf("Unregistered handler for %v", s.id)
	})
}
