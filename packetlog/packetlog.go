// Package packetlog records every decoded AIS packet to an append-only log and
// hands good decodes to the display sinks.
package packetlog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/ais"
	"github.com/jrwynneiii/rxtuner/message"
)

type DecodeFunc func(bits []byte, bitCount int) ais.Result

type Log interface {
	IsReady() bool
	Write(text string) error
}

// Sink displays decoded sentences. It is only called for OK results.
type Sink interface {
	Render(text string)
}

type Stats struct {
	Decoded     uint64
	Failed      uint64
	LastFailure string
}

type Logger struct {
	decode DecodeFunc
	log    Log
	sinks  []Sink

	decoded     atomic.Uint64
	failed      atomic.Uint64
	lastFailure atomic.Value

	mu  sync.Mutex
	sub *message.Subscription
}

func New(decode DecodeFunc, l Log, sinks ...Sink) *Logger {
	return &Logger{
		decode: decode,
		log:    l,
		sinks:  sinks,
	}
}

// Record formats one log line.
func Record(r ais.Result) string {
	return r.Status.String() + "/" + r.Payload + "\r\n"
}

// Handle decodes one packet. Every attempt is logged when the log is ready;
// only OK results reach the sinks.
func (l *Logger) Handle(p message.Packet) ais.Result {
	result := l.decode(p.Bits, p.BitCount)

	if l.log != nil && l.log.IsReady() {
		if err := l.log.Write(Record(result)); err != nil {
			log.Debugf("[packetlog] Dropped log record: %v", err)
		}
	}

	if result.OK() {
		l.decoded.Add(1)
		for _, sink := range l.sinks {
			sink.Render(result.Payload)
		}
	} else {
		l.failed.Add(1)
		l.lastFailure.Store(result.Payload)
		log.Debugf("[packetlog] Packet of %d bits failed: %s", p.BitCount, result.Payload)
	}
	return result
}

func (l *Logger) Stats() Stats {
	s := Stats{
		Decoded: l.decoded.Load(),
		Failed:  l.failed.Load(),
	}
	if v, ok := l.lastFailure.Load().(string); ok {
		s.LastFailure = v
	}
	return s
}

// Start subscribes to AIS packets on m. It pairs with Stop.
func (l *Logger) Start(m *message.Map) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.sub != nil {
		return fmt.Errorf("packet logger already started")
	}
	sub, err := m.Register(message.IDAISPacket, func(msg message.Message) {
		l.Handle(msg.(message.Packet))
	})
	if err != nil {
		return fmt.Errorf("could not subscribe to packets: %w", err)
	}
	l.sub = sub
	return nil
}

// Stop releases the subscription. No packet is handled after it returns.
func (l *Logger) Stop() {
	l.mu.Lock()
	sub := l.sub
	l.sub = nil
	l.mu.Unlock()

	if sub != nil {
		sub.Release()
	}
}
