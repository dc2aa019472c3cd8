// Package replay plays recorded AIS frames back through a message map, in
// place of a live demodulator.
//
// A recording is plain text with one frame per line:
//
//	<bit count> <hex bytes>
//
// Blank lines and lines starting with # are ignored.
package replay

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/message"
)

var ErrMalformedLine = errors.New("malformed replay line")

type Dispatcher interface {
	Dispatch(msg message.Message) bool
}

func ParseLine(line string) (message.Packet, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return message.Packet{}, fmt.Errorf("%w: want 2 fields, got %d", ErrMalformedLine, len(fields))
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return message.Packet{}, fmt.Errorf("%w: bad bit count %q", ErrMalformedLine, fields[0])
	}
	bits, err := hex.DecodeString(fields[1])
	if err != nil {
		return message.Packet{}, fmt.Errorf("%w: %v", ErrMalformedLine, err)
	}
	return message.Packet{Bits: bits, BitCount: count}, nil
}

type Source struct {
	Interval time.Duration
	r        io.Reader
}

func New(r io.Reader, interval time.Duration) *Source {
	return &Source{r: r, Interval: interval}
}

// Run dispatches every frame in order, pausing Interval between frames, until
// the input ends or ctx is cancelled. It returns the number of frames sent.
func (s *Source) Run(ctx context.Context, d Dispatcher) (int, error) {
	scanner := bufio.NewScanner(s.r)
	sent := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		packet, err := ParseLine(line)
		if err != nil {
			log.Warnf("[replay] Skipping line %d: %v", lineNo, err)
			continue
		}

		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if !d.Dispatch(packet) {
			log.Debugf("[replay] No handler for frame on line %d", lineNo)
		}
		sent++

		if s.Interval > 0 {
			select {
			case <-ctx.Done():
				return sent, ctx.Err()
			case <-time.After(s.Interval):
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return sent, fmt.Errorf("failed to read replay input: %w", err)
	}
	return sent, nil
}
