// Package ais checks received AIS frames and armors them into NMEA sentences.
package ais

import (
	"fmt"
	"strings"
)

type Status int

const (
	StatusOK Status = iota
	StatusError
)

func (s Status) String() string {
	if s == StatusOK {
		return "OK"
	}
	return "ERR"
}

// Result is the outcome of decoding one frame: sentence text when OK,
// otherwise a diagnostic.
type Result struct {
	Status  Status
	Payload string
}

func OK(payload string) Result { return Result{Status: StatusOK, Payload: payload} }
func Failed(reason string) Result { return Result{Status: StatusError, Payload: reason} }
func (r Result) OK() bool { return r.Status == StatusOK }
func (r Result) String() string { return r.Status.String() + "/" + r.Payload }

const (
	fcsBits = 16
	// A frame needs at least the 6-bit message type ahead of the FCS.
	minDataBits = 6
)

// Decoder armors frames for one VHF channel ("A" or "B").
type Decoder struct {
	Channel string
}

// Decode checks the frame check sequence over the first bitCount bits of bits
// and returns the payload as a !AIVDM sentence. bitCount beyond the buffer is
// clamped. The function has no side effects.
func (d Decoder) Decode(bits []byte, bitCount int) Result {
	if bitCount > len(bits)*8 {
		bitCount = len(bits) * 8
	}
	if bitCount < 0 {
		bitCount = 0
	}
	if bitCount < minDataBits+fcsBits {
		return Failed(fmt.Sprintf("short packet (%d bits)", bitCount))
	}

	dataBits := bitCount - fcsBits
	data := packBits(bits, 0, dataBits)
	fcs := uint16(readBits(bits, dataBits, 8)) | uint16(readBits(bits, dataBits+8, 8))<<8
	if crc := CRC16X25(data); crc != fcs {
		return Failed("bad checksum")
	}

	payload, fill := armor(bits, dataBits)
	return OK(Sentence(d.channel(), payload, fill))
}

func (d Decoder) channel() string {
	if d.Channel == "" {
		return "B"
	}
	return d.Channel
}

// Sentence builds a single-fragment !AIVDM sentence with its checksum.
func Sentence(channel, payload string, fill int) string {
	body := fmt.Sprintf("AIVDM,1,1,,%s,%s,%d", channel, payload, fill)
	return fmt.Sprintf("!%s*%02X", body, nmeaChecksum(body))
}

func nmeaChecksum(body string) byte {
	var sum byte
	for i := 0; i < len(body); i++ {
		sum ^= body[i]
	}
	return sum
}

// armor converts the first n bits to six-bit ASCII, padding the final
// character with zero fill bits.
func armor(bits []byte, n int) (string, int) {
	var sb strings.Builder
	fill := 0
	for pos := 0; pos < n; pos += 6 {
		width := min(6, n-pos)
		v := readBits(bits, pos, width) << (6 - width)
		fill = 6 - width
		if v < 40 {
			sb.WriteByte(byte(v + 48))
		} else {
			sb.WriteByte(byte(v + 56))
		}
	}
	return sb.String(), fill
}

// readBits reads width bits MSB first starting at bit offset pos.
func readBits(bits []byte, pos, width int) uint32 {
	var v uint32
	for i := 0; i < width; i++ {
		b := pos + i
		v <<= 1
		if bits[b/8]&(0x80>>(b%8)) != 0 {
			v |= 1
		}
	}
	return v
}

// packBits copies n bits starting at pos into whole bytes, zero padding the
// last byte.
func packBits(bits []byte, pos, n int) []byte {
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		b := pos + i
		if bits[b/8]&(0x80>>(b%8)) != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// CRC16X25 is the HDLC frame check sequence (reflected 0x1021, init and
// xorout 0xFFFF).
func CRC16X25(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}

// AppendFCS returns data followed by its frame check sequence, low byte first.
func AppendFCS(data []byte) []byte {
	crc := CRC16X25(data)
	return append(append([]byte{}, data...), byte(crc), byte(crc>>8))
}
