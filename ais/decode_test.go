package ais

import "testing"

func TestCRC16X25CheckValue(t *testing.T) {
	if got := CRC16X25([]byte("123456789")); got != 0x906E {
		t.Errorf("CRC16X25(123456789) = %#04x, want 0x906e", got)
	}
}

func TestDecode(t *testing.T) {
	frame := []byte{0x04, 0x10, 0x41, 0xB1, 0x63}

	tests := []struct {
		name     string
		decoder  Decoder
		bits     []byte
		bitCount int
		want     Result
	}{
		{
			name:     "valid frame",
			decoder:  Decoder{Channel: "B"},
			bits:     frame,
			bitCount: 40,
			want:     OK("!AIVDM,1,1,,B,1111,0*25"),
		},
		{
			name:     "default channel",
			bits:     AppendFCS([]byte{0x04, 0x10, 0x41}),
			bitCount: 40,
			want:     OK("!AIVDM,1,1,,B,1111,0*25"),
		},
		{
			name:     "channel A",
			decoder:  Decoder{Channel: "A"},
			bits:     frame,
			bitCount: 40,
			want:     OK("!AIVDM,1,1,,A,1111,0*26"),
		},
		{
			name:     "corrupted data",
			bits:     []byte{0x05, 0x10, 0x41, 0xB1, 0x63},
			bitCount: 40,
			want:     Failed("bad checksum"),
		},
		{
			name:     "truncated bit count",
			bits:     append(append([]byte{}, frame...), 0, 0, 0),
			bitCount: 32,
			want:     Failed("bad checksum"),
		},
		{
			name:     "short packet",
			bits:     frame,
			bitCount: 12,
			want:     Failed("short packet (12 bits)"),
		},
		{
			name:     "one bit under type plus FCS",
			bits:     frame,
			bitCount: 21,
			want:     Failed("short packet (21 bits)"),
		},
		{
			name:     "bit count beyond buffer",
			bits:     []byte{0xFF},
			bitCount: 4096,
			want:     Failed("short packet (8 bits)"),
		},
		{
			name:     "empty",
			bitCount: 0,
			want:     Failed("short packet (0 bits)"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.decoder.Decode(tt.bits, tt.bitCount)
			if got != tt.want {
				t.Errorf("Decode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArmor(t *testing.T) {
	tests := []struct {
		bits     []byte
		n        int
		want     string
		wantFill int
	}{
		{[]byte{0x04, 0x10, 0x41}, 24, "1111", 0},
		{[]byte{0xA0, 0x00, 0x00}, 6, "`", 0},
		{[]byte{0xFF, 0xC0}, 10, "wt", 2},
	}
	for _, tt := range tests {
		got, fill := armor(tt.bits, tt.n)
		if got != tt.want || fill != tt.wantFill {
			t.Errorf("armor(%x, %d) = %q/%d, want %q/%d", tt.bits, tt.n, got, fill, tt.want, tt.wantFill)
		}
	}
}

func TestResultString(t *testing.T) {
	if s := OK("x").String(); s != "OK/x" {
		t.Errorf("unexpected %q", s)
	}
	if s := Failed("bad checksum").String(); s != "ERR/bad checksum" {
		t.Errorf("unexpected %q", s)
	}
	if Failed("y").OK() {
		t.Error("failed result reported OK")
	}
}
