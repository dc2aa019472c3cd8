package tui

import (
	"strings"
	"testing"

	"github.com/jrwynneiii/rxtuner/packetlog"
)

func TestPacketTableData(t *testing.T) {
	stats := packetlog.Stats{Decoded: 3, Failed: 1, LastFailure: "bad checksum"}
	data := &PacketTableData{stats: func() packetlog.Stats { return stats }}

	tests := []struct {
		row  int
		want string
	}{
		{0, "3"},
		{1, "1"},
		{2, "bad checksum"},
	}
	for _, tt := range tests {
		if got := data.GetCell(tt.row, 1).Text; got != tt.want {
			t.Errorf("row %d = %q, want %q", tt.row, got, tt.want)
		}
	}
	if got := data.GetCell(5, 0).Text; got != "ERROR" {
		t.Errorf("out of range cell = %q", got)
	}
}

func TestConsoleRender(t *testing.T) {
	c := NewConsole()
	c.Render("!AIVDM,1,1,,B,1111,0*25")
	c.Render("!AIVDM,1,1,,A,1111,0*26")

	lines := strings.Split(strings.TrimSpace(c.GetText(true)), "\n")
	if len(lines) != 2 || lines[1] != "!AIVDM,1,1,,A,1111,0*26" {
		t.Errorf("console = %q", lines)
	}
}
