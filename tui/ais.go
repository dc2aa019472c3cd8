package tui

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/rxtuner/config"
	"github.com/jrwynneiii/rxtuner/message"
	"github.com/jrwynneiii/rxtuner/packetlog"
	"github.com/rivo/tview"
)

// Console shows rendered sentences, newest at the bottom.
type Console struct {
	*tview.TextView
}

func NewConsole() *Console {
	tv := tview.NewTextView().
		SetDynamicColors(false).
		SetWordWrap(true).
		SetMaxLines(maxLogLines)
	tv.SetBorder(true).SetTitle("Decoded Messages")
	return &Console{TextView: tv}
}

// Render implements packetlog.Sink.
func (c *Console) Render(text string) {
	fmt.Fprintln(c.TextView, text)
}

type PacketTableData struct {
	tview.TableContentReadOnly
	stats func() packetlog.Stats
}

func (p *PacketTableData) GetRowCount() int {
	return 3
}

func (p *PacketTableData) GetColumnCount() int {
	return 2
}

func (p *PacketTableData) GetCell(row, column int) *tview.TableCell {
	s := p.stats()
	switch row {
	case 0:
		if column == 0 {
			return tview.NewTableCell("Packets decoded:")
		}
		color := tcell.ColorGreen
		if s.Decoded == 0 {
			color = tcell.ColorRed
		}
		return tview.NewTableCell(fmt.Sprintf("%d", s.Decoded)).SetTextColor(color)
	case 1:
		if column == 0 {
			return tview.NewTableCell("Packets failed:")
		}
		return tview.NewTableCell(fmt.Sprintf("%d", s.Failed)).SetTextColor(tcell.ColorRed)
	case 2:
		if column == 0 {
			return tview.NewTableCell("Last failure:")
		}
		return tview.NewTableCell(s.LastFailure)
	}
	return tview.NewTableCell("ERROR")
}

// AISSession is the packet side of the AIS screen. Source, if set, produces
// packets on Map until its context is cancelled.
type AISSession struct {
	Logger  *packetlog.Logger
	Console *Console
	Map     *message.Map
	Source  func(ctx context.Context, m *message.Map)
}

// StartAIS shows the AIS screen. The packet handler is registered while the
// screen is shown and released before StartAIS returns.
func StartAIS(s AISSession, tuiConf config.TuiConf) error {
	app := tview.NewApplication()

	s.Console.SetChangedFunc(func() {
		s.Console.ScrollToEnd()
		app.Draw()
	})

	stats := tview.NewTable().SetContent(&PacketTableData{stats: s.Logger.Stats})
	stats.SetSelectable(false, false).SetBorder(true).SetTitle("Decoder Status")

	page := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.Console, 0, 4, false).
		AddItem(stats, 5, 0, false)
	if tuiConf.EnableLogOutput {
		page.AddItem(newLogPane(app), 0, 2, false)
	}

	if err := s.Logger.Start(s.Map); err != nil {
		return err
	}
	defer s.Logger.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	var producers sync.WaitGroup
	defer producers.Wait()
	defer cancel()
	if s.Source != nil {
		producers.Add(1)
		go func() {
			defer producers.Done()
			s.Source(ctx, s.Map)
		}()
	}

	if err := app.SetRoot(page, true).EnableMouse(true).Run(); err != nil {
		log.Errorf("Could not start UI: %v", err)
		return err
	}
	return nil
}
