package tui

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/rivo/tview"
)

const maxLogLines = 1000

// LogTee, when set, receives a copy of everything written to the log pane.
var LogTee io.Writer

var LogOut *tview.TextView

// newLogPane redirects the logger into a scrolling pane for the lifetime of
// the UI.
func newLogPane(app *tview.Application) *tview.TextView {
	LogOut = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true).
		SetMaxLines(maxLogLines)

	LogOut.SetChangedFunc(func() {
		LogOut.ScrollToEnd()
		app.Draw()
	})
	LogOut.SetBorder(true).SetTitle("Log Output")

	var out io.Writer = tview.ANSIWriter(LogOut)
	if LogTee != nil {
		out = io.MultiWriter(out, LogTee)
	}
	log.SetOutput(out)
	return LogOut
}
