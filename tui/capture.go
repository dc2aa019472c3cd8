package tui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/jrwynneiii/rxtuner/capture"
	"github.com/jrwynneiii/rxtuner/config"
	"github.com/jrwynneiii/rxtuner/radio"
	"github.com/jrwynneiii/rxtuner/record"
	"github.com/rivo/tview"
)

const modalPage = "modal"

// CaptureSession is what the capture screen drives. NewController is called
// once the screen's display and modal handler exist.
type CaptureSession struct {
	Recorder      *record.Recorder
	Waterfall     *Waterfall
	NewController func(display capture.Display, operator capture.Operator) *capture.Controller
}

type captureView struct {
	app        *tview.Application
	pages      *tview.Pages
	controller *capture.Controller
	recorder   *record.Recorder
	waterfall  *Waterfall

	frequency *tview.InputField
	status    *tview.TextView
	record    *tview.Button
}

// ShowModal implements capture.Operator. It may be called from any goroutine.
func (v *captureView) ShowModal(title, message string) {
	go v.app.QueueUpdateDraw(func() {
		modal := tview.NewModal().
			SetText(fmt.Sprintf("%s\n\n%s", title, message)).
			AddButtons([]string{"OK"}).
			SetDoneFunc(func(int, string) {
				v.pages.RemovePage(modalPage)
			})
		v.pages.AddPage(modalPage, modal, false, true)
	})
}

func stepLabel(step int64) string {
	switch {
	case step >= 1000000 && step%1000000 == 0:
		return fmt.Sprintf("%d MHz", step/1000000)
	case step >= 1000:
		return fmt.Sprintf("%g kHz", float64(step)/1000)
	}
	return fmt.Sprintf("%d Hz", step)
}

func (v *captureView) onFrequencyDone(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	f, err := strconv.ParseInt(v.frequency.GetText(), 10, 64)
	if err != nil || f <= 0 {
		v.ShowModal("Error", fmt.Sprintf("%q is not a frequency in Hz", v.frequency.GetText()))
		return
	}
	v.controller.ApplyFrequency(radio.Frequency(f))
	v.updateStatus()
}

func (v *captureView) nudge(n int) {
	v.controller.Nudge(n)
	v.frequency.SetText(strconv.FormatInt(int64(v.controller.TunedFrequency()), 10))
	v.updateStatus()
}

func (v *captureView) toggleRecording() {
	if v.recorder.Recording() {
		if err := v.recorder.Stop(); err != nil {
			v.ShowModal("Error", err.Error())
		}
	} else if err := v.recorder.Start(); err != nil {
		v.ShowModal("Error", err.Error())
	}
	v.updateStatus()
}

func (v *captureView) updateStatus() {
	recording := "[red]stopped"
	label := "Record"
	if v.recorder.Recording() {
		recording = "[green]" + v.recorder.Name() + ".C16"
		label = "Stop"
	}
	v.record.SetLabel(label)
	v.status.SetText(fmt.Sprintf("[lightskyblue]Target:[white] %v  [lightskyblue]Radio:[white] %v  [lightskyblue]Rate:[white] %s  [lightskyblue]Recording:[white] %s",
		v.controller.TunedFrequency(), v.controller.TuningFrequency(), formatRate(v.controller.SampleRate()), recording))
}

// StartCapture builds the capture screen, constructs the session and runs the
// UI until the operator quits. The session is torn down before it returns.
func StartCapture(s CaptureSession, tuiConf config.TuiConf) error {
	app := tview.NewApplication()
	v := &captureView{
		app:       app,
		pages:     tview.NewPages(),
		recorder:  s.Recorder,
		waterfall: s.Waterfall,
	}

	v.controller = s.NewController(v.waterfall, v)
	defer v.controller.Close()
	defer v.recorder.Stop()

	v.frequency = tview.NewInputField().
		SetLabel("Frequency (Hz) ").
		SetFieldWidth(12).
		SetAcceptanceFunc(tview.InputFieldInteger).
		SetText(strconv.FormatInt(int64(v.controller.TunedFrequency()), 10))
	v.frequency.SetDoneFunc(v.onFrequencyDone)

	stepLabels := make([]string, len(capture.FrequencySteps))
	stepIndex := 0
	for i, step := range capture.FrequencySteps {
		stepLabels[i] = stepLabel(step)
		if radio.Frequency(step) == v.controller.FrequencyStep() {
			stepIndex = i
		}
	}
	steps := tview.NewDropDown().SetLabel("Step ").SetOptions(stepLabels, nil)
	steps.SetCurrentOption(stepIndex)
	steps.SetSelectedFunc(func(_ string, index int) {
		v.controller.ApplyFrequencyStep(radio.Frequency(capture.FrequencySteps[index]))
	})

	bwLabels := make([]string, len(capture.BandwidthOptions))
	for i, o := range capture.BandwidthOptions {
		bwLabels[i] = o.Label
	}
	bandwidth := tview.NewDropDown().SetLabel("Bandwidth ").SetOptions(bwLabels, nil)
	bandwidth.SetCurrentOption(v.controller.BandwidthIndex())
	bandwidth.SetSelectedFunc(func(_ string, index int) {
		if index != v.controller.BandwidthIndex() {
			v.controller.SelectBandwidth(index)
			v.updateStatus()
		}
	})

	v.record = tview.NewButton("Record").SetSelectedFunc(v.toggleRecording)
	down := tview.NewButton("-").SetSelectedFunc(func() { v.nudge(-1) })
	up := tview.NewButton("+").SetSelectedFunc(func() { v.nudge(1) })

	controls := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(v.frequency, 0, 3, true).
		AddItem(down, 3, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(up, 3, 0, false).
		AddItem(tview.NewBox(), 2, 0, false).
		AddItem(steps, 0, 2, false).
		AddItem(bandwidth, 0, 2, false).
		AddItem(v.record, 10, 0, false)
	controls.SetBorder(true).SetTitle("Capture")

	v.status = tview.NewTextView().SetDynamicColors(true)
	v.updateStatus()

	page := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(controls, 3, 0, true).
		AddItem(v.status, 1, 0, false).
		AddItem(v.waterfall, 0, 5, false)
	if tuiConf.EnableLogOutput {
		page.AddItem(newLogPane(app), 0, 2, false)
	}
	v.pages.AddPage("capture", page, true, true)

	focusables := []tview.Primitive{v.frequency, down, up, steps, bandwidth, v.record}
	focus := 0
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if v.pages.HasPage(modalPage) {
			return event
		}
		switch event.Key() {
		case tcell.KeyTab:
			focus = (focus + 1) % len(focusables)
			app.SetFocus(focusables[focus])
			return nil
		case tcell.KeyBacktab:
			focus = (focus + len(focusables) - 1) % len(focusables)
			app.SetFocus(focusables[focus])
			return nil
		case tcell.KeyPgUp:
			v.nudge(1)
			return nil
		case tcell.KeyPgDn:
			v.nudge(-1)
			return nil
		}
		return event
	})

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(time.Duration(tuiConf.RefreshMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				app.QueueUpdateDraw(func() {
					v.waterfall.Refresh()
					v.updateStatus()
				})
			}
		}
	}()

	if err := app.SetRoot(v.pages, true).EnableMouse(true).Run(); err != nil {
		log.Errorf("Could not start UI: %v", err)
		return err
	}
	return nil
}
