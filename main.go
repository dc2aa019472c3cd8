package main

import (
	"context"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/jrwynneiii/rxtuner/ais"
	"github.com/jrwynneiii/rxtuner/baseband"
	"github.com/jrwynneiii/rxtuner/capture"
	"github.com/jrwynneiii/rxtuner/config"
	"github.com/jrwynneiii/rxtuner/message"
	"github.com/jrwynneiii/rxtuner/packetlog"
	"github.com/jrwynneiii/rxtuner/publish"
	"github.com/jrwynneiii/rxtuner/radio"
	"github.com/jrwynneiii/rxtuner/radio/soapy"
	"github.com/jrwynneiii/rxtuner/record"
	"github.com/jrwynneiii/rxtuner/replay"
	"github.com/jrwynneiii/rxtuner/state"
	"github.com/jrwynneiii/rxtuner/tui"
	"gopkg.in/natefinch/lumberjack.v2"
)

// frontEnd is what the capture command needs from either radio.
type frontEnd interface {
	capture.Radio
	Destroy()
}

type simFrontEnd struct {
	*radio.Simulator
}

func (simFrontEnd) Destroy() {}

func setupLogFile(conf config.LogConf) *lumberjack.Logger {
	if conf.File == "" {
		return nil
	}
	lj := &lumberjack.Logger{
		Filename:   config.ExpandHome(conf.File),
		MaxSize:    conf.MaxSizeMB,
		MaxBackups: conf.MaxBackups,
		MaxAge:     conf.MaxAgeDays,
		Compress:   conf.Compress,
	}
	log.SetOutput(lj)
	tui.LogTee = lj
	return lj
}

func runCapture(conf config.Conf, simulate bool) error {
	if !baseband.Available(baseband.ImageCapture) {
		return fmt.Errorf("baseband image %v is not available", baseband.ImageCapture)
	}

	blocks := make(chan radio.Block, 8)
	var fe frontEnd
	if simulate {
		fe = simFrontEnd{radio.NewSimulator(radio.Frequency(conf.Radio.SimSignal), conf.Radio.ChunkSize, blocks)}
	} else {
		r := soapy.New(conf.Radio, blocks)
		if err := r.Connect(); err != nil {
			return fmt.Errorf("radio %s is not available: %w", conf.Radio.Driver, err)
		}
		fe = r
	}
	defer fe.Destroy()

	store, err := state.Open(conf.State.Path, state.Tuning{
		TunedFrequency: radio.Frequency(conf.Capture.DefaultFrequency),
		FrequencyStep:  radio.Frequency(conf.Capture.DefaultStep),
	})
	if err != nil {
		return err
	}

	recorder := record.New(conf.Record.Directory, conf.Record.Prefix)
	waterfall := tui.NewWaterfall()
	processor := baseband.New(blocks, conf.Capture.SpectrumBins)
	processor.Samples = recorder
	processor.Spectrum = waterfall

	return tui.StartCapture(tui.CaptureSession{
		Recorder:  recorder,
		Waterfall: waterfall,
		NewController: func(display capture.Display, operator capture.Operator) *capture.Controller {
			return capture.New(capture.Deps{
				Radio:    fe,
				Baseband: processor,
				Store:    store,
				Display:  display,
				Recorder: recorder,
				Operator: operator,
			}, capture.Options{
				RFAmp:          conf.Radio.RFAmp,
				LNAGain:        int8(conf.Radio.LNAGain),
				VGAGain:        int8(conf.Radio.VGAGain),
				BandwidthIndex: conf.Capture.BandwidthIndex,
			})
		},
	}, conf.Tui)
}

func runAIS(conf config.Conf, replayFile string) error {
	decoder := ais.Decoder{Channel: conf.AIS.Channel}
	logFile := packetlog.OpenForAppend(conf.AIS.LogFile)
	defer logFile.Close()

	console := tui.NewConsole()
	sinks := []packetlog.Sink{console}
	mqtt, err := publish.NewMQTT(conf.MQTT, conf.AIS.Channel)
	if err != nil {
		log.Errorf("MQTT publishing disabled: %v", err)
	} else if mqtt != nil {
		defer mqtt.Close()
		sinks = append(sinks, mqtt)
	}

	session := tui.AISSession{
		Logger:  packetlog.New(decoder.Decode, logFile, sinks...),
		Console: console,
		Map:     message.NewMap(),
	}

	if replayFile != "" {
		f, err := os.Open(replayFile)
		if err != nil {
			return fmt.Errorf("could not open replay file: %w", err)
		}
		defer f.Close()
		source := replay.New(f, time.Duration(conf.AIS.ReplayIntervalMs)*time.Millisecond)
		session.Source = func(ctx context.Context, m *message.Map) {
			sent, err := source.Run(ctx, m)
			if err != nil && ctx.Err() == nil {
				log.Errorf("Replay stopped: %v", err)
			}
			log.Infof("Replayed %d frames from %s", sent, replayFile)
		}
	}

	return tui.StartAIS(session, conf.Tui)
}

// run executes the selected command. Everything deferred here has run by the
// time main decides on the exit code.
func run() error {
	flags := kong.Parse(&cli)
	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if cli.Profile {
		prof, err := os.Create("./cpu.pprof")
		if err != nil {
			return fmt.Errorf("could not create profile: %w", err)
		}
		defer prof.Close()
		if err := pprof.StartCPUProfile(prof); err != nil {
			return fmt.Errorf("could not start profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	k, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	conf, err := config.Parse(k)
	if err != nil {
		return err
	}
	if lj := setupLogFile(conf.Log); lj != nil {
		defer lj.Close()
	}

	switch flags.Command() {
	case "probe":
		soapy.LogAllSoapySDRDevices()
		return nil

	case "capture":
		return runCapture(conf, cli.Capture.Simulate)

	case "ais":
		return runAIS(conf, cli.Ais.Replay)

	default:
		log.Info("Command not recognized")
		return nil
	}
}

func main() {
	log.Info("Starting rxtuner")
	if err := run(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
