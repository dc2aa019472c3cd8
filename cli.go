package main

var cli struct {
	Verbose bool   `help:"Prints debug output by default"`
	Profile bool   `help:"Output a pprof profile"`
	Config  string `help:"Path to the config file" type:"path"`
	Probe   struct {
	} `cmd:"" help:"List the available radios and SoapySDR configuration"`
	Capture struct {
		Simulate bool `help:"Use a simulated front-end instead of a SoapySDR device"`
	} `cmd:"" help:"Starts the capture TUI and connects to the SDR"`
	Ais struct {
		Replay string `help:"File of recorded frames, one '<bits> <hex>' per line" type:"existingfile"`
	} `cmd:"" help:"Decodes AIS packets into the packet log"`
}
