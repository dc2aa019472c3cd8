package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "RXTUNER_"

var SearchPaths = []string{"/etc/rxtuner/config.hcl", "~/.config/rxtuner/config.hcl", "./config.hcl"}

type RadioConf struct {
	Driver      string `koanf:"driver"`
	Address     string `koanf:"address"`
	DeviceIndex int    `koanf:"device_index"`
	ChunkSize   uint   `koanf:"chunk_size"`
	RFAmp       bool   `koanf:"rf_amp"`
	LNAGain     int    `koanf:"lna_gain"`
	VGAGain     int    `koanf:"vga_gain"`
	// Carrier frequency of the simulated front-end
	SimSignal int64 `koanf:"sim_signal_frequency"`
}

type CaptureConf struct {
	DefaultFrequency int64 `koanf:"default_frequency"`
	DefaultStep      int64 `koanf:"default_step"`
	BandwidthIndex   int   `koanf:"bandwidth_index"`
	SpectrumBins     int   `koanf:"spectrum_bins"`
}

type StateConf struct {
	Path string `koanf:"path"`
}

type RecordConf struct {
	Directory string `koanf:"directory"`
	Prefix    string `koanf:"prefix"`
}

type AISConf struct {
	LogFile          string `koanf:"log_file"`
	Channel          string `koanf:"channel"`
	ReplayIntervalMs int    `koanf:"replay_interval_ms"`
}

type MQTTConf struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	UseTLS   bool   `koanf:"use_tls"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Topic    string `koanf:"topic"`
	QoS      int    `koanf:"qos"`
}

type TuiConf struct {
	RefreshMs       int  `koanf:"refresh_ms"`
	EnableLogOutput bool `koanf:"enable_log_output"`
}

type LogConf struct {
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

type Conf struct {
	Radio   RadioConf   `koanf:"radio"`
	Capture CaptureConf `koanf:"capture"`
	State   StateConf   `koanf:"state"`
	Record  RecordConf  `koanf:"record"`
	AIS     AISConf     `koanf:"ais"`
	MQTT    MQTTConf    `koanf:"mqtt"`
	Tui     TuiConf     `koanf:"tui"`
	Log     LogConf     `koanf:"log"`
}

var defaults = map[string]interface{}{
	"radio.driver":               "hackrf",
	"radio.chunk_size":           65536,
	"radio.lna_gain":             32,
	"radio.vga_gain":             32,
	"radio.sim_signal_frequency": 433920000,
	"capture.default_frequency":  433920000,
	"capture.default_step":       25000,
	"capture.bandwidth_index":    7,
	"capture.spectrum_bins":      128,
	"state.path":                 "~/.config/rxtuner/state.yaml",
	"record.directory":           "./captures",
	"record.prefix":              "CAPT",
	"ais.log_file":               "ais.txt",
	"ais.channel":                "B",
	"ais.replay_interval_ms":     250,
	"mqtt.port":                  1883,
	"mqtt.topic":                 "rxtuner/ais",
	"tui.refresh_ms":             250,
	"tui.enable_log_output":      true,
	"log.max_size_mb":            10,
	"log.max_backups":            3,
	"log.max_age_days":           28,
}

// ExpandHome resolves a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func getConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, path := range SearchPaths {
		path = ExpandHome(path)
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			log.Infof("Found config file: %s", path)
			return path
		}
	}
	log.Info("Config file not found!")
	return ""
}

// Load layers the defaults, the first config file found (or explicit) and,
// if no file could be read, RXTUNER_ environment variables.
func Load(explicit string) (*koanf.Koanf, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := getConfigPath(explicit)
	if err := k.Load(file.Provider(path), hcl.Parser(true)); err != nil {
		if explicit != "" {
			return nil, fmt.Errorf("could not read config file %s: %w", explicit, err)
		}
		log.Errorf("Could not read config file: %v", err)
		log.Error("Attempting to use environment variables")
		err := k.Load(env.Provider(".", env.Opt{
			Prefix: EnvPrefix,
			TransformFunc: func(k, v string) (string, any) {
				key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
				k = strings.Replace(key, "_", ".", 1)
				log.Debugf("Found config env var: %s=%v", k, v)
				return k, v
			},
		}), nil)
		if err != nil {
			return nil, fmt.Errorf("could not read environment: %w", err)
		}
	}
	return k, nil
}

func Parse(k *koanf.Koanf) (Conf, error) {
	var c Conf
	if err := k.Unmarshal("", &c); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}
	c.State.Path = ExpandHome(c.State.Path)
	return c, c.Validate()
}

func (c Conf) Validate() error {
	var errs []error
	if c.Radio.ChunkSize == 0 {
		errs = append(errs, errors.New("radio.chunk_size must be positive"))
	}
	if c.Capture.DefaultFrequency <= 0 {
		errs = append(errs, errors.New("capture.default_frequency must be positive"))
	}
	if c.Capture.DefaultStep <= 0 {
		errs = append(errs, errors.New("capture.default_step must be positive"))
	}
	if c.Capture.SpectrumBins <= 0 {
		errs = append(errs, errors.New("capture.spectrum_bins must be positive"))
	}
	if c.AIS.Channel != "A" && c.AIS.Channel != "B" {
		errs = append(errs, fmt.Errorf("ais.channel must be A or B, got %q", c.AIS.Channel))
	}
	if c.MQTT.Enabled && c.MQTT.Host == "" {
		errs = append(errs, errors.New("mqtt.host is required when mqtt is enabled"))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS))
	}
	return errors.Join(errs...)
}
