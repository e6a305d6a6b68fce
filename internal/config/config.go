package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"sdm-scanner/internal/channel"
)

// Root configuration for the multimeter scanner.
// This mirrors config/config.yaml.

type Config struct {
	Instrument InstrumentConfig `yaml:"instrument"`
	Scan       ScanConfig       `yaml:"scan"`
	Storage    StorageConfig    `yaml:"storage"`
	Report     ReportConfig     `yaml:"report"`
	Channels   []ChannelConfig  `yaml:"channels"`
}

type InstrumentConfig struct {
	// VISA resource, e.g. TCPIP::192.168.1.100::5025::SOCKET
	// or ASRL::/dev/ttyUSB0::INSTR. Empty means auto-detect.
	Resource string        `yaml:"resource"`
	Timeout  time.Duration `yaml:"timeout"`
	// Candidate resources probed when resource is left empty.
	Candidates []string `yaml:"candidates"`
	// Serial parameters, used for ASRL resources only.
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`
}

type ScanConfig struct {
	Interval      time.Duration `yaml:"interval"`
	ThresholdsCSV string        `yaml:"thresholds_csv"`
}

type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DBPath       string `yaml:"db_path"`
	MaxQueueSize int    `yaml:"max_queue_size"`
}

type ReportConfig struct {
	Enabled      bool   `yaml:"enabled"`
	CSVPath      string `yaml:"csv_path"`
	MaxQueueSize int    `yaml:"max_queue_size"`
}

type ChannelConfig struct {
	Channel         int    `yaml:"channel"`
	MeasurementType string `yaml:"measurement_type"`
	Range           string `yaml:"range"`
}

func LoadYAML(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	// Defaults
	if cfg.Instrument.Timeout <= 0 {
		cfg.Instrument.Timeout = 2 * time.Second
	}
	if cfg.Scan.Interval <= 0 {
		cfg.Scan.Interval = 2 * time.Second
	}
	if cfg.Storage.MaxQueueSize <= 0 {
		cfg.Storage.MaxQueueSize = 100
	}
	if cfg.Report.MaxQueueSize <= 0 {
		cfg.Report.MaxQueueSize = 100
	}
	if cfg.Storage.Enabled && cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "scanner.db"
	}
	// Basic validation
	for _, ch := range cfg.Channels {
		mt, err := channel.ParseMeasurementType(ch.MeasurementType)
		if err != nil {
			return Config{}, fmt.Errorf("channel %d: %w", ch.Channel, err)
		}
		if err := channel.ValidateGroup(ch.Channel, mt); err != nil {
			return Config{}, err
		}
		if ch.Range != "" {
			if _, ok := channel.CanonicalRange(mt, ch.Range); !ok {
				return Config{}, fmt.Errorf("channel %d: invalid range %q for %s", ch.Channel, ch.Range, mt)
			}
		}
	}
	return cfg, nil
}
