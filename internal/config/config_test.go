package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadYAMLDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.yaml", `
instrument:
  resource: TCPIP::192.168.1.100::5025::SOCKET
channels:
  - channel: 3
    measurement_type: RES
    range: 2 kOhm
  - channel: 14
    measurement_type: CURR:DC
`)
	cfg, err := LoadYAML(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scan.Interval != 2*time.Second {
		t.Errorf("default interval = %v, want 2s", cfg.Scan.Interval)
	}
	if cfg.Instrument.Timeout != 2*time.Second {
		t.Errorf("default timeout = %v, want 2s", cfg.Instrument.Timeout)
	}
	if cfg.Report.MaxQueueSize != 100 || cfg.Storage.MaxQueueSize != 100 {
		t.Errorf("default queue sizes = %d/%d, want 100/100",
			cfg.Report.MaxQueueSize, cfg.Storage.MaxQueueSize)
	}
	if len(cfg.Channels) != 2 {
		t.Fatalf("got %d channels", len(cfg.Channels))
	}
}

func TestLoadYAMLRejectsBadChannel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
	}{
		{"channel out of range", "channels:\n  - channel: 17\n    measurement_type: VOLT:DC\n"},
		{"unknown type", "channels:\n  - channel: 1\n    measurement_type: POWER\n"},
		{"range invalid for type", "channels:\n  - channel: 1\n    measurement_type: VOLT:DC\n    range: 2 A\n"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, "bad.yaml", tc.body)
			if _, err := LoadYAML(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadThresholdsCSV(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "thresholds.csv", strings.Join([]string{
		"channel,measurement_type,range,lower_threshold,upper_threshold",
		"# channel 1 supply rail",
		"1,VOLT:DC,20 v,4.5,5.5",
		"13,CURR:DC,,0.0,",
		"2,RES,2 kOhm,,1500",
	}, "\n"))
	ths, err := LoadThresholdsCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(ths) != 3 {
		t.Fatalf("got %d thresholds, want 3", len(ths))
	}
	t1 := ths[1]
	if t1.Range != "20 V" {
		t.Errorf("range not canonicalized: %q", t1.Range)
	}
	if !t1.InThreshold(5.0) || t1.InThreshold(5.6) || t1.InThreshold(4.4) {
		t.Error("channel 1 bounds misapplied")
	}
	if t13 := ths[13]; t13.Upper != nil || t13.Lower == nil {
		t.Error("channel 13 should have only a lower bound")
	}
	if !ths[13].InThreshold(99.0) {
		t.Error("unbounded upper side must pass")
	}
	if ths[2].InThreshold(1501) || !ths[2].InThreshold(-100) {
		t.Error("channel 2 bounds misapplied")
	}
}

func TestLoadThresholdsCSVDuplicateKeepsLater(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "dup.csv", strings.Join([]string{
		"1,VOLT:DC,,0,10",
		"1,VOLT:DC,,2,8",
	}, "\n"))
	ths, err := LoadThresholdsCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if *ths[1].Lower != 2 || *ths[1].Upper != 8 {
		t.Errorf("later row did not overwrite: %+v", ths[1])
	}
}

func TestLoadThresholdsCSVRejectsInvertedBounds(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "bad.csv", "1,VOLT:DC,,10,5\n")
	if _, err := LoadThresholdsCSV(path); err == nil {
		t.Error("expected error for lower >= upper")
	}
}
