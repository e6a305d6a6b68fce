package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/config"
	"sdm-scanner/internal/driver"
	"sdm-scanner/internal/model"
	"sdm-scanner/internal/report"
	"sdm-scanner/internal/scan"
	"sdm-scanner/internal/sim"
	"sdm-scanner/internal/store"
	"sdm-scanner/internal/visa"
)

// Options defines initialization overrides for the scanner.
// Mirrors the CLI flags used in cmd/scanner/main.go.
type Options struct {
	ConfigPath     string
	Resource       string
	Simulate       bool
	Interval       time.Duration
	Single         bool
	StorageEnabled bool
	StoragePath    string
	ReportPath     string
}

// Device is what the scanner needs from the instrument side: the scan
// manager's device contract plus access to the channel table.
type Device interface {
	scan.Device
	Registry() *channel.Registry
}

// InitAndRunScanner loads config, applies overrides, connects the instrument
// and runs the scan loop until the context is cancelled.
func InitAndRunScanner(ctx context.Context, opts Options) error {
	cfg := config.Config{}
	if opts.ConfigPath != "" {
		c, err := config.LoadYAML(opts.ConfigPath)
		if err != nil {
			return err
		}
		cfg = c
	} else {
		cfg.Scan.Interval = 2 * time.Second
		cfg.Instrument.Timeout = 2 * time.Second
	}

	// Override YAML with provided options
	if opts.Resource != "" {
		cfg.Instrument.Resource = opts.Resource
	}
	if opts.Interval > 0 {
		cfg.Scan.Interval = opts.Interval
	}
	if opts.StorageEnabled {
		cfg.Storage.Enabled = true
	}
	if opts.StoragePath != "" {
		cfg.Storage.DBPath = opts.StoragePath
		cfg.Storage.Enabled = true
	}
	if opts.ReportPath != "" {
		cfg.Report.CSVPath = opts.ReportPath
		cfg.Report.Enabled = true
	}
	if cfg.Storage.Enabled && cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "scanner.db"
	}

	dev, mode, resource, err := openDevice(cfg, opts.Simulate)
	if err != nil {
		return err
	}
	if err := dev.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer dev.Disconnect()
	log.Printf("connected to %s", resource)

	mgr := scan.NewManager(dev)
	if settings := channelSettings(cfg.Channels); len(settings) > 0 {
		if err := mgr.ConfigureChannels(settings); err != nil {
			return fmt.Errorf("configure channels: %w", err)
		}
	}

	var thresholds map[int]config.ChannelThreshold
	if cfg.Scan.ThresholdsCSV != "" {
		thresholds, err = config.LoadThresholdsCSV(cfg.Scan.ThresholdsCSV)
		if err != nil {
			return fmt.Errorf("load thresholds: %w", err)
		}
		log.Printf("loaded %d channel thresholds", len(thresholds))
	}

	var writer *report.Writer
	if cfg.Report.Enabled && cfg.Report.CSVPath != "" {
		writer, err = report.NewWriter(cfg.Report.CSVPath, cfg.Report.MaxQueueSize)
		if err != nil {
			return fmt.Errorf("open report: %w", err)
		}
		defer writer.Close()
	}

	var hist *store.Store
	sessionID := ""
	if cfg.Storage.Enabled {
		hist, err = store.Open(cfg.Storage.DBPath)
		if err != nil {
			log.Printf("storage init failed: %v (continuing without storage)", err)
		} else {
			defer hist.Close()
			sessionID, err = hist.BeginSession(ctx, resource, mode)
			if err != nil {
				return fmt.Errorf("begin session: %w", err)
			}
			log.Printf("history session %s", sessionID)
		}
	}

	if opts.Single {
		if err := mgr.StartSingleScan(); err != nil {
			return err
		}
	} else {
		if err := mgr.Start(cfg.Scan.Interval); err != nil {
			return err
		}
	}

	consumeEvents(ctx, mgr, dev, writer, hist, sessionID, thresholds, opts.Single)
	return nil
}

func openDevice(cfg config.Config, simulate bool) (Device, string, string, error) {
	if simulate {
		return sim.New(), "simulator", "simulator", nil
	}
	resource := cfg.Instrument.Resource
	if resource == "" {
		reachable := visa.ListResources(cfg.Instrument.Candidates, cfg.Instrument.Timeout)
		resource = visa.AutoDetect(reachable)
		if resource == "" {
			return nil, "", "", fmt.Errorf("no instrument found, set a VISA resource or use the simulator")
		}
		log.Printf("auto-detected instrument at %s", resource)
	}
	tr, err := visa.Open(resource, &visa.Options{
		Timeout:  cfg.Instrument.Timeout,
		BaudRate: cfg.Instrument.BaudRate,
		DataBits: cfg.Instrument.DataBits,
		StopBits: cfg.Instrument.StopBits,
		Parity:   cfg.Instrument.Parity,
	})
	if err != nil {
		return nil, "", "", err
	}
	return driver.New(tr), "scan", resource, nil
}

func channelSettings(chans []config.ChannelConfig) map[int]scan.ChannelSetting {
	out := make(map[int]scan.ChannelSetting, len(chans))
	for _, ch := range chans {
		mt, err := channel.ParseMeasurementType(ch.MeasurementType)
		if err != nil {
			continue // validated at load time
		}
		out[ch.Channel] = scan.ChannelSetting{MeasurementType: mt, RangeValue: ch.Range}
	}
	return out
}

// consumeEvents drains the manager's event stream, forwarding readings to the
// report writer and completed cycles to the history store, until the context
// is cancelled or, for single scans, the cycle finishes.
func consumeEvents(ctx context.Context, mgr *scan.Manager, dev Device,
	writer *report.Writer, hist *store.Store, sessionID string,
	thresholds map[int]config.ChannelThreshold, single bool) {

	reg := dev.Registry()
	for {
		select {
		case <-ctx.Done():
			mgr.Stop()
			drain(mgr)
			return
		case ev := <-mgr.Events():
			switch ev.Type {
			case scan.EventScanStarted:
				log.Printf("scan started")
			case scan.EventChannelRead:
				handleReading(ev, reg, writer, sessionID, thresholds)
			case scan.EventScanComplete:
				log.Printf("scan complete, %d channels", len(ev.Results))
				if hist != nil && sessionID != "" {
					if err := hist.SaveCycle(ctx, sessionID, ev.Results, reg); err != nil {
						log.Printf("history save failed: %v", err)
					}
				}
				if single {
					return
				}
			case scan.EventScanError:
				log.Printf("scan error: %v", ev.Err)
				if single {
					return
				}
			case scan.EventScanStopped:
				log.Printf("scan stopped")
				return
			}
		}
	}
}

func handleReading(ev scan.Event, reg *channel.Registry,
	writer *report.Writer, sessionID string, thresholds map[int]config.ChannelThreshold) {

	var th *config.ChannelThreshold
	if t, ok := thresholds[ev.Channel]; ok {
		th = &t
	}
	status := report.Classify(ev.Result, th)
	mt, rng := reg.ChannelInfo(ev.Channel)

	reading := model.ChannelReading{
		Channel:         ev.Channel,
		MeasurementType: mt,
		RangeValue:      rng,
		Status:          string(status),
	}
	if ev.Result != nil && !ev.Result.Overloaded() {
		v := ev.Result.Value
		reading.Value = &v
		reading.Unit = ev.Result.Unit
		reading.FullUnit = ev.Result.FullUnit
	}

	if status != report.StatusPass {
		log.Printf("channel %d: %s (%s)", ev.Channel, ev.Result, status)
	}
	if writer != nil {
		if err := writer.Handle(report.Record{
			SessionID: sessionID,
			Timestamp: time.Now().UTC(),
			Reading:   reading,
		}); err != nil {
			log.Printf("report write skipped: %v", err)
		}
	}
}

// drain empties any events emitted while Stop was completing.
func drain(mgr *scan.Manager) {
	for {
		select {
		case ev := <-mgr.Events():
			if ev.Type == scan.EventScanStopped {
				return
			}
		default:
			return
		}
	}
}
