package main

import (
	"flag"
	"log"
	"time"

	"github.com/google/uuid"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/driver"
	"sdm-scanner/internal/model"
	"sdm-scanner/internal/report"
	"sdm-scanner/internal/sim"
	"sdm-scanner/internal/visa"
)

func main() {
	var resource string
	var simulate bool
	var outJSON string
	var outCSV string
	var timeout string
	flag.StringVar(&resource, "resource", "", "VISA resource, e.g. TCPIP::192.168.1.100::5025::SOCKET")
	flag.BoolVar(&simulate, "sim", false, "use the built-in simulator instead of hardware")
	flag.StringVar(&outJSON, "json", "", "path to write JSON snapshot (optional)")
	flag.StringVar(&outCSV, "csv", "", "path to write CSV snapshot (optional)")
	flag.StringVar(&timeout, "timeout", "2s", "instrument I/O timeout")
	flag.Parse()

	if outJSON == "" && outCSV == "" {
		log.Fatalf("no output specified: set --json and/or --csv")
	}

	dev, err := openDevice(resource, simulate, timeout)
	if err != nil {
		log.Fatalf("open instrument: %v", err)
	}
	if err := dev.Connect(); err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer dev.Disconnect()

	results, err := dev.ReadAllChannels()
	if err != nil {
		log.Fatalf("read channels: %v", err)
	}

	snap := buildSnapshot(resource, simulate, results, dev.Registry())

	if outJSON != "" {
		if err := report.WriteJSON(outJSON, snap); err != nil {
			log.Printf("write json error: %v", err)
		}
	}
	if outCSV != "" {
		if err := report.WriteSnapshotCSV(outCSV, snap); err != nil {
			log.Printf("write csv error: %v", err)
		}
	}
}

type device interface {
	Connect() error
	Disconnect() error
	ReadAllChannels() (map[int]*model.ScanDataResult, error)
	Registry() *channel.Registry
}

func openDevice(resource string, simulate bool, timeout string) (device, error) {
	if simulate {
		return sim.New(), nil
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		d = 2 * time.Second
	}
	tr, err := visa.Open(resource, &visa.Options{Timeout: d})
	if err != nil {
		return nil, err
	}
	return driver.New(tr), nil
}

func buildSnapshot(resource string, simulate bool, results map[int]*model.ScanDataResult, reg *channel.Registry) model.ScanSnapshot {
	if simulate {
		resource = "simulator"
	}
	snap := model.ScanSnapshot{
		SessionID: uuid.NewString(),
		Resource:  resource,
		Timestamp: time.Now().UTC(),
	}
	for ch := channel.MinChannel; ch <= channel.MaxChannel; ch++ {
		mt, rng := reg.ChannelInfo(ch)
		reading := model.ChannelReading{
			Channel:         ch,
			MeasurementType: mt,
			RangeValue:      rng,
			Status:          string(report.Classify(results[ch], nil)),
		}
		if r := results[ch]; r != nil && !r.Overloaded() {
			v := r.Value
			reading.Value = &v
			reading.Unit = r.Unit
			reading.FullUnit = r.FullUnit
		}
		snap.Channels = append(snap.Channels, reading)
	}
	return snap
}
