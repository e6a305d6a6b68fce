// Package driver translates channel configuration and scan intent into the
// instrument's SCPI command sequences. It owns the scan-mode state machine
// of the CS1016 scanning card and normalizes raw textual replies into typed
// per-channel results.
package driver

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
	"sdm-scanner/internal/visa"
)

var (
	ErrNotConnected = errors.New("device not connected")
	ErrConnection   = errors.New("connection failed")
)

// Driver drives one instrument through scan cycles. The transport handle is
// not safe for concurrent access, so every transport-touching operation runs
// under a mutex scoped to the whole top-level operation: an entire
// ReadAllChannels cycle holds the lock, never a single command, so that a
// scan's multi-step sequence cannot interleave with another caller.
type Driver struct {
	mu        sync.Mutex
	tr        visa.Transport
	reg       *channel.Registry
	connected bool
	scanMode  bool

	// Hardware settle timings. The defaults were tuned on real hardware;
	// tests shrink them.
	SettleDelay  time.Duration // between scan-mode setup commands
	ChannelDelay time.Duration // between channel configuration writes
	PollInterval time.Duration // scan-completion poll period
	PollCeiling  time.Duration // scan-completion poll limit
}

// New creates a driver over the given transport with default timings.
func New(tr visa.Transport) *Driver {
	return &Driver{
		tr:           tr,
		reg:          channel.NewRegistry(),
		scanMode:     true,
		SettleDelay:  150 * time.Millisecond,
		ChannelDelay: time.Second,
		PollInterval: 100 * time.Millisecond,
		PollCeiling:  30 * time.Second,
	}
}

// Registry exposes the driver's channel configuration table.
func (d *Driver) Registry() *channel.Registry { return d.reg }

// Connect opens the transport and verifies the link with an identification
// query. On any failure the driver stays disconnected.
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		return nil
	}
	if err := d.tr.Connect(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	idn, err := d.tr.Query("*IDN?")
	if err != nil || strings.TrimSpace(idn) == "" {
		d.tr.Close()
		if err == nil {
			err = errors.New("empty identification reply")
		}
		return fmt.Errorf("%w: identification: %v", ErrConnection, err)
	}
	log.Printf("connected to %s", strings.TrimSpace(idn))
	d.connected = true
	d.scanMode = true
	return nil
}

// Disconnect closes the transport and resets every channel to its default.
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil
	}
	err := d.tr.Close()
	d.connected = false
	d.reg.Reset()
	return err
}

// Connected reports whether the instrument link is up.
func (d *Driver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// SetChannelMeasurementType configures a channel's measurement function.
func (d *Driver) SetChannelMeasurementType(channelNum int, mt channel.MeasurementType) error {
	return d.reg.SetMeasurementType(channelNum, mt)
}

// SetChannelRange configures a channel's range.
func (d *Driver) SetChannelRange(channelNum int, rangeValue string) error {
	return d.reg.SetRange(channelNum, rangeValue)
}

// DisableScanMode forces the sequential per-channel read path for hardware
// that never supports the scanning card's scan mode.
func (d *Driver) DisableScanMode() {
	d.mu.Lock()
	d.scanMode = false
	d.mu.Unlock()
}

// ScanModeActive reports whether the driver will attempt the scan-mode path
// on the next read cycle.
func (d *Driver) ScanModeActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanMode
}

// ReadAllChannels performs one full measurement cycle of all 16 channels and
// returns a map with exactly 16 keys. Entries are nil for channels whose
// reading failed; partial results are expected, not an error. When the
// scan-mode command sequence fails the driver falls back to sequential
// per-channel reads for this and every following cycle instead of retrying
// scan mode.
func (d *Driver) ReadAllChannels() (map[int]*model.ScanDataResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, ErrNotConnected
	}
	if d.scanMode {
		results, err := d.readScan()
		if err == nil {
			return results, nil
		}
		log.Printf("scan mode failed (%v), falling back to sequential reads", err)
		d.scanMode = false
	}
	return d.readSequential(), nil
}

// ReadSequential performs one sequential read cycle regardless of scan-mode
// state. It exists standalone for hardware without the scanning card's scan
// feature.
func (d *Driver) ReadSequential() (map[int]*model.ScanDataResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, ErrNotConnected
	}
	return d.readSequential(), nil
}
