package driver

import (
	"fmt"
	"log"
	"strings"
	"time"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
)

// readScan drives the scanning card through one complete scan cycle:
// enable scan mode, configure all channels ascending, set limits, start,
// poll for completion, retrieve per-channel data ascending. Caller holds mu.
func (d *Driver) readScan() (map[int]*model.ScanDataResult, error) {
	if err := d.enableScanMode(); err != nil {
		return nil, fmt.Errorf("enable scan mode: %w", err)
	}
	for _, cfg := range d.reg.All() {
		if err := d.configureChannel(cfg); err != nil {
			return nil, fmt.Errorf("configure channel %d: %w", cfg.ChannelNum, err)
		}
		// Hardware settling between channel configuration writes.
		time.Sleep(d.ChannelDelay)
	}
	if err := d.setScanLimits(channel.MinChannel, channel.MaxChannel); err != nil {
		return nil, err
	}
	if err := d.startScan(); err != nil {
		return nil, fmt.Errorf("start scan: %w", err)
	}
	if err := d.waitScanComplete(); err != nil {
		return nil, fmt.Errorf("poll scan completion: %w", err)
	}

	results := make(map[int]*model.ScanDataResult, channel.MaxChannel)
	for n := channel.MinChannel; n <= channel.MaxChannel; n++ {
		cfg, _ := d.reg.Get(n)
		reply, err := d.tr.Query(fmt.Sprintf(":ROUT:DATA? %d", n))
		if err != nil {
			log.Printf("channel %d data query failed: %v", n, err)
			results[n] = nil
			continue
		}
		res, err := parseScanReply(reply, cfg.RangeValue)
		if err != nil {
			log.Printf("channel %d reply unparseable: %v", n, err)
			results[n] = nil
			continue
		}
		results[n] = res
	}
	return results, nil
}

// enableScanMode issues the card's three setup commands. The order and the
// settle delays are required by the hardware; collapsing or reordering them
// breaks real instruments even though the emulator tolerates it.
func (d *Driver) enableScanMode() error {
	for _, cmd := range []string{":ROUT:SCAN ON", ":ROUT:FUNC STEP", ":ROUT:DCV:AZ OFF"} {
		if err := d.tr.Write(cmd); err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		time.Sleep(d.SettleDelay)
	}
	return nil
}

// configureChannel writes one composite channel configuration command. An
// instrument-side error reported for the command is logged, not fatal: one
// bad channel must not abort measuring the other 15.
func (d *Driver) configureChannel(cfg channel.Config) error {
	cardRange, ok := channel.CardRange(cfg.RangeValue)
	if !ok {
		return fmt.Errorf("range %q has no card token: %w", cfg.RangeValue, channel.ErrInvalidRange)
	}
	speed := channel.CardSpeed(cfg.MeasurementType, cardRange)
	cmd := fmt.Sprintf("ROUT:CHAN %d,ON,%s,%s,%s",
		cfg.ChannelNum, cfg.MeasurementType.CardType(), cardRange, speed)
	if err := d.tr.Write(cmd); err != nil {
		return err
	}
	reply, err := d.tr.Query(":SYST:ERR?")
	if err != nil {
		log.Printf("channel %d: error register query failed: %v", cfg.ChannelNum, err)
		return nil
	}
	if !strings.HasPrefix(strings.TrimSpace(reply), "0,") {
		log.Printf("channel %d configuration error: %s", cfg.ChannelNum, reply)
	}
	return nil
}

// SetScanLimits bounds the channels included in a scan pass.
func (d *Driver) SetScanLimits(low, high int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return ErrNotConnected
	}
	return d.setScanLimits(low, high)
}

func (d *Driver) setScanLimits(low, high int) error {
	if low > high ||
		low < channel.MinChannel || low > channel.MaxChannel ||
		high < channel.MinChannel || high > channel.MaxChannel {
		return fmt.Errorf("scan limits %d..%d: %w", low, high, channel.ErrInvalidRange)
	}
	if err := d.tr.Write(fmt.Sprintf(":ROUT:LIMI:HIGH %d", high)); err != nil {
		return fmt.Errorf("set high limit: %w", err)
	}
	if err := d.tr.Write(fmt.Sprintf(":ROUT:LIMI:LOW %d", low)); err != nil {
		return fmt.Errorf("set low limit: %w", err)
	}
	return nil
}

func (d *Driver) startScan() error {
	if err := d.tr.Write(":ROUT:COUN 1"); err != nil {
		return err
	}
	return d.tr.Write(":ROUT:START ON")
}

// waitScanComplete polls scan-active status until it clears. Exceeding the
// ceiling is not a failure: the scan is assumed complete and retrieval
// proceeds, favoring availability over a hard timeout error.
func (d *Driver) waitScanComplete() error {
	deadline := time.Now().Add(d.PollCeiling)
	for time.Now().Before(deadline) {
		reply, err := d.tr.Query(":ROUT:START?")
		if err != nil {
			return err
		}
		if strings.TrimSpace(reply) == "0" {
			return nil
		}
		time.Sleep(d.PollInterval)
	}
	log.Printf("scan completion poll exceeded %v, assuming complete", d.PollCeiling)
	return nil
}
