package driver

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
)

// readSequential reads every channel with a plain measurement query. This
// instrument model has no channel-switch command independent of the scanning
// card, so no switching is attempted; results carry empty unit fields.
// Caller holds mu.
func (d *Driver) readSequential() map[int]*model.ScanDataResult {
	results := make(map[int]*model.ScanDataResult, channel.MaxChannel)
	for n := channel.MinChannel; n <= channel.MaxChannel; n++ {
		cfg, _ := d.reg.Get(n)
		reply, err := d.tr.Query(fmt.Sprintf(":MEAS:%s?", cfg.MeasurementType))
		if err != nil {
			log.Printf("channel %d measurement query failed: %v", n, err)
			results[n] = nil
			continue
		}
		fields := strings.Fields(strings.TrimSpace(reply))
		if len(fields) == 0 {
			results[n] = nil
			continue
		}
		value, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			log.Printf("channel %d reply %q unparseable: %v", n, reply, err)
			results[n] = nil
			continue
		}
		results[n] = &model.ScanDataResult{Value: value}
	}
	return results
}
