package report

import (
	"sdm-scanner/internal/config"
	"sdm-scanner/internal/model"
)

// Status is the pass/fail classification of one channel reading.
type Status string

const (
	StatusPass      Status = "pass"
	StatusFail      Status = "fail"
	StatusOverload  Status = "overload"
	StatusNoReading Status = "no_reading"
)

// Classify grades a single channel result against its optional threshold.
// A missing result means the read failed. Overload outranks thresholds.
// Without a threshold any numeric reading passes.
func Classify(result *model.ScanDataResult, th *config.ChannelThreshold) Status {
	if result == nil {
		return StatusNoReading
	}
	if result.Overloaded() {
		return StatusOverload
	}
	if th == nil {
		return StatusPass
	}
	if th.InThreshold(result.Value) {
		return StatusPass
	}
	return StatusFail
}
