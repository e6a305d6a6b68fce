package model

import "fmt"

// UnitOverload is the sentinel unit of a reading whose input exceeded the
// selected range. The numeric value of such a reading is meaningless.
const UnitOverload = "OVERLOAD"

// ScanDataResult is one channel's reading from a scan cycle.
// Unit is the short display unit ("V", "A", "Ω", ...) or UnitOverload.
// FullUnit carries the device-reported unit suffix ("VDC", "OHM", ...) or,
// for overloads, the raw diagnostic text from the instrument.
type ScanDataResult struct {
	Value     float64
	Unit      string
	FullUnit  string
	RangeInfo string
}

// NewOverload builds an overload result carrying the raw device message.
func NewOverload(message, rangeInfo string) *ScanDataResult {
	return &ScanDataResult{Unit: UnitOverload, FullUnit: message, RangeInfo: rangeInfo}
}

// Overloaded reports whether the reading is an overload condition.
func (r *ScanDataResult) Overloaded() bool { return r.Unit == UnitOverload }

func (r *ScanDataResult) String() string {
	if r.Overloaded() {
		return fmt.Sprintf("OVERLOAD (%s)", r.FullUnit)
	}
	if r.Unit == "" {
		return fmt.Sprintf("%g", r.Value)
	}
	return fmt.Sprintf("%g %s", r.Value, r.Unit)
}
