package channel

import "strings"

// Lookup tables for the SDM4055A-SC with the CS1016 scanning card. The four
// tables below are kept side by side as data because the card's surface is
// intentionally narrower than the instrument's own: the card accepts fewer
// ranges than the bare multimeter does (current channels are locked to one
// fixed range plus AUTO), so none of this can be derived from the native
// instrument documentation.

// cardTypes maps each measurement function to the scanning card's
// channel-type token used in :ROUT:CHAN configuration commands.
var cardTypes = map[MeasurementType]string{
	VoltageDC:        "DCV",
	VoltageAC:        "ACV",
	CurrentDC:        "DCI",
	CurrentAC:        "ACI",
	Resistance2Wire:  "RES",
	Resistance4Wire:  "RES",
	Capacitance:      "CAP",
	Frequency:        "FREQ",
	Diode:            "DIOD",
	Continuity:       "CONT",
	TempRTD:          "RTD",
	TempThermocouple: "THER",
}

// validRanges maps each measurement function to its ordered set of UI-facing
// range tokens accepted by the scanning card. Current functions carry a single
// fixed range besides AUTO (card hardware limitation).
var validRanges = map[MeasurementType][]string{
	VoltageDC: {"200 mV", "2 V", "20 V", "200 V", "1000 V", "AUTO"},
	VoltageAC: {"200 mV", "2 V", "20 V", "200 V", "750 V", "AUTO"},
	CurrentDC: {"2 A", "AUTO"},
	CurrentAC: {"2 A", "AUTO"},
	Resistance2Wire: {
		"200 Ohm", "2 kOhm", "20 kOhm", "200 kOhm",
		"2 MOhm", "10 MOhm", "100 MOhm", "AUTO",
	},
	Resistance4Wire: {
		"200 Ohm", "2 kOhm", "20 kOhm", "200 kOhm",
		"2 MOhm", "10 MOhm", "100 MOhm", "AUTO",
	},
	Capacitance: {
		"2 nF", "20 nF", "200 nF", "2 uF", "20 uF",
		"200 uF", "2 mF", "20 mF", "100 mF", "AUTO",
	},
	Frequency:        {"AUTO"},
	Diode:            {"AUTO"},
	Continuity:       {"AUTO"},
	TempRTD:          {"AUTO"},
	TempThermocouple: {"AUTO"},
}

// cardRanges maps UI-facing range tokens to the card tokens written in
// :ROUT:CHAN commands.
var cardRanges = map[string]string{
	"AUTO":     "AUTO",
	"200 mV":   "200mV",
	"2 V":      "2V",
	"20 V":     "20V",
	"200 V":    "200V",
	"750 V":    "750V",
	"1000 V":   "1000V",
	"2 A":      "2A",
	"200 Ohm":  "200ohm",
	"2 kOhm":   "2kohm",
	"20 kOhm":  "20kohm",
	"200 kOhm": "200kohm",
	"2 MOhm":   "2Mohm",
	"10 MOhm":  "10Mohm",
	"100 MOhm": "100Mohm",
	"2 nF":     "2nF",
	"20 nF":    "20nF",
	"200 nF":   "200nF",
	"2 uF":     "2uF",
	"20 uF":    "20uF",
	"200 uF":   "200uF",
	"2 mF":     "2mF",
	"20 mF":    "20mF",
	"100 mF":   "100mF",
}

// unitSuffixes maps the unit suffix the instrument appends to :ROUT:DATA?
// replies to the short display unit.
var unitSuffixes = map[string]string{
	"VDC":  "V",
	"VAC":  "V",
	"ADC":  "A",
	"AAC":  "A",
	"OHM":  "Ω",
	"F":    "F",
	"HZ":   "Hz",
	"DEGC": "°C",
	"V":    "V",
	"A":    "A",
}

// ValidRanges returns the ordered range tokens accepted for a measurement
// function. The returned slice must not be modified.
func ValidRanges(mt MeasurementType) []string { return validRanges[mt] }

// RangeValid reports whether the UI-facing range token is accepted for the
// measurement function.
func RangeValid(mt MeasurementType, rangeValue string) bool {
	for _, r := range validRanges[mt] {
		if r == rangeValue {
			return true
		}
	}
	return false
}

// CanonicalRange resolves a range token case-insensitively against the valid
// set for the measurement function and returns the canonical spelling.
func CanonicalRange(mt MeasurementType, rangeValue string) (string, bool) {
	for _, r := range validRanges[mt] {
		if strings.EqualFold(r, rangeValue) {
			return r, true
		}
	}
	return "", false
}

// CardRange returns the card range token for a UI-facing range token.
func CardRange(rangeValue string) (string, bool) {
	t, ok := cardRanges[rangeValue]
	return t, ok
}

// ShortUnit maps a device-reported unit suffix to the short display unit.
// Unmapped suffixes yield an empty string.
func ShortUnit(suffix string) string { return unitSuffixes[suffix] }

// CardSpeed returns the measurement speed token written in :ROUT:CHAN
// commands. Current functions and the 200mV range need SLOW for settling.
func CardSpeed(mt MeasurementType, cardRange string) string {
	if mt.IsCurrent() || cardRange == "200mV" {
		return "SLOW"
	}
	return "FAST"
}
