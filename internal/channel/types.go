package channel

import "fmt"

// MeasurementType identifies one of the instrument's measurement functions.
// The string value is the SCPI function token used in :CONF and :MEAS commands.
type MeasurementType string

const (
	VoltageDC        MeasurementType = "VOLT:DC"
	VoltageAC        MeasurementType = "VOLT:AC"
	CurrentDC        MeasurementType = "CURR:DC"
	CurrentAC        MeasurementType = "CURR:AC"
	Resistance2Wire  MeasurementType = "RES"
	Resistance4Wire  MeasurementType = "FRES"
	Capacitance      MeasurementType = "CAP"
	Frequency        MeasurementType = "FREQ"
	Diode            MeasurementType = "DIOD"
	Continuity       MeasurementType = "CONT"
	TempRTD          MeasurementType = "TEMP:RTD"
	TempThermocouple MeasurementType = "TEMP:THER"
)

// AllTypes lists every supported measurement function.
var AllTypes = []MeasurementType{
	VoltageDC, VoltageAC,
	CurrentDC, CurrentAC,
	Resistance2Wire, Resistance4Wire,
	Capacitance, Frequency,
	Diode, Continuity,
	TempRTD, TempThermocouple,
}

// ParseMeasurementType converts a SCPI function token to a MeasurementType.
func ParseMeasurementType(s string) (MeasurementType, error) {
	mt := MeasurementType(s)
	if _, ok := displayNames[mt]; !ok {
		return "", fmt.Errorf("unknown measurement type %q", s)
	}
	return mt, nil
}

// IsCurrent reports whether the type is a current measurement. Current types
// are only available on the scanning card's dedicated current channels.
func (mt MeasurementType) IsCurrent() bool {
	return mt == CurrentDC || mt == CurrentAC
}

// Name returns the user-facing name of the measurement function.
func (mt MeasurementType) Name() string {
	if n, ok := displayNames[mt]; ok {
		return n
	}
	return string(mt)
}

func (mt MeasurementType) String() string { return string(mt) }

// CardType returns the scanning card's channel-type token for the function.
func (mt MeasurementType) CardType() string { return cardTypes[mt] }

var displayNames = map[MeasurementType]string{
	VoltageDC:        "DC Voltage",
	VoltageAC:        "AC Voltage",
	CurrentDC:        "DC Current",
	CurrentAC:        "AC Current",
	Resistance2Wire:  "2-Wire Resistance",
	Resistance4Wire:  "4-Wire Resistance",
	Capacitance:      "Capacitance",
	Frequency:        "Frequency",
	Diode:            "Diode",
	Continuity:       "Continuity",
	TempRTD:          "RTD Temperature",
	TempThermocouple: "Thermocouple",
}
