package model

import "time"

// ChannelReading flattens one channel of a scan for snapshot export.
// Value is nil when the channel produced no reading.
type ChannelReading struct {
	Channel         int      `json:"channel"`
	MeasurementType string   `json:"measurement_type"`
	RangeValue      string   `json:"range_value"`
	Value           *float64 `json:"value"`
	Unit            string   `json:"unit,omitempty"`
	FullUnit        string   `json:"full_unit,omitempty"`
	Status          string   `json:"status"`
}

// ScanSnapshot aggregates one full scan cycle for CSV/JSON export.
type ScanSnapshot struct {
	SessionID string           `json:"session_id"`
	Resource  string           `json:"resource,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Channels  []ChannelReading `json:"channels"`
}
