package model

import "time"

// ScanSession represents one scanning run (periodic loop or single scan).
type ScanSession struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Resource  string    `gorm:"column:resource"`
	Mode      string    `gorm:"column:mode"` // scan | sequential | simulator
	StartedAt time.Time `gorm:"column:started_at;index"`

	Measurements []Measurement `gorm:"foreignKey:SessionID;references:ID"`
}

func (ScanSession) TableName() string { return "scan_sessions" }

// Measurement captures one channel reading persisted to the history store.
type Measurement struct {
	ID              uint      `gorm:"column:id;primaryKey;autoIncrement"`
	SessionID       string    `gorm:"column:session_id;index"`
	Channel         int       `gorm:"column:channel;index"`
	MeasurementType string    `gorm:"column:measurement_type"`
	RangeValue      string    `gorm:"column:range_value"`
	Value           float64   `gorm:"column:value"`
	Unit            string    `gorm:"column:unit"`
	FullUnit        string    `gorm:"column:full_unit"`
	Overload        bool      `gorm:"column:overload"`
	Status          string    `gorm:"column:status"`
	Timestamp       time.Time `gorm:"column:timestamp;index"`
}

func (Measurement) TableName() string { return "measurements" }
