// Package scan runs measurement cycles on a background worker and turns
// synchronous device I/O into a stream of typed events for the UI layer.
package scan

import (
	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
)

// Device is the contract the manager needs from an instrument: the protocol
// driver and the simulator both implement it.
type Device interface {
	Connect() error
	Disconnect() error
	Connected() bool
	SetChannelMeasurementType(channelNum int, mt channel.MeasurementType) error
	SetChannelRange(channelNum int, rangeValue string) error
	ReadAllChannels() (map[int]*model.ScanDataResult, error)
}

// ChannelSetting is one channel's requested measurement configuration.
type ChannelSetting struct {
	MeasurementType channel.MeasurementType
	RangeValue      string
}
