package scan

import "sdm-scanner/internal/model"

// EventType discriminates scan events. Per cycle the order is fixed:
// ScanStarted, zero or more ChannelRead, then ScanComplete or ScanError.
// Periodic scanning ends with exactly one ScanStopped.
type EventType int

const (
	EventScanStarted EventType = iota
	EventChannelRead
	EventScanComplete
	EventScanError
	EventScanStopped
)

func (t EventType) String() string {
	switch t {
	case EventScanStarted:
		return "scan_started"
	case EventChannelRead:
		return "channel_read"
	case EventScanComplete:
		return "scan_complete"
	case EventScanError:
		return "scan_error"
	case EventScanStopped:
		return "scan_stopped"
	default:
		return "unknown"
	}
}

// Event is one scan progress notification. Channel and Result are set for
// ChannelRead, Results for ScanComplete, Err for ScanError.
type Event struct {
	Type    EventType
	Channel int
	Result  *model.ScanDataResult
	Results map[int]*model.ScanDataResult
	Err     string
}
