package channel

import (
	"errors"
	"fmt"
	"sync"
)

const (
	// MinChannel and MaxChannel bound the scanning card's channel numbers.
	MinChannel = 1
	MaxChannel = 16

	// LastVoltageChannel is the highest channel of the voltage/resistance/
	// capacitance group. Channels above it are current-only.
	LastVoltageChannel = 12
)

var (
	ErrInvalidChannel      = errors.New("invalid channel number")
	ErrUnsupportedForGroup = errors.New("measurement type not supported on this channel group")
	ErrInvalidRange        = errors.New("invalid range for measurement type")
)

// Config holds the per-channel measurement configuration.
type Config struct {
	ChannelNum      int
	MeasurementType MeasurementType
	RangeValue      string
}

// Registry owns the configuration of all 16 card channels. Mutation goes
// through validated setters only; the whole table is reset on disconnect.
type Registry struct {
	mu       sync.RWMutex
	channels map[int]*Config
}

// NewRegistry creates a registry with per-group defaults: channels 1-12 read
// DC voltage, channels 13-16 read DC current, all on AUTO range.
func NewRegistry() *Registry {
	r := &Registry{channels: make(map[int]*Config, MaxChannel)}
	r.reset()
	return r
}

func (r *Registry) reset() {
	for n := MinChannel; n <= MaxChannel; n++ {
		mt := VoltageDC
		if n > LastVoltageChannel {
			mt = CurrentDC
		}
		r.channels[n] = &Config{ChannelNum: n, MeasurementType: mt, RangeValue: "AUTO"}
	}
}

// Reset restores every channel to its group default.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

// Get returns a copy of the channel's configuration.
func (r *Registry) Get(channelNum int) (Config, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.channels[channelNum]
	if !ok {
		return Config{}, fmt.Errorf("channel %d: %w", channelNum, ErrInvalidChannel)
	}
	return *cfg, nil
}

// ChannelInfo returns the configured type and range as plain strings, for
// callers that persist or display readings without importing the type enum.
func (r *Registry) ChannelInfo(channelNum int) (measurementType, rangeValue string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.channels[channelNum]
	if !ok {
		return "", ""
	}
	return string(cfg.MeasurementType), cfg.RangeValue
}

// SetMeasurementType changes a channel's measurement function after checking
// the hardware group: channels 1-12 reject current functions, channels 13-16
// accept nothing but current functions. The range resets to AUTO because the
// previous range may not exist for the new function.
func (r *Registry) SetMeasurementType(channelNum int, mt MeasurementType) error {
	if err := validateGroup(channelNum, mt); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := r.channels[channelNum]
	cfg.MeasurementType = mt
	cfg.RangeValue = "AUTO"
	return nil
}

// SetRange changes a channel's range after checking it against the valid
// range set of the channel's current measurement function.
func (r *Registry) SetRange(channelNum int, rangeValue string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.channels[channelNum]
	if !ok {
		return fmt.Errorf("channel %d: %w", channelNum, ErrInvalidChannel)
	}
	canonical, ok := CanonicalRange(cfg.MeasurementType, rangeValue)
	if !ok {
		return fmt.Errorf("range %q for %s: %w", rangeValue, cfg.MeasurementType, ErrInvalidRange)
	}
	cfg.RangeValue = canonical
	return nil
}

// All returns copies of every channel configuration in ascending order.
func (r *Registry) All() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, 0, MaxChannel)
	for n := MinChannel; n <= MaxChannel; n++ {
		out = append(out, *r.channels[n])
	}
	return out
}

func validateGroup(channelNum int, mt MeasurementType) error {
	if channelNum < MinChannel || channelNum > MaxChannel {
		return fmt.Errorf("channel %d: %w", channelNum, ErrInvalidChannel)
	}
	if _, err := ParseMeasurementType(string(mt)); err != nil {
		return err
	}
	if channelNum <= LastVoltageChannel {
		if mt.IsCurrent() {
			return fmt.Errorf("channel %d only supports voltage/resistance/capacitance functions: %w",
				channelNum, ErrUnsupportedForGroup)
		}
		return nil
	}
	if !mt.IsCurrent() {
		return fmt.Errorf("channel %d only supports current functions: %w",
			channelNum, ErrUnsupportedForGroup)
	}
	return nil
}

// ValidateGroup checks a channel/function combination without mutating state.
// It is shared by the registry, the threshold config loader and the simulator.
func ValidateGroup(channelNum int, mt MeasurementType) error {
	return validateGroup(channelNum, mt)
}
