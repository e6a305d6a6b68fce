// Package sim provides a drop-in substitute for the protocol driver that
// generates synthetic readings, for development and testing without hardware.
package sim

import (
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
)

var ErrNotConnected = errors.New("simulator not connected")

type baseline struct {
	value    float64
	unit     string
	fullUnit string
}

// Per-function baseline readings. Noise is a bounded fraction of the
// baseline; the simulator never reports overload.
var baselines = map[channel.MeasurementType]baseline{
	channel.VoltageDC:        {5.0, "V", "VDC"},
	channel.VoltageAC:        {3.3, "V", "VAC"},
	channel.CurrentDC:        {0.1, "A", "ADC"},
	channel.CurrentAC:        {0.05, "A", "AAC"},
	channel.Resistance2Wire:  {1000.0, "Ω", "OHM"},
	channel.Resistance4Wire:  {1000.0, "Ω", "OHM"},
	channel.Capacitance:      {1e-6, "F", "F"},
	channel.Frequency:        {50.0, "Hz", "HZ"},
	channel.Diode:            {0.6, "V", "VDC"},
	channel.Continuity:       {0.2, "Ω", "OHM"},
	channel.TempRTD:          {25.0, "°C", "DEGC"},
	channel.TempThermocouple: {25.0, "°C", "DEGC"},
}

// Simulator implements the same device contract as the protocol driver with
// no transport behind it. Channel-group validation matches the real registry.
type Simulator struct {
	mu        sync.Mutex
	connected bool
	reg       *channel.Registry
	rng       *rand.Rand
	noise     float64 // fraction of baseline, default 2%
}

// New creates a disconnected simulator.
func New() *Simulator {
	return &Simulator{
		reg:   channel.NewRegistry(),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		noise: 0.02,
	}
}

func (s *Simulator) Connect() error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	log.Printf("simulator: connected (mock device)")
	return nil
}

func (s *Simulator) Disconnect() error {
	s.mu.Lock()
	s.connected = false
	s.reg.Reset()
	s.mu.Unlock()
	log.Printf("simulator: disconnected")
	return nil
}

func (s *Simulator) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Registry exposes the simulator's channel configuration table.
func (s *Simulator) Registry() *channel.Registry { return s.reg }

func (s *Simulator) SetChannelMeasurementType(channelNum int, mt channel.MeasurementType) error {
	return s.reg.SetMeasurementType(channelNum, mt)
}

func (s *Simulator) SetChannelRange(channelNum int, rangeValue string) error {
	return s.reg.SetRange(channelNum, rangeValue)
}

// ReadAllChannels returns synthetic readings for all 16 channels.
func (s *Simulator) ReadAllChannels() (map[int]*model.ScanDataResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}
	results := make(map[int]*model.ScanDataResult, channel.MaxChannel)
	for n := channel.MinChannel; n <= channel.MaxChannel; n++ {
		cfg, err := s.reg.Get(n)
		if err != nil {
			results[n] = nil
			continue
		}
		b := baselines[cfg.MeasurementType]
		jitter := b.value * s.noise * (2*s.rng.Float64() - 1)
		results[n] = &model.ScanDataResult{
			Value:     b.value + jitter,
			Unit:      b.unit,
			FullUnit:  b.fullUnit,
			RangeInfo: cfg.RangeValue,
		}
	}
	return results, nil
}
