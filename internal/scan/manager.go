package scan

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
)

var (
	ErrAlreadyScanning = errors.New("scanning already active")
	ErrNotConnected    = errors.New("device not connected")
)

const (
	defaultInterval = 2 * time.Second

	// Stop waits this long for the worker to exit, then once more briefly
	// before abandoning the wait.
	stopGracePeriod = 5 * time.Second
	stopForceWait   = time.Second
)

// Manager runs read cycles on a single background worker goroutine, at most
// one per manager, and emits progress events on a buffered channel. The
// control thread never blocks on device I/O.
type Manager struct {
	dev    Device
	events chan Event

	mu       sync.Mutex
	scanning bool
	stopCh   chan struct{}
	done     chan struct{}
	configs  map[int]ChannelSetting
}

// NewManager creates a manager for the given device.
func NewManager(dev Device) *Manager {
	return &Manager{
		dev:    dev,
		events: make(chan Event, 64),
	}
}

// Events returns the stream of scan events. The channel is never closed.
func (m *Manager) Events() <-chan Event { return m.events }

// emit delivers lifecycle events (started, complete, error, stopped). These
// must reach the consumer, so the send blocks when the queue is full.
func (m *Manager) emit(ev Event) {
	m.events <- ev
}

// emitProgress delivers per-channel progress, best-effort. A dropped
// channel_read loses nothing: the completion event carries the full map.
func (m *Manager) emitProgress(ev Event) {
	select {
	case m.events <- ev:
	default:
		log.Printf("event queue full, dropping %s", ev.Type)
	}
}

// ConfigureChannels validates and applies measurement type and range for each
// channel before scanning. The call is fail-fast: the first failing channel
// aborts it with an error, and entries processed before the failure stay
// applied. Channels are applied in ascending order.
func (m *Manager) ConfigureChannels(configs map[int]ChannelSetting) error {
	if !m.dev.Connected() {
		return ErrNotConnected
	}
	m.mu.Lock()
	m.configs = make(map[int]ChannelSetting, len(configs))
	for n, c := range configs {
		m.configs[n] = c
	}
	m.mu.Unlock()
	return m.applyConfigs(configs)
}

func (m *Manager) applyConfigs(configs map[int]ChannelSetting) error {
	nums := make([]int, 0, len(configs))
	for n := range configs {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		c := configs[n]
		if err := m.dev.SetChannelMeasurementType(n, c.MeasurementType); err != nil {
			return fmt.Errorf("channel %d: set measurement type %s: %w", n, c.MeasurementType, err)
		}
		rangeValue := c.RangeValue
		if rangeValue == "" {
			rangeValue = "AUTO"
		}
		if err := m.dev.SetChannelRange(n, rangeValue); err != nil {
			return fmt.Errorf("channel %d: set range %q: %w", n, rangeValue, err)
		}
	}
	return nil
}

func (m *Manager) storedConfigs() map[int]ChannelSetting {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.configs) == 0 {
		return nil
	}
	out := make(map[int]ChannelSetting, len(m.configs))
	for n, c := range m.configs {
		out[n] = c
	}
	return out
}

// Start begins periodic scanning with the given interval between cycles.
func (m *Manager) Start(interval time.Duration) error {
	if interval <= 0 {
		interval = defaultInterval
	}
	m.mu.Lock()
	if m.scanning {
		m.mu.Unlock()
		return ErrAlreadyScanning
	}
	if !m.dev.Connected() {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.scanning = true
	m.stopCh = make(chan struct{})
	m.done = make(chan struct{})
	done := m.done
	stop := m.stopCh
	m.mu.Unlock()

	go m.runLoop(interval, stop, done)
	log.Printf("periodic scanning started, interval %v", interval)
	return nil
}

func (m *Manager) runLoop(interval time.Duration, stop, done chan struct{}) {
	m.emit(Event{Type: EventScanStarted})

	for {
		select {
		case <-stop:
			// Stop request is only honored between cycles; a cycle in
			// flight runs to completion.
			goto out
		default:
		}

		if !m.dev.Connected() {
			m.emit(Event{Type: EventScanError, Err: "device not connected"})
			break
		}

		results, err := m.dev.ReadAllChannels()
		if err != nil {
			m.emit(Event{Type: EventScanError, Err: fmt.Sprintf("scan error: %v", err)})
			if !m.dev.Connected() {
				break
			}
		} else {
			m.emitCycle(results)
		}

		select {
		case <-stop:
			goto out
		case <-time.After(interval):
		}
	}

out:
	m.emit(Event{Type: EventScanStopped})
	m.mu.Lock()
	m.scanning = false
	m.mu.Unlock()
	close(done)
	log.Printf("scan worker stopped")
}

// emitCycle sends per-channel progress events followed by the terminal
// completion event carrying the full result map.
func (m *Manager) emitCycle(results map[int]*model.ScanDataResult) {
	for n := channel.MinChannel; n <= channel.MaxChannel; n++ {
		if res := results[n]; res != nil {
			m.emitProgress(Event{Type: EventChannelRead, Channel: n, Result: res})
		}
	}
	m.emit(Event{Type: EventScanComplete, Results: results})
}

// Stop requests cancellation and returns once the worker has exited. Calling
// Stop while nothing is scanning is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.scanning {
		m.mu.Unlock()
		log.Printf("stop requested while not scanning")
		return
	}
	if m.stopCh != nil {
		select {
		case <-m.stopCh:
		default:
			close(m.stopCh)
		}
	}
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
	case <-time.After(stopGracePeriod):
		log.Printf("scan worker did not exit within %v, waiting %v more", stopGracePeriod, stopForceWait)
		select {
		case <-done:
		case <-time.After(stopForceWait):
			log.Printf("scan worker still running, abandoning wait")
		}
	}
}

// Scanning reports whether a periodic loop or single scan is active.
func (m *Manager) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

// StartSingleScan runs one scan cycle on its own goroutine so the caller
// stays responsive. It cannot run concurrently with periodic scanning.
func (m *Manager) StartSingleScan() error {
	m.mu.Lock()
	if m.scanning {
		m.mu.Unlock()
		return ErrAlreadyScanning
	}
	if !m.dev.Connected() {
		m.mu.Unlock()
		return ErrNotConnected
	}
	m.scanning = true
	m.stopCh = nil
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	m.emit(Event{Type: EventScanStarted})
	go func() {
		m.PerformSingleScan()
		m.mu.Lock()
		m.scanning = false
		m.mu.Unlock()
		close(done)
	}()
	return nil
}

// PerformSingleScan executes one scan cycle synchronously in the calling
// goroutine: stored channel configurations are re-applied first, then all
// channels are read and events emitted.
func (m *Manager) PerformSingleScan() {
	if !m.dev.Connected() {
		m.emit(Event{Type: EventScanError, Err: "device not connected"})
		return
	}
	if cfgs := m.storedConfigs(); cfgs != nil {
		if err := m.applyConfigs(cfgs); err != nil {
			log.Printf("single scan configuration failed: %v", err)
			m.emit(Event{Type: EventScanError, Err: "channel configuration failed"})
			return
		}
	}
	results, err := m.dev.ReadAllChannels()
	if err != nil {
		m.emit(Event{Type: EventScanError, Err: fmt.Sprintf("single scan error: %v", err)})
		return
	}
	m.emitCycle(results)
}
