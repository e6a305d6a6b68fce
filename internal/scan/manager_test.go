package scan

import (
	"errors"
	"sync"
	"testing"
	"time"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
	"sdm-scanner/internal/sim"
)

// stubDevice scripts device behaviour for manager error-path tests.
type stubDevice struct {
	mu          sync.Mutex
	connected   bool
	readErr     error
	dropOnRead  bool // simulate a mid-scan disconnect
	typeErrOn   int
	reads       int
	typeApplied []int
}

func (d *stubDevice) Connect() error    { d.mu.Lock(); d.connected = true; d.mu.Unlock(); return nil }
func (d *stubDevice) Disconnect() error { d.mu.Lock(); d.connected = false; d.mu.Unlock(); return nil }
func (d *stubDevice) Connected() bool   { d.mu.Lock(); defer d.mu.Unlock(); return d.connected }

func (d *stubDevice) SetChannelMeasurementType(n int, mt channel.MeasurementType) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n == d.typeErrOn {
		return channel.ErrUnsupportedForGroup
	}
	d.typeApplied = append(d.typeApplied, n)
	return nil
}

func (d *stubDevice) SetChannelRange(n int, r string) error { return nil }

func (d *stubDevice) ReadAllChannels() (map[int]*model.ScanDataResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reads++
	if d.dropOnRead {
		d.connected = false
		return nil, errors.New("connection lost")
	}
	if d.readErr != nil {
		return nil, d.readErr
	}
	out := make(map[int]*model.ScanDataResult, 16)
	for n := 1; n <= 16; n++ {
		out[n] = &model.ScanDataResult{Value: float64(n)}
	}
	return out, nil
}

func collect(t *testing.T, events <-chan Event, until EventType, timeout time.Duration) []Event {
	t.Helper()
	var got []Event
	deadline := time.After(timeout)
	for {
		select {
		case ev := <-events:
			got = append(got, ev)
			if ev.Type == until {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s; got %d events", until, len(got))
		}
	}
}

func TestSingleScanEventOrder(t *testing.T) {
	t.Parallel()
	dev := sim.New()
	dev.Connect()
	m := NewManager(dev)

	if err := m.StartSingleScan(); err != nil {
		t.Fatal(err)
	}
	got := collect(t, m.Events(), EventScanComplete, 2*time.Second)

	if got[0].Type != EventScanStarted {
		t.Fatalf("first event = %s, want scan_started", got[0].Type)
	}
	last := got[len(got)-1]
	if len(last.Results) != 16 {
		t.Fatalf("complete carries %d results, want 16", len(last.Results))
	}
	reads := 0
	for _, ev := range got[1 : len(got)-1] {
		if ev.Type != EventChannelRead {
			t.Fatalf("middle event = %s, want channel_read", ev.Type)
		}
		reads++
		if ev.Result == nil {
			t.Errorf("channel_read %d carries nil result", ev.Channel)
		}
	}
	if reads != 16 {
		t.Errorf("%d channel_read events, want 16", reads)
	}
}

func TestStopIdempotentWhenIdle(t *testing.T) {
	t.Parallel()
	m := NewManager(sim.New())
	m.Stop() // must not panic, block, or emit
	select {
	case ev := <-m.Events():
		t.Errorf("unexpected event %s from idle Stop", ev.Type)
	default:
	}
}

func TestCancellationOrdering(t *testing.T) {
	t.Parallel()
	dev := sim.New()
	dev.Connect()
	m := NewManager(dev)

	if err := m.Start(10 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	m.Stop()

	got := collect(t, m.Events(), EventScanStopped, 2*time.Second)
	stopped := 0
	for i, ev := range got {
		if ev.Type == EventScanStopped {
			stopped++
			if i != len(got)-1 {
				t.Errorf("event %s after scan_stopped", got[i+1].Type)
			}
		}
	}
	if stopped != 1 {
		t.Errorf("%d scan_stopped events, want exactly 1", stopped)
	}
	// No further completes may trickle in afterwards.
	select {
	case ev := <-m.Events():
		t.Errorf("event %s emitted after scan_stopped", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
	if m.Scanning() {
		t.Error("manager still scanning after Stop returned")
	}
}

func TestStartWhileScanningRejected(t *testing.T) {
	t.Parallel()
	dev := sim.New()
	dev.Connect()
	m := NewManager(dev)
	if err := m.Start(50 * time.Millisecond); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()
	if err := m.Start(50 * time.Millisecond); !errors.Is(err, ErrAlreadyScanning) {
		t.Errorf("second Start error = %v, want ErrAlreadyScanning", err)
	}
	if err := m.StartSingleScan(); !errors.Is(err, ErrAlreadyScanning) {
		t.Errorf("StartSingleScan during periodic scan error = %v, want ErrAlreadyScanning", err)
	}
}

func TestStartRequiresConnection(t *testing.T) {
	t.Parallel()
	m := NewManager(sim.New())
	if err := m.Start(time.Second); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Start error = %v, want ErrNotConnected", err)
	}
	if err := m.StartSingleScan(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("StartSingleScan error = %v, want ErrNotConnected", err)
	}
}

func TestDisconnectMidScanEmitsErrorAndStops(t *testing.T) {
	t.Parallel()
	dev := &stubDevice{}
	dev.Connect()
	dev.dropOnRead = true
	m := NewManager(dev)
	if err := m.Start(10 * time.Millisecond); err != nil {
		t.Fatal(err)
	}

	got := collect(t, m.Events(), EventScanStopped, 2*time.Second)
	sawError := false
	for _, ev := range got {
		if ev.Type == EventScanError {
			sawError = true
		}
		if ev.Type == EventScanComplete {
			t.Error("scan_complete emitted for a failed cycle")
		}
	}
	if !sawError {
		t.Error("no scan_error before scan_stopped")
	}
}

func TestConfigureChannelsFailFast(t *testing.T) {
	t.Parallel()
	dev := &stubDevice{typeErrOn: 5}
	dev.Connect()
	m := NewManager(dev)

	err := m.ConfigureChannels(map[int]ChannelSetting{
		2: {MeasurementType: channel.VoltageDC, RangeValue: "20 V"},
		5: {MeasurementType: channel.CurrentDC},
		9: {MeasurementType: channel.Capacitance},
	})
	if !errors.Is(err, channel.ErrUnsupportedForGroup) {
		t.Fatalf("error = %v, want ErrUnsupportedForGroup", err)
	}
	// Ascending order: channel 2 was applied before the failure, 9 was not.
	if len(dev.typeApplied) != 1 || dev.typeApplied[0] != 2 {
		t.Errorf("applied channels = %v, want [2]", dev.typeApplied)
	}
}

func TestConfigureChannelsSimulator(t *testing.T) {
	t.Parallel()
	dev := sim.New()
	dev.Connect()
	m := NewManager(dev)
	err := m.ConfigureChannels(map[int]ChannelSetting{
		1:  {MeasurementType: channel.Resistance2Wire, RangeValue: "2 kOhm"},
		13: {MeasurementType: channel.CurrentAC, RangeValue: "2 A"},
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg, _ := dev.Registry().Get(1)
	if cfg.MeasurementType != channel.Resistance2Wire || cfg.RangeValue != "2 kOhm" {
		t.Errorf("channel 1 = %+v", cfg)
	}
}

func TestStoppedDeliveredToSlowConsumer(t *testing.T) {
	t.Parallel()
	dev := &stubDevice{}
	dev.Connect()
	m := NewManager(dev)
	if err := m.Start(time.Millisecond); err != nil {
		t.Fatal(err)
	}

	// Let the worker outrun a consumer that reads nothing, filling the queue.
	time.Sleep(100 * time.Millisecond)
	go m.Stop()

	stopped := 0
	deadline := time.After(5 * time.Second)
	for stopped == 0 {
		select {
		case ev := <-m.Events():
			if ev.Type == EventScanStopped {
				stopped++
			}
		case <-deadline:
			t.Fatal("scan_stopped never delivered")
		}
	}
	select {
	case ev := <-m.Events():
		t.Errorf("event %s after scan_stopped", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPeriodicEmitsMultipleCompletes(t *testing.T) {
	t.Parallel()
	dev := &stubDevice{}
	dev.Connect()
	m := NewManager(dev)
	if err := m.Start(5 * time.Millisecond); err != nil {
		t.Fatal(err)
	}

	completes := 0
	deadline := time.After(2 * time.Second)
	for completes < 2 {
		select {
		case ev := <-m.Events():
			if ev.Type == EventScanComplete {
				completes++
			}
		case <-deadline:
			t.Fatalf("saw %d completes, want 2", completes)
		}
	}
	m.Stop()
}
