package tests

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
	storepkg "sdm-scanner/internal/store"
	"sdm-scanner/pkg/scanhistory"
)

func newTestStore(t *testing.T) (*storepkg.Store, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "scanner_test.sqlite")
	st, err := storepkg.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st, dbPath
}

func fullCycle(v float64) map[int]*model.ScanDataResult {
	out := make(map[int]*model.ScanDataResult, 16)
	for ch := 1; ch <= 16; ch++ {
		out[ch] = &model.ScanDataResult{Value: v + float64(ch), Unit: "V", FullUnit: "VDC"}
	}
	return out
}

func TestSessionRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dbPath := newTestStore(t)
	reg := channel.NewRegistry()

	sessionID, err := st.BeginSession(ctx, "TCPIP::127.0.0.1::5025::SOCKET", "scan")
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	if sessionID == "" {
		t.Fatal("expected a generated session id")
	}

	results := fullCycle(0)
	results[7] = model.NewOverload("overload DC", "AUTO")
	results[11] = nil
	if err := st.SaveCycle(ctx, sessionID, results, reg); err != nil {
		t.Fatalf("SaveCycle failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	client, err := scanhistory.Open(dbPath)
	if err != nil {
		t.Fatalf("scanhistory.Open failed: %v", err)
	}
	defer client.Close()

	sessions, err := client.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != sessionID {
		t.Fatalf("expected the persisted session, got %+v", sessions)
	}
	if sessions[0].Mode != "scan" {
		t.Fatalf("expected mode scan, got %q", sessions[0].Mode)
	}

	rows, err := client.SessionMeasurements(ctx, sessionID)
	if err != nil {
		t.Fatalf("SessionMeasurements failed: %v", err)
	}
	if len(rows) != 16 {
		t.Fatalf("expected 16 rows, got %d", len(rows))
	}
	byChannel := make(map[int]scanhistory.Measurement, len(rows))
	for _, r := range rows {
		byChannel[r.Channel] = r
	}
	if !byChannel[7].Overload || byChannel[7].Status != "overload" {
		t.Fatalf("channel 7 should be overload, got %+v", byChannel[7])
	}
	if byChannel[11].Status != "no_reading" {
		t.Fatalf("channel 11 should be no_reading, got %+v", byChannel[11])
	}
	if byChannel[3].Value != 3 || byChannel[3].Unit != "V" {
		t.Fatalf("channel 3 row = %+v", byChannel[3])
	}
	if byChannel[3].MeasurementType != "VOLT:DC" {
		t.Fatalf("channel 3 type = %q", byChannel[3].MeasurementType)
	}
}

func TestSaveCycleDeduplicatesUnchangedValues(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dbPath := newTestStore(t)
	reg := channel.NewRegistry()

	sessionID, err := st.BeginSession(ctx, "SIM", "simulator")
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}

	if err := st.SaveCycle(ctx, sessionID, fullCycle(0), reg); err != nil {
		t.Fatalf("first SaveCycle failed: %v", err)
	}
	// Identical cycle: every channel value is unchanged and must be skipped.
	if err := st.SaveCycle(ctx, sessionID, fullCycle(0), reg); err != nil {
		t.Fatalf("second SaveCycle failed: %v", err)
	}
	// Changed cycle persists again.
	if err := st.SaveCycle(ctx, sessionID, fullCycle(100), reg); err != nil {
		t.Fatalf("third SaveCycle failed: %v", err)
	}
	st.Close()

	client, err := scanhistory.Open(dbPath)
	if err != nil {
		t.Fatalf("scanhistory.Open failed: %v", err)
	}
	defer client.Close()

	rows, err := client.SessionMeasurements(ctx, sessionID)
	if err != nil {
		t.Fatalf("SessionMeasurements failed: %v", err)
	}
	if len(rows) != 32 {
		t.Fatalf("expected 32 rows (cycles 1 and 3), got %d", len(rows))
	}
}

func TestLatestPerChannelAndStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, dbPath := newTestStore(t)
	reg := channel.NewRegistry()

	sessionID, err := st.BeginSession(ctx, "SIM", "simulator")
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	if err := st.SaveCycle(ctx, sessionID, fullCycle(0), reg); err != nil {
		t.Fatalf("SaveCycle failed: %v", err)
	}
	st.Close()

	client, err := scanhistory.Open(dbPath)
	if err != nil {
		t.Fatalf("scanhistory.Open failed: %v", err)
	}
	defer client.Close()

	latest, err := client.LatestPerChannel(ctx)
	if err != nil {
		t.Fatalf("LatestPerChannel failed: %v", err)
	}
	if len(latest) != 16 {
		t.Fatalf("expected 16 latest rows, got %d", len(latest))
	}
	for i, l := range latest {
		if l.Channel != i+1 {
			t.Fatalf("latest rows not ordered by channel: %+v", latest)
		}
	}

	jsonBytes, err := client.StatsJSON(ctx, 10)
	if err != nil {
		t.Fatalf("StatsJSON failed: %v", err)
	}
	var stats map[string]any
	if err := json.Unmarshal(jsonBytes, &stats); err != nil {
		t.Fatalf("StatsJSON produced invalid JSON: %v", err)
	}
	if _, ok := stats["session_count"]; !ok {
		t.Fatalf("expected stats JSON to contain session_count")
	}
	if _, ok := stats["latest"]; !ok {
		t.Fatalf("expected stats JSON to contain latest")
	}
}
