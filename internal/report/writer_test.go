package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sdm-scanner/internal/config"
	"sdm-scanner/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	lo, hi := 4.5, 5.5
	th := &config.ChannelThreshold{Channel: 1, Lower: &lo, Upper: &hi}

	cases := []struct {
		name   string
		result *model.ScanDataResult
		th     *config.ChannelThreshold
		want   Status
	}{
		{"nil result", nil, th, StatusNoReading},
		{"overload beats threshold", model.NewOverload("overload DC", "AUTO"), th, StatusOverload},
		{"within bounds", &model.ScanDataResult{Value: 5.0, Unit: "V"}, th, StatusPass},
		{"below lower", &model.ScanDataResult{Value: 4.0, Unit: "V"}, th, StatusFail},
		{"above upper", &model.ScanDataResult{Value: 6.0, Unit: "V"}, th, StatusFail},
		{"no threshold passes", &model.ScanDataResult{Value: 6.0, Unit: "V"}, nil, StatusPass},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tc.result, tc.th); got != tc.want {
				t.Errorf("Classify = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestWriterAppendsRows(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "report.csv")
	w, err := NewWriter(path, 10)
	if err != nil {
		t.Fatal(err)
	}

	v := 5.01
	rec := Record{
		SessionID: "s1",
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Reading: model.ChannelReading{
			Channel: 1, MeasurementType: "VOLT:DC", RangeValue: "20 V",
			Value: &v, Unit: "V", FullUnit: "VDC", Status: string(StatusPass),
		},
	}
	if err := w.Handle(rec); err != nil {
		t.Fatal(err)
	}
	if err := w.Handle(Record{
		SessionID: "s1",
		Timestamp: rec.Timestamp,
		Reading:   model.ChannelReading{Channel: 9, MeasurementType: "RES", Status: string(StatusNoReading)},
	}); err != nil {
		t.Fatal(err)
	}
	w.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "timestamp" {
		t.Errorf("missing header: %v", rows[0])
	}
	if rows[1][2] != "1" || rows[1][5] != "5.01" || rows[1][8] != "pass" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][5] != "" || rows[2][8] != "no_reading" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriterHeaderWrittenOnce(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "report.csv")
	for i := 0; i < 2; i++ {
		w, err := NewWriter(path, 10)
		if err != nil {
			t.Fatal(err)
		}
		v := float64(i)
		w.Handle(Record{SessionID: "s", Timestamp: time.Now(), Reading: model.ChannelReading{
			Channel: 1, MeasurementType: "VOLT:DC", Value: &v, Status: "pass",
		}})
		w.Close()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(b), "timestamp,session_id"); n != 1 {
		t.Errorf("header appears %d times, want 1", n)
	}
}

func TestSnapshotExport(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	v := 1234.5
	snap := model.ScanSnapshot{
		SessionID: "abc",
		Resource:  "TCPIP::127.0.0.1::5025::SOCKET",
		Timestamp: time.Now().UTC(),
		Channels: []model.ChannelReading{
			{Channel: 4, MeasurementType: "RES", RangeValue: "2 kOhm", Value: &v, Unit: "Ω", FullUnit: "OHM", Status: "pass"},
		},
	}

	jsonPath := filepath.Join(dir, "snap.json")
	if err := WriteJSON(jsonPath, snap); err != nil {
		t.Fatal(err)
	}
	b, _ := os.ReadFile(jsonPath)
	if !strings.Contains(string(b), `"session_id": "abc"`) {
		t.Errorf("json missing session id: %s", b)
	}

	csvPath := filepath.Join(dir, "snap.csv")
	if err := WriteSnapshotCSV(csvPath, snap); err != nil {
		t.Fatal(err)
	}
	f, _ := os.Open(csvPath)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][4] != "2 kOhm" || rows[1][6] != "Ω" {
		t.Errorf("csv rows = %v", rows)
	}
}
