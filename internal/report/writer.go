package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sdm-scanner/internal/model"
)

// Record is one reading row queued for the report file.
type Record struct {
	SessionID string
	Timestamp time.Time
	Reading   model.ChannelReading
}

// Writer appends reading rows to a CSV report file asynchronously.
type Writer struct {
	path string
	q    chan Record
	wg   sync.WaitGroup

	file *os.File
	buf  *bufio.Writer
	csv  *csv.Writer

	closed chan struct{}
}

var csvHeader = []string{
	"timestamp", "session_id", "channel", "measurement_type",
	"range", "value", "unit", "full_unit", "status",
}

// NewWriter opens (or creates) the report file, writes the header when the
// file is empty, and starts the background writer.
func NewWriter(path string, maxQueue int) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	if maxQueue <= 0 {
		maxQueue = 100
	}

	w := &Writer{
		path:   path,
		q:      make(chan Record, maxQueue),
		file:   f,
		buf:    bufio.NewWriterSize(f, 64*1024),
		closed: make(chan struct{}),
	}
	w.csv = csv.NewWriter(w.buf)

	if off, err := f.Seek(0, io.SeekEnd); err == nil && off == 0 {
		if err := w.csv.Write(csvHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write report header: %w", err)
		}
		w.csv.Flush()
		w.buf.Flush()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for rec := range w.q {
			w.csv.Write(recordRow(rec))
			w.csv.Flush()
		}
		w.buf.Flush()
		close(w.closed)
	}()

	return w, nil
}

// Handle queues a record without blocking the scan loop.
func (w *Writer) Handle(rec Record) error {
	select {
	case w.q <- rec:
		return nil
	default:
		return errors.New("report queue full")
	}
}

// Close stops the writer and closes the file.
func (w *Writer) Close() {
	close(w.q)
	<-w.closed
	w.file.Close()
}

func recordRow(rec Record) []string {
	r := rec.Reading
	value := ""
	if r.Value != nil {
		value = fmt.Sprintf("%g", *r.Value)
	}
	return []string{
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.SessionID,
		fmt.Sprintf("%d", r.Channel),
		r.MeasurementType,
		r.RangeValue,
		value,
		r.Unit,
		r.FullUnit,
		r.Status,
	}
}

// WriteJSON writes one scan snapshot to a JSON file with pretty formatting.
func WriteJSON(path string, snap model.ScanSnapshot) error {
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteSnapshotCSV flattens one scan snapshot into a CSV file.
func WriteSnapshotCSV(path string, snap model.ScanSnapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range snap.Channels {
		rec := Record{SessionID: snap.SessionID, Timestamp: snap.Timestamp, Reading: r}
		if err := cw.Write(recordRow(rec)); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
