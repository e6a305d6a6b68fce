package config

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"sdm-scanner/internal/channel"
)

// ChannelThreshold holds optional pass/fail bounds for one channel.
// A nil bound means that side is unbounded.
type ChannelThreshold struct {
	Channel         int
	MeasurementType channel.MeasurementType
	Range           string
	Lower           *float64
	Upper           *float64
}

// InThreshold reports whether v satisfies both configured bounds.
func (t ChannelThreshold) InThreshold(v float64) bool {
	if t.Lower != nil && v < *t.Lower {
		return false
	}
	if t.Upper != nil && v > *t.Upper {
		return false
	}
	return true
}

// LoadThresholdsCSV reads per-channel threshold rows from a CSV file with
// columns: channel,measurement_type,range,lower_threshold,upper_threshold.
// Lines starting with # are skipped. A threshold field left empty means
// that bound is not checked. A later row for the same channel overwrites
// the earlier one.
func LoadThresholdsCSV(path string) (map[int]ChannelThreshold, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	out := make(map[int]ChannelThreshold)
	for i, row := range rows {
		if len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), "channel") {
			continue // header
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("row %d: want 5 columns, got %d", i+1, len(row))
		}
		ch, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: bad channel %q", i+1, row[0])
		}
		mt, err := channel.ParseMeasurementType(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := channel.ValidateGroup(ch, mt); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rng := strings.TrimSpace(row[2])
		if rng != "" {
			canon, ok := channel.CanonicalRange(mt, rng)
			if !ok {
				return nil, fmt.Errorf("row %d: invalid range %q for %s", i+1, rng, mt)
			}
			rng = canon
		}
		lower, err := parseBound(row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: lower threshold: %w", i+1, err)
		}
		upper, err := parseBound(row[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: upper threshold: %w", i+1, err)
		}
		if lower != nil && upper != nil && *lower >= *upper {
			return nil, fmt.Errorf("row %d: lower threshold %v not below upper %v", i+1, *lower, *upper)
		}
		if _, dup := out[ch]; dup {
			log.Printf("thresholds: duplicate row for channel %d, keeping the later one", ch)
		}
		out[ch] = ChannelThreshold{
			Channel:         ch,
			MeasurementType: mt,
			Range:           rng,
			Lower:           lower,
			Upper:           upper,
		}
	}
	return out, nil
}

func parseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
