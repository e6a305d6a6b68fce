package driver

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"sdm-scanner/internal/channel"
	"sdm-scanner/internal/model"
)

// overloadMagnitude is the value beyond which a numeric reply is treated as
// an overload even without diagnostic text. Some firmware revisions report
// overload with the word, others with a huge sentinel number; both paths are
// checked.
const overloadMagnitude = 1e35

// parseScanReply turns a raw :ROUT:DATA? reply into a typed result.
// Reply shape: "<number>[ <unit-suffix>]" or a diagnostic containing
// "overload". A numeric parse failure is an error for this channel only.
func parseScanReply(raw, rangeInfo string) (*model.ScanDataResult, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("empty reply")
	}
	if strings.Contains(strings.ToLower(trimmed), "overload") {
		return model.NewOverload(trimmed, rangeInfo), nil
	}

	fields := strings.Fields(trimmed)
	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return nil, fmt.Errorf("parse value %q: %w", fields[0], err)
	}
	if math.Abs(value) >= overloadMagnitude {
		return model.NewOverload(trimmed, rangeInfo), nil
	}

	res := &model.ScanDataResult{Value: value, RangeInfo: rangeInfo}
	if len(fields) > 1 {
		res.FullUnit = fields[1]
		res.Unit = channel.ShortUnit(fields[1])
	}
	return res, nil
}
