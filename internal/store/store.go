package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sdm-scanner/internal/model"
	"sdm-scanner/internal/utils"
)

// Store persists scan sessions and measurements to a SQLite history database.
type Store struct {
	orm   *gorm.DB
	cache *utils.ReadingCache
}

// Open opens (or creates) the history database at path and migrates the schema.
func Open(path string) (*Store, error) {
	orm, err := openORM(path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := migrateORM(orm); err != nil {
		closeORM(orm)
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{orm: orm, cache: utils.NewReadingCache(time.Hour)}, nil
}

func (s *Store) Close() error { return closeORM(s.orm) }

// BeginSession records a new scan session and returns its generated id.
func (s *Store) BeginSession(ctx context.Context, resource, mode string) (string, error) {
	sess := &model.ScanSession{
		ID:        uuid.NewString(),
		Resource:  resource,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
	}
	if err := insertSession(ctx, s.orm, sess); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return sess.ID, nil
}

// SaveCycle persists one scan cycle. Channels whose value is unchanged since
// the previous cycle are skipped unless they carry an overload or error
// status, so a steady signal does not flood the table.
func (s *Store) SaveCycle(ctx context.Context, sessionID string, results map[int]*model.ScanDataResult, reg ChannelInfo) error {
	now := time.Now().UTC()
	var rows []model.Measurement
	for ch := 1; ch <= 16; ch++ {
		r, ok := results[ch]
		mt, rng := reg.ChannelInfo(ch)
		if !ok || r == nil {
			rows = append(rows, model.Measurement{
				SessionID: sessionID, Channel: ch,
				MeasurementType: mt, RangeValue: rng,
				Status: "no_reading", Timestamp: now,
			})
			continue
		}
		if r.Overloaded() {
			rows = append(rows, model.Measurement{
				SessionID: sessionID, Channel: ch,
				MeasurementType: mt, RangeValue: rng,
				Unit: r.Unit, FullUnit: r.FullUnit,
				Overload: true, Status: "overload", Timestamp: now,
			})
			continue
		}
		if !s.cache.Changed(ch, r.Value) {
			continue
		}
		rows = append(rows, model.Measurement{
			SessionID: sessionID, Channel: ch,
			MeasurementType: mt, RangeValue: rng,
			Value: r.Value, Unit: r.Unit, FullUnit: r.FullUnit,
			Status: "ok", Timestamp: now,
		})
	}
	if err := insertMeasurements(ctx, s.orm, rows); err != nil {
		return fmt.Errorf("insert measurements: %w", err)
	}
	return nil
}

// ChannelInfo supplies the configured type and range for a channel when
// persisting a cycle. The channel registry satisfies it.
type ChannelInfo interface {
	ChannelInfo(channelNum int) (measurementType, rangeValue string)
}

// SessionInfo mirrors a subset of the scan_sessions table for listings.
type SessionInfo struct {
	ID        string    `json:"id"`
	Resource  string    `json:"resource"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}

// ListSessions returns sessions ordered most recent first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	q := s.orm.WithContext(ctx).Model(&model.ScanSession{}).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var sessions []model.ScanSession
	if err := q.Find(&sessions).Error; err != nil {
		return nil, err
	}
	out := make([]SessionInfo, 0, len(sessions))
	for _, se := range sessions {
		out = append(out, SessionInfo{ID: se.ID, Resource: se.Resource, Mode: se.Mode, StartedAt: se.StartedAt})
	}
	return out, nil
}

// SessionMeasurements returns all measurement rows for a session, oldest first.
func (s *Store) SessionMeasurements(ctx context.Context, sessionID string) ([]model.Measurement, error) {
	var rows []model.Measurement
	err := s.orm.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp, channel").
		Find(&rows).Error
	return rows, err
}

// ChannelLatest is the most recent measurement per channel across all sessions.
type ChannelLatest struct {
	Channel         int       `json:"channel"`
	MeasurementType string    `json:"measurement_type"`
	RangeValue      string    `json:"range_value"`
	Value           float64   `json:"value"`
	Unit            string    `json:"unit"`
	Overload        bool      `json:"overload"`
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
}

// LatestPerChannel returns, for each channel, the latest row. The autoincrement
// id breaks ties between rows sharing a timestamp, so the result is always one
// row per channel.
func (s *Store) LatestPerChannel(ctx context.Context) ([]ChannelLatest, error) {
	// subquery: newest row id per channel
	sub := s.orm.Table("measurements").
		Select("channel, MAX(id) as id").
		Group("channel")
	var out []ChannelLatest
	err := s.orm.WithContext(ctx).
		Table("measurements as m").
		Select("m.channel, m.measurement_type, m.range_value, m.value, m.unit, m.overload, m.status, m.timestamp").
		Joins("JOIN (?) as l ON l.id = m.id", sub).
		Order("m.channel").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
