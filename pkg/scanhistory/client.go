package scanhistory

import (
	"context"
	"encoding/json"
	"time"

	storepkg "sdm-scanner/internal/store"
)

// Client exposes a stable read API for third-party packages to access the
// scan history database.
type Client struct{ st *storepkg.Store }

// Open opens the SQLite history database (runs migrations) and returns a client.
func Open(path string) (*Client, error) {
	st, err := storepkg.Open(path)
	if err != nil {
		return nil, err
	}
	return &Client{st: st}, nil
}

// Close closes the underlying DB.
func (c *Client) Close() error { return c.st.Close() }

// --------------------
// DTOs and converters
// --------------------

type Session struct {
	ID        string    `json:"id"`
	Resource  string    `json:"resource"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}

type Measurement struct {
	Channel         int       `json:"channel"`
	MeasurementType string    `json:"measurement_type"`
	RangeValue      string    `json:"range_value"`
	Value           float64   `json:"value"`
	Unit            string    `json:"unit"`
	FullUnit        string    `json:"full_unit"`
	Overload        bool      `json:"overload"`
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
}

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

// --------------------
// Queries
// --------------------

// Sessions returns scan sessions, most recent first. limit <= 0 means all.
func (c *Client) Sessions(ctx context.Context, limit int) ([]Session, error) {
	infos, err := c.st.ListSessions(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(infos))
	for _, si := range infos {
		out = append(out, Session{ID: si.ID, Resource: si.Resource, Mode: si.Mode, StartedAt: si.StartedAt})
	}
	return out, nil
}

// SessionMeasurements returns all rows for one session, oldest first.
func (c *Client) SessionMeasurements(ctx context.Context, sessionID string) ([]Measurement, error) {
	rows, err := c.st.SessionMeasurements(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]Measurement, 0, len(rows))
	for _, r := range rows {
		out = append(out, Measurement{
			Channel:         r.Channel,
			MeasurementType: r.MeasurementType,
			RangeValue:      r.RangeValue,
			Value:           r.Value,
			Unit:            r.Unit,
			FullUnit:        r.FullUnit,
			Overload:        r.Overload,
			Status:          r.Status,
			Timestamp:       r.Timestamp,
		})
	}
	return out, nil
}

// LatestPerChannel returns the most recent measurement for every channel.
func (c *Client) LatestPerChannel(ctx context.Context) ([]ChannelLatest, error) {
	rows, err := c.st.LatestPerChannel(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ChannelLatest, 0, len(rows))
	for _, r := range rows {
		out = append(out, ChannelLatest{
			Channel:         r.Channel,
			MeasurementType: r.MeasurementType,
			RangeValue:      r.RangeValue,
			Value:           r.Value,
			Unit:            r.Unit,
			Overload:        r.Overload,
			Status:          r.Status,
			Timestamp:       r.Timestamp,
		})
	}
	return out, nil
}

// Stats aggregates session and latest-channel data for command output.
type Stats struct {
	SessionCount int             `json:"session_count"`
	Sessions     []Session       `json:"sessions"`
	Latest       []ChannelLatest `json:"latest"`
}

// StatsJSON returns the aggregated stats as pretty-printed JSON.
func (c *Client) StatsJSON(ctx context.Context, sessionLimit int) ([]byte, error) {
	sessions, err := c.Sessions(ctx, sessionLimit)
	if err != nil {
		return nil, err
	}
	latest, err := c.LatestPerChannel(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(Stats{
		SessionCount: len(sessions),
		Sessions:     sessions,
		Latest:       latest,
	}, "", "  ")
}
