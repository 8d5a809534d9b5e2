package ingest

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/models"
)

// LiveBuffer drains the transient per-device fix buffer. Entries are raw
// JSON-encoded fixes; the read is destructive (read-then-clear).
type LiveBuffer interface {
	Drain(ctx context.Context, deviceID string) ([]string, error)
}

// HistoryStore fetches archived raw fixes for historical replay.
type HistoryStore interface {
	FixesBetween(ctx context.Context, deviceID string, from, to time.Time) ([]RawFix, error)
}

// LiveSource pulls fixes accumulated since the previous cycle from the
// device's transient buffer.
type LiveSource struct {
	Buffer    LiveBuffer
	Validator *Validator
}

// Fetch drains and validates the device's buffered fixes. Entries that
// fail to decode count as dropped alongside validation rejects.
func (s *LiveSource) Fetch(ctx context.Context, deviceID string) ([]models.GPSPoint, int, error) {
	entries, err := s.Buffer.Drain(ctx, deviceID)
	if err != nil {
		return nil, 0, err
	}
	fixes := make([]RawFix, 0, len(entries))
	malformed := 0
	for _, e := range entries {
		var f RawFix
		if err := json.Unmarshal([]byte(e), &f); err != nil {
			malformed++
			continue
		}
		fixes = append(fixes, f)
	}
	if malformed > 0 {
		log.WithFields(log.Fields{"device_id": deviceID, "malformed": malformed}).Warn("Discarded undecodable buffer entries")
	}
	points, dropped := s.Validator.Validate(fixes)
	return points, dropped + malformed, nil
}

// HistoricalSource fetches a bounded past range for backdated replay.
type HistoricalSource struct {
	Store       HistoryStore
	Validator   *Validator
	MaxLookback time.Duration
}

// Fetch returns validated points for the trip's replay window: from the
// last processed point (or the planned start) up to now, capped at the
// maximum lookback.
func (s *HistoricalSource) Fetch(ctx context.Context, trip *models.Trip, now time.Time) ([]models.GPSPoint, int, error) {
	from := trip.PlannedStartTime
	if last := trip.LastPoint(); last != nil {
		from = last.DtTracker
	}
	to := now
	if to.Sub(from) > s.MaxLookback {
		to = from.Add(s.MaxLookback)
	}
	fixes, err := s.Store.FixesBetween(ctx, trip.DeviceID, from, to)
	if err != nil {
		return nil, 0, err
	}
	points, dropped := s.Validator.Validate(fixes)

	// Points at or before the last processed timestamp were already
	// handled in a previous invocation; re-reading is idempotent.
	if last := trip.LastPoint(); last != nil {
		fresh := points[:0]
		for _, p := range points {
			if p.DtTracker.After(last.DtTracker) {
				fresh = append(fresh, p)
			}
		}
		points = fresh
	}
	return points, dropped, nil
}
