package engine

import (
	"time"

	"github.com/fleetsight/tripwatch/internal/geo"
	"github.com/fleetsight/tripwatch/internal/models"
)

// trackSignificantLocations evaluates the chunk's latest point against
// the route's start/end/via geofences and advances the entry/exit state.
func (e *Engine) trackSignificantLocations(chunk []models.GPSPoint) error {
	last := chunk[len(chunk)-1]
	coord := last.Coord()

	var matches []models.Location
	for _, loc := range e.route.Locations() {
		if geo.InsideLocation(coord, loc) {
			matches = append(matches, loc)
		}
	}
	chosen := e.disambiguate(matches)

	cur := e.trip.CurrentSignificantLocation
	ts := last.DtTracker

	switch {
	case cur == nil && chosen != nil:
		e.enterLocation(*chosen, ts)

	case cur != nil && chosen != nil && cur.LocationName != chosen.LocationName:
		e.exitLocation(ts)
		e.enterLocation(*chosen, ts)

	case cur != nil && chosen == nil:
		e.exitLocation(ts)
	}
	// Same location matched again: no-op.
	return nil
}

// disambiguate resolves overlapping geofence matches using trip context:
// prefer the end location only when the active segment is the route's
// last segment and the start has already been exited; otherwise prefer
// any non-start match once the start has been exited; otherwise default
// to the start.
func (e *Engine) disambiguate(matches []models.Location) *models.Location {
	switch len(matches) {
	case 0:
		return nil
	case 1:
		return &matches[0]
	}

	startName := e.route.Start.LocationName
	endName := e.route.End.LocationName

	if e.trip.HasExitedStartLocation {
		if e.trip.ActiveSegmentIndex == e.route.LastSegmentIndex() {
			for i := range matches {
				if matches[i].LocationName == endName {
					return &matches[i]
				}
			}
		}
		for i := range matches {
			if matches[i].LocationName != startName {
				return &matches[i]
			}
		}
	}
	for i := range matches {
		if matches[i].LocationName == startName {
			return &matches[i]
		}
	}
	return &matches[0]
}

// enterLocation opens a significant-location record.
func (e *Engine) enterLocation(loc models.Location, ts time.Time) {
	rec := &models.SignificantLocationRecord{
		LocationName: loc.LocationName,
		LocationType: loc.Type,
		EntryTime:    ts,
	}
	e.trip.CurrentSignificantLocation = rec
	e.patch.Set("current_significant_location", rec)
	e.recordEvent(models.SignificantEvent{
		Type:           models.EventLocationEntry,
		LocationName:   loc.LocationName,
		EventStartTime: ts,
	})
	e.log.WithField("location", loc.LocationName).Info("Entered significant location")
}

// exitLocation closes the current record, appends it to the history and
// clears the pointer. Exiting the end location raises the completion
// flag.
func (e *Engine) exitLocation(ts time.Time) {
	cur := e.trip.CurrentSignificantLocation
	if cur == nil {
		return
	}
	exit := ts
	closed := *cur
	closed.ExitTime = &exit
	closed.DwellTime = minutesBetween(closed.EntryTime, exit)

	e.trip.SignificantLocations = append(e.trip.SignificantLocations, closed)
	e.trip.CurrentSignificantLocation = nil
	e.patch.PushSignificantLocation(closed)
	e.patch.Set("current_significant_location", nil)

	e.recordEvent(models.SignificantEvent{
		Type:           models.EventLocationExit,
		LocationName:   closed.LocationName,
		EventStartTime: closed.EntryTime,
		EventEndTime:   &exit,
	})

	if closed.LocationName == e.route.Start.LocationName && !e.trip.HasExitedStartLocation {
		e.trip.HasExitedStartLocation = true
		e.patch.Set("has_exited_start_location", true)
	}
	if closed.LocationName == e.route.End.LocationName && !e.trip.HasExitedEndLocation {
		e.trip.HasExitedEndLocation = true
		e.patch.Set("has_exited_end_location", true)
	}
	e.log.WithField("location", closed.LocationName).
		WithField("dwell_mins", closed.DwellTime).
		Info("Exited significant location")
}
