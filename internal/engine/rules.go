package engine

import (
	"time"

	"github.com/fleetsight/tripwatch/internal/geo"
	"github.com/fleetsight/tripwatch/internal/models"
)

// evaluateRules runs every configured rule with hysteresis: a rule flips
// to Violated only from a non-Violated state, and back to Good only from
// Violated, so each episode produces exactly one onset and one
// resolution event.
func (e *Engine) evaluateRules(chunk []models.GPSPoint) error {
	if len(e.route.Rules) == 0 {
		return nil
	}
	if e.trip.RuleStatus == nil {
		e.trip.RuleStatus = make(map[string]models.RuleStatus)
	}
	lastTS := chunk[len(chunk)-1].DtTracker
	changed := false

	for _, rule := range e.route.Rules {
		holds := e.ruleCondition(rule, chunk)
		prev := e.trip.RuleStatus[rule.Name]

		switch {
		case holds && prev != models.RuleViolated:
			e.trip.RuleStatus[rule.Name] = models.RuleViolated
			changed = true
			e.recordEvent(models.SignificantEvent{
				Type:           models.EventViolationStart,
				RuleName:       rule.Name,
				EventStartTime: lastTS,
			})
			e.log.WithField("rule", rule.Name).Warn("Rule violation started")

		case holds && prev == models.RuleViolated:
			// Running violation: reported, not re-signalled.
			e.log.WithField("rule", rule.Name).Debug("Rule violation running")

		case !holds && prev == models.RuleViolated:
			e.trip.RuleStatus[rule.Name] = models.RuleGood
			changed = true
			start := e.violationStart(rule.Name, lastTS)
			end := lastTS
			path, dist := e.pathBetween(start, end)
			e.recordEvent(models.SignificantEvent{
				Type:           models.EventViolationEnd,
				RuleName:       rule.Name,
				EventStartTime: start,
				EventEndTime:   &end,
				Distance:       dist,
				Path:           path,
			})
			e.log.WithField("rule", rule.Name).Info("Rule violation resolved")

		case !holds && prev == "":
			e.trip.RuleStatus[rule.Name] = models.RuleGood
			changed = true
		}
	}

	if changed {
		e.patch.Set("rule_status", e.trip.RuleStatus)
	}
	return nil
}

// ruleCondition evaluates one rule against the current chunk and trip
// state.
func (e *Engine) ruleCondition(rule models.Rule, chunk []models.GPSPoint) bool {
	switch rule.Kind {
	case models.RuleSpeedLimit:
		return e.batchAvgSpeed > 0 && e.batchAvgSpeed > rule.SpeedLimitKmh

	case models.RuleDrivingHours:
		if e.trip.MovementStatus != models.MovementDriving {
			return false
		}
		hour := e.localHour(chunk[len(chunk)-1].DtTracker)
		return !hourInWindow(hour, rule.DriveStartHour, rule.DriveEndHour)

	case models.RuleMaxHalt:
		return e.trip.MovementStatus == models.MovementHalted &&
			e.trip.CurrentHaltDuration > rule.MaxHaltMinutes

	case models.RuleRouteDeviation:
		dist := e.distanceFromRouteKm
		if e.trip.TravelDirection == models.DirectionReverse {
			dist = e.trip.ReverseDistance
		}
		return dist > rule.MaxDeviationKm
	}
	return false
}

// localHour converts a UTC tracker timestamp to the fleet's configured
// clock before window checks.
func (e *Engine) localHour(ts time.Time) int {
	if e.cfg.Location == nil {
		return ts.Hour()
	}
	return ts.In(e.cfg.Location).Hour()
}

// hourInWindow reports whether hour falls in the permitted driving
// window [start, end), handling windows that wrap midnight.
func hourInWindow(hour, start, end int) bool {
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// violationStart finds the onset timestamp of the open episode for a
// rule by scanning the event log backwards.
func (e *Engine) violationStart(ruleName string, fallback time.Time) time.Time {
	for i := len(e.trip.SignificantEvents) - 1; i >= 0; i-- {
		ev := e.trip.SignificantEvents[i]
		if ev.RuleName != ruleName {
			continue
		}
		if ev.Type == models.EventViolationEnd {
			break
		}
		if ev.Type == models.EventViolationStart {
			return ev.EventStartTime
		}
	}
	return fallback
}

// pathBetween returns the path coordinates and great-circle distance
// covered in [from, to].
func (e *Engine) pathBetween(from, to time.Time) ([]models.Coordinate, float64) {
	var coords []models.Coordinate
	for _, p := range e.trip.Path {
		if p.DtTracker.Before(from) || p.DtTracker.After(to) {
			continue
		}
		coords = append(coords, p.Coord())
	}
	var dist float64
	for i := 1; i < len(coords); i++ {
		dist += geo.HaversineKm(coords[i-1], coords[i])
	}
	return coords, dist
}
