package ingest

import (
	"math"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fleetsight/tripwatch/internal/models"
)

// RawFix is the external wire shape of a GPS fix as produced by tracker
// devices. dt_tracker is a "2006-01-02 15:04:05" timestamp string.
type RawFix struct {
	DtTracker string   `json:"dt_tracker" bson:"dt_tracker"`
	Lat       float64  `json:"lat" bson:"lat"`
	Lng       float64  `json:"lng" bson:"lng"`
	Speed     float64  `json:"speed" bson:"speed"`
	Acc       int      `json:"acc" bson:"acc"`
	FuelLevel *float64 `json:"fuel_level,omitempty" bson:"fuel_level,omitempty"`
}

// BoundingBox is the serviceable geographic area; fixes outside it are
// rejected.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains reports whether the coordinate lies within the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Validator sanitizes raw fixes. Invalid fixes are dropped and counted,
// never fatal.
type Validator struct {
	Bounds BoundingBox
}

// Validate converts raw fixes into validated points sorted by timestamp.
// Returns the valid points and the number of fixes dropped.
func (v *Validator) Validate(fixes []RawFix) ([]models.GPSPoint, int) {
	points := make([]models.GPSPoint, 0, len(fixes))
	dropped := 0
	for _, f := range fixes {
		p, ok := v.validateOne(f)
		if !ok {
			dropped++
			continue
		}
		points = append(points, p)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].DtTracker.Before(points[j].DtTracker)
	})
	if dropped > 0 {
		log.WithFields(log.Fields{"dropped": dropped, "valid": len(points)}).Warn("Dropped invalid GPS fixes")
	}
	return points, dropped
}

func (v *Validator) validateOne(f RawFix) (models.GPSPoint, bool) {
	if math.IsNaN(f.Lat) || math.IsNaN(f.Lng) || math.IsNaN(f.Speed) {
		return models.GPSPoint{}, false
	}
	if f.Lat < -90 || f.Lat > 90 || f.Lng < -180 || f.Lng > 180 {
		return models.GPSPoint{}, false
	}
	if (f.Lat == 0 && f.Lng == 0) || !v.Bounds.Contains(f.Lat, f.Lng) {
		return models.GPSPoint{}, false
	}
	ts, err := time.Parse(models.TrackerTimeLayout, f.DtTracker)
	if err != nil {
		return models.GPSPoint{}, false
	}
	return models.GPSPoint{
		DtTracker: ts,
		Lat:       f.Lat,
		Lng:       f.Lng,
		Speed:     f.Speed,
		Acc:       f.Acc,
		FuelLevel: f.FuelLevel,
	}, true
}
