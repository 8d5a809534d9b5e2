package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrackerTimeLayout(t *testing.T) {
	ts, err := time.Parse(TrackerTimeLayout, "2025-03-14 09:30:05")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 30, 5, 0, time.UTC), ts)
	assert.Equal(t, "2025-03-14 09:30:05", ts.Format(TrackerTimeLayout))
}

func TestTrip_LastPoint(t *testing.T) {
	trip := &Trip{}
	assert.Nil(t, trip.LastPoint())

	trip.Path = []GPSPoint{
		{Lat: 28.70, Lng: 77.10},
		{Lat: 28.71, Lng: 77.12},
	}
	last := trip.LastPoint()
	if assert.NotNil(t, last) {
		assert.Equal(t, 77.12, last.Lng)
	}
}

func TestTrip_AtLocation(t *testing.T) {
	trip := &Trip{}
	assert.False(t, trip.AtLocation("Alpha Depot"))

	trip.CurrentSignificantLocation = &SignificantLocationRecord{LocationName: "Alpha Depot"}
	assert.True(t, trip.AtLocation("Alpha Depot"))
	assert.False(t, trip.AtLocation("Beta Yard"))
}

func TestRoute_Locations(t *testing.T) {
	route := &Route{
		Start: Location{LocationName: "Alpha"},
		Via:   []Location{{LocationName: "Waypoint 1"}, {LocationName: "Waypoint 2"}},
		End:   Location{LocationName: "Beta"},
	}

	locs := route.Locations()
	names := make([]string, len(locs))
	for i, l := range locs {
		names[i] = l.LocationName
	}
	assert.Equal(t, []string{"Alpha", "Waypoint 1", "Waypoint 2", "Beta"}, names)
}

func TestRoute_LocationByName(t *testing.T) {
	route := &Route{
		Start: Location{LocationName: "Alpha", TriggerRadius: 500},
		End:   Location{LocationName: "Beta"},
	}

	loc := route.LocationByName("Alpha")
	if assert.NotNil(t, loc) {
		assert.Equal(t, 500.0, loc.TriggerRadius)
	}
	assert.Nil(t, route.LocationByName("Gamma"))
}

func TestRoute_LastSegmentIndex(t *testing.T) {
	route := &Route{}
	assert.Equal(t, -1, route.LastSegmentIndex())

	route.Segments = []Segment{{Index: 0}, {Index: 1}}
	assert.Equal(t, 1, route.LastSegmentIndex())
}

func TestGPSPoint_Coord(t *testing.T) {
	p := GPSPoint{Lat: 28.70, Lng: 77.10, Speed: 40}
	assert.Equal(t, Coordinate{Lat: 28.70, Lng: 77.10}, p.Coord())
}
