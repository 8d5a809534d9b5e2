package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fleetsight/tripwatch/internal/models"
)

var chunkBase = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func pointAt(offset time.Duration) models.GPSPoint {
	return models.GPSPoint{DtTracker: chunkBase.Add(offset), Lat: 28.7, Lng: 77.1, Speed: 40, Acc: 1}
}

func pointsAt(offsets ...time.Duration) []models.GPSPoint {
	pts := make([]models.GPSPoint, len(offsets))
	for i, o := range offsets {
		pts[i] = pointAt(o)
	}
	return pts
}

func TestChunk_TooFewPoints(t *testing.T) {
	assert.Nil(t, Chunk(nil, 5*time.Minute))
	assert.Nil(t, Chunk(pointsAt(0), 5*time.Minute))
	assert.Nil(t, Chunk(pointsAt(0, time.Minute, 2*time.Minute), 5*time.Minute))
}

func TestChunk_SingleWindowYieldsNoChunks(t *testing.T) {
	// Four points inside one window: no chunk ever closes.
	pts := pointsAt(0, time.Minute, 2*time.Minute, 3*time.Minute)
	assert.Nil(t, Chunk(pts, 5*time.Minute))

	// A dense burst is no different: seven points inside two minutes.
	burst := pointsAt(
		0, 20*time.Second, 40*time.Second, time.Minute,
		80*time.Second, 100*time.Second, 2*time.Minute,
	)
	assert.Nil(t, Chunk(burst, 5*time.Minute))
}

func TestChunk_SplitsOnWindow(t *testing.T) {
	pts := pointsAt(
		0, time.Minute, 2*time.Minute, // chunk 1
		6*time.Minute, 7*time.Minute, 8*time.Minute, // chunk 2
		14*time.Minute, 15*time.Minute, // chunk 3
	)
	chunks := Chunk(pts, 5*time.Minute)

	assert.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 3)
	assert.Len(t, chunks[2], 2)
}

func TestChunk_HoldsUntilTwoPoints(t *testing.T) {
	// The second point is past the window, but a chunk never closes with
	// a single point, so both land in the same chunk; the third point
	// then closes it.
	pts := pointsAt(0, 10*time.Minute, 11*time.Minute, 12*time.Minute)
	chunks := Chunk(pts, 5*time.Minute)

	assert.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[1], 2)
}

func TestChunk_TrailingSingletonFolded(t *testing.T) {
	pts := pointsAt(
		0, time.Minute, 2*time.Minute, 3*time.Minute,
		20*time.Minute, // would be a lone trailing chunk
	)
	chunks := Chunk(pts, 5*time.Minute)

	assert.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 5, "trailing singleton folds into the previous chunk")
}

func TestChunk_PreservesOrderAndCount(t *testing.T) {
	offsets := []time.Duration{
		0, time.Minute, 3*time.Minute,
		7 * time.Minute, 8 * time.Minute,
		13 * time.Minute, 14 * time.Minute, 16 * time.Minute,
	}
	pts := pointsAt(offsets...)
	chunks := Chunk(pts, 5*time.Minute)

	var flat []models.GPSPoint
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c), 2, "every chunk supports pairwise metrics")
		flat = append(flat, c...)
	}
	assert.Len(t, flat, len(pts))
	for i, p := range flat {
		assert.Equal(t, pts[i].DtTracker, p.DtTracker, "point order preserved at %d", i)
	}
}

func TestChunk_BoundaryExactWindowStaysInChunk(t *testing.T) {
	// Exactly window after chunk start is not "exceeds"; it stays.
	pts := pointsAt(0, time.Minute, 5*time.Minute, 5*time.Minute+time.Second, 6*time.Minute)
	chunks := Chunk(pts, 5*time.Minute)

	assert.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 3, "point at exactly the window boundary stays")
	assert.Len(t, chunks[1], 2, "split opens at the first point past the window")
}
