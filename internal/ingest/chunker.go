package ingest

import (
	"time"

	"github.com/fleetsight/tripwatch/internal/models"
)

// minChunkablePoints is the smallest total point count worth splitting;
// anything below cannot yield two chunks of two points.
const minChunkablePoints = 4

// Chunk partitions an ordered point sequence into time-bounded batches.
//
// A new chunk opens when a point's timestamp exceeds the chunk's start
// by more than window and the chunk already holds at least two points.
// A trailing chunk with fewer than two points is folded into the
// previous chunk, so every emitted chunk can support distance and speed
// computation. Sequences shorter than four points, or whose span never
// outruns the window, yield no chunks; the worker decides what such a
// batch means for the trip's ingestion mode.
func Chunk(points []models.GPSPoint, window time.Duration) [][]models.GPSPoint {
	if len(points) < minChunkablePoints {
		return nil
	}

	var chunks [][]models.GPSPoint
	var current []models.GPSPoint
	var chunkStart time.Time

	for _, p := range points {
		if len(current) == 0 {
			current = []models.GPSPoint{p}
			chunkStart = p.DtTracker
			continue
		}
		if p.DtTracker.Sub(chunkStart) > window && len(current) >= 2 {
			chunks = append(chunks, current)
			current = []models.GPSPoint{p}
			chunkStart = p.DtTracker
			continue
		}
		current = append(current, p)
	}

	// No chunk ever closed: the whole sequence fits inside one window.
	if len(chunks) == 0 {
		return nil
	}

	if len(current) > 0 {
		if len(current) < 2 {
			chunks[len(chunks)-1] = append(chunks[len(chunks)-1], current...)
		} else {
			chunks = append(chunks, current)
		}
	}
	return chunks
}
