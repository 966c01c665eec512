// Package render produces the interactive map preview. Everything in this
// package operates on throwaway copies of the batch geometry: lateral offsets
// and privacy jitter are presentational and must never reach persisted files.
package render

import (
	"math"
	"math/rand"

	"github.com/transitlab/linemap/internal/line"
)

// Jitter displaces coordinates by bounded random noise for privacy. The
// displacement magnitude never exceeds Radius meters; directions are uniform
// over the disk, so the mean displacement tends to 2/3 of the radius.
type Jitter struct {
	Radius float64
	rng    *rand.Rand
}

// NewJitter creates a jitter source with a non-deterministic seed.
func NewJitter(radiusMeters float64) *Jitter {
	return NewSeededJitter(radiusMeters, rand.Uint64(), rand.Uint64())
}

// NewSeededJitter creates a jitter source with a fixed seed, for tests.
func NewSeededJitter(radiusMeters float64, seed1, seed2 uint64) *Jitter {
	return &Jitter{
		Radius: radiusMeters,
		rng:    rand.New(rand.NewSource(int64(seed1)<<32 ^ int64(seed2))),
	}
}

// Point returns a jittered copy of c. A zero radius returns c unchanged.
func (j *Jitter) Point(c line.Coordinate) line.Coordinate {
	if j.Radius <= 0 {
		return c
	}
	// sqrt keeps the samples uniform over the disk area.
	r := j.Radius * math.Sqrt(j.rng.Float64())
	theta := 2 * math.Pi * j.rng.Float64()
	dx := r * math.Cos(theta)
	dy := r * math.Sin(theta)

	cosLat := math.Cos(c.Lat * math.Pi / 180)
	return line.Coordinate{
		Lon: c.Lon + dx/(earthRadiusMeters*cosLat)*180/math.Pi,
		Lat: c.Lat + dy/earthRadiusMeters*180/math.Pi,
	}
}

// Path returns a jittered copy of every point in the path.
func (j *Jitter) Path(path []line.Coordinate) []line.Coordinate {
	out := make([]line.Coordinate, len(path))
	for i, c := range path {
		out[i] = j.Point(c)
	}
	return out
}

const earthRadiusMeters = 6371000.0
