package offset

import (
	"math"

	"github.com/transitlab/linemap/internal/line"
)

const earthRadiusMeters = 6371000.0

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }

// metersBetween returns the approximate distance between two nearby points
// using an equirectangular projection, which is accurate at city scale.
func metersBetween(a, b line.Coordinate) float64 {
	cosLat := math.Cos(toRad((a.Lat + b.Lat) / 2))
	dx := toRad(b.Lon-a.Lon) * cosLat * earthRadiusMeters
	dy := toRad(b.Lat-a.Lat) * earthRadiusMeters
	return math.Hypot(dx, dy)
}

// distanceToPath returns the shortest distance in meters from p to any
// segment of the path.
func distanceToPath(p line.Coordinate, path []line.Coordinate) float64 {
	if len(path) == 1 {
		return metersBetween(p, path[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(path); i++ {
		if d := pointToSegment(p, path[i-1], path[i]); d < best {
			best = d
		}
	}
	return best
}

// pointToSegment returns the distance in meters from p to the segment ab,
// projected equirectangularly around a.
func pointToSegment(p, a, b line.Coordinate) float64 {
	cosLat := math.Cos(toRad(a.Lat))
	ax := toRad(a.Lon) * cosLat * earthRadiusMeters
	ay := toRad(a.Lat) * earthRadiusMeters
	bx := toRad(b.Lon) * cosLat * earthRadiusMeters
	by := toRad(b.Lat) * earthRadiusMeters
	px := toRad(p.Lon) * cosLat * earthRadiusMeters
	py := toRad(p.Lat) * earthRadiusMeters

	dx := bx - ax
	dy := by - ay
	if dx == 0 && dy == 0 {
		return math.Hypot(px-ax, py-ay)
	}
	t := ((px-ax)*dx + (py-ay)*dy) / (dx*dx + dy*dy)
	if t < 0 {
		return math.Hypot(px-ax, py-ay)
	}
	if t > 1 {
		return math.Hypot(px-bx, py-by)
	}
	return math.Hypot(px-(ax+t*dx), py-(ay+t*dy))
}

// Apply returns a copy of the path with every vertex displaced meters to the
// side, perpendicular to the local direction of travel (positive is to the
// right). Single-point paths and zero displacement return an unshifted copy.
func Apply(path []line.Coordinate, meters float64) []line.Coordinate {
	out := make([]line.Coordinate, len(path))
	copy(out, path)
	if meters == 0 || len(path) < 2 {
		return out
	}

	for i := range path {
		// Local tangent: toward the next vertex, or from the previous
		// one at the tail.
		j, k := i, i+1
		if i == len(path)-1 {
			j, k = i-1, i
		}
		tx, ty := planarDelta(path[j], path[k])
		norm := math.Hypot(tx, ty)
		if norm == 0 {
			continue
		}
		// Right-hand normal of the travel direction.
		nx := ty / norm
		ny := -tx / norm

		cosLat := math.Cos(toRad(path[i].Lat))
		out[i].Lon = path[i].Lon + (meters*nx)/(earthRadiusMeters*cosLat)*180/math.Pi
		out[i].Lat = path[i].Lat + (meters*ny)/earthRadiusMeters*180/math.Pi
	}
	return out
}

// planarDelta returns the projected vector from a to b in meters.
func planarDelta(a, b line.Coordinate) (float64, float64) {
	cosLat := math.Cos(toRad(a.Lat))
	return toRad(b.Lon-a.Lon) * cosLat * earthRadiusMeters,
		toRad(b.Lat-a.Lat) * earthRadiusMeters
}
