// Package offset laterally separates routes that share a road corridor so
// rendered lines stay individually visible. It samples every route at a fixed
// step, detects pairs whose paths coincide within a tolerance over a minimum
// shared length, clusters them into overlap groups, and assigns each group
// member a signed perpendicular displacement.
//
// Offsets are recomputed over the full batch on every run and apply only to
// rendered copies, never to persisted geometry.
package offset

import (
	"sort"

	"github.com/transitlab/linemap/internal/line"
)

// Params are the tuning knobs for overlap detection and separation. They are
// presentation parameters: the defaults matter for visual quality, not
// correctness.
type Params struct {
	// ToleranceMeters is the max distance between a sample on one line and
	// the other line's path for the sample to count as shared.
	ToleranceMeters float64

	// MinOverlapMeters is the minimum absolute shared length; shorter
	// incidental crossings never group two lines.
	MinOverlapMeters float64

	// OverlapFraction is the minimum fraction of a line's samples that must
	// be shared for the pair to count as overlapping.
	OverlapFraction float64

	// SampleStepMeters is the along-path sampling interval.
	SampleStepMeters float64

	// SpacingMeters converts an offset rank to physical displacement.
	SpacingMeters float64
}

// DefaultParams returns the tuning used when no configuration is supplied.
func DefaultParams() Params {
	return Params{
		ToleranceMeters:  30,
		MinOverlapMeters: 300,
		OverlapFraction:  0.4,
		SampleStepMeters: 25,
		SpacingMeters:    4,
	}
}

// Compute returns the signed lateral displacement in meters for every line
// key. Lines not in any overlap group, groups of size one, and single-point
// lines get zero. The result is invariant to the order of the input slice.
func Compute(lines []*line.Geometry, p Params) map[string]float64 {
	out := make(map[string]float64, len(lines))
	for _, g := range lines {
		out[g.Key] = 0
	}

	// Sampled form of every line with at least two points.
	type sampled struct {
		key     string
		path    []line.Coordinate
		samples []line.Coordinate
		length  float64
	}
	ss := make([]sampled, 0, len(lines))
	for _, g := range lines {
		if len(g.Path) < 2 {
			continue
		}
		samples, length := resample(g.Path, p.SampleStepMeters)
		ss = append(ss, sampled{key: g.Key, path: g.Path, samples: samples, length: length})
	}
	if len(ss) < 2 {
		return out
	}

	// Sort by key so grouping and ranking never depend on input order.
	sort.Slice(ss, func(i, j int) bool { return ss[i].key < ss[j].key })

	uf := newUnionFind(len(ss))
	for i := 0; i < len(ss); i++ {
		for j := i + 1; j < len(ss); j++ {
			if overlaps(ss[i].samples, ss[i].length, ss[j].path, p) ||
				overlaps(ss[j].samples, ss[j].length, ss[i].path, p) {
				uf.union(i, j)
			}
		}
	}

	// Collect members per overlap group, ordered by key.
	groups := make(map[int][]string)
	for i := range ss {
		root := uf.find(i)
		groups[root] = append(groups[root], ss[i].key)
	}

	for _, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		for i, key := range members {
			rank := float64(i) - float64(len(members)-1)/2
			out[key] = rank * p.SpacingMeters
		}
	}

	return out
}

// overlaps reports whether enough of a (given by its samples and length) runs
// within tolerance of b's path.
func overlaps(aSamples []line.Coordinate, aLength float64, bPath []line.Coordinate, p Params) bool {
	if len(aSamples) == 0 {
		return false
	}
	within := 0
	for _, s := range aSamples {
		if distanceToPath(s, bPath) <= p.ToleranceMeters {
			within++
		}
	}
	frac := float64(within) / float64(len(aSamples))
	return frac >= p.OverlapFraction && frac*aLength >= p.MinOverlapMeters
}

// resample walks the path emitting a point every step meters, keeping the
// endpoints. It also returns the total path length in meters.
func resample(path []line.Coordinate, step float64) ([]line.Coordinate, float64) {
	if step <= 0 {
		step = DefaultParams().SampleStepMeters
	}

	var length float64
	for i := 1; i < len(path); i++ {
		length += metersBetween(path[i-1], path[i])
	}

	samples := []line.Coordinate{path[0]}
	carry := step
	prev := path[0]
	for i := 1; i < len(path); i++ {
		next := path[i]
		seg := metersBetween(prev, next)
		for seg > 0 && carry <= seg {
			t := carry / seg
			prev = line.Coordinate{
				Lon: prev.Lon + t*(next.Lon-prev.Lon),
				Lat: prev.Lat + t*(next.Lat-prev.Lat),
			}
			samples = append(samples, prev)
			seg -= carry
			carry = step
		}
		carry -= seg
		prev = next
	}
	samples = append(samples, path[len(path)-1])
	return samples, length
}

// unionFind is a plain union-find over line indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(i, j int) {
	ri, rj := u.find(i), u.find(j)
	if ri != rj {
		u.parent[ri] = rj
	}
}
