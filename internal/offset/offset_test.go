package offset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/linemap/internal/line"
)

// eastWest returns a straight east-west path at the given latitude.
func eastWest(lat, fromLon, toLon float64, n int) []line.Coordinate {
	path := make([]line.Coordinate, n)
	for i := range path {
		t := float64(i) / float64(n-1)
		path[i] = line.Coordinate{Lon: fromLon + t*(toLon-fromLon), Lat: lat}
	}
	return path
}

func geometry(key string, path []line.Coordinate) *line.Geometry {
	return &line.Geometry{Key: key, Path: path}
}

func TestCompute_IdenticalPairSymmetric(t *testing.T) {
	p := DefaultParams()
	path := eastWest(28.0, 120.0, 120.05, 6)

	got := Compute([]*line.Geometry{
		geometry("a", path),
		geometry("b", append([]line.Coordinate(nil), path...)),
	}, p)

	require.Len(t, got, 2)
	assert.NotZero(t, got["a"])
	assert.NotZero(t, got["b"])
	assert.InDelta(t, -got["b"], got["a"], 1e-9)
	assert.InDelta(t, p.SpacingMeters/2, -got["a"], 1e-9)
}

func TestCompute_SingleLineZero(t *testing.T) {
	got := Compute([]*line.Geometry{
		geometry("only", eastWest(28.0, 120.0, 120.05, 6)),
	}, DefaultParams())

	assert.Zero(t, got["only"])
}

func TestCompute_OrderInvariant(t *testing.T) {
	p := DefaultParams()
	a := geometry("a", eastWest(28.0, 120.0, 120.05, 6))
	b := geometry("b", eastWest(28.0, 120.0, 120.05, 6))
	c := geometry("c", eastWest(28.5, 120.0, 120.05, 6)) // far away

	fwd := Compute([]*line.Geometry{a, b, c}, p)
	rev := Compute([]*line.Geometry{c, b, a}, p)

	assert.Equal(t, fwd, rev)
	assert.Zero(t, fwd["c"])
}

func TestCompute_DistantLinesUngrouped(t *testing.T) {
	got := Compute([]*line.Geometry{
		geometry("north", eastWest(28.1, 120.0, 120.05, 6)),
		geometry("south", eastWest(28.0, 120.0, 120.05, 6)),
	}, DefaultParams())

	assert.Zero(t, got["north"])
	assert.Zero(t, got["south"])
}

func TestCompute_IncidentalCrossingIgnored(t *testing.T) {
	// A north-south line crossing an east-west line shares only a few
	// meters around the intersection, far below the minimum overlap.
	ns := make([]line.Coordinate, 6)
	for i := range ns {
		t := float64(i) / 5
		ns[i] = line.Coordinate{Lon: 120.025, Lat: 27.975 + t*0.05}
	}

	got := Compute([]*line.Geometry{
		geometry("ew", eastWest(28.0, 120.0, 120.05, 6)),
		geometry("ns", ns),
	}, DefaultParams())

	assert.Zero(t, got["ew"])
	assert.Zero(t, got["ns"])
}

func TestCompute_PartialCorridorGroups(t *testing.T) {
	// b follows a's corridor for ~3 km before turning north: well past
	// both the fraction and absolute-length thresholds.
	shared := eastWest(28.0, 120.0, 120.03, 4)
	diverge := append(append([]line.Coordinate(nil), shared...),
		line.Coordinate{Lon: 120.03, Lat: 28.02},
		line.Coordinate{Lon: 120.03, Lat: 28.04},
	)

	got := Compute([]*line.Geometry{
		geometry("a", eastWest(28.0, 120.0, 120.03, 4)),
		geometry("b", diverge),
	}, DefaultParams())

	assert.NotZero(t, got["a"])
	assert.NotZero(t, got["b"])
}

func TestCompute_ThreeWayGroupCentered(t *testing.T) {
	p := DefaultParams()
	path := eastWest(28.0, 120.0, 120.05, 6)

	got := Compute([]*line.Geometry{
		geometry("a", append([]line.Coordinate(nil), path...)),
		geometry("b", append([]line.Coordinate(nil), path...)),
		geometry("c", append([]line.Coordinate(nil), path...)),
	}, p)

	assert.InDelta(t, -p.SpacingMeters, got["a"], 1e-9)
	assert.Zero(t, got["b"])
	assert.InDelta(t, p.SpacingMeters, got["c"], 1e-9)
}

func TestCompute_SinglePointLineZero(t *testing.T) {
	got := Compute([]*line.Geometry{
		geometry("dot", []line.Coordinate{{Lon: 120.0, Lat: 28.0}}),
		geometry("a", eastWest(28.0, 120.0, 120.05, 6)),
		geometry("b", eastWest(28.0, 120.0, 120.05, 6)),
	}, DefaultParams())

	assert.Zero(t, got["dot"])
	assert.NotZero(t, got["a"])
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	path := eastWest(28.0, 120.0, 120.05, 6)
	orig := append([]line.Coordinate(nil), path...)

	Compute([]*line.Geometry{
		geometry("a", path),
		geometry("b", eastWest(28.0, 120.0, 120.05, 6)),
	}, DefaultParams())

	assert.Equal(t, orig, path)
}

func TestApply_DisplacementMagnitude(t *testing.T) {
	path := []line.Coordinate{{Lon: 120.0, Lat: 28.0}, {Lon: 120.01, Lat: 28.0}}

	got := Apply(path, 4)

	require.Len(t, got, 2)
	for i := range got {
		assert.Equal(t, path[i].Lon, got[i].Lon)
		assert.InDelta(t, 4, metersBetween(path[i], got[i]), 0.05)
		// Heading east, positive displacement lands to the right (south).
		assert.Less(t, got[i].Lat, path[i].Lat)
	}
}

func TestApply_ZeroAndSinglePoint(t *testing.T) {
	path := []line.Coordinate{{Lon: 120.0, Lat: 28.0}, {Lon: 120.01, Lat: 28.0}}
	assert.Equal(t, path, Apply(path, 0))

	dot := []line.Coordinate{{Lon: 120.0, Lat: 28.0}}
	assert.Equal(t, dot, Apply(dot, 5))
}

func TestResample_StepAndEndpoints(t *testing.T) {
	path := eastWest(28.0, 120.0, 120.01, 2) // ~980 m straight segment

	samples, length := resample(path, 100)

	assert.InDelta(t, 982, length, 10)
	assert.Equal(t, path[0], samples[0])
	assert.Equal(t, path[len(path)-1], samples[len(samples)-1])
	// One sample every 100 m plus both endpoints.
	assert.GreaterOrEqual(t, len(samples), 10)
	for i := 1; i < len(samples)-1; i++ {
		assert.InDelta(t, 100, metersBetween(samples[i-1], samples[i]), 1)
	}
}
