package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/linemap/internal/line"
	"github.com/transitlab/linemap/internal/offset"
	"github.com/transitlab/linemap/internal/render"
	"github.com/transitlab/linemap/internal/store"
	"github.com/transitlab/linemap/pkg/amap"
)

type fakeLookup struct {
	searches    map[string][]amap.Line
	details     map[string]*amap.Line
	searchCalls int
	detailCalls int
}

func (f *fakeLookup) SearchByName(_ context.Context, _, keyword string) ([]amap.Line, error) {
	f.searchCalls++
	cands, ok := f.searches[keyword]
	if !ok {
		return nil, eris.Errorf("provider error: no match for %s", keyword)
	}
	return cands, nil
}

func (f *fakeLookup) LineByID(_ context.Context, _, id string) (*amap.Line, error) {
	f.detailCalls++
	d, ok := f.details[id]
	if !ok {
		return nil, eris.Errorf("provider error: unknown id %s", id)
	}
	return d, nil
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		searches: map[string][]amap.Line{
			"24路": {{ID: "301"}, {ID: "299"}, {ID: "450"}},
		},
		details: map[string]*amap.Line{
			"299": {
				ID:        "299",
				Name:      "24路",
				Company:   "温州公交",
				StartStop: "起点",
				EndStop:   "终点",
				Polyline:  "120.70,28.00;120.71,28.01;120.72,28.02",
				Stops: []amap.Stop{
					{Name: "甲站", Location: "120.70,28.00"},
					{Name: "乙站", Location: "120.72,28.02"},
				},
			},
		},
	}
}

func testOptions(dir string, keywords ...string) Options {
	return Options{
		City:         "温州",
		Keywords:     keywords,
		Concurrency:  1,
		PreviewPath:  filepath.Join(dir, "preview.html"),
		Offset:       offset.DefaultParams(),
		JitterRadius: 5,
		Jitter:       render.NewSeededJitter(5, 1, 2),
	}
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	s := newStore(t)
	lk := newFakeLookup()

	summary, err := Run(context.Background(), lk, s, testOptions(s.Dir(), "24路"))
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, StatusRendered, summary.Results[0].Status)
	assert.Equal(t, "299", summary.Results[0].RouteID) // min numeric id wins

	// Both outputs persisted under the stripped base name.
	assert.FileExists(t, filepath.Join(s.Dir(), "route_24.geojson"))
	assert.FileExists(t, filepath.Join(s.Dir(), "stop_24.geojson"))
	assert.FileExists(t, filepath.Join(s.Dir(), "preview.html"))

	// Persisted coordinates are WGS-84: shifted off the GCJ-02 input.
	g, err := s.ReadRoute("24路")
	require.NoError(t, err)
	require.Len(t, g.Path, 3)
	assert.NotEqual(t, 120.70, g.Path[0].Lon)
	assert.InDelta(t, 120.70, g.Path[0].Lon, 0.01)
}

func TestRun_SkipExistingDoesZeroLookups(t *testing.T) {
	s := newStore(t)
	lk := newFakeLookup()
	opts := testOptions(s.Dir(), "24路")

	_, err := Run(context.Background(), lk, s, opts)
	require.NoError(t, err)
	firstRoute, err := os.ReadFile(s.RoutePath("24路"))
	require.NoError(t, err)

	lk2 := newFakeLookup()
	summary, err := Run(context.Background(), lk2, s, opts)
	require.NoError(t, err)

	assert.Zero(t, lk2.searchCalls)
	assert.Zero(t, lk2.detailCalls)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, StatusSkipped, summary.Results[0].Status)

	// Persisted geometry is byte-stable across cached re-runs.
	secondRoute, err := os.ReadFile(s.RoutePath("24路"))
	require.NoError(t, err)
	assert.Equal(t, firstRoute, secondRoute)
}

func TestRun_OverwriteRefetches(t *testing.T) {
	s := newStore(t)
	opts := testOptions(s.Dir(), "24路")

	_, err := Run(context.Background(), newFakeLookup(), s, opts)
	require.NoError(t, err)

	lk := newFakeLookup()
	opts.Overwrite = true
	_, err = Run(context.Background(), lk, s, opts)
	require.NoError(t, err)

	assert.Equal(t, 1, lk.searchCalls)
	assert.Equal(t, 1, lk.detailCalls)
}

func TestRun_FailureDoesNotHaltBatch(t *testing.T) {
	s := newStore(t)
	lk := newFakeLookup()
	lk.searches["unknown路"] = []amap.Line{{ID: "abc"}} // nothing numeric

	summary, err := Run(context.Background(), lk, s, testOptions(s.Dir(), "unknown路", "24路"))
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	byKey := map[string]Result{}
	for _, r := range summary.Results {
		byKey[r.Key] = r
	}
	assert.Equal(t, StatusFailed, byKey["unknown路"].Status)
	assert.True(t, eris.Is(byKey["unknown路"].Err, line.ErrNoCandidate))
	assert.Equal(t, StatusRendered, byKey["24路"].Status)

	succeeded, skipped, failed := summary.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Zero(t, skipped)
	assert.Equal(t, 1, failed)
}

func TestRun_MalformedGeometryFailsQueryOnly(t *testing.T) {
	s := newStore(t)
	lk := newFakeLookup()
	lk.searches["bad路"] = []amap.Line{{ID: "7"}}
	lk.details["7"] = &amap.Line{ID: "7", Name: "bad路", Polyline: "not-a-polyline"}

	summary, err := Run(context.Background(), lk, s, testOptions(s.Dir(), "bad路", "24路"))
	require.NoError(t, err)

	byKey := map[string]Result{}
	for _, r := range summary.Results {
		byKey[r.Key] = r
	}
	assert.Equal(t, StatusFailed, byKey["bad路"].Status)
	assert.True(t, eris.Is(byKey["bad路"].Err, line.ErrMalformedGeometry))
	assert.Equal(t, StatusRendered, byKey["24路"].Status)
}

func TestRun_PreviewFailureIsBatchFatal(t *testing.T) {
	s := newStore(t)
	opts := testOptions(s.Dir(), "24路")
	opts.PreviewPath = filepath.Join(s.Dir(), "missing", "preview.html")

	summary, err := Run(context.Background(), newFakeLookup(), s, opts)
	assert.Error(t, err)
	// The query itself still completed before the preview step.
	require.Len(t, summary.Results, 1)
	assert.Equal(t, StatusPersisted, summary.Results[0].Status)
}

func TestRun_PersistedGeometryIsNeverJittered(t *testing.T) {
	s := newStore(t)
	opts := testOptions(s.Dir(), "24路")
	// Huge jitter would be obvious in the persisted file if it leaked.
	opts.JitterRadius = 10000
	opts.Jitter = render.NewSeededJitter(10000, 3, 4)

	_, err := Run(context.Background(), newFakeLookup(), s, opts)
	require.NoError(t, err)

	g, err := s.ReadRoute("24路")
	require.NoError(t, err)

	// Persisted output is the pure datum conversion of the raw polyline.
	want, _, extractErr := line.Extract("24路", newFakeLookup().details["299"])
	require.NoError(t, extractErr)
	assert.Equal(t, want.Path, g.Path)
}

func TestRun_BothDirections(t *testing.T) {
	s := newStore(t)
	lk := newFakeLookup()
	lk.details["301"] = &amap.Line{
		ID:       "301",
		Name:     "24路(返程)",
		Polyline: "120.72,28.02;120.71,28.01;120.70,28.00",
	}
	opts := testOptions(s.Dir(), "24路")
	opts.BothDirections = true

	summary, err := Run(context.Background(), lk, s, opts)
	require.NoError(t, err)

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "299", summary.Results[0].RouteID)
	assert.Equal(t, "301", summary.Results[1].RouteID)
	assert.FileExists(t, filepath.Join(s.Dir(), "route_24.geojson"))
	assert.FileExists(t, filepath.Join(s.Dir(), "route_24路#2.geojson"))
}

func TestRun_WritesReport(t *testing.T) {
	s := newStore(t)
	lk := newFakeLookup()
	lk.searches["unknown路"] = []amap.Line{}

	opts := testOptions(s.Dir(), "24路", "unknown路")
	opts.ReportPath = filepath.Join(s.Dir(), "report.yaml")

	_, err := Run(context.Background(), newFakeLookup(), s, opts)
	require.NoError(t, err)
	_, err = Run(context.Background(), lk, s, opts)
	require.NoError(t, err)

	body, err := os.ReadFile(opts.ReportPath)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "run_id:")
	assert.Contains(t, text, "24路")
	assert.Contains(t, text, "unknown路")
	assert.Contains(t, text, "no candidate")
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"24路", "", "B1路", "24路"})
	assert.Equal(t, []string{"24路", "B1路"}, got)
}
