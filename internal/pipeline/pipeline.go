// Package pipeline drives a batch export run: for every query keyword it
// resolves a canonical line, extracts WGS-84 geometry, persists GeoJSON, and
// finally renders the whole batch to an interactive preview. One query's
// failure never halts the batch; failures are collected and reported at the
// end of the run.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/transitlab/linemap/internal/line"
	"github.com/transitlab/linemap/internal/offset"
	"github.com/transitlab/linemap/internal/render"
	"github.com/transitlab/linemap/pkg/amap"
)

// Status is a query's position in its per-query state machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSkipped   Status = "skipped"
	StatusFetched   Status = "fetched"
	StatusPersisted Status = "persisted"
	StatusRendered  Status = "rendered"
	StatusFailed    Status = "failed"
)

// Lookup resolves line names and ids against the mapping provider.
type Lookup interface {
	SearchByName(ctx context.Context, city, keyword string) ([]amap.Line, error)
	LineByID(ctx context.Context, city, id string) (*amap.Line, error)
}

// Store persists and recalls per-route geometry files.
type Store interface {
	Exists(key string) bool
	WriteRoute(g *line.Geometry) error
	WriteStops(st *line.Stops) error
	ReadRoute(key string) (*line.Geometry, error)
	ReadStops(key string) (*line.Stops, error)
	WriteShapefile(g *line.Geometry) error
	Dir() string
}

// Options configures a batch run.
type Options struct {
	City           string
	Keywords       []string
	Overwrite      bool
	BothDirections bool
	Shapefile      bool
	Concurrency    int
	PreviewPath    string // empty disables the preview
	ReportPath     string // empty disables the YAML report
	Offset         offset.Params
	JitterRadius   float64

	// Jitter overrides the default random source, for tests.
	Jitter *render.Jitter
}

// Result records the terminal state of one query.
type Result struct {
	Key     string
	Status  Status
	RouteID string
	Err     error
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID   string
	Results []Result
}

// Counts returns the number of succeeded, skipped, and failed queries.
// Skipped queries that made it into the preview still count as skipped.
func (s *Summary) Counts() (succeeded, skipped, failed int) {
	for _, r := range s.Results {
		switch r.Status {
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		default:
			succeeded++
		}
	}
	return
}

// queryOutcome is the per-keyword product of the fetch/extract phase.
type queryOutcome struct {
	results []Result
	geoms   []*line.Geometry
	stops   []*line.Stops
	skipped bool
}

// Run executes the batch. The returned error is non-nil only for batch-fatal
// conditions (inability to write the preview); per-query failures land in the
// Summary instead.
func Run(ctx context.Context, lookup Lookup, store Store, opts Options) (*Summary, error) {
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID), zap.String("city", opts.City))

	keywords := dedupe(opts.Keywords)
	log.Info("starting batch run",
		zap.Int("queries", len(keywords)),
		zap.Bool("overwrite", opts.Overwrite),
		zap.String("outdir", store.Dir()),
	)

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// Phase 1: fetch/extract per query. Outcomes land in a fixed slot per
	// keyword, so no locking and a deterministic batch order.
	outcomes := make([]queryOutcome, len(keywords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			outcomes[i] = processQuery(gctx, lookup, store, opts, kw)
			return nil
		})
	}
	// Barrier: offset computation needs the complete batch.
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch phase")
	}

	summary := &Summary{RunID: runID}
	var geoms []*line.Geometry
	var stops []*line.Stops
	for _, o := range outcomes {
		summary.Results = append(summary.Results, o.results...)
		geoms = append(geoms, o.geoms...)
		stops = append(stops, o.stops...)
	}

	// Phase 2: whole-batch presentation. Offsets and jitter apply to
	// rendered copies only; persisted files are already final.
	if opts.PreviewPath != "" {
		if err := renderPreview(opts, geoms, stops); err != nil {
			log.Error("preview write failed", zap.Error(err))
			return summary, eris.Wrap(err, "pipeline: write preview")
		}
		rendered := make(map[string]bool, len(geoms))
		for _, gm := range geoms {
			rendered[gm.Key] = true
		}
		for i, r := range summary.Results {
			if r.Status == StatusPersisted && rendered[r.Key] {
				summary.Results[i].Status = StatusRendered
			}
		}
	}

	if opts.ReportPath != "" {
		if err := writeReport(opts.ReportPath, opts.City, summary); err != nil {
			log.Warn("report write failed", zap.Error(err))
		}
	}

	succeeded, skipped, failed := summary.Counts()
	log.Info("batch complete",
		zap.Int("succeeded", succeeded),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return summary, nil
}

// processQuery walks one keyword through the per-query state machine.
func processQuery(ctx context.Context, lookup Lookup, store Store, opts Options, kw string) queryOutcome {
	log := zap.L().With(zap.String("query", kw))

	// Idempotence cache: existing outputs are loaded for the batch set
	// instead of re-fetched, unless overwrite is requested.
	if !opts.Overwrite && store.Exists(kw) {
		g, err := store.ReadRoute(kw)
		if err == nil {
			var st *line.Stops
			st, err = store.ReadStops(kw)
			if err == nil {
				log.Info("skipping, outputs exist")
				return queryOutcome{
					results: []Result{{Key: kw, Status: StatusSkipped, RouteID: g.RouteID}},
					geoms:   []*line.Geometry{g},
					stops:   []*line.Stops{st},
					skipped: true,
				}
			}
		}
		log.Warn("existing outputs unreadable, marking failed", zap.Error(err))
		return failure(kw, eris.Wrap(err, "load existing outputs"))
	}

	log.Info("querying line name")
	cands, err := lookup.SearchByName(ctx, opts.City, kw)
	if err != nil {
		log.Warn("lookup failed", zap.Error(err))
		return failure(kw, err)
	}

	var picked []amap.Line
	if opts.BothDirections {
		picked, err = line.SelectBothDirections(cands)
	} else {
		var one amap.Line
		one, err = line.SelectCandidate(cands)
		picked = []amap.Line{one}
	}
	if err != nil {
		log.Warn("no usable candidate", zap.Error(err))
		return failure(kw, err)
	}

	var out queryOutcome
	for i, cand := range picked {
		key := kw
		if i > 0 {
			key = fmt.Sprintf("%s#%d", kw, i+1)
		}
		res := fetchOne(ctx, lookup, store, opts, key, cand)
		out.results = append(out.results, res.results...)
		out.geoms = append(out.geoms, res.geoms...)
		out.stops = append(out.stops, res.stops...)
	}
	return out
}

// fetchOne fetches, extracts, and persists a single selected candidate.
func fetchOne(ctx context.Context, lookup Lookup, store Store, opts Options, key string, cand amap.Line) queryOutcome {
	log := zap.L().With(zap.String("query", key), zap.String("line_id", cand.ID))
	log.Info("fetching line detail", zap.String("name", cand.Name), zap.String("company", cand.Company))

	detail, err := lookup.LineByID(ctx, opts.City, cand.ID)
	if err != nil {
		log.Warn("detail lookup failed", zap.Error(err))
		return failure(key, err)
	}

	g, st, err := line.Extract(key, detail)
	if err != nil {
		log.Warn("geometry extraction failed", zap.Error(err))
		return failure(key, err)
	}

	if err := store.WriteRoute(g); err != nil {
		return failure(key, err)
	}
	if err := store.WriteStops(st); err != nil {
		return failure(key, err)
	}
	if opts.Shapefile {
		if err := store.WriteShapefile(g); err != nil {
			log.Warn("shapefile export failed", zap.Error(err))
		}
	}

	log.Info("persisted", zap.Int("points", len(g.Path)), zap.Int("stops", len(st.Stops)))
	return queryOutcome{
		results: []Result{{Key: key, Status: StatusPersisted, RouteID: g.RouteID}},
		geoms:   []*line.Geometry{g},
		stops:   []*line.Stops{st},
	}
}

func failure(key string, err error) queryOutcome {
	return queryOutcome{results: []Result{{Key: key, Status: StatusFailed, Err: err}}}
}

// renderPreview builds offset, jittered render copies of the batch and
// writes the Leaflet document.
func renderPreview(opts Options, geoms []*line.Geometry, stops []*line.Stops) error {
	offsets := offset.Compute(geoms, opts.Offset)

	jitter := opts.Jitter
	if jitter == nil {
		jitter = render.NewJitter(opts.JitterRadius)
	}

	colorByRoute := make(map[string]string, len(geoms))
	routes := make([]render.Route, 0, len(geoms))
	for _, g := range geoms {
		colorByRoute[g.RouteID] = g.Color
		displaced := offset.Apply(g.Path, offsets[g.Key])
		routes = append(routes, render.Route{
			Name:  g.Name,
			Color: g.Color,
			Path:  jitter.Path(displaced),
		})
	}

	markers := render.AggregateStops(stops, colorByRoute)
	for i := range markers {
		markers[i].Coord = jitter.Point(markers[i].Coord)
	}

	return render.WritePreview(opts.PreviewPath, routes, markers)
}

// dedupe removes duplicate keywords preserving first-seen order.
func dedupe(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}
