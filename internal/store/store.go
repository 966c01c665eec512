// Package store persists route and stop geometry as GeoJSON files, one pair
// per query key, and reads them back for cached re-runs. Persisted geometry
// is always the untouched WGS-84 original; offsets and jitter never reach
// this package.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/transitlab/linemap/internal/line"
)

// Store reads and writes per-route geometry files under a single directory.
type Store struct {
	dir string
}

// New creates the output directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "store: create output dir")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string { return s.dir }

// RoutePath returns the route GeoJSON path for a query key.
func (s *Store) RoutePath(key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("route_%s.geojson", line.BaseName(key)))
}

// StopPath returns the stop GeoJSON path for a query key.
func (s *Store) StopPath(key string) string {
	return filepath.Join(s.dir, fmt.Sprintf("stop_%s.geojson", line.BaseName(key)))
}

// Exists reports whether both output files for a key are already present.
func (s *Store) Exists(key string) bool {
	for _, p := range []string{s.RoutePath(key), s.StopPath(key)} {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}

// WriteRoute persists one route as a single LineString feature.
func (s *Store) WriteRoute(g *line.Geometry) error {
	flat := make([]float64, 0, len(g.Path)*2)
	for _, c := range g.Path {
		flat = append(flat, c.Lon, c.Lat)
	}

	fc := &geojson.FeatureCollection{
		Features: []*geojson.Feature{{
			Geometry: geom.NewLineStringFlat(geom.XY, flat),
			Properties: map[string]interface{}{
				"route_id":    g.RouteID,
				"name":        g.Name,
				"type":        g.Type,
				"company":     g.Company,
				"origin":      g.Origin,
				"destination": g.Destination,
				"color":       g.Color,
			},
		}},
	}
	return s.writeJSON(s.RoutePath(g.Key), fc)
}

// WriteStops persists one route's stop list as Point features, in stop order.
func (s *Store) WriteStops(st *line.Stops) error {
	features := make([]*geojson.Feature, 0, len(st.Stops))
	for _, stop := range st.Stops {
		features = append(features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{stop.Coord.Lon, stop.Coord.Lat}),
			Properties: map[string]interface{}{
				"stop_name":  stop.Name,
				"route_id":   st.RouteID,
				"route_name": st.Name,
			},
		})
	}
	return s.writeJSON(s.StopPath(st.Key), &geojson.FeatureCollection{Features: features})
}

// ReadRoute loads a persisted route back into the batch model.
func (s *Store) ReadRoute(key string) (*line.Geometry, error) {
	fc, err := s.readJSON(s.RoutePath(key))
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, eris.Errorf("store: %s: no features", s.RoutePath(key))
	}
	f := fc.Features[0]
	ls, ok := f.Geometry.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("store: %s: expected LineString, got %T", s.RoutePath(key), f.Geometry)
	}

	flat := ls.FlatCoords()
	stride := ls.Stride()
	path := make([]line.Coordinate, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		path = append(path, line.Coordinate{Lon: flat[i], Lat: flat[i+1]})
	}

	g := &line.Geometry{
		Key:         key,
		RouteID:     propString(f.Properties, "route_id"),
		Name:        propString(f.Properties, "name"),
		Type:        propString(f.Properties, "type"),
		Company:     propString(f.Properties, "company"),
		Origin:      propString(f.Properties, "origin"),
		Destination: propString(f.Properties, "destination"),
		Color:       propString(f.Properties, "color"),
		Path:        path,
	}
	if g.Color == "" {
		g.Color = line.ColorFor(key)
	}
	return g, nil
}

// ReadStops loads a persisted stop list back into the batch model.
func (s *Store) ReadStops(key string) (*line.Stops, error) {
	fc, err := s.readJSON(s.StopPath(key))
	if err != nil {
		return nil, err
	}

	st := &line.Stops{Key: key, Stops: make([]line.Stop, 0, len(fc.Features))}
	for _, f := range fc.Features {
		pt, ok := f.Geometry.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("store: %s: expected Point, got %T", s.StopPath(key), f.Geometry)
		}
		if st.RouteID == "" {
			st.RouteID = propString(f.Properties, "route_id")
			st.Name = propString(f.Properties, "route_name")
		}
		st.Stops = append(st.Stops, line.Stop{
			Name:  propString(f.Properties, "stop_name"),
			Coord: line.Coordinate{Lon: pt.X(), Lat: pt.Y()},
		})
	}
	return st, nil
}

func (s *Store) writeJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "store: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, fmt.Sprintf("store: write %s", path))
	}
	return nil
}

func (s *Store) readJSON(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("store: read %s", path))
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("store: parse %s", path))
	}
	return &fc, nil
}

func propString(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}
