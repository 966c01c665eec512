package store

import (
	"fmt"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/transitlab/linemap/internal/line"
)

// WriteShapefile exports one route as an ESRI shapefile polyline next to its
// GeoJSON outputs, for GIS tools that do not consume GeoJSON.
func (s *Store) WriteShapefile(g *line.Geometry) error {
	path := filepath.Join(s.dir, fmt.Sprintf("route_%s.shp", line.BaseName(g.Key)))

	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("store: create shapefile %s", path))
	}
	defer w.Close() //nolint:errcheck

	fields := []shp.Field{
		shp.StringField("NAME", 64),
		shp.StringField("ROUTE_ID", 16),
		shp.StringField("COMPANY", 64),
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "store: set shapefile fields")
	}

	points := make([]shp.Point, len(g.Path))
	for i, c := range g.Path {
		points[i] = shp.Point{X: c.Lon, Y: c.Lat}
	}
	w.Write(shp.NewPolyLine([][]shp.Point{points}))

	if err := w.WriteAttribute(0, 0, g.Name); err != nil {
		return eris.Wrap(err, "store: write shapefile name")
	}
	if err := w.WriteAttribute(0, 1, g.RouteID); err != nil {
		return eris.Wrap(err, "store: write shapefile route id")
	}
	if err := w.WriteAttribute(0, 2, g.Company); err != nil {
		return eris.Wrap(err, "store: write shapefile company")
	}
	return nil
}
