package line

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/transitlab/linemap/internal/datum"
	"github.com/transitlab/linemap/pkg/amap"
)

// ErrMalformedGeometry indicates a line-detail record whose coordinate
// payload could not be parsed. Fatal for that line only, never the batch.
var ErrMalformedGeometry = eris.New("line: malformed geometry")

// Extract converts a raw line-detail record into route and stop geometry,
// converting every GCJ-02 point to WGS-84 in path order.
func Extract(key string, detail *amap.Line) (*Geometry, *Stops, error) {
	path, err := parsePolyline(detail.Polyline)
	if err != nil {
		return nil, nil, err
	}

	g := &Geometry{
		Key:         key,
		RouteID:     detail.ID,
		Name:        detail.Name,
		Type:        detail.Type,
		Company:     detail.Company,
		Origin:      detail.StartStop,
		Destination: detail.EndStop,
		Color:       ColorFor(key),
		Path:        path,
	}

	stops := &Stops{
		Key:     key,
		RouteID: detail.ID,
		Name:    detail.Name,
		Stops:   make([]Stop, 0, len(detail.Stops)),
	}
	for _, s := range detail.Stops {
		c, err := parsePoint(s.Location)
		if err != nil {
			return nil, nil, eris.Wrapf(ErrMalformedGeometry, "stop %q: %s", s.Name, err.Error())
		}
		stops.Stops = append(stops.Stops, Stop{Name: s.Name, Coord: c})
	}

	return g, stops, nil
}

// parsePolyline parses a semicolon-separated list of GCJ-02 "lon,lat" pairs
// and converts each to WGS-84. Order is preserved; duplicates are kept.
func parsePolyline(poly string) ([]Coordinate, error) {
	segs := strings.Split(poly, ";")
	path := make([]Coordinate, 0, len(segs))
	for _, seg := range segs {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		c, err := parsePoint(seg)
		if err != nil {
			return nil, eris.Wrapf(ErrMalformedGeometry, "segment %q: %s", seg, err.Error())
		}
		path = append(path, c)
	}
	if len(path) == 0 {
		return nil, eris.Wrap(ErrMalformedGeometry, "empty polyline")
	}
	return path, nil
}

// parsePoint parses one GCJ-02 "lon,lat" string and converts it to WGS-84.
func parsePoint(s string) (Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Coordinate{}, eris.Errorf("want two fields, got %d", len(parts))
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Coordinate{}, eris.Wrap(err, "longitude")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Coordinate{}, eris.Wrap(err, "latitude")
	}
	wlon, wlat := datum.ToWGS84(lon, lat)
	return Coordinate{Lon: wlon, Lat: wlat}, nil
}
