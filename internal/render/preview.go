package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/transitlab/linemap/internal/line"
)

// Route is the render-only copy of one line: offset-adjusted, jittered, and
// never persisted.
type Route struct {
	Name  string
	Color string
	Path  []line.Coordinate
}

// StopMarker is one aggregated stop marker. Stops shared by several routes
// collapse into a single marker listing all of them.
type StopMarker struct {
	Name   string
	Coord  line.Coordinate
	Color  string
	Routes []string
}

// AggregateStops merges per-route stop lists into one marker per physical
// stop, keyed by name and coordinate rounded to ~0.1 m. The marker border
// takes the color of the first route seen at that stop.
func AggregateStops(all []*line.Stops, colorByRoute map[string]string) []StopMarker {
	type stopKey struct {
		lon, lat float64
		name     string
	}
	merged := make(map[stopKey]*StopMarker)
	var order []stopKey

	round := func(v float64) float64 { return float64(int64(v*1e6)) / 1e6 }

	for _, s := range all {
		for _, stop := range s.Stops {
			k := stopKey{round(stop.Coord.Lon), round(stop.Coord.Lat), stop.Name}
			m, ok := merged[k]
			if !ok {
				m = &StopMarker{
					Name:  stop.Name,
					Coord: stop.Coord,
					Color: colorByRoute[s.RouteID],
				}
				merged[k] = m
				order = append(order, k)
			}
			m.Routes = append(m.Routes, s.Name)
		}
	}

	out := make([]StopMarker, 0, len(merged))
	for _, k := range order {
		m := merged[k]
		sort.Strings(m.Routes)
		m.Routes = dedupe(m.Routes)
		out = append(out, *m)
	}
	return out
}

func dedupe(ss []string) []string {
	out := ss[:0]
	for i, s := range ss {
		if i == 0 || s != ss[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// previewData is the payload injected into the Leaflet template.
type previewData struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	Routes    template.JS
	Stops     template.JS
}

type routeJSON struct {
	Name   string       `json:"name"`
	Color  string       `json:"color"`
	Coords [][2]float64 `json:"coords"` // [lat, lon] as Leaflet expects
}

type stopJSON struct {
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Color  string  `json:"color"`
	Routes string  `json:"routes"`
}

// WritePreview renders the routes and stop markers to a self-contained
// Leaflet HTML document over OpenStreetMap tiles.
func WritePreview(path string, routes []Route, stops []StopMarker) error {
	var centerLat, centerLon float64
	var n int
	rj := make([]routeJSON, 0, len(routes))
	for _, r := range routes {
		coords := make([][2]float64, len(r.Path))
		for i, c := range r.Path {
			coords[i] = [2]float64{c.Lat, c.Lon}
			centerLat += c.Lat
			centerLon += c.Lon
			n++
		}
		rj = append(rj, routeJSON{Name: r.Name, Color: r.Color, Coords: coords})
	}
	if n > 0 {
		centerLat /= float64(n)
		centerLon /= float64(n)
	}

	sj := make([]stopJSON, 0, len(stops))
	for _, s := range stops {
		color := s.Color
		if color == "" {
			color = "black"
		}
		sj = append(sj, stopJSON{
			Name:   s.Name,
			Lat:    s.Coord.Lat,
			Lon:    s.Coord.Lon,
			Color:  color,
			Routes: strings.Join(s.Routes, ", "),
		})
	}

	routesBytes, err := json.Marshal(rj)
	if err != nil {
		return eris.Wrap(err, "render: marshal routes")
	}
	stopsBytes, err := json.Marshal(sj)
	if err != nil {
		return eris.Wrap(err, "render: marshal stops")
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "render: create preview file")
	}
	defer f.Close() //nolint:errcheck

	data := previewData{
		CenterLat: centerLat,
		CenterLon: centerLon,
		Zoom:      12,
		Routes:    template.JS(routesBytes),
		Stops:     template.JS(stopsBytes),
	}
	if err := previewTmpl.Execute(f, data); err != nil {
		return eris.Wrap(err, fmt.Sprintf("render: write preview %s", path))
	}
	return nil
}

var previewTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Route preview</title>
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  maxZoom: 19,
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var routes = {{.Routes}};
routes.forEach(function (r) {
  L.polyline(r.coords, { color: r.color, weight: 5 })
    .bindPopup(r.name)
    .bindTooltip(r.name)
    .addTo(map);
});

var stops = {{.Stops}};
stops.forEach(function (s) {
  L.circleMarker([s.lat, s.lon], {
    radius: 4,
    color: s.color,
    weight: 3,
    fill: true,
    fillColor: 'white',
    fillOpacity: 1
  }).bindPopup('<b>Stop:</b> ' + s.name + '<br><b>Routes:</b> ' + s.routes)
    .addTo(map);
});
</script>
</body>
</html>
`))
