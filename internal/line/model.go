// Package line holds the route geometry model and the steps that produce it
// from raw provider records: candidate selection and geometry extraction.
package line

// Coordinate is a WGS-84 longitude/latitude pair. Raw GCJ-02 values never
// enter this model; they exist only as provider strings and are converted
// during extraction.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Geometry is one route's path, keyed by the query that produced it. Path
// order encodes direction of travel and is never reordered or deduplicated.
type Geometry struct {
	Key         string
	RouteID     string
	Name        string
	Type        string
	Company     string
	Origin      string
	Destination string
	Color       string
	Path        []Coordinate
}

// Stops is the ordered stop list for one route.
type Stops struct {
	Key     string
	RouteID string
	Name    string
	Stops   []Stop
}

// Stop pairs a stop name with its WGS-84 location.
type Stop struct {
	Name  string
	Coord Coordinate
}
