package line

import "hash/fnv"

// palette is the fixed set of marker-safe colors routes are hashed into.
var palette = []string{
	"red", "blue", "green", "purple", "orange", "darkred", "lightred", "beige",
	"darkblue", "darkgreen", "cadetblue", "darkpurple", "pink", "lightblue",
	"lightgreen", "gray", "black", "lightgray",
}

// ColorFor deterministically assigns a palette color to a route key. The same
// key always maps to the same color across runs.
func ColorFor(key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return palette[h.Sum32()%uint32(len(palette))]
}
