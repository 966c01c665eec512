package line

import (
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/transitlab/linemap/pkg/amap"
)

// ErrNoCandidate indicates a line-name search produced no usable candidate.
var ErrNoCandidate = eris.New("line: no candidate with numeric id")

// SelectCandidate picks the canonical line from a search result set: the
// candidate with the smallest numeric id, ties broken by first-seen order.
// Candidates whose id does not parse as an integer are excluded.
func SelectCandidate(cands []amap.Line) (amap.Line, error) {
	best := -1
	var bestID int64
	for i, c := range cands {
		id, err := strconv.ParseInt(c.ID, 10, 64)
		if err != nil {
			continue
		}
		if best < 0 || id < bestID {
			best = i
			bestID = id
		}
	}
	if best < 0 {
		return amap.Line{}, ErrNoCandidate
	}
	return cands[best], nil
}

// SelectBothDirections picks the two candidates with the smallest distinct
// numeric ids, keeping both directions of a bidirectional line. When only one
// usable candidate exists it returns just that one.
func SelectBothDirections(cands []amap.Line) ([]amap.Line, error) {
	first, err := SelectCandidate(cands)
	if err != nil {
		return nil, err
	}

	rest := make([]amap.Line, 0, len(cands))
	for _, c := range cands {
		if c.ID != first.ID {
			rest = append(rest, c)
		}
	}

	second, err := SelectCandidate(rest)
	if err != nil {
		return []amap.Line{first}, nil
	}
	return []amap.Line{first, second}, nil
}
