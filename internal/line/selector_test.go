package line

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitlab/linemap/pkg/amap"
)

func cands(ids ...string) []amap.Line {
	out := make([]amap.Line, len(ids))
	for i, id := range ids {
		out[i] = amap.Line{ID: id, Name: "line-" + id}
	}
	return out
}

func TestSelectCandidate_MinNumericID(t *testing.T) {
	got, err := SelectCandidate(cands("102", "57", "89"))
	require.NoError(t, err)
	assert.Equal(t, "57", got.ID)
}

func TestSelectCandidate_SkipsNonNumeric(t *testing.T) {
	got, err := SelectCandidate(cands("abc", "12"))
	require.NoError(t, err)
	assert.Equal(t, "12", got.ID)
}

func TestSelectCandidate_Empty(t *testing.T) {
	_, err := SelectCandidate(nil)
	assert.True(t, eris.Is(err, ErrNoCandidate))
}

func TestSelectCandidate_NoneNumeric(t *testing.T) {
	_, err := SelectCandidate(cands("abc", "x9"))
	assert.True(t, eris.Is(err, ErrNoCandidate))
}

func TestSelectCandidate_TieFirstSeen(t *testing.T) {
	input := []amap.Line{
		{ID: "42", Name: "first"},
		{ID: "42", Name: "second"},
	}
	got, err := SelectCandidate(input)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
}

func TestSelectBothDirections(t *testing.T) {
	got, err := SelectBothDirections(cands("301", "299", "450"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "299", got[0].ID)
	assert.Equal(t, "301", got[1].ID)
}

func TestSelectBothDirections_SingleCandidate(t *testing.T) {
	got, err := SelectBothDirections(cands("7"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "7", got[0].ID)
}

func TestSelectBothDirections_Empty(t *testing.T) {
	_, err := SelectBothDirections(nil)
	assert.True(t, eris.Is(err, ErrNoCandidate))
}
