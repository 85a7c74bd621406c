package stopline_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/tldetector/entity/route"
	"github.com/tsinghua-fib-lab/tldetector/entity/stopline"
	"gonum.org/v1/gonum/spatial/r2"
)

func newTrack(xs ...float64) *route.Track {
	wps := make([]r2.Vec, len(xs))
	for i, x := range xs {
		wps[i] = r2.Vec{X: x}
	}
	track := route.New()
	track.Load(wps)
	return track
}

func TestIndexBuildSortedDistinct(t *testing.T) {
	track := newTrack(0, 10, 20, 30, 40, 50)
	idx := stopline.New()
	err := idx.Build(track, []r2.Vec{{X: 41}, {X: 9, Y: 2}, {X: 39}, {X: 22}})
	require.NoError(t, err)

	if diff := cmp.Diff([]int{1, 2, 4}, idx.Indices()); diff != "" {
		t.Errorf("Indices() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, idx.Len())
	last, ok := idx.Last()
	assert.True(t, ok)
	assert.Equal(t, 4, last)
}

func TestIndexNextAfter(t *testing.T) {
	track := newTrack(0, 10, 20, 30, 40, 50)
	idx := stopline.New()
	require.NoError(t, idx.Build(track, []r2.Vec{{X: 10}, {X: 20}, {X: 40}}))

	cases := []struct {
		query int
		want  int
		ok    bool
	}{
		{0, 1, true},
		{1, 2, true},
		{2, 4, true},
		{3, 4, true},
		{4, 0, false},
		{5, 0, false},
		{-1, 1, true},
	}
	for _, c := range cases {
		got, ok := idx.NextAfter(c.query)
		assert.Equal(t, c.ok, ok, "query %d", c.query)
		if c.ok {
			assert.Equal(t, c.want, got, "query %d", c.query)
		}
	}
}

func TestIndexEmptyConfig(t *testing.T) {
	idx := stopline.New()
	require.NoError(t, idx.Build(newTrack(0, 10), nil))
	_, ok := idx.NextAfter(0)
	assert.False(t, ok)
	_, ok = idx.Last()
	assert.False(t, ok)
	assert.NotNil(t, idx.Indices())
}

func TestIndexEmptyRoute(t *testing.T) {
	idx := stopline.New()
	require.NoError(t, idx.Build(newTrack(0, 10, 20), []r2.Vec{{X: 20}}))
	assert.Equal(t, 1, idx.Len())

	err := idx.Build(route.New(), []r2.Vec{{X: 20}})
	assert.ErrorIs(t, err, route.ErrNoWaypoints)
	assert.Equal(t, 0, idx.Len(), "failed build leaves the index empty")
}

func TestIndexIndicesIsCopy(t *testing.T) {
	idx := stopline.New()
	require.NoError(t, idx.Build(newTrack(0, 10, 20), []r2.Vec{{X: 10}}))
	indices := idx.Indices()
	indices[0] = 100
	next, ok := idx.NextAfter(0)
	assert.True(t, ok)
	assert.Equal(t, 1, next)
}
