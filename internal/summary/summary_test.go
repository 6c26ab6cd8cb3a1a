package summary

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainview/internal/core"
)

func items() []core.ActivityItem {
	return []core.ActivityItem{
		{ID: "1", Kind: core.KindVote, Direction: core.DirectionIn, Timestamp: "2024-03-01T12:00:00", Block: 10},
		{ID: "2", Kind: core.KindTransfer, Direction: core.DirectionOut, Timestamp: "2024-02-28T08:30:00", Block: 5},
		{ID: "3", Kind: core.KindVote, Direction: core.DirectionOut, Timestamp: "2024-03-02T00:00:00", Block: 12},
		{ID: "4", Kind: core.KindAuthorReward, Direction: core.DirectionIn, Timestamp: "2024-03-01T12:00:00", Block: 10},
	}
}

func TestSummarizeEmpty(t *testing.T) {
	for _, in := range [][]core.ActivityItem{nil, {}} {
		s := Summarize(in)
		assert.Equal(t, 0, s.Total)
		require.NotNil(t, s.CountsByKind)
		require.NotNil(t, s.CountsByDirection)
		assert.Empty(t, s.CountsByKind)
		assert.Empty(t, s.CountsByDirection)
		assert.Nil(t, s.DateRange.Earliest)
		assert.Nil(t, s.DateRange.Latest)
	}
}

func TestSummarizeCounts(t *testing.T) {
	s := Summarize(items())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, map[core.OperationKind]int{core.KindVote: 2, core.KindTransfer: 1, core.KindAuthorReward: 1}, s.CountsByKind)
	assert.Equal(t, map[core.Direction]int{core.DirectionIn: 2, core.DirectionOut: 2}, s.CountsByDirection)
	require.NotNil(t, s.DateRange.Earliest)
	require.NotNil(t, s.DateRange.Latest)
	assert.Equal(t, "2024-02-28T08:30:00", *s.DateRange.Earliest)
	assert.Equal(t, "2024-03-02T00:00:00", *s.DateRange.Latest)
}

func TestSummarizePermutationInvariant(t *testing.T) {
	base := items()
	want := Summarize(base)
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		perm := append([]core.ActivityItem(nil), base...)
		r.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		assert.Equal(t, want, Summarize(perm))
	}
}

func TestSortItems(t *testing.T) {
	in := items()

	desc := SortItems(in, SortByTimestamp, Descending)
	assert.Equal(t, []string{"3", "1", "4", "2"}, ids(desc))

	asc := SortItems(in, SortByTimestamp, Ascending)
	assert.Equal(t, []string{"2", "1", "4", "3"}, ids(asc))

	byBlock := SortItems(in, SortByBlock, Ascending)
	assert.Equal(t, []string{"2", "1", "4", "3"}, ids(byBlock))

	byKind := SortItems(in, SortByKind, Ascending)
	assert.Equal(t, []string{"4", "2", "1", "3"}, ids(byKind))

	// input untouched
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(in))
}

func TestSortItemsUnparsableTimestamp(t *testing.T) {
	in := []core.ActivityItem{
		{ID: "a", Timestamp: "2024-01-01T00:00:00"},
		{ID: "b", Timestamp: "garbage"},
		{ID: "c", Timestamp: "2023-12-31T23:59:59Z"},
	}
	assert.Equal(t, []string{"b", "c", "a"}, ids(SortItems(in, SortByTimestamp, Ascending)))
}

func TestSortItemsNil(t *testing.T) {
	out := SortItems(nil, SortByTimestamp, Descending)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestParseSort(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortByTimestamp, k)

	k, err = ParseSortKey(" Block ")
	require.NoError(t, err)
	assert.Equal(t, SortByBlock, k)

	_, err = ParseSortKey("author")
	assert.ErrorIs(t, err, ErrInvalidSortKey)

	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, Descending, o)

	_, err = ParseSortOrder("sideways")
	assert.ErrorIs(t, err, ErrInvalidSortOrder)
}

func ids(items []core.ActivityItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
