package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainview/internal/core"
)

func sample() []core.ActivityItem {
	return []core.ActivityItem{
		{ID: "v-in", Kind: core.KindVote, Direction: core.DirectionIn, Description: "Received a 50% vote from carol on bob/post-1",
			ExtractedFields: core.ExtractedFields{Author: "bob", Permlink: "post-1", Voter: "carol"}},
		{ID: "v-out", Kind: core.KindVote, Direction: core.DirectionOut, Description: "bob voted 100% on dave/p",
			ExtractedFields: core.ExtractedFields{Author: "dave", Permlink: "p", Voter: "bob"}},
		{ID: "ecv", Kind: core.KindEffectiveCommentVote, Direction: core.DirectionIn, Description: "carol's vote on bob/post-1 is worth 0.100 HBD"},
		{ID: "post", Kind: core.KindComment, Direction: core.DirectionOut, Description: "Published post bob/hello"},
		{ID: "reply-in", Kind: core.KindReply, Direction: core.DirectionIn, Description: "carol replied to your post bob/hello"},
		{ID: "reply-out", Kind: core.KindReply, Direction: core.DirectionOut, Description: "bob replied to dave/p"},
		{ID: "xfer", Kind: core.KindTransfer, Direction: core.DirectionIn, Description: "Received 5.000 TOKEN from alice (thanks)"},
		{ID: "reward", Kind: core.KindAuthorReward, Direction: core.DirectionIn, Description: "Author reward for bob/post-1: 1.000 HBD"},
		{ID: "cj", Kind: core.KindCustomJSON, Direction: core.DirectionOut, Description: "custom operation: sm_market"},
		{ID: "other", Kind: core.KindOther, Direction: core.DirectionOut, Description: "claim_account operation"},
		{ID: "opts", Kind: core.KindCommentOptions, Direction: core.DirectionOut, Description: "Updated options for bob/hello"},
	}
}

func ids(items []core.ActivityItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestByDirection(t *testing.T) {
	assert.Len(t, ByDirection(sample(), DirectionAll), 11)
	assert.Len(t, ByDirection(sample(), ""), 11)
	assert.Equal(t, []string{"v-in", "ecv", "reply-in", "xfer", "reward"}, ids(ByDirection(sample(), "in")))
}

func TestByCategory(t *testing.T) {
	cases := []struct {
		c    Category
		want []string
	}{
		{CategoryVotes, []string{"v-in", "v-out", "ecv"}},
		{CategoryComments, []string{"post", "reply-in", "reply-out"}},
		{CategoryReplies, []string{"reply-in"}},
		{CategoryRewards, []string{"reward"}},
		{CategoryTransfers, []string{"xfer"}},
		{CategoryOthers, []string{"cj", "other", "opts"}},
		{CategoryAll, ids(sample())},
		{Category("bogus"), ids(sample())},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ids(ByCategory(sample(), tc.c)), "category %s", tc.c)
	}
}

func TestBySearch(t *testing.T) {
	assert.Equal(t, []string{"v-in", "ecv", "reply-in"}, ids(BySearch(sample(), "CAROL")))
	assert.Equal(t, []string{"v-out", "reply-out"}, ids(BySearch(sample(), "dave")))
	assert.Len(t, BySearch(sample(), "   "), 11)
	assert.Empty(t, BySearch(sample(), "nobody-here"))
}

func TestFiltersCommute(t *testing.T) {
	dirs := []DirectionFilter{DirectionAll, "in", "out"}
	cats := []Category{CategoryAll, CategoryVotes, CategoryComments, CategoryReplies, CategoryRewards, CategoryTransfers, CategoryOthers}
	for _, d := range dirs {
		for _, c := range cats {
			a := ByCategory(ByDirection(sample(), d), c)
			b := ByDirection(ByCategory(sample(), c), d)
			assert.Equal(t, ids(a), ids(b), "direction %s category %s", d, c)

			s1 := BySearch(ByCategory(sample(), c), "bob")
			s2 := ByCategory(BySearch(sample(), "bob"), c)
			assert.Equal(t, ids(s1), ids(s2))
		}
	}
}

func TestFiltersDoNotMutate(t *testing.T) {
	in := sample()
	out := ByDirection(in, "out")
	require.NotEmpty(t, out)
	out[0].Description = "changed"
	assert.Equal(t, sample(), in)
}

func TestApply(t *testing.T) {
	got := Apply(sample(), Criteria{Direction: "in", Category: CategoryVotes, Query: "post-1"})
	assert.Equal(t, []string{"v-in", "ecv"}, ids(got))
	assert.Len(t, Apply(sample(), Criteria{}), 11)
}

func TestParse(t *testing.T) {
	d, err := ParseDirection("IN")
	require.NoError(t, err)
	assert.Equal(t, DirectionFilter("in"), d)
	d, err = ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, DirectionAll, d)
	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidDirection)

	c, err := ParseCategory("Rewards")
	require.NoError(t, err)
	assert.Equal(t, CategoryRewards, c)
	c, err = ParseCategory("others")
	require.NoError(t, err)
	assert.Equal(t, CategoryOthers, c)
	_, err = ParseCategory("bogus")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestCategoryKinds(t *testing.T) {
	assert.Equal(t, []core.OperationKind{core.KindTransfer}, CategoryTransfers.Kinds())
	assert.Nil(t, CategoryAll.Kinds())
	assert.Nil(t, CategoryOthers.Kinds())

	k := CategoryVotes.Kinds()
	k[0] = core.KindOther
	assert.Equal(t, core.KindVote, CategoryVotes.Kinds()[0], "returned slice is a copy")
}
