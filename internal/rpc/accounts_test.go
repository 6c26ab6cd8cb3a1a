package rpc

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const accountJSON = `[{
  "name":"bob","created":"2020-01-01T00:00:00","post_count":12,"reputation":"95832978796820",
  "json_metadata":"","posting_json_metadata":"{\"profile\":{\"name\":\"Bob\",\"about\":\"writes things\",\"profile_image\":\"https://img/bob.png\"}}",
  "balance":"10.000 HIVE","hbd_balance":"2.000 HBD","savings_balance":"0.000 HIVE",
  "vesting_shares":"1000000.000000 VESTS","delegated_vesting_shares":"100000.000000 VESTS","received_vesting_shares":"50000.000000 VESTS",
  "voting_manabar":{"current_mana":"950000000000","last_update_time":1709294400},
  "last_vote_time":"2024-03-01T12:00:00"
}]`

func TestGetAccount(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		if string(call.Params[0]) == `["bob"]` {
			writeResult(w, accountJSON)
			return
		}
		writeResult(w, `[]`)
	})
	c := testClient(t, node.URL)

	acct, err := c.GetAccount(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", acct.Name)
	assert.Equal(t, "1000000.000000 VESTS", acct.VestingShares.String())
	assert.Equal(t, "950000000000", acct.VotingManabar.CurrentMana.String())
	assert.Equal(t, int64(1709294400), acct.VotingManabar.LastUpdateTime)
	assert.Equal(t, ProfileMetadata{Name: "Bob", About: "writes things", ProfileImage: "https://img/bob.png"}, acct.Profile())

	_, err = c.GetAccount(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestProfileFallsBackToJSONMetadata(t *testing.T) {
	a := Account{PostingJSONMetadata: "{not json", JSONMetadata: `{"profile":{"location":"Rome"}}`}
	assert.Equal(t, "Rome", a.Profile().Location)
	assert.Equal(t, ProfileMetadata{}, Account{}.Profile())
}

func TestFollows(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		switch call.Method {
		case "condenser_api.get_followers":
			writeResult(w, `[{"follower":"carol","following":"bob","what":["blog"]}]`)
		case "condenser_api.get_following":
			writeResult(w, `[{"follower":"bob","following":"dave","what":["blog"]}]`)
		case "condenser_api.get_follow_count":
			writeResult(w, `{"account":"bob","follower_count":10,"following_count":3}`)
		}
	})
	c := testClient(t, node.URL)
	ctx := context.Background()

	followers, err := c.GetFollowers(ctx, "bob", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []FollowEntry{{Follower: "carol", Following: "bob", What: []string{"blog"}}}, followers)
	assert.Equal(t, `"blog"`, string(node.last.Load().Params[2]))

	following, err := c.GetFollowing(ctx, "bob", "carol", 10)
	require.NoError(t, err)
	assert.Equal(t, "dave", following[0].Following)
	assert.Equal(t, `"carol"`, string(node.last.Load().Params[1]))

	count, err := c.GetFollowCount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, 10, count.FollowerCount)
	assert.Equal(t, 3, count.FollowingCount)

	_, err = c.GetFollowers(ctx, "bob", "", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

type countingSource struct {
	calls atomic.Int64
	delay time.Duration
}

func (s *countingSource) GetDynamicGlobalProperties(ctx context.Context) (DynamicGlobalProperties, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return DynamicGlobalProperties{HeadBlockNumber: 7}, nil
}

func (s *countingSource) GetFeedHistory(ctx context.Context) (FeedHistory, error) {
	s.calls.Add(1)
	return FeedHistory{}, nil
}

func (s *countingSource) GetRewardFund(ctx context.Context, name string) (RewardFund, error) {
	s.calls.Add(1)
	return RewardFund{Name: name}, nil
}

func TestCachedGlobalsSharesConcurrentMisses(t *testing.T) {
	src := &countingSource{delay: 20 * time.Millisecond}
	g := NewCachedGlobals(src, 8, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			props, err := g.GetDynamicGlobalProperties(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, int64(7), props.HeadBlockNumber)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), src.calls.Load())

	_, err := g.GetDynamicGlobalProperties(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), src.calls.Load())
	assert.GreaterOrEqual(t, g.Cache().Stats().Hits, uint64(1))
}

func TestCachedGlobalsKeysRewardFundsByName(t *testing.T) {
	src := &countingSource{}
	g := NewCachedGlobals(src, 8, time.Minute)
	ctx := context.Background()

	post, err := g.GetRewardFund(ctx, "post")
	require.NoError(t, err)
	assert.Equal(t, "post", post.Name)
	other, err := g.GetRewardFund(ctx, "comment")
	require.NoError(t, err)
	assert.Equal(t, "comment", other.Name)
	_, _ = g.GetRewardFund(ctx, "post")
	assert.Equal(t, int64(2), src.calls.Load())
}

func TestCachedGlobalsCallerCancellation(t *testing.T) {
	src := &countingSource{delay: 200 * time.Millisecond}
	g := NewCachedGlobals(src, 8, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := g.GetDynamicGlobalProperties(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
