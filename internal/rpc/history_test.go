package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainview/internal/core"
)

const historyPage = `[
  [41, {"trx_id":"aa","block":100,"trx_in_block":1,"op_in_trx":0,"virtual_op":false,"timestamp":"2024-03-01T12:00:00",
        "op":["vote",{"voter":"carol","author":"bob","permlink":"p","weight":5000}]}],
  [42, {"trx_id":"0000000000000000000000000000000000000000","block":101,"trx_in_block":2,"op_in_trx":1,"virtual_op":1,"timestamp":"2024-03-01T12:00:03",
        "op":{"type":"author_reward_operation","value":{"author":"bob","permlink":"p","hbd_payout":"1.000 HBD"}}}],
  ["broken"],
  [43, {"trx_id":"bb","block":102,"op":42}],
  [44, {"trx_id":"cc","block":103,"trx_in_block":0,"op_in_trx":0,"virtual_op":0,"timestamp":"2024-03-01T12:00:06",
        "op":["transfer",{"from":"alice","to":"bob","amount":"5.000 TOKEN","memo":"thanks"}]}]
]`

func TestFetchHistoryDecodesBothEncodings(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		writeResult(w, historyPage)
	})
	c := testClient(t, node.URL)

	entries, err := c.FetchHistory(context.Background(), "Bob", -1, 100, nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	vote := entries[0]
	assert.Equal(t, int64(41), vote.SequenceIndex)
	assert.Equal(t, "vote", vote.Operation.Kind)
	assert.False(t, vote.IsVirtual)
	assert.JSONEq(t, `{"voter":"carol","author":"bob","permlink":"p","weight":5000}`, string(vote.Operation.Payload))

	reward := entries[1]
	assert.Equal(t, "author_reward_operation", reward.Operation.Kind)
	assert.True(t, reward.IsVirtual)
	assert.Equal(t, 1, reward.OpInTrx)
	assert.Equal(t, int64(101), reward.Block)

	assert.Equal(t, int64(44), entries[2].SequenceIndex)

	call := node.last.Load()
	assert.Equal(t, "condenser_api.get_account_history", call.Method)
	require.Len(t, call.Params, 3)
	assert.Equal(t, `"bob"`, string(call.Params[0]))
	assert.Equal(t, `-1`, string(call.Params[1]))
	assert.Equal(t, `100`, string(call.Params[2]))
}

func TestFetchHistoryWithFilterAndClampedLimit(t *testing.T) {
	node := newFakeNode(t, func(w http.ResponseWriter, call rpcCall) {
		writeResult(w, `[]`)
	})
	c := testClient(t, node.URL)

	filter, err := NewOperationFilter("vote", "effective_comment_vote")
	require.NoError(t, err)
	entries, err := c.FetchHistory(context.Background(), "bob", 9, 50, &filter)
	require.NoError(t, err)
	assert.Empty(t, entries)

	call := node.last.Load()
	require.Len(t, call.Params, 5)
	assert.Equal(t, `10`, string(call.Params[2]))
	assert.Equal(t, `1`, string(call.Params[3]))
	assert.Equal(t, `256`, string(call.Params[4]))
}

func TestFetchHistoryValidatesArguments(t *testing.T) {
	c := testClient(t, "http://127.0.0.1:1")
	ctx := context.Background()

	_, err := c.FetchHistory(ctx, "x", -1, 10, nil)
	assert.ErrorIs(t, err, core.ErrInvalidAccount)
	_, err = c.FetchHistory(ctx, "bob", -1, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = c.FetchHistory(ctx, "bob", -1, 1001, nil)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	_, err = c.FetchHistory(ctx, "bob", -2, 10, nil)
	assert.Error(t, err)
}

func TestNewOperationFilter(t *testing.T) {
	f, err := NewOperationFilter("vote")
	require.NoError(t, err)
	assert.Equal(t, OperationFilter{Low: 1}, f)

	f, err = NewOperationFilter("comment_operation", "custom_json", "author_reward", "effective_comment_vote")
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<1|1<<18|1<<51), f.Low)
	assert.Equal(t, uint64(1<<8), f.High)

	_, err = NewOperationFilter("teleport")
	assert.Error(t, err)
}

func TestFilterForKinds(t *testing.T) {
	f := FilterForKinds(core.KindComment, core.KindReply)
	require.NotNil(t, f)
	assert.Equal(t, OperationFilter{Low: 1 << 1}, *f)

	f = FilterForKinds(core.KindBenefactorReward)
	require.NotNil(t, f)
	assert.Equal(t, uint64(1<<63), f.Low)

	assert.Nil(t, FilterForKinds(core.KindVote, core.KindOther))
	assert.Nil(t, FilterForKinds())
}

func TestTruthy(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "1": true, "2": true, "false": false, "0": false, "": false, "null": false, `"yes"`: false} {
		assert.Equal(t, want, truthy(json.RawMessage(raw)), raw)
	}
}

func TestSortBySequence(t *testing.T) {
	entries := []core.RawHistoryEntry{{SequenceIndex: 3}, {SequenceIndex: 1}, {SequenceIndex: 2}}
	SortBySequence(entries)
	assert.Equal(t, []int64{1, 2, 3}, []int64{entries[0].SequenceIndex, entries[1].SequenceIndex, entries[2].SequenceIndex})
}
