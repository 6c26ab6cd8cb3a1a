package classifier

import "encoding/json"

// operation is the closed set of payload shapes the classifier understands.
// Each recognized wire name decodes into exactly one of the types below;
// everything else becomes unknownOp.
type operation interface {
	isOperation()
}

type voteOp struct {
	Voter    text   `json:"voter"`
	Author   text   `json:"author"`
	Permlink text   `json:"permlink"`
	Weight   number `json:"weight"`
}

type commentOp struct {
	Author         text `json:"author"`
	Permlink       text `json:"permlink"`
	ParentAuthor   text `json:"parent_author"`
	ParentPermlink text `json:"parent_permlink"`
	Title          text `json:"title"`
}

type transferOp struct {
	From   text   `json:"from"`
	To     text   `json:"to"`
	Amount amount `json:"amount"`
	Memo   text   `json:"memo"`
}

type customJSONOp struct {
	ID                   text  `json:"id"`
	RequiredAuths        names `json:"required_auths"`
	RequiredPostingAuths names `json:"required_posting_auths"`
	JSON                 body  `json:"json"`
}

type commentOptionsOp struct {
	Author            text   `json:"author"`
	Permlink          text   `json:"permlink"`
	MaxAcceptedPayout amount `json:"max_accepted_payout"`
}

type effectiveCommentVoteOp struct {
	Voter         text   `json:"voter"`
	Author        text   `json:"author"`
	Permlink      text   `json:"permlink"`
	PendingPayout amount `json:"pending_payout"`
	Weight        number `json:"weight"`
}

// rewardPayload is the union of the field names used by the three reward
// operations across node versions.
type rewardPayload struct {
	Author          text   `json:"author"`
	Permlink        text   `json:"permlink"`
	CommentAuthor   text   `json:"comment_author"`
	CommentPermlink text   `json:"comment_permlink"`
	Curator         text   `json:"curator"`
	Benefactor      text   `json:"benefactor"`
	HBDPayout       amount `json:"hbd_payout"`
	SBDPayout       amount `json:"sbd_payout"`
	HivePayout      amount `json:"hive_payout"`
	SteemPayout     amount `json:"steem_payout"`
	VestingPayout   amount `json:"vesting_payout"`
	Reward          amount `json:"reward"`
}

type rewardOp struct {
	rewardPayload
	name string
}

type unknownOp struct {
	name string
}

func (voteOp) isOperation()                 {}
func (commentOp) isOperation()              {}
func (transferOp) isOperation()             {}
func (customJSONOp) isOperation()           {}
func (commentOptionsOp) isOperation()       {}
func (effectiveCommentVoteOp) isOperation() {}
func (rewardOp) isOperation()               {}
func (unknownOp) isOperation()              {}

// Wire names of the reward operations.
const (
	opAuthorReward     = "author_reward"
	opCurationReward   = "curation_reward"
	opBenefactorReward = "comment_benefactor_reward"
)

// decode maps a normalized wire name and payload onto the operation sum type.
func decode(name string, payload json.RawMessage) operation {
	switch name {
	case "vote":
		var op voteOp
		decodeInto(payload, &op)
		return op
	case "comment":
		var op commentOp
		decodeInto(payload, &op)
		return op
	case "transfer":
		var op transferOp
		decodeInto(payload, &op)
		return op
	case "custom_json":
		var op customJSONOp
		decodeInto(payload, &op)
		return op
	case "comment_options":
		var op commentOptionsOp
		decodeInto(payload, &op)
		return op
	case "effective_comment_vote":
		var op effectiveCommentVoteOp
		decodeInto(payload, &op)
		return op
	case opAuthorReward, opCurationReward, opBenefactorReward, "benefactor_reward":
		op := rewardOp{name: name}
		decodeInto(payload, &op.rewardPayload)
		return op
	default:
		return unknownOp{name: name}
	}
}
