package core

import (
	"encoding/json"
	"strings"
)

// OperationKind is the normalized category of a history entry.
type OperationKind string

const (
	KindVote                 OperationKind = "vote"
	KindComment              OperationKind = "comment"
	KindReply                OperationKind = "reply"
	KindTransfer             OperationKind = "transfer"
	KindCustomJSON           OperationKind = "custom_json"
	KindCommentOptions       OperationKind = "comment_options"
	KindEffectiveCommentVote OperationKind = "effective_comment_vote"
	KindAuthorReward         OperationKind = "author_reward"
	KindCurationReward       OperationKind = "curation_reward"
	KindBenefactorReward     OperationKind = "benefactor_reward"
	KindOther                OperationKind = "other"
)

// AllKinds lists every OperationKind in display order.
var AllKinds = []OperationKind{
	KindVote,
	KindComment,
	KindReply,
	KindTransfer,
	KindCustomJSON,
	KindCommentOptions,
	KindEffectiveCommentVote,
	KindAuthorReward,
	KindCurationReward,
	KindBenefactorReward,
	KindOther,
}

// IsValid reports whether k is one of the closed set of kinds.
func (k OperationKind) IsValid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer
func (k OperationKind) String() string {
	return string(k)
}

// Direction tells whether an item flows towards the subject account or away from it.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Operation is the tagged union carried by a history entry: a wire name plus an
// opaque payload that is only decoded by the classifier.
type Operation struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// RawHistoryEntry is one indexed row of an account's history as returned by a node.
type RawHistoryEntry struct {
	SequenceIndex int64     `json:"sequence_index"`
	Block         int64     `json:"block"`
	TrxID         string    `json:"trx_id"`
	TrxInBlock    int       `json:"trx_in_block"`
	OpInTrx       int       `json:"op_in_trx"`
	IsVirtual     bool      `json:"virtual"`
	Timestamp     string    `json:"timestamp"`
	Operation     Operation `json:"op"`
}

// NormalizeOpName lower-cases a wire operation name and strips the
// "_operation" suffix used by the account_history_api encoding.
func NormalizeOpName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, "_operation")
}
