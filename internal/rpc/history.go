package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"chainview/internal/core"
	"chainview/internal/log"
)

// MaxHistoryLimit is the largest page a node will return.
const MaxHistoryLimit = 1000

// opIDs is the chain's numbering of the operations activity views care about.
// Filter bits are indexed by these ids.
var opIDs = map[string]uint{
	"vote":                      0,
	"comment":                   1,
	"transfer":                  2,
	"transfer_to_vesting":       3,
	"withdraw_vesting":          4,
	"account_update":            10,
	"account_witness_vote":      12,
	"delete_comment":            17,
	"custom_json":               18,
	"comment_options":           19,
	"claim_account":             22,
	"transfer_to_savings":       32,
	"transfer_from_savings":     33,
	"claim_reward_balance":      39,
	"delegate_vesting_shares":   40,
	"recurrent_transfer":        49,
	"author_reward":             51,
	"curation_reward":           52,
	"comment_reward":            53,
	"fill_vesting_withdraw":     56,
	"comment_payout_update":     61,
	"comment_benefactor_reward": 63,
	"producer_reward":           64,
	"effective_comment_vote":    72,
}

// kindOps maps each classified kind to the wire operations that produce it.
var kindOps = map[core.OperationKind][]string{
	core.KindVote:                 {"vote"},
	core.KindComment:              {"comment"},
	core.KindReply:                {"comment"},
	core.KindTransfer:             {"transfer"},
	core.KindCustomJSON:           {"custom_json"},
	core.KindCommentOptions:       {"comment_options"},
	core.KindEffectiveCommentVote: {"effective_comment_vote"},
	core.KindAuthorReward:         {"author_reward"},
	core.KindCurationReward:       {"curation_reward"},
	core.KindBenefactorReward:     {"comment_benefactor_reward"},
}

// OperationFilter is the pair of 64-bit masks get_account_history accepts.
// Bit n of Low selects operation id n for ids below 64; bit n-64 of High
// selects the rest.
type OperationFilter struct {
	Low  uint64
	High uint64
}

// NewOperationFilter builds a filter from wire operation names. Names may carry
// the "_operation" suffix.
func NewOperationFilter(ops ...string) (OperationFilter, error) {
	var f OperationFilter
	for _, op := range ops {
		id, ok := opIDs[core.NormalizeOpName(op)]
		if !ok {
			return OperationFilter{}, fmt.Errorf("unknown operation %q", op)
		}
		if id < 64 {
			f.Low |= 1 << id
		} else {
			f.High |= 1 << (id - 64)
		}
	}
	return f, nil
}

// FilterForKinds builds a filter selecting the operations behind kinds.
// It returns nil when a kind cannot be expressed as a filter (other), meaning
// the caller must fetch unfiltered.
func FilterForKinds(kinds ...core.OperationKind) *OperationFilter {
	var ops []string
	for _, k := range kinds {
		names, ok := kindOps[k]
		if !ok {
			return nil
		}
		ops = append(ops, names...)
	}
	if len(ops) == 0 {
		return nil
	}
	f, err := NewOperationFilter(ops...)
	if err != nil {
		return nil
	}
	return &f
}

// FetchHistory returns one page of account history ending at sequence index
// start (-1 for the most recent), at most limit entries, in node order.
// Rows that cannot be decoded are skipped and logged.
func (c *Client) FetchHistory(ctx context.Context, account string, start int64, limit int, filter *OperationFilter) ([]core.RawHistoryEntry, error) {
	account, err := core.NormalizeAccount(account)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, ErrInvalidLimit
	}
	if start < -1 {
		return nil, fmt.Errorf("invalid start %d", start)
	}
	// nodes reject a start below limit-1
	if start >= 0 && int64(limit) > start+1 {
		limit = int(start + 1)
	}

	params := []any{account, start, limit}
	if filter != nil {
		params = append(params, filter.Low, filter.High)
	}

	var rows []json.RawMessage
	if err := c.Call(ctx, "condenser_api.get_account_history", params, &rows); err != nil {
		return nil, err
	}

	entries := make([]core.RawHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := decodeHistoryRow(row)
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping undecodable history row",
				log.NewFields().
					WithAccount(account).
					WithOperation(log.OpFetchHistory).
					WithError(err).
					ToSlice()...)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SortBySequence orders entries by ascending sequence index in place.
func SortBySequence(entries []core.RawHistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SequenceIndex < entries[j].SequenceIndex
	})
}

var errMalformedRow = errors.New("malformed history row")

type wireHistoryBody struct {
	TrxID      string          `json:"trx_id"`
	Block      int64           `json:"block"`
	TrxInBlock int             `json:"trx_in_block"`
	OpInTrx    int             `json:"op_in_trx"`
	VirtualOp  json.RawMessage `json:"virtual_op"`
	Timestamp  string          `json:"timestamp"`
	Op         json.RawMessage `json:"op"`
}

// decodeHistoryRow decodes [index, {...}] with the operation in either the
// ["name", {...}] or {"type": "name_operation", "value": {...}} encoding.
func decodeHistoryRow(row json.RawMessage) (core.RawHistoryEntry, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(row, &pair); err != nil || len(pair) != 2 {
		return core.RawHistoryEntry{}, errMalformedRow
	}
	var seq int64
	if err := json.Unmarshal(pair[0], &seq); err != nil {
		return core.RawHistoryEntry{}, fmt.Errorf("%w: sequence index: %v", errMalformedRow, err)
	}
	var body wireHistoryBody
	if err := json.Unmarshal(pair[1], &body); err != nil {
		return core.RawHistoryEntry{}, fmt.Errorf("%w: %v", errMalformedRow, err)
	}
	op, err := decodeOperation(body.Op)
	if err != nil {
		return core.RawHistoryEntry{}, err
	}
	return core.RawHistoryEntry{
		SequenceIndex: seq,
		Block:         body.Block,
		TrxID:         body.TrxID,
		TrxInBlock:    body.TrxInBlock,
		OpInTrx:       body.OpInTrx,
		IsVirtual:     truthy(body.VirtualOp),
		Timestamp:     body.Timestamp,
		Operation:     op,
	}, nil
}

func decodeOperation(raw json.RawMessage) (core.Operation, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return core.Operation{}, fmt.Errorf("%w: missing op", errMalformedRow)
	}
	switch raw[0] {
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(raw, &pair); err != nil || len(pair) == 0 {
			return core.Operation{}, fmt.Errorf("%w: op tuple", errMalformedRow)
		}
		var name string
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return core.Operation{}, fmt.Errorf("%w: op name", errMalformedRow)
		}
		op := core.Operation{Kind: name}
		if len(pair) > 1 {
			op.Payload = pair[1]
		}
		return op, nil
	case '{':
		var obj struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Type == "" {
			return core.Operation{}, fmt.Errorf("%w: op object", errMalformedRow)
		}
		return core.Operation{Kind: obj.Type, Payload: obj.Value}, nil
	default:
		return core.Operation{}, fmt.Errorf("%w: op", errMalformedRow)
	}
}

// truthy interprets virtual_op, which nodes send as a bool or a number.
func truthy(raw json.RawMessage) bool {
	s := string(bytes.TrimSpace(raw))
	switch s {
	case "", "null", "false", "0":
		return false
	case "true":
		return true
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n != 0
	}
	return false
}
