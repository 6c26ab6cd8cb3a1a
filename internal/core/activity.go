package core

import (
	"encoding/json"
	"strconv"
)

// ExtractedFields holds the subset of payload fields an item exposes for search
// and display. Every field is optional.
type ExtractedFields struct {
	Author         string `json:"author,omitempty"`
	Permlink       string `json:"permlink,omitempty"`
	Voter          string `json:"voter,omitempty"`
	Weight         *int   `json:"weight,omitempty"` // percent, sign preserved
	Amount         string `json:"amount,omitempty"`
	PayoutEstimate string `json:"payout_estimate,omitempty"`
	Community      string `json:"community,omitempty"`
}

// ActivityItem is the classified, subject-relative view of one history entry.
type ActivityItem struct {
	ID              string          `json:"id"`
	Kind            OperationKind   `json:"kind"`
	Direction       Direction       `json:"direction"`
	Timestamp       string          `json:"timestamp"`
	Block           int64           `json:"block"`
	Description     string          `json:"description"`
	RawDetails      json.RawMessage `json:"raw_details,omitempty"`
	ExtractedFields ExtractedFields `json:"extracted_fields"`
	OpName          string          `json:"op_name"`
}

// ItemID builds the composite identifier of an entry: sequence index, transaction
// id and position inside the transaction.
func ItemID(e RawHistoryEntry) string {
	return strconv.FormatInt(e.SequenceIndex, 10) + "-" + e.TrxID + "-" + strconv.Itoa(e.OpInTrx)
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
