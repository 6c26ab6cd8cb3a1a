// Package classifier turns raw account history entries into subject-relative
// activity items.
//
// Classification is total: every entry yields an item, malformed payloads
// degrade to best-effort descriptions, and no function here returns an error.
package classifier

import (
	"fmt"
	"math"
	"strings"

	"chainview/internal/core"
)

// Classify converts one history entry into an ActivityItem as seen by subject.
func Classify(entry core.RawHistoryEntry, subject string) core.ActivityItem {
	item, _ := classify(entry, subject)
	return item
}

// ClassifyAll classifies a batch in input order. Entries the classifier marks
// as not representable are skipped. Item IDs are unique within the result: a
// repeated composite key gets a "#n" suffix instead of replacing the earlier item.
func ClassifyAll(entries []core.RawHistoryEntry, subject string) []core.ActivityItem {
	items := make([]core.ActivityItem, 0, len(entries))
	seen := make(map[string]int, len(entries))
	for _, entry := range entries {
		item, ok := classify(entry, subject)
		if !ok {
			continue
		}
		if n, dup := seen[item.ID]; dup {
			seen[item.ID] = n + 1
			item.ID = fmt.Sprintf("%s#%d", item.ID, n+1)
		} else {
			seen[item.ID] = 0
		}
		items = append(items, item)
	}
	return items
}

// classify returns the item and whether it is representable.
func classify(entry core.RawHistoryEntry, subject string) (core.ActivityItem, bool) {
	subject = strings.ToLower(strings.TrimSpace(subject))
	name := core.NormalizeOpName(entry.Operation.Kind)

	item := core.ActivityItem{
		ID:        core.ItemID(entry),
		Timestamp: entry.Timestamp,
		Block:     entry.Block,
		OpName:    name,
	}
	if len(entry.Operation.Payload) > 0 {
		item.RawDetails = append([]byte(nil), entry.Operation.Payload...)
	}

	representable := true
	switch op := decode(name, entry.Operation.Payload).(type) {
	case voteOp:
		classifyVote(&item, op, subject)
	case commentOp:
		classifyComment(&item, op, subject)
	case transferOp:
		classifyTransfer(&item, op, subject)
	case customJSONOp:
		representable = classifyCustomJSON(&item, op)
	case commentOptionsOp:
		classifyCommentOptions(&item, op)
	case effectiveCommentVoteOp:
		classifyEffectiveVote(&item, op, subject)
	case rewardOp:
		classifyReward(&item, op)
	default:
		classifyOther(&item, name)
	}
	return item, representable
}

// directionTowards is "in" when the counterparty named by the operation is the subject.
func directionTowards(target text, subject string) core.Direction {
	if subject != "" && strings.EqualFold(string(target), subject) {
		return core.DirectionIn
	}
	return core.DirectionOut
}

// maxWeight is a full-strength vote in basis points.
const maxWeight = 10000

// weightPercent converts basis points, clamped to -10000..10000, to a whole
// percent, rounding half away from zero so the sign survives.
func weightPercent(bp number) int {
	bp = min(max(bp, -maxWeight), maxWeight)
	return int(math.Round(float64(bp) / 100))
}

func classifyVote(item *core.ActivityItem, op voteOp, subject string) {
	pct := weightPercent(op.Weight)
	item.Kind = core.KindVote
	item.Direction = directionTowards(op.Author, subject)
	item.ExtractedFields = core.ExtractedFields{
		Author:   string(op.Author),
		Permlink: string(op.Permlink),
		Voter:    string(op.Voter),
		Weight:   core.IntPtr(pct),
	}
	if item.Direction == core.DirectionIn {
		item.Description = fmt.Sprintf("Received a %d%% vote from %s on %s/%s", pct, op.Voter, op.Author, op.Permlink)
	} else {
		item.Description = fmt.Sprintf("%s voted %d%% on %s/%s", op.Voter, pct, op.Author, op.Permlink)
	}
}

func classifyComment(item *core.ActivityItem, op commentOp, subject string) {
	item.ExtractedFields = core.ExtractedFields{
		Author:   string(op.Author),
		Permlink: string(op.Permlink),
	}
	if op.ParentAuthor == "" {
		item.Kind = core.KindComment
		item.Direction = core.DirectionOut
		item.Description = fmt.Sprintf("Published post %s/%s", op.Author, op.Permlink)
		if title := strings.TrimSpace(string(op.Title)); title != "" {
			item.Description += fmt.Sprintf(" %q", title)
		}
		return
	}

	item.Kind = core.KindReply
	item.Direction = directionTowards(op.ParentAuthor, subject)
	if item.Direction == core.DirectionIn {
		item.Description = fmt.Sprintf("%s replied to your post %s/%s", op.Author, op.ParentAuthor, op.ParentPermlink)
	} else {
		item.Description = fmt.Sprintf("%s replied to %s/%s", op.Author, op.ParentAuthor, op.ParentPermlink)
	}
}

func classifyTransfer(item *core.ActivityItem, op transferOp, subject string) {
	item.Kind = core.KindTransfer
	item.Direction = directionTowards(op.To, subject)
	item.ExtractedFields = core.ExtractedFields{Amount: string(op.Amount)}
	if item.Direction == core.DirectionIn {
		item.Description = fmt.Sprintf("Received %s from %s", op.Amount, op.From)
	} else {
		item.Description = fmt.Sprintf("Sent %s to %s", op.Amount, op.To)
	}
	if memo := strings.TrimSpace(string(op.Memo)); memo != "" {
		item.Description += " (" + memo + ")"
	}
}

func classifyCommentOptions(item *core.ActivityItem, op commentOptionsOp) {
	item.Kind = core.KindCommentOptions
	item.Direction = core.DirectionOut
	item.ExtractedFields = core.ExtractedFields{
		Author:   string(op.Author),
		Permlink: string(op.Permlink),
	}
	item.Description = fmt.Sprintf("Updated options for %s/%s", op.Author, op.Permlink)
	if op.MaxAcceptedPayout != "" {
		item.Description += fmt.Sprintf(" (max payout %s)", op.MaxAcceptedPayout)
	}
}

// classifyEffectiveVote leaves ExtractedFields.Weight unset. The weight on
// this operation is an rshares-scaled value, not basis points, so it stays in
// RawDetails only.
func classifyEffectiveVote(item *core.ActivityItem, op effectiveCommentVoteOp, subject string) {
	item.Kind = core.KindEffectiveCommentVote
	item.Direction = directionTowards(op.Author, subject)
	item.ExtractedFields = core.ExtractedFields{
		Author:         string(op.Author),
		Permlink:       string(op.Permlink),
		Voter:          string(op.Voter),
		PayoutEstimate: string(op.PendingPayout),
	}
	item.Description = fmt.Sprintf("%s's vote on %s/%s", op.Voter, op.Author, op.Permlink)
	if op.PendingPayout != "" {
		item.Description += fmt.Sprintf(" is worth %s", op.PendingPayout)
	}
}

func classifyReward(item *core.ActivityItem, op rewardOp) {
	author, permlink := op.Author, op.Permlink
	if author == "" {
		author = op.CommentAuthor
	}
	if permlink == "" {
		permlink = op.CommentPermlink
	}

	var label string
	switch op.name {
	case opCurationReward:
		item.Kind = core.KindCurationReward
		label = "Curation reward"
	case opAuthorReward:
		item.Kind = core.KindAuthorReward
		label = "Author reward"
	default:
		item.Kind = core.KindBenefactorReward
		label = "Benefactor reward"
	}
	item.Direction = core.DirectionIn

	payouts := payoutComponents(op.rewardPayload)
	item.ExtractedFields = core.ExtractedFields{
		Author:   string(author),
		Permlink: string(permlink),
		Amount:   strings.Join(payouts, ", "),
	}
	item.Description = fmt.Sprintf("%s for %s/%s", label, author, permlink)
	if len(payouts) > 0 {
		item.Description += ": " + strings.Join(payouts, ", ")
	}
}

// payoutComponents lists the non-zero payouts in currency, liquid, vesting
// order. Each slot takes the first populated field name among its aliases.
func payoutComponents(p rewardPayload) []string {
	slots := [][]amount{
		{p.HBDPayout, p.SBDPayout},
		{p.HivePayout, p.SteemPayout},
		{p.VestingPayout, p.Reward},
	}
	var out []string
	for _, aliases := range slots {
		for _, a := range aliases {
			if a == "" {
				continue
			}
			if !a.isZero() {
				out = append(out, string(a))
			}
			break
		}
	}
	return out
}

func classifyOther(item *core.ActivityItem, name string) {
	if name == "" {
		name = "unknown"
	}
	item.Kind = core.KindOther
	item.Direction = core.DirectionOut
	item.Description = name + " operation"
}
