// Package filter narrows a classified activity collection by direction,
// category and free-text search. Every predicate returns a new slice and the
// predicates commute, so they can be applied in any order.
package filter

import (
	"errors"
	"slices"
	"strings"

	"chainview/internal/core"
)

var (
	ErrInvalidDirection = errors.New("invalid direction")
	ErrInvalidCategory  = errors.New("invalid category")
)

// DirectionFilter is a Direction or the "all" sentinel.
type DirectionFilter string

const DirectionAll DirectionFilter = "all"

// Category groups operation kinds the way a reader browses them.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryVotes     Category = "votes"
	CategoryComments  Category = "comments"
	CategoryReplies   Category = "replies"
	CategoryRewards   Category = "rewards"
	CategoryTransfers Category = "transfers"
	CategoryOthers    Category = "others"
)

var categoryKinds = map[Category][]core.OperationKind{
	CategoryVotes:     {core.KindVote, core.KindEffectiveCommentVote},
	CategoryComments:  {core.KindComment, core.KindReply},
	CategoryReplies:   {core.KindComment, core.KindReply},
	CategoryRewards:   {core.KindAuthorReward, core.KindCurationReward, core.KindBenefactorReward},
	CategoryTransfers: {core.KindTransfer},
}

// Criteria combines the three predicates. Zero values keep everything.
type Criteria struct {
	Direction DirectionFilter
	Category  Category
	Query     string
}

// ParseDirection accepts "in", "out", "all" or empty (all).
func ParseDirection(s string) (DirectionFilter, error) {
	switch d := DirectionFilter(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DirectionAll:
		return DirectionAll, nil
	case DirectionFilter(core.DirectionIn), DirectionFilter(core.DirectionOut):
		return d, nil
	default:
		return "", ErrInvalidDirection
	}
}

// ParseCategory accepts a known category name or empty (all).
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "", CategoryAll:
		return CategoryAll, nil
	case CategoryOthers:
		return c, nil
	}
	if _, ok := categoryKinds[c]; ok {
		return c, nil
	}
	return "", ErrInvalidCategory
}

// ByDirection keeps items flowing in direction d.
func ByDirection(items []core.ActivityItem, d DirectionFilter) []core.ActivityItem {
	if d == "" || d == DirectionAll {
		return keep(items, func(core.ActivityItem) bool { return true })
	}
	return keep(items, func(it core.ActivityItem) bool { return DirectionFilter(it.Direction) == d })
}

// Kinds returns the operation kinds c selects, or nil when c is not a closed
// set of kinds (all, others, unknown names).
func (c Category) Kinds() []core.OperationKind {
	return slices.Clone(categoryKinds[c])
}

// ByCategory keeps items whose kind belongs to c. The replies category also
// requires the item to be directed at the subject. Unknown names keep everything.
func ByCategory(items []core.ActivityItem, c Category) []core.ActivityItem {
	return keep(items, func(it core.ActivityItem) bool { return InCategory(it, c) })
}

// InCategory reports whether a single item belongs to c.
func InCategory(it core.ActivityItem, c Category) bool {
	switch c {
	case CategoryReplies:
		return hasKind(categoryKinds[c], it.Kind) && it.Direction == core.DirectionIn
	case CategoryOthers:
		for cat, kinds := range categoryKinds {
			if cat != CategoryReplies && hasKind(kinds, it.Kind) {
				return false
			}
		}
		return true
	}
	kinds, ok := categoryKinds[c]
	if !ok {
		return true
	}
	return hasKind(kinds, it.Kind)
}

// BySearch keeps items whose description, author, permlink or voter contains q,
// ignoring case. A blank query keeps everything.
func BySearch(items []core.ActivityItem, q string) []core.ActivityItem {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return keep(items, func(core.ActivityItem) bool { return true })
	}
	return keep(items, func(it core.ActivityItem) bool { return matches(it, q) })
}

func matches(it core.ActivityItem, q string) bool {
	fields := []string{it.Description, it.ExtractedFields.Author, it.ExtractedFields.Permlink, it.ExtractedFields.Voter}
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

// Apply runs all three predicates.
func Apply(items []core.ActivityItem, c Criteria) []core.ActivityItem {
	return BySearch(ByCategory(ByDirection(items, c.Direction), c.Category), c.Query)
}

func keep(items []core.ActivityItem, pred func(core.ActivityItem) bool) []core.ActivityItem {
	out := make([]core.ActivityItem, 0, len(items))
	for _, it := range items {
		if pred(it) {
			out = append(out, it)
		}
	}
	return out
}

func hasKind(kinds []core.OperationKind, k core.OperationKind) bool {
	for _, known := range kinds {
		if known == k {
			return true
		}
	}
	return false
}
