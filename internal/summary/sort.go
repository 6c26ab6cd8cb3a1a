package summary

import (
	"errors"
	"slices"
	"strings"
	"time"

	"chainview/internal/core"
)

var (
	ErrInvalidSortKey   = errors.New("invalid sort key")
	ErrInvalidSortOrder = errors.New("invalid sort order")
)

// SortKey selects the field items are ordered by.
type SortKey string

const (
	SortByTimestamp SortKey = "timestamp"
	SortByBlock     SortKey = "block"
	SortByKind      SortKey = "kind"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// timestampLayout is the node's timestamp format: UTC without an offset marker.
const timestampLayout = "2006-01-02T15:04:05"

// ParseSortKey parses a sort key, defaulting to timestamp when s is empty.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByTimestamp, nil
	case SortByTimestamp, SortByBlock, SortByKind:
		return k, nil
	default:
		return "", ErrInvalidSortKey
	}
}

// ParseSortOrder parses a sort order, defaulting to descending when s is empty.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return Descending, nil
	case Ascending, Descending:
		return o, nil
	default:
		return "", ErrInvalidSortOrder
	}
}

// parseTimestamp accepts the node format and RFC 3339. Anything else is the zero time.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// SortItems returns a sorted copy of items. The sort is stable, so items with
// equal keys keep their input order in both directions.
func SortItems(items []core.ActivityItem, key SortKey, order SortOrder) []core.ActivityItem {
	out := slices.Clone(items)
	if out == nil {
		out = []core.ActivityItem{}
	}

	var cmp func(a, b core.ActivityItem) int
	switch key {
	case SortByBlock:
		cmp = func(a, b core.ActivityItem) int { return compareInt64(a.Block, b.Block) }
	case SortByKind:
		cmp = func(a, b core.ActivityItem) int { return strings.Compare(string(a.Kind), string(b.Kind)) }
	default:
		cmp = func(a, b core.ActivityItem) int {
			return parseTimestamp(a.Timestamp).Compare(parseTimestamp(b.Timestamp))
		}
	}
	if order == Descending {
		asc := cmp
		cmp = func(a, b core.ActivityItem) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, cmp)
	return out
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
