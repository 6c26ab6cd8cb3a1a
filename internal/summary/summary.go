// Package summary derives aggregate views from classified activity items.
package summary

import "chainview/internal/core"

// DateRange is the span of timestamps in a collection. Both ends are nil for an
// empty collection.
type DateRange struct {
	Earliest *string `json:"earliest"`
	Latest   *string `json:"latest"`
}

// Summary is a pure function of an item collection.
type Summary struct {
	Total             int                        `json:"total"`
	CountsByKind      map[core.OperationKind]int `json:"counts_by_kind"`
	CountsByDirection map[core.Direction]int     `json:"counts_by_direction"`
	DateRange         DateRange                  `json:"date_range"`
}

// Summarize counts items by kind and direction and finds their date range.
//
// Timestamps are compared lexically, which orders ISO-8601 strings correctly as
// long as every item uses the same format and offset. The result does not
// depend on the order of items.
func Summarize(items []core.ActivityItem) Summary {
	s := Summary{
		Total:             len(items),
		CountsByKind:      make(map[core.OperationKind]int),
		CountsByDirection: make(map[core.Direction]int),
	}
	var earliest, latest string
	for i, it := range items {
		s.CountsByKind[it.Kind]++
		s.CountsByDirection[it.Direction]++
		if i == 0 || it.Timestamp < earliest {
			earliest = it.Timestamp
		}
		if i == 0 || it.Timestamp > latest {
			latest = it.Timestamp
		}
	}
	if len(items) > 0 {
		s.DateRange = DateRange{Earliest: &earliest, Latest: &latest}
	}
	return s
}
