package http

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"chainview/internal/filter"
	"chainview/internal/services"
	"chainview/internal/summary"
)

const (
	defaultFollowLimit = 100
	maxFollowLimit     = 1000
	fullVoteWeight     = 10000
)

// paramError is an invalid query parameter.
type paramError struct {
	Param string
	Err   error
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Param, e.Err)
}

func (e *paramError) Unwrap() error { return e.Err }

// queryValue returns the trimmed value of key with control characters removed.
func queryValue(q url.Values, key string) string {
	return sanitizeInput(q.Get(key))
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

func parseInt(q url.Values, key string, def int) (int, error) {
	v := queryValue(q, key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &paramError{Param: key, Err: err}
	}
	return n, nil
}

// parseActivityQuery reads the activity and summary query parameters.
// Missing parameters take their defaults: newest page, all directions and
// categories, newest first.
func parseActivityQuery(r *http.Request) (services.ActivityQuery, error) {
	q := r.URL.Query()
	aq := services.ActivityQuery{Account: r.PathValue("account"), Start: -1}

	if v := queryValue(q, "start"); v != "" {
		start, err := strconv.ParseInt(v, 10, 64)
		if err != nil || start < -1 {
			return aq, &paramError{Param: "start", Err: fmt.Errorf("%q is not a sequence index or -1", v)}
		}
		aq.Start = start
	}

	limit, err := parseInt(q, "limit", 0)
	if err != nil {
		return aq, err
	}
	aq.Limit = limit

	if aq.Direction, err = filter.ParseDirection(queryValue(q, "direction")); err != nil {
		return aq, &paramError{Param: "direction", Err: err}
	}
	if aq.Category, err = filter.ParseCategory(queryValue(q, "category")); err != nil {
		return aq, &paramError{Param: "category", Err: err}
	}
	if aq.Sort, err = summary.ParseSortKey(queryValue(q, "sort")); err != nil {
		return aq, &paramError{Param: "sort", Err: err}
	}
	if aq.Order, err = summary.ParseSortOrder(queryValue(q, "order")); err != nil {
		return aq, &paramError{Param: "order", Err: err}
	}
	if v := queryValue(q, "narrow"); v != "" {
		if aq.Narrow, err = strconv.ParseBool(v); err != nil {
			return aq, &paramError{Param: "narrow", Err: err}
		}
	}
	aq.Query = queryValue(q, "q")
	return aq, nil
}

// parseFollowParams reads start and limit for the follow lists.
func parseFollowParams(r *http.Request) (start string, limit int, err error) {
	q := r.URL.Query()
	limit, err = parseInt(q, "limit", defaultFollowLimit)
	if err != nil {
		return "", 0, err
	}
	if limit < 1 || limit > maxFollowLimit {
		return "", 0, &paramError{Param: "limit", Err: fmt.Errorf("must be between 1 and %d", maxFollowLimit)}
	}
	return strings.ToLower(queryValue(q, "start")), limit, nil
}

// parseWeight reads the vote weight in basis points, defaulting to a full vote.
func parseWeight(r *http.Request) (int, error) {
	return parseInt(r.URL.Query(), "weight", fullVoteWeight)
}
