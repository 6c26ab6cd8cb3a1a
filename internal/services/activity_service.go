package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chainview/internal/cache"
	"chainview/internal/core"
	"chainview/internal/filter"
	"chainview/internal/log"
	"chainview/internal/rpc"
	"chainview/internal/summary"
	"chainview/internal/view"
)

// ActivityQuery selects and shapes one page of an account's activity.
type ActivityQuery struct {
	Account   string
	Start     int64 // -1 for most recent
	Limit     int   // 0 for the configured default
	Direction filter.DirectionFilter
	Category  filter.Category
	Query     string
	Sort      summary.SortKey
	Order     summary.SortOrder

	// Narrow asks the node to return only the kinds the category selects,
	// so a page holds Limit matching entries instead of Limit raw ones.
	Narrow bool
}

// ActivityPage is the filtered, sorted page with a summary of exactly its items.
type ActivityPage struct {
	Account    string              `json:"account"`
	Generation uint64              `json:"generation"`
	Items      []core.ActivityItem `json:"items"`
	Summary    summary.Summary     `json:"summary"`

	// Base is the lowest sequence index loaded. The next older page starts at Base-1.
	Base int64 `json:"base"`
}

// ActivityService serves activity pages through one view loader per account
// and page shape. Requests for different pages never interfere. A repeated
// request for the same page supersedes the one in flight, whose caller is
// answered with the newer result.
type ActivityService struct {
	history      view.HistoryFetcher
	peripheral   view.PeripheralFetcher
	defaultLimit int
	logger       *log.Logger

	mu      sync.Mutex
	loaders *cache.LRUCache[*view.Loader]
}

// NewActivityService keeps up to size loaders, each for ttl after last use.
func NewActivityService(history view.HistoryFetcher, peripheral view.PeripheralFetcher, defaultLimit, size int, ttl time.Duration, logger *log.Logger) *ActivityService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if defaultLimit < 1 {
		defaultLimit = 100
	}
	return &ActivityService{
		history:      history,
		peripheral:   peripheral,
		defaultLimit: defaultLimit,
		logger:       logger.WithComponent(log.ComponentActivity),
		loaders:      cache.NewLRUCache[*view.Loader](size, ttl),
	}
}

// Loaders exposes the loader cache so it can be registered for sweeping.
func (s *ActivityService) Loaders() *cache.LRUCache[*view.Loader] {
	return s.loaders
}

// loader returns the loader for one page shape of account and marks it as
// the account's latest view. Page keys contain '|', which account names
// cannot, so both kinds of key share one cache.
func (s *ActivityService) loader(account string, req view.Request) *view.Loader {
	key := pageKey(account, req)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loaders.Get(key)
	if !ok {
		l = view.NewLoader(account, s.history, s.peripheral, s.logger)
		s.loaders.Set(key, l)
	}
	s.loaders.Set(account, l)
	return l
}

func pageKey(account string, req view.Request) string {
	key := fmt.Sprintf("%s|%d|%d", account, req.Start, req.Limit)
	if req.Filter != nil {
		key += fmt.Sprintf("|%x.%x", req.Filter.Low, req.Filter.High)
	}
	return key
}

// Activity refreshes the account's view and returns the page shaped by q.
func (s *ActivityService) Activity(ctx context.Context, q ActivityQuery) (*ActivityPage, error) {
	account, err := core.NormalizeAccount(q.Account)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit == 0 {
		limit = s.defaultLimit
	}
	if limit < 1 || limit > rpc.MaxHistoryLimit {
		return nil, rpc.ErrInvalidLimit
	}
	start := q.Start
	if start < -1 {
		start = -1
	}

	req := view.Request{Start: start, Limit: limit}
	if q.Narrow {
		req.Filter = rpc.FilterForKinds(q.Category.Kinds()...)
	}

	snap, err := s.loader(account, req).Refresh(ctx, req)
	if err != nil {
		return nil, err
	}

	if q.Sort == "" {
		q.Sort = summary.SortByTimestamp
	}
	if q.Order == "" {
		q.Order = summary.Descending
	}
	items, sum := snap.Select(filter.Criteria{
		Direction: q.Direction,
		Category:  q.Category,
		Query:     q.Query,
	}, q.Sort, q.Order)

	s.logger.DebugContext(ctx, "Activity page built",
		log.NewFields().WithAccount(account).WithPage(start, limit).WithItemCount(len(items)).ToSlice()...)

	return &ActivityPage{
		Account:    account,
		Generation: snap.Generation,
		Items:      items,
		Summary:    sum,
		Base:       snap.Base,
	}, nil
}

// Snapshot returns the current state of the account's most recently requested
// view without fetching, or nil if the account has no live view.
func (s *ActivityService) Snapshot(account string) (*view.Snapshot, error) {
	account, err := core.NormalizeAccount(account)
	if err != nil {
		return nil, err
	}
	if l, ok := s.loaders.Get(account); ok {
		return l.Current(), nil
	}
	return nil, nil
}
