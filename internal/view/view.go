// Package view holds the in-memory activity view of one account. Refreshes
// race freely: each takes a generation token, cancels its predecessor and
// commits only if no newer refresh has started since.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"chainview/internal/classifier"
	"chainview/internal/core"
	"chainview/internal/filter"
	"chainview/internal/log"
	"chainview/internal/rpc"
	"chainview/internal/summary"
)

var (
	// ErrSuperseded is returned by a refresh whose caller gave up while
	// waiting for the newer refresh that replaced it.
	ErrSuperseded = errors.New("refresh superseded by a newer request")
	// ErrFetchFailed wraps the history fetch error of a failed refresh.
	ErrFetchFailed = errors.New("failed to load")
)

// State is the lifecycle of a snapshot.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// HistoryFetcher loads one page of raw history.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, account string, start int64, limit int, filter *rpc.OperationFilter) ([]core.RawHistoryEntry, error)
}

// PeripheralFetcher loads the profile data shown next to the history.
type PeripheralFetcher interface {
	GetAccount(ctx context.Context, name string) (rpc.Account, error)
	GetFollowCount(ctx context.Context, account string) (rpc.FollowCount, error)
}

// Request selects the history page a refresh loads.
type Request struct {
	Start  int64 // -1 for most recent
	Limit  int
	Filter *rpc.OperationFilter
}

// Snapshot is an immutable committed view state.
type Snapshot struct {
	Generation  uint64              `json:"generation"`
	Account     string              `json:"account"`
	State       State               `json:"state"`
	Items       []core.ActivityItem `json:"items"`
	Base        int64               `json:"base"` // lowest sequence index loaded, -1 if none
	Profile     *rpc.Account        `json:"profile,omitempty"`
	FollowCount *rpc.FollowCount    `json:"follow_count,omitempty"`
	Error       string              `json:"error,omitempty"`
	Retryable   bool                `json:"retryable,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`

	err error
}

// Err returns the fetch error of a failed snapshot.
func (s *Snapshot) Err() error { return s.err }

// Select filters and sorts the snapshot's items and summarizes the result.
// The summary always describes exactly the returned items.
func (s *Snapshot) Select(c filter.Criteria, key summary.SortKey, order summary.SortOrder) ([]core.ActivityItem, summary.Summary) {
	items := summary.SortItems(filter.Apply(s.Items, c), key, order)
	return items, summary.Summarize(items)
}

// Loader owns the view state of a single subject account for one request
// shape. Every refresh of a loader is expected to ask for the same page, so a
// caller whose refresh was superseded can be answered with the newer result.
type Loader struct {
	account    string
	history    HistoryFetcher
	peripheral PeripheralFetcher
	logger     *log.Logger
	now        func() time.Time

	gen     atomic.Uint64
	current atomic.Pointer[Snapshot]

	mu      sync.Mutex
	cancel  context.CancelFunc
	changed chan struct{} // closed and replaced on every commit
}

// NewLoader creates a loader for account. peripheral may be nil to skip
// profile data.
func NewLoader(account string, history HistoryFetcher, peripheral PeripheralFetcher, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Loader{
		account:    account,
		history:    history,
		peripheral: peripheral,
		logger:     logger.WithComponent(log.ComponentView),
		now:        time.Now,
		changed:    make(chan struct{}),
	}
}

func (l *Loader) Account() string { return l.account }

// Current returns the latest committed snapshot, or nil before the first refresh.
func (l *Loader) Current() *Snapshot {
	return l.current.Load()
}

// Refresh loads a page and commits it if no newer refresh has started in the
// meantime. A stale result is never committed: if its fetch still succeeded
// the caller gets its own uncommitted snapshot, otherwise Refresh waits for the
// newer refresh and returns what that one commits. If ctx ends while waiting
// the error wraps both ErrSuperseded and the context error.
//
// A failed history fetch commits a failed snapshot without items and returns
// an error wrapping ErrFetchFailed. When ctx itself ended, the context error
// is returned unwrapped. Peripheral failures do not fail the refresh.
func (l *Loader) Refresh(ctx context.Context, req Request) (*Snapshot, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	gen := l.gen.Add(1)
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	l.mu.Unlock()

	l.commit(gen, l.loading(gen))

	snap := &Snapshot{Generation: gen, Account: l.account, Base: -1}
	var entries []core.RawHistoryEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = l.history.FetchHistory(gctx, l.account, req.Start, req.Limit, req.Filter)
		return err
	})
	if l.peripheral != nil {
		g.Go(func() error {
			l.loadPeripheral(gctx, snap)
			return nil
		})
	}
	fetchErr := g.Wait()

	snap.UpdatedAt = l.now()
	if fetchErr != nil {
		if gen != l.gen.Load() {
			return l.await(parent, gen)
		}
		return l.fail(parent, gen, snap.UpdatedAt, fetchErr)
	}

	items := classifier.ClassifyAll(entries, l.account)
	snap.Items = summary.SortItems(items, summary.SortByTimestamp, summary.Descending)
	snap.State = StateReady
	for _, e := range entries {
		if snap.Base < 0 || e.SequenceIndex < snap.Base {
			snap.Base = e.SequenceIndex
		}
	}
	if !l.commit(gen, snap) {
		l.logger.DebugContext(ctx, "Stale refresh not committed",
			log.NewFields().WithAccount(l.account).WithGeneration(gen).ToSlice()...)
		return snap, nil
	}
	l.logger.DebugContext(ctx, "Activity refreshed",
		log.NewFields().WithAccount(l.account).WithGeneration(gen).WithItemCount(len(snap.Items)).ToSlice()...)
	return snap, nil
}

// fail commits a failed snapshot for gen. A caller whose own context ended
// gets the context error rather than a chain failure.
func (l *Loader) fail(ctx context.Context, gen uint64, at time.Time, fetchErr error) (*Snapshot, error) {
	failed := &Snapshot{
		Generation: gen,
		Account:    l.account,
		State:      StateFailed,
		Base:       -1,
		Error:      ErrFetchFailed.Error(),
		Retryable:  true,
		UpdatedAt:  at,
		err:        fetchErr,
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		failed.err = ctxErr
		if !l.commit(gen, failed) {
			return l.await(ctx, gen)
		}
		l.logger.DebugContext(ctx, "Activity refresh abandoned",
			log.NewFields().WithAccount(l.account).WithGeneration(gen).WithError(ctxErr).ToSlice()...)
		return failed, ctxErr
	}
	if !l.commit(gen, failed) {
		return l.await(ctx, gen)
	}
	l.logger.WarnContext(ctx, "Activity refresh failed",
		log.NewFields().WithAccount(l.account).WithGeneration(gen).WithOperation(log.OpRefresh).WithError(fetchErr).ToSlice()...)
	return failed, fmt.Errorf("%w: %w", ErrFetchFailed, fetchErr)
}

// await blocks until a refresh newer than gen commits a settled snapshot.
func (l *Loader) await(ctx context.Context, gen uint64) (*Snapshot, error) {
	for {
		l.mu.Lock()
		cur, changed := l.current.Load(), l.changed
		l.mu.Unlock()

		if cur != nil && cur.Generation > gen && cur.State != StateLoading {
			if cur.State == StateFailed {
				return cur, fmt.Errorf("%w: %w", ErrFetchFailed, cur.err)
			}
			return cur, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrSuperseded, ctx.Err())
		case <-changed:
		}
	}
}

// loading builds the in-flight snapshot, keeping the previous items visible.
func (l *Loader) loading(gen uint64) *Snapshot {
	s := &Snapshot{Generation: gen, Account: l.account, State: StateLoading, Base: -1, UpdatedAt: l.now()}
	if prev := l.current.Load(); prev != nil && prev.State == StateReady {
		s.Items = prev.Items
		s.Base = prev.Base
		s.Profile = prev.Profile
		s.FollowCount = prev.FollowCount
	}
	return s
}

func (l *Loader) loadPeripheral(ctx context.Context, snap *Snapshot) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if acct, err := l.peripheral.GetAccount(ctx, l.account); err == nil {
			snap.Profile = &acct
		} else {
			l.logger.DebugContext(ctx, "Profile unavailable", log.NewFields().WithAccount(l.account).WithError(err).ToSlice()...)
		}
	}()
	go func() {
		defer wg.Done()
		if fc, err := l.peripheral.GetFollowCount(ctx, l.account); err == nil {
			snap.FollowCount = &fc
		} else {
			l.logger.DebugContext(ctx, "Follow count unavailable", log.NewFields().WithAccount(l.account).WithError(err).ToSlice()...)
		}
	}()
	wg.Wait()
}

// commit stores s if gen is still the latest generation.
func (l *Loader) commit(gen uint64, s *Snapshot) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen.Load() {
		return false
	}
	l.current.Store(s)
	close(l.changed)
	l.changed = make(chan struct{})
	return true
}
