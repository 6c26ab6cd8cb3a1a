// Package worker runs the background activity watcher.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"chainview/internal/amqp"
	"chainview/internal/classifier"
	"chainview/internal/core"
	"chainview/internal/log"
	"chainview/internal/rpc"
)

// maxConcurrentPolls bounds how many accounts are fetched at once.
const maxConcurrentPolls = 4

var ErrNoAccounts = errors.New("no accounts to watch")

// HistorySource loads the most recent history page of an account.
type HistorySource interface {
	FetchHistory(ctx context.Context, account string, start int64, limit int, filter *rpc.OperationFilter) ([]core.RawHistoryEntry, error)
}

// Watcher polls accounts and publishes every newly seen activity item. Cursors
// live in memory only: after a restart the first poll primes them again
// without publishing.
type Watcher struct {
	source    HistorySource
	publisher amqp.Publisher
	accounts  []string
	interval  time.Duration
	limit     int
	logger    *log.Logger

	mu      sync.Mutex
	cursors map[string]int64
}

// NewWatcher validates and de-duplicates accounts.
func NewWatcher(source HistorySource, publisher amqp.Publisher, accounts []string, interval time.Duration, limit int, logger *log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	seen := make(map[string]bool, len(accounts))
	var normalized []string
	for _, a := range accounts {
		name, err := core.NormalizeAccount(a)
		if err != nil {
			return nil, fmt.Errorf("watch account %q: %w", a, err)
		}
		if !seen[name] {
			seen[name] = true
			normalized = append(normalized, name)
		}
	}
	if len(normalized) == 0 {
		return nil, ErrNoAccounts
	}
	if limit < 1 || limit > rpc.MaxHistoryLimit {
		return nil, rpc.ErrInvalidLimit
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		source:    source,
		publisher: publisher,
		accounts:  normalized,
		interval:  interval,
		limit:     limit,
		logger:    logger.WithComponent(log.ComponentWatcher),
		cursors:   make(map[string]int64, len(normalized)),
	}, nil
}

// Accounts returns the watched accounts in configuration order.
func (w *Watcher) Accounts() []string {
	return append([]string(nil), w.accounts...)
}

// Cursor returns the last handled sequence index of account and whether the
// account has been primed.
func (w *Watcher) Cursor(account string) (int64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.cursors[account]
	return c, ok
}

func (w *Watcher) setCursor(account string, seq int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cursors[account] = seq
}

// Run polls immediately and then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Activity watcher started",
		"accounts", w.accounts, "interval", w.interval.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Poll(ctx)
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Activity watcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll checks every account once and returns the number of published items.
// Failures are logged per account and retried on the next poll.
func (w *Watcher) Poll(ctx context.Context) int {
	var (
		mu    sync.Mutex
		total int
	)
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentPolls)
	for _, account := range w.accounts {
		g.Go(func() error {
			n, err := w.pollAccount(ctx, account)
			if err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "Poll failed",
					log.NewFields().WithAccount(account).WithOperation(log.OpPoll).WithError(err).ToSlice()...)
			}
			mu.Lock()
			total += n
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return total
}

// pollAccount publishes entries newer than the cursor in sequence order. The
// cursor advances past each entry only once it is published, so a publish
// failure resumes from the failed entry.
func (w *Watcher) pollAccount(ctx context.Context, account string) (int, error) {
	entries, err := w.source.FetchHistory(ctx, account, -1, w.limit, nil)
	if err != nil {
		return 0, err
	}
	rpc.SortBySequence(entries)

	cursor, primed := w.Cursor(account)
	if !primed {
		latest := int64(-1)
		if n := len(entries); n > 0 {
			latest = entries[n-1].SequenceIndex
		}
		w.setCursor(account, latest)
		w.logger.DebugContext(ctx, "Cursor primed",
			log.NewFields().WithAccount(account).WithSequence(latest).ToSlice()...)
		return 0, nil
	}

	fresh := entries[:0:0]
	for _, e := range entries {
		if e.SequenceIndex > cursor {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if fresh[0].SequenceIndex > cursor+1 && cursor >= 0 {
		w.logger.WarnContext(ctx, "History gap, some entries were not published",
			log.NewFields().WithAccount(account).WithSequence(cursor).ToSlice()...)
	}

	published := 0
	for _, e := range fresh {
		for _, item := range classifier.ClassifyAll([]core.RawHistoryEntry{e}, account) {
			if err := w.publisher.PublishActivity(ctx, amqp.NewActivityMessage(account, item)); err != nil {
				return published, fmt.Errorf("publish %s: %w", item.ID, err)
			}
			published++
		}
		w.setCursor(account, e.SequenceIndex)
	}

	w.logger.InfoContext(ctx, "Published new activity",
		log.NewFields().WithAccount(account).WithItemCount(published).ToSlice()...)
	return published, nil
}
