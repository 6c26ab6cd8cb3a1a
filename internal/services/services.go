// Package services composes the fetcher, classifier, filters and view state
// into the read operations the HTTP layer exposes.
package services

import (
	"context"
	"errors"
	"fmt"

	"chainview/internal/rpc"
	"chainview/internal/view"
)

var (
	// ErrFetchFailed marks any failure to load data from the chain.
	ErrFetchFailed = view.ErrFetchFailed
	// ErrSuperseded is returned when a caller gave up waiting for the newer
	// request that replaced its own.
	ErrSuperseded = view.ErrSuperseded
)

// AccountSource is the account-level slice of the RPC client.
type AccountSource interface {
	GetAccount(ctx context.Context, name string) (rpc.Account, error)
	GetFollowCount(ctx context.Context, account string) (rpc.FollowCount, error)
	GetFollowers(ctx context.Context, account, start string, limit int) ([]rpc.FollowEntry, error)
	GetFollowing(ctx context.Context, account, start string, limit int) ([]rpc.FollowEntry, error)
}

// fetchFailed wraps transport and protocol errors with ErrFetchFailed and
// passes everything else through.
func fetchFailed(err error) error {
	if err == nil || errors.Is(err, ErrFetchFailed) || !rpc.IsFetchError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailed, err)
}
