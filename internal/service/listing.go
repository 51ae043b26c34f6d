package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/repository"
)

// fetchFunc loads records. unordered asks the store to skip its createdAt ordering.
type fetchFunc[T any] func(ctx context.Context, unordered bool) ([]T, error)

// listNewestFirst asks the store for an ordered listing and falls back to an unordered fetch
// when the store cannot sort. Both paths run through the same in-memory ordering so callers
// always observe createdAt desc with ties broken by id.
func listNewestFirst[T any](ctx context.Context, logger *zap.Logger, listing string, fetch fetchFunc[T], key func(T) (time.Time, string)) ([]T, error) {
	items, err := fetch(ctx, false)
	if err != nil {
		if !errors.Is(err, repository.ErrOrderedQueryUnavailable) {
			return nil, err
		}
		logger.Warn("ordered query unavailable, sorting in memory", zap.String("listing", listing), zap.Error(err))
		items, err = fetch(ctx, true)
		if err != nil {
			return nil, err
		}
	}
	sortNewestFirst(items, key)
	return items, nil
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	slices.SortStableFunc(items, func(a, b T) int {
		at, aid := key(a)
		bt, bid := key(b)
		if c := bt.Compare(at); c != 0 {
			return c
		}
		return strings.Compare(aid, bid)
	})
}
