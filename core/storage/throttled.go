package storage

import (
	"context"
	"fmt"

	"github.com/sushant-115/gojorel/core/domain"
	"golang.org/x/time/rate"
)

// ThrottledStore limits the rate of loads against the wrapped store. Saves
// are not throttled.
type ThrottledStore struct {
	Store
	limiter *rate.Limiter
}

// NewThrottledStore wraps store with a token bucket of the given rate and
// burst. A burst below one is raised to one.
func NewThrottledStore(store Store, limit rate.Limit, burst int) *ThrottledStore {
	if burst < 1 {
		burst = 1
	}
	return &ThrottledStore{Store: store, limiter: rate.NewLimiter(limit, burst)}
}

func (s *ThrottledStore) LoadRecord(ctx context.Context, id domain.ObjectID) (Record, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Record{}, fmt.Errorf("rate limiter error: %w", err)
	}
	return s.Store.LoadRecord(ctx, id)
}

func (s *ThrottledStore) LoadRelated(ctx context.Context, classID, property string, target domain.ObjectID) ([]Record, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}
	return s.Store.LoadRelated(ctx, classID, property, target)
}
