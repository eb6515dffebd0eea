package cache

import (
	"context"
	"time"

	"catatkas/backend/internal/domain"
)

// HistoryCache holds the recent-sales list per owner. Values are stored with
// raw storage ids; display prefixes are applied by the caller.
type HistoryCache interface {
	Get(ctx context.Context, ownerID string) ([]domain.Sale, bool, error)
	Set(ctx context.Context, ownerID string, sales []domain.Sale, ttl time.Duration) error
	Invalidate(ctx context.Context, ownerID string) error
}

type NoopHistoryCache struct{}

func (NoopHistoryCache) Get(_ context.Context, _ string) ([]domain.Sale, bool, error) {
	return nil, false, nil
}

func (NoopHistoryCache) Set(_ context.Context, _ string, _ []domain.Sale, _ time.Duration) error {
	return nil
}

func (NoopHistoryCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

func historyKey(ownerID string) string {
	return "catatkas:history:" + ownerID
}
