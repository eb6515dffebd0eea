package service

import (
	"context"
	"log"

	"catatkas/backend/internal/domain"
)

// ListRecent returns the owner's most recent sales, newest first, with ids in
// display form. A limit below 1 uses the configured default; the cap is 100.
func (s *Service) ListRecent(ctx context.Context, ownerID string, limit int) ([]domain.Sale, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	limit = clampLimit(limit, s.historyLimit, maxHistoryLimit)

	sales, ok, err := s.history.Get(ctx, ownerID)
	if err != nil {
		log.Printf("[history] WARN: cache read failed owner=%s: %v", ownerID, err)
	}
	if !ok {
		sales, err = s.repo.ListRecentSales(ctx, ownerID, maxHistoryLimit)
		if err != nil {
			return nil, err
		}
		if err := s.history.Set(ctx, ownerID, sales, s.historyTTL); err != nil {
			log.Printf("[history] WARN: cache write failed owner=%s: %v", ownerID, err)
		}
	}

	if len(sales) > limit {
		sales = sales[:limit]
	}
	out := make([]domain.Sale, 0, len(sales))
	for _, sale := range sales {
		out = append(out, displaySale(sale))
	}
	return out, nil
}

// refreshHistory reloads the cached recent-sales page after a write. When
// the reload fails the entry is dropped so the next read goes to the store.
func (s *Service) refreshHistory(ctx context.Context, ownerID string) {
	sales, err := s.repo.ListRecentSales(ctx, ownerID, maxHistoryLimit)
	if err == nil {
		err = s.history.Set(ctx, ownerID, sales, s.historyTTL)
	}
	if err == nil {
		return
	}
	log.Printf("[history] WARN: refresh failed owner=%s: %v", ownerID, err)
	if err := s.history.Invalidate(ctx, ownerID); err != nil {
		log.Printf("[history] WARN: invalidate failed owner=%s: %v", ownerID, err)
	}
}
