package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"catatkas/backend/internal/domain"
)

type stockDirection int

const (
	stockConsume stockDirection = iota
	stockRestore
)

func (d stockDirection) String() string {
	if d == stockRestore {
		return "restore"
	}
	return "consume"
}

// applyStock moves every line of items toward direction, one product at a
// time. Lines already in the target state are skipped, and StockApplied is
// flipped in place only after the store accepted the delta, so replaying a
// partially applied call adjusts each line at most once. A failing line is
// logged and does not stop the rest. It returns how many lines moved.
func (s *Service) applyStock(ctx context.Context, items []domain.LineItem, direction stockDirection) (int, error) {
	moved := 0
	var errs []error
	for i := range items {
		line := &items[i]
		if line.Qty < 1 {
			continue
		}

		delta := -line.Qty
		if direction == stockRestore {
			if !line.StockApplied {
				continue
			}
			delta = line.Qty
		} else if line.StockApplied {
			continue
		}

		stock, err := s.repo.AdjustStock(ctx, line.ProductID, delta)
		if err != nil {
			log.Printf("[inventory] WARN: %s product=%s qty=%d failed: %v", direction, line.ProductID, line.Qty, err)
			errs = append(errs, fmt.Errorf("%s %s x%d: %w", direction, line.ProductID, line.Qty, err))
			continue
		}
		if stock < 0 {
			log.Printf("[inventory] product=%s stock went negative (%d)", line.ProductID, stock)
		}
		line.StockApplied = direction == stockConsume
		moved++
	}
	return moved, errors.Join(errs...)
}

// releaseStranded returns the stock still held by replaced lines of sale and
// keeps only the lines that could not be released.
func (s *Service) releaseStranded(ctx context.Context, sale *domain.Sale) (int, error) {
	if len(sale.Stranded) == 0 {
		return 0, nil
	}
	moved, err := s.applyStock(ctx, sale.Stranded, stockRestore)
	sale.Stranded = stillApplied(sale.Stranded)
	return moved, err
}

func stillApplied(items []domain.LineItem) []domain.LineItem {
	var held []domain.LineItem
	for _, line := range items {
		if line.StockApplied {
			held = append(held, line)
		}
	}
	return held
}
