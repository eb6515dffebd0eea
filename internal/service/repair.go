package service

import (
	"context"
	"errors"
	"fmt"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

// RepairSale replays the mirrors of a stored sale. The sale is taken as the
// fact; a missing order mirror is recreated as paid, the income mirror and
// stock are brought in line with the order's status. Every step is keyed by
// the sale id, so a second run on a healthy sale changes nothing.
func (s *Service) RepairSale(ctx context.Context, ownerID string, saleID string) (domain.RepairResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.RepairResult{}, err
	}
	id, err := xid.Parse(xid.KindSale, saleID)
	if err != nil {
		return domain.RepairResult{}, fmt.Errorf("%w: %w", ErrInvalidSale, err)
	}

	sale, err := s.repo.GetSale(ctx, ownerID, id.StorageKey())
	if err != nil {
		return domain.RepairResult{}, err
	}
	result := domain.RepairResult{SaleID: id.String()}
	warn := &warnings{tag: "repair"}

	order, err := s.repo.FindOrderBySaleID(ctx, ownerID, sale.ID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return domain.RepairResult{}, err
		}
		mirror := s.orderForSale(*sale, domain.OrderStatusPaid)
		created, err := s.repo.CreateOrder(ctx, mirror)
		if err != nil {
			return domain.RepairResult{}, fmt.Errorf("recreate order mirror: %w", err)
		}
		order = created
		result.OrderCreated = true
	}

	result.LinesRestored, err = s.releaseStranded(ctx, sale)
	if err != nil {
		warn.add("sale %s: stranded lines not fully restored: %v", sale.ID, err)
	}

	if order.Status == domain.OrderStatusPaid {
		result.LinesConsumed, err = s.applyStock(ctx, sale.Items, stockConsume)
		if err != nil {
			warn.add("sale %s: stock not fully consumed: %v", sale.ID, err)
		}
	} else {
		var restored int
		restored, err = s.applyStock(ctx, sale.Items, stockRestore)
		result.LinesRestored += restored
		if err != nil {
			warn.add("sale %s: stock not fully restored: %v", sale.ID, err)
		}
	}
	if result.LinesConsumed+result.LinesRestored > 0 {
		if _, err := s.repo.UpdateSale(ctx, *sale); err != nil {
			warn.add("sale %s: stock state not recorded: %v", sale.ID, err)
		}
		order.Items = append([]domain.LineItem(nil), sale.Items...)
		if _, err := s.repo.UpdateOrder(ctx, *order); err != nil {
			warn.add("sale %s: order mirror stock state not recorded: %v", sale.ID, err)
		}
	}

	_, result.IncomeCreated, err = s.syncIncome(ctx, *sale, nil, order.Status)
	if err != nil {
		warn.add("sale %s: income mirror not synced: %v", sale.ID, err)
	}

	result.Warnings = warn.list
	result.AlreadyInSync = warn.empty() && !result.OrderCreated && !result.IncomeCreated &&
		result.LinesConsumed == 0 && result.LinesRestored == 0
	if !result.AlreadyInSync {
		s.logAudit(ctx, ownerID, "sale_repair", "sale", sale.ID, fmt.Sprintf(
			"order_created=%t,income_created=%t,consumed=%d,restored=%d",
			result.OrderCreated, result.IncomeCreated, result.LinesConsumed, result.LinesRestored,
		))
		s.refreshHistory(ctx, ownerID)
	}
	return result, nil
}
