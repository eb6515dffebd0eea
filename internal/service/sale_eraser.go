package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

// DeleteSale reverses a sale: stock held by its lines is restored, then the
// sale, its order mirror and its income mirror are removed. Only the initial
// read and the sale delete can fail the call; mirror cleanup problems come
// back as warnings.
func (s *Service) DeleteSale(ctx context.Context, ownerID string, saleID string) (domain.DeleteResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.DeleteResult{}, err
	}
	id, err := xid.Parse(xid.KindSale, saleID)
	if err != nil {
		return domain.DeleteResult{}, fmt.Errorf("%w: %w", ErrInvalidSale, err)
	}

	sale, err := s.repo.GetSale(ctx, ownerID, id.StorageKey())
	if err != nil {
		return domain.DeleteResult{}, err
	}

	warn := &warnings{tag: "sale"}
	restored, err := s.applyStock(ctx, sale.Items, stockRestore)
	if err != nil {
		warn.add("sale %s: stock not fully restored: %v", sale.ID, err)
	}
	strandedRestored, err := s.releaseStranded(ctx, sale)
	if err != nil {
		warn.add("sale %s: stranded lines not fully restored: %v", sale.ID, err)
	}
	restored += strandedRestored

	if err := s.repo.DeleteSale(ctx, ownerID, sale.ID); err != nil {
		if restored > 0 {
			// The sale survives; its flags must match the restored stock.
			if _, saveErr := s.repo.UpdateSale(ctx, *sale); saveErr != nil {
				log.Printf("[sale] WARN: sale %s: stock state not recorded after failed delete: %v", sale.ID, saveErr)
			}
		}
		return domain.DeleteResult{}, err
	}

	order, err := s.repo.FindOrderBySaleID(ctx, ownerID, sale.ID)
	switch {
	case err == nil:
		if err := s.repo.DeleteOrder(ctx, ownerID, order.ID); err != nil {
			warn.add("sale %s: order mirror %s not deleted: %v", sale.ID, order.ID, err)
		}
	case !errors.Is(err, store.ErrNotFound):
		warn.add("sale %s: order mirror lookup failed: %v", sale.ID, err)
	}

	income, err := s.findSaleIncome(ctx, *sale, nil)
	switch {
	case err == nil:
		if err := s.repo.DeleteIncome(ctx, ownerID, income.ID); err != nil {
			warn.add("sale %s: income mirror %s not deleted: %v", sale.ID, income.ID, err)
		}
	case errors.Is(err, store.ErrNotFound):
		log.Printf("[sale] no income mirror found for sale %s", sale.ID)
	default:
		warn.add("sale %s: income mirror lookup failed: %v", sale.ID, err)
	}

	s.logAudit(ctx, ownerID, "sale_delete", "sale", sale.ID, fmt.Sprintf("total=%d,lines_restored=%d,warnings=%d", sale.TotalCents, restored, len(warn.list)))
	s.refreshHistory(ctx, ownerID)

	return domain.DeleteResult{
		SaleID:   xid.ApplyPrefix(xid.KindSale, sale.ID),
		Warnings: warn.list,
	}, nil
}
