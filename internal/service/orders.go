package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

// CreateOrder records an order entered directly through the order form.
// Such orders have no sale behind them. A paid order holds stock from the
// moment it is written.
func (s *Service) CreateOrder(ctx context.Context, ownerID string, input domain.OrderInput) (domain.OrderResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.OrderResult{}, err
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = domain.OrderStatusPending
	}
	if !domain.IsOrderStatus(status) {
		return domain.OrderResult{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, input.Status)
	}
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method != "" && !isSupportedPaymentMethod(method) {
		return domain.OrderResult{}, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidOrder, input.PaymentMethod)
	}

	items, total, err := s.priceLines(ctx, input.Items, ErrInvalidOrder)
	if err != nil {
		return domain.OrderResult{}, err
	}

	customerID, _, err := s.resolveCustomer(ctx, ownerID, input.CustomerName)
	if err != nil {
		return domain.OrderResult{}, err
	}

	order := domain.Order{
		ID:             xid.New(xid.KindOrder).StorageKey(),
		OwnerID:        ownerID,
		CustomerID:     customerID,
		Items:          items,
		TotalCents:     total,
		Status:         status,
		PaymentMethod:  method,
		ProofOfPayment: strings.TrimSpace(input.ProofOfPayment),
		CreatedAt:      s.now(),
	}
	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("%w: %w", ErrPrimaryWrite, err)
	}
	order = *created

	warn := &warnings{tag: "order"}
	if status == domain.OrderStatusPaid {
		moved, err := s.applyStock(ctx, order.Items, stockConsume)
		if err != nil {
			warn.add("order %s: stock not fully consumed: %v", order.ID, err)
		}
		if moved > 0 {
			if saved, err := s.repo.UpdateOrder(ctx, order); err != nil {
				warn.add("order %s: stock state not recorded: %v", order.ID, err)
			} else {
				order = *saved
			}
		}
	}

	s.logAudit(ctx, ownerID, "order_create", "order", order.ID, fmt.Sprintf("status=%s,total=%d", order.Status, order.TotalCents))
	return domain.OrderResult{Order: displayOrder(order), Partial: !warn.empty(), Warnings: warn.list}, nil
}

// UpdateOrderStatus moves an order between pending, paid and canceled.
// Stock is held exactly while the order is paid: entering paid consumes the
// lines, leaving paid restores them, every other move is stock-neutral. For
// an order mirroring a POS sale the sale's line state is authoritative and
// its income mirror follows the status.
func (s *Service) UpdateOrderStatus(ctx context.Context, ownerID string, orderID string, status string) (domain.OrderResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.OrderResult{}, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !domain.IsOrderStatus(status) {
		return domain.OrderResult{}, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, status)
	}
	id, err := xid.Parse(xid.KindOrder, orderID)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	order, err := s.repo.GetOrder(ctx, ownerID, id.StorageKey())
	if err != nil {
		return domain.OrderResult{}, err
	}
	previous := order.Status

	var sale *domain.Sale
	if order.SaleID != "" {
		sale, err = s.repo.GetSale(ctx, ownerID, order.SaleID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return domain.OrderResult{}, err
		}
	}

	order.Status = status
	updated, err := s.repo.UpdateOrder(ctx, *order)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("%w: %w", ErrPrimaryWrite, err)
	}
	order = updated

	warn := &warnings{tag: "order"}
	held := order.Items
	if sale != nil {
		held = sale.Items
	}
	direction := stockRestore
	if status == domain.OrderStatusPaid {
		direction = stockConsume
	}
	moved, err := s.applyStock(ctx, held, direction)
	if err != nil {
		warn.add("order %s: stock not fully %sd on %s->%s: %v", order.ID, direction, previous, status, err)
	}
	if sale != nil {
		released, err := s.releaseStranded(ctx, sale)
		if err != nil {
			warn.add("order %s: stranded lines of sale %s not fully restored: %v", order.ID, sale.ID, err)
		}
		moved += released
	}

	if moved > 0 {
		if sale != nil {
			if _, err := s.repo.UpdateSale(ctx, *sale); err != nil {
				warn.add("order %s: sale %s stock state not recorded: %v", order.ID, sale.ID, err)
			}
			order.Items = append([]domain.LineItem(nil), sale.Items...)
		}
		if saved, err := s.repo.UpdateOrder(ctx, *order); err != nil {
			warn.add("order %s: stock state not recorded: %v", order.ID, err)
		} else {
			order = saved
		}
	}

	if sale != nil && previous != status {
		if _, _, err := s.syncIncome(ctx, *sale, nil, status); err != nil {
			warn.add("order %s: income mirror of sale %s not synced: %v", order.ID, sale.ID, err)
		}
	}

	s.logAudit(ctx, ownerID, "order_status", "order", order.ID, fmt.Sprintf("status=%s->%s,lines_moved=%d", previous, status, moved))
	if sale != nil {
		s.refreshHistory(ctx, ownerID)
	}
	return domain.OrderResult{Order: displayOrder(*order), Partial: !warn.empty(), Warnings: warn.list}, nil
}

// DeleteOrder removes a direct order, releasing any stock it holds. Orders
// that mirror a POS sale are removed through DeleteSale instead.
func (s *Service) DeleteOrder(ctx context.Context, ownerID string, orderID string) (domain.OrderResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.OrderResult{}, err
	}
	id, err := xid.Parse(xid.KindOrder, orderID)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("%w: %w", ErrInvalidOrder, err)
	}

	order, err := s.repo.GetOrder(ctx, ownerID, id.StorageKey())
	if err != nil {
		return domain.OrderResult{}, err
	}
	if order.SaleID != "" {
		return domain.OrderResult{}, fmt.Errorf("%w: delete sale %s instead", ErrLinkedOrder, xid.ApplyPrefix(xid.KindSale, order.SaleID))
	}

	warn := &warnings{tag: "order"}
	restored, err := s.applyStock(ctx, order.Items, stockRestore)
	if err != nil {
		warn.add("order %s: stock not fully restored: %v", order.ID, err)
	}
	if err := s.repo.DeleteOrder(ctx, ownerID, order.ID); err != nil {
		if restored > 0 {
			if _, saveErr := s.repo.UpdateOrder(ctx, *order); saveErr != nil {
				warn.add("order %s: stock state not recorded after failed delete: %v", order.ID, saveErr)
			}
		}
		return domain.OrderResult{}, err
	}

	s.logAudit(ctx, ownerID, "order_delete", "order", order.ID, fmt.Sprintf("status=%s,lines_restored=%d", order.Status, restored))
	return domain.OrderResult{Order: displayOrder(*order), Partial: !warn.empty(), Warnings: warn.list}, nil
}

func (s *Service) ListOrders(ctx context.Context, ownerID string, status string, limit int) ([]domain.Order, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != "" && !domain.IsOrderStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidOrder, status)
	}

	orders, err := s.repo.ListOrders(ctx, ownerID, status, clampLimit(limit, defaultOrderLimit, maxOrderLimit))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, displayOrder(order))
	}
	return out, nil
}
