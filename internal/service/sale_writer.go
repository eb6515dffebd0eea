package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

type saleDraft struct {
	items         []domain.LineItem
	totalCents    int64
	paymentMethod string
	cashReceived  int64
	changeCents   int64
	status        string
}

// SaveSale records a POS sale. With an empty existingID it creates the sale
// and its order, income and stock mirrors; otherwise it amends the sale
// identified by existingID (display or storage form).
//
// Validation, customer resolution and ledger write failures return an error
// and leave nothing behind past the failed step. Mirror failures after the
// ledger write are reported through SaveResult.Partial and Warnings.
func (s *Service) SaveSale(ctx context.Context, ownerID string, input domain.SaleInput, existingID string) (domain.SaveResult, error) {
	if err := requireOwner(ownerID); err != nil {
		return domain.SaveResult{}, err
	}

	draft, err := s.validateSale(ctx, input, existingID != "")
	if err != nil {
		return domain.SaveResult{}, err
	}

	if strings.TrimSpace(existingID) == "" {
		return s.createSale(ctx, ownerID, input.BuyerName, draft)
	}

	id, err := xid.Parse(xid.KindSale, existingID)
	if err != nil {
		return domain.SaveResult{}, fmt.Errorf("%w: %w", ErrInvalidSale, err)
	}
	return s.amendSale(ctx, ownerID, id, input.BuyerName, draft)
}

func (s *Service) validateSale(ctx context.Context, input domain.SaleInput, amend bool) (saleDraft, error) {
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))
	if method == "" {
		method = domain.PaymentCash
	}
	if !isSupportedPaymentMethod(method) {
		return saleDraft{}, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidSale, input.PaymentMethod)
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	if status == "" {
		status = domain.OrderStatusPaid
	}
	switch {
	case status == domain.OrderStatusPending:
		return saleDraft{}, fmt.Errorf("%w: pending is only available to orders", ErrInvalidSale)
	case !domain.IsOrderStatus(status):
		return saleDraft{}, fmt.Errorf("%w: unknown status %q", ErrInvalidSale, input.Status)
	case !amend && status != domain.OrderStatusPaid:
		return saleDraft{}, fmt.Errorf("%w: a new sale is always paid", ErrInvalidSale)
	}

	items, total, err := s.priceLines(ctx, input.Items, ErrInvalidSale)
	if err != nil {
		return saleDraft{}, err
	}
	if input.TotalCents != 0 && input.TotalCents != total {
		return saleDraft{}, fmt.Errorf("%w: total %d does not match line items %d", ErrInvalidSale, input.TotalCents, total)
	}

	draft := saleDraft{
		items:         items,
		totalCents:    total,
		paymentMethod: method,
		status:        status,
	}
	if method == domain.PaymentCash {
		if input.CashReceivedCents < total {
			return saleDraft{}, fmt.Errorf("%w: cash received %d is less than total %d", ErrInvalidSale, input.CashReceivedCents, total)
		}
		draft.cashReceived = input.CashReceivedCents
		draft.changeCents = input.CashReceivedCents - total
	}
	return draft, nil
}

// priceLines copies lines, fills name and unit price from the catalog where
// the caller left them empty and returns the computed total. Nothing is
// written.
func (s *Service) priceLines(ctx context.Context, lines []domain.LineItem, invalid error) ([]domain.LineItem, int64, error) {
	if len(lines) == 0 {
		return nil, 0, fmt.Errorf("%w: at least one line item is required", invalid)
	}

	priced := make([]domain.LineItem, 0, len(lines))
	total := int64(0)
	for _, line := range lines {
		line.ProductID = strings.TrimSpace(line.ProductID)
		if line.ProductID == "" || line.Qty < 1 {
			return nil, 0, fmt.Errorf("%w: line item needs a product and a quantity of at least 1", invalid)
		}

		product, err := s.repo.GetProduct(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, 0, fmt.Errorf("%w: unknown product %s", invalid, line.ProductID)
			}
			return nil, 0, err
		}
		if strings.TrimSpace(line.Name) == "" {
			line.Name = product.Name
		}
		if line.UnitPriceCents == 0 {
			line.UnitPriceCents = product.PriceCents
		}
		if line.UnitPriceCents < 1 {
			return nil, 0, fmt.Errorf("%w: product %s has no price", invalid, line.ProductID)
		}
		if int64(line.Qty) > math.MaxInt64/line.UnitPriceCents {
			return nil, 0, fmt.Errorf("%w: line %s x%d is too large", invalid, line.ProductID, line.Qty)
		}
		line.StockApplied = false

		subtotal := line.SubtotalCents()
		if total > math.MaxInt64-subtotal {
			return nil, 0, fmt.Errorf("%w: total is too large", invalid)
		}
		total += subtotal
		priced = append(priced, line)
	}
	if total < 1 {
		return nil, 0, fmt.Errorf("%w: total must be above zero", invalid)
	}
	return priced, total, nil
}

func (s *Service) createSale(ctx context.Context, ownerID string, buyerName string, draft saleDraft) (domain.SaveResult, error) {
	customerID, buyer, err := s.resolveCustomer(ctx, ownerID, buyerName)
	if err != nil {
		return domain.SaveResult{}, err
	}

	saleID := xid.New(xid.KindSale)
	orderID := xid.New(xid.KindOrder)
	now := s.now()

	sale := domain.Sale{
		ID:                saleID.StorageKey(),
		OwnerID:           ownerID,
		CustomerID:        customerID,
		BuyerName:         buyer,
		Items:             draft.items,
		TotalCents:        draft.totalCents,
		PaymentMethod:     draft.paymentMethod,
		CashReceivedCents: draft.cashReceived,
		ChangeCents:       draft.changeCents,
		CreatedAt:         now,
	}
	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.SaveResult{}, fmt.Errorf("%w: %w", ErrPrimaryWrite, err)
	}
	sale = *created

	warn := &warnings{tag: "sale"}
	result := domain.SaveResult{}

	order := domain.Order{
		ID:            orderID.StorageKey(),
		OwnerID:       ownerID,
		CustomerID:    customerID,
		Items:         append([]domain.LineItem(nil), sale.Items...),
		TotalCents:    sale.TotalCents,
		Status:        domain.OrderStatusPaid,
		PaymentMethod: sale.PaymentMethod,
		SaleID:        sale.ID,
		CreatedAt:     now,
	}
	if _, err := s.repo.CreateOrder(ctx, order); err != nil {
		warn.add("sale %s: order mirror not written: %v", sale.ID, err)
	} else {
		result.OrderID = orderID.String()
	}

	income, err := s.repo.CreateIncome(ctx, s.incomeForSale(sale))
	if err != nil {
		warn.add("sale %s: income mirror not written: %v", sale.ID, err)
	} else {
		result.IncomeID = xid.ApplyPrefix(xid.KindIncome, income.ID)
	}

	moved, err := s.applyStock(ctx, sale.Items, stockConsume)
	if err != nil {
		warn.add("sale %s: stock not fully consumed: %v", sale.ID, err)
	}
	if moved > 0 {
		if updated, err := s.repo.UpdateSale(ctx, sale); err != nil {
			warn.add("sale %s: stock state not recorded: %v", sale.ID, err)
		} else {
			sale = *updated
		}
	}

	s.logAudit(ctx, ownerID, "sale_create", "sale", sale.ID, fmt.Sprintf("total=%d,payment=%s,lines=%d,warnings=%d", sale.TotalCents, sale.PaymentMethod, len(sale.Items), len(warn.list)))
	s.refreshHistory(ctx, ownerID)

	result.Sale = displaySale(sale)
	result.Partial = !warn.empty()
	result.Warnings = warn.list
	return result, nil
}

// amendSale rewrites an existing sale and brings its mirrors in line with
// the requested status. Stock held for the old lines is released before the
// new lines are consumed, so changing quantities or products of a paid sale
// nets out per product.
func (s *Service) amendSale(ctx context.Context, ownerID string, id xid.ID, buyerName string, draft saleDraft) (domain.SaveResult, error) {
	existing, err := s.repo.GetSale(ctx, ownerID, id.StorageKey())
	if err != nil {
		return domain.SaveResult{}, err
	}

	order, err := s.repo.FindOrderBySaleID(ctx, ownerID, existing.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.SaveResult{}, err
	}
	previousStatus := domain.OrderStatusPaid
	if order != nil {
		previousStatus = order.Status
	}

	customerID, buyer, err := s.resolveCustomer(ctx, ownerID, buyerName)
	if err != nil {
		return domain.SaveResult{}, err
	}

	warn := &warnings{tag: "sale"}
	result := domain.SaveResult{}

	// Old lines give their stock back before they are overwritten. Lines the
	// store refused stay on the sale as stranded so repair and delete can
	// still release them.
	oldItems := append([]domain.LineItem(nil), existing.Items...)
	released, err := s.applyStock(ctx, oldItems, stockRestore)
	if err != nil {
		warn.add("sale %s: previous lines not fully restored: %v", existing.ID, err)
	}
	previous := *existing
	previous.Items = oldItems
	previous.Stranded = append([]domain.LineItem(nil), existing.Stranded...)
	strandedReleased, err := s.releaseStranded(ctx, &previous)
	if err != nil {
		warn.add("sale %s: stranded lines not fully restored: %v", existing.ID, err)
	}

	sale := *existing
	sale.CustomerID = customerID
	sale.BuyerName = buyer
	sale.Items = draft.items
	sale.Stranded = append(previous.Stranded, stillApplied(oldItems)...)
	sale.TotalCents = draft.totalCents
	sale.PaymentMethod = draft.paymentMethod
	sale.CashReceivedCents = draft.cashReceived
	sale.ChangeCents = draft.changeCents

	updated, err := s.repo.UpdateSale(ctx, sale)
	if err != nil {
		if released+strandedReleased > 0 {
			// The old sale survives; its flags must match the restored stock.
			if _, saveErr := s.repo.UpdateSale(ctx, previous); saveErr != nil {
				log.Printf("[sale] WARN: sale %s: stock state not recorded after failed amend: %v", existing.ID, saveErr)
			}
		}
		return domain.SaveResult{}, fmt.Errorf("%w: %w", ErrPrimaryWrite, err)
	}
	sale = *updated

	moved := 0
	if draft.status == domain.OrderStatusPaid {
		moved, err = s.applyStock(ctx, sale.Items, stockConsume)
		if err != nil {
			warn.add("sale %s: new lines not fully consumed: %v", sale.ID, err)
		}
	}
	if moved > 0 {
		if saved, err := s.repo.UpdateSale(ctx, sale); err != nil {
			warn.add("sale %s: stock state not recorded: %v", sale.ID, err)
		} else {
			sale = *saved
		}
	}

	if order != nil {
		order.CustomerID = customerID
		order.Items = append([]domain.LineItem(nil), sale.Items...)
		order.TotalCents = sale.TotalCents
		order.Status = draft.status
		order.PaymentMethod = sale.PaymentMethod
		if _, err := s.repo.UpdateOrder(ctx, *order); err != nil {
			warn.add("sale %s: order mirror not updated: %v", sale.ID, err)
		} else {
			result.OrderID = xid.ApplyPrefix(xid.KindOrder, order.ID)
		}
	} else {
		mirror := s.orderForSale(sale, draft.status)
		if _, err := s.repo.CreateOrder(ctx, mirror); err != nil {
			warn.add("sale %s: order mirror not written: %v", sale.ID, err)
		} else {
			result.OrderID = xid.ApplyPrefix(xid.KindOrder, mirror.ID)
		}
	}

	incomeID, _, err := s.syncIncome(ctx, sale, existing, draft.status)
	if err != nil {
		warn.add("sale %s: income mirror not synced: %v", sale.ID, err)
	}
	result.IncomeID = xid.ApplyPrefix(xid.KindIncome, incomeID)

	s.logAudit(ctx, ownerID, "sale_amend", "sale", sale.ID, fmt.Sprintf("status=%s->%s,total=%d->%d,warnings=%d", previousStatus, draft.status, existing.TotalCents, sale.TotalCents, len(warn.list)))
	s.refreshHistory(ctx, ownerID)

	result.Sale = displaySale(sale)
	result.Partial = !warn.empty()
	result.Warnings = warn.list
	return result, nil
}

func (s *Service) orderForSale(sale domain.Sale, status string) domain.Order {
	return domain.Order{
		ID:            xid.New(xid.KindOrder).StorageKey(),
		OwnerID:       sale.OwnerID,
		CustomerID:    sale.CustomerID,
		Items:         append([]domain.LineItem(nil), sale.Items...),
		TotalCents:    sale.TotalCents,
		Status:        status,
		PaymentMethod: sale.PaymentMethod,
		SaleID:        sale.ID,
		CreatedAt:     s.now(),
	}
}

func (s *Service) incomeForSale(sale domain.Sale) domain.Income {
	return domain.Income{
		ID:          xid.New(xid.KindIncome).StorageKey(),
		OwnerID:     sale.OwnerID,
		Type:        domain.IncomeTypeIncome,
		AmountCents: sale.TotalCents,
		Amount:      decimal.New(sale.TotalCents, -2),
		Currency:    s.currency,
		Category:    domain.IncomeCategoryPOS,
		Description: incomeDescription(sale.BuyerName),
		SaleID:      sale.ID,
		Date:        sale.CreatedAt,
	}
}

func incomeDescription(buyerName string) string {
	return "POS sale - " + defaultString(buyerName, domain.PlaceholderBuyer)
}

// findSaleIncome locates the income mirror of a sale: by sale id first, then
// by content for rows written without one. previous is the sale as it looked
// when the income was last written.
func (s *Service) findSaleIncome(ctx context.Context, sale domain.Sale, previous *domain.Sale) (*domain.Income, error) {
	income, err := s.repo.FindIncomeBySaleID(ctx, sale.OwnerID, sale.ID)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return income, err
	}
	if previous == nil {
		previous = &sale
	}
	income, err = s.repo.FindIncomeByMatch(ctx, domain.IncomeMatch{
		OwnerID:     sale.OwnerID,
		Type:        domain.IncomeTypeIncome,
		AmountCents: previous.TotalCents,
		Description: incomeDescription(previous.BuyerName),
	})
	if err != nil {
		return nil, err
	}
	if income.SaleID != "" && income.SaleID != sale.ID {
		return nil, store.ErrNotFound
	}
	return income, nil
}

// syncIncome keeps exactly one income row for a paid sale and none otherwise.
// It returns the income id that remains, if any, and whether it was created.
func (s *Service) syncIncome(ctx context.Context, sale domain.Sale, previous *domain.Sale, status string) (string, bool, error) {
	existing, err := s.findSaleIncome(ctx, sale, previous)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}

	if status != domain.OrderStatusPaid {
		if existing == nil {
			return "", false, nil
		}
		return "", false, s.repo.DeleteIncome(ctx, sale.OwnerID, existing.ID)
	}

	if existing == nil {
		created, err := s.repo.CreateIncome(ctx, s.incomeForSale(sale))
		if err != nil {
			return "", false, err
		}
		return created.ID, true, nil
	}

	want := s.incomeForSale(sale)
	want.ID = existing.ID
	want.Date = existing.Date
	if existing.SaleID == want.SaleID && existing.AmountCents == want.AmountCents &&
		existing.Description == want.Description && existing.Currency == want.Currency {
		return existing.ID, false, nil
	}
	updated, err := s.repo.UpdateIncome(ctx, want)
	if err != nil {
		return existing.ID, false, err
	}
	return updated.ID, false, nil
}
