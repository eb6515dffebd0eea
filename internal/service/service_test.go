package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/store/memory"
	"catatkas/backend/internal/xid"
)

const (
	owner  = "owner-a"
	coffee = "SKU-COFFEE-01"
	tea    = "SKU-TEA-01"
)

var errFlaky = errors.New("flaky store")

type flakyRepo struct {
	store.Repository
	failCreateOrder  bool
	failCreateIncome bool
	failAdjust       map[string]bool
}

func (r *flakyRepo) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if r.failCreateOrder {
		return nil, errFlaky
	}
	return r.Repository.CreateOrder(ctx, order)
}

func (r *flakyRepo) CreateIncome(ctx context.Context, income domain.Income) (*domain.Income, error) {
	if r.failCreateIncome {
		return nil, errFlaky
	}
	return r.Repository.CreateIncome(ctx, income)
}

func (r *flakyRepo) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	if r.failAdjust[productID] {
		return 0, errFlaky
	}
	return r.Repository.AdjustStock(ctx, productID, delta)
}

type recordingHistory struct {
	mu      sync.Mutex
	entries map[string][]domain.Sale
	sets    int
}

func (h *recordingHistory) Get(_ context.Context, ownerID string) ([]domain.Sale, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sales, ok := h.entries[ownerID]
	return sales, ok, nil
}

func (h *recordingHistory) Set(_ context.Context, ownerID string, sales []domain.Sale, _ time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.entries == nil {
		h.entries = make(map[string][]domain.Sale)
	}
	h.entries[ownerID] = sales
	h.sets++
	return nil
}

func (h *recordingHistory) Invalidate(_ context.Context, ownerID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.entries, ownerID)
	return nil
}

func newTestService(repo store.Repository) *Service {
	svc := New(repo, nil, Options{})
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

func stockOf(t *testing.T, repo store.Repository, productID string) int {
	t.Helper()
	product, err := repo.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return product.Stock
}

func coffeeSale(buyer string) domain.SaleInput {
	return domain.SaleInput{
		BuyerName:         buyer,
		Items:             []domain.LineItem{{ProductID: coffee, Name: "Coffee", UnitPriceCents: 20000, Qty: 2}},
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: 50000,
	}
}

func TestSaveSaleCoffeeScenario(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	result, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	assert.False(t, result.Partial)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, int64(40000), result.Sale.TotalCents)
	assert.Equal(t, int64(10000), result.Sale.ChangeCents)
	assert.Equal(t, "Ana", result.Sale.BuyerName)
	assert.Equal(t, 48, stockOf(t, repo, coffee))

	saleID := xid.Strip(result.Sale.ID)
	assert.Equal(t, xid.ApplyPrefix(xid.KindSale, saleID), result.Sale.ID)

	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, int64(40000), incomes[0].AmountCents)
	assert.Equal(t, "POS sale - Ana", incomes[0].Description)
	assert.Equal(t, domain.IncomeCategoryPOS, incomes[0].Category)
	assert.Equal(t, saleID, incomes[0].SaleID)
	assert.Equal(t, "400", incomes[0].Amount.String())

	orders, err := repo.ListOrders(ctx, owner, "", 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.OrderStatusPaid, orders[0].Status)
	assert.Equal(t, saleID, orders[0].SaleID)
	assert.Equal(t, xid.ApplyPrefix(xid.KindOrder, orders[0].ID), result.OrderID)

	stored, err := repo.GetSale(ctx, owner, saleID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.True(t, stored.Items[0].StockApplied)
}

func TestDeleteSaleReversesEveryMirror(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)
	require.Equal(t, 48, stockOf(t, repo, coffee))

	deleted, err := svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.Empty(t, deleted.Warnings)
	assert.Equal(t, saved.Sale.ID, deleted.SaleID)

	assert.Equal(t, 50, stockOf(t, repo, coffee))
	_, err = repo.GetSale(ctx, owner, xid.Strip(saved.Sale.ID))
	assert.ErrorIs(t, err, store.ErrNotFound)

	orders, err := repo.ListOrders(ctx, owner, "", 10)
	require.NoError(t, err)
	assert.Empty(t, orders)
	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Empty(t, incomes)

	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteSaleMatchesUnlinkedIncomeByContent(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	income, err := repo.FindIncomeBySaleID(ctx, owner, xid.Strip(saved.Sale.ID))
	require.NoError(t, err)
	income.SaleID = ""
	_, err = repo.UpdateIncome(ctx, *income)
	require.NoError(t, err)

	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)

	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Empty(t, incomes)
}

func TestDeleteSaleFindsUnlinkedIncomeBehindLinkedTwin(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)
	second, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	income, err := repo.FindIncomeBySaleID(ctx, owner, xid.Strip(second.Sale.ID))
	require.NoError(t, err)
	income.SaleID = ""
	_, err = repo.UpdateIncome(ctx, *income)
	require.NoError(t, err)

	_, err = svc.DeleteSale(ctx, owner, second.Sale.ID)
	require.NoError(t, err)

	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, xid.Strip(first.Sale.ID), incomes[0].SaleID)
}

func TestDeleteSaleLeavesEditedUnlinkedIncome(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	income, err := repo.FindIncomeBySaleID(ctx, owner, xid.Strip(saved.Sale.ID))
	require.NoError(t, err)
	income.SaleID = ""
	income.Description = "edited by hand"
	_, err = repo.UpdateIncome(ctx, *income)
	require.NoError(t, err)

	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)

	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Len(t, incomes, 1)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
}

func TestSaveSaleRejectsEmptyCartBeforeAnyWrite(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.SaveSale(ctx, owner, domain.SaleInput{
		BuyerName:         "Ana",
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: 50000,
	}, "")
	require.ErrorIs(t, err, ErrInvalidSale)

	customers, err := repo.ListCustomers(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, customers)
	sales, err := repo.ListRecentSales(ctx, owner, 10)
	require.NoError(t, err)
	assert.Empty(t, sales)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
}

func TestSaveSaleValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *domain.SaleInput)
	}{
		{"insufficient cash", func(in *domain.SaleInput) { in.CashReceivedCents = 39999 }},
		{"total mismatch", func(in *domain.SaleInput) { in.TotalCents = 35000 }},
		{"unknown product", func(in *domain.SaleInput) { in.Items[0].ProductID = "SKU-NOPE" }},
		{"zero quantity", func(in *domain.SaleInput) { in.Items[0].Qty = 0 }},
		{"unknown payment", func(in *domain.SaleInput) { in.PaymentMethod = "barter" }},
		{"canceled on create", func(in *domain.SaleInput) { in.Status = domain.OrderStatusCanceled }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := memory.NewSeeded()
			svc := newTestService(repo)
			in := coffeeSale("Ana")
			tc.mutate(&in)

			_, err := svc.SaveSale(context.Background(), owner, in, "")
			require.ErrorIs(t, err, ErrInvalidSale)
			assert.Equal(t, 50, stockOf(t, repo, coffee))
		})
	}
}

func TestSaveSaleNonCashNeedsNoTender(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)

	in := coffeeSale("Ana")
	in.PaymentMethod = domain.PaymentQRIS
	in.CashReceivedCents = 0
	in.Items[0].Name = ""
	in.Items[0].UnitPriceCents = 0

	result, err := svc.SaveSale(context.Background(), owner, in, "")
	require.NoError(t, err)
	assert.Equal(t, int64(40000), result.Sale.TotalCents)
	assert.Equal(t, int64(0), result.Sale.ChangeCents)
	assert.Equal(t, "Coffee", result.Sale.Items[0].Name)
}

func TestSaveSaleRejectsOversizedAmounts(t *testing.T) {
	tests := []struct {
		name  string
		items []domain.LineItem
	}{
		{"line overflows", []domain.LineItem{{ProductID: coffee, UnitPriceCents: 4, Qty: 1 << 62}}},
		{"total overflows", []domain.LineItem{
			{ProductID: coffee, UnitPriceCents: 1 << 32, Qty: 1 << 30},
			{ProductID: tea, UnitPriceCents: 1 << 32, Qty: 1 << 30},
		}},
		{"negative price", []domain.LineItem{{ProductID: coffee, UnitPriceCents: -20000, Qty: 2}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := memory.NewSeeded()
			svc := newTestService(repo)

			_, err := svc.SaveSale(context.Background(), owner, domain.SaleInput{
				Items:         tc.items,
				PaymentMethod: domain.PaymentCard,
			}, "")
			require.ErrorIs(t, err, ErrInvalidSale)
			assert.Equal(t, 50, stockOf(t, repo, coffee))
			assert.Equal(t, 50, stockOf(t, repo, tea))

			sales, err := repo.ListRecentSales(context.Background(), owner, 10)
			require.NoError(t, err)
			assert.Empty(t, sales)
		})
	}
}

func TestCustomerResolutionIsIdempotent(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.SaveSale(ctx, owner, coffeeSale("  Budi   Santoso "), "")
	require.NoError(t, err)
	second, err := svc.SaveSale(ctx, owner, coffeeSale("Budi Santoso"), "")
	require.NoError(t, err)
	assert.Equal(t, first.Sale.CustomerID, second.Sale.CustomerID)

	blank, err := svc.SaveSale(ctx, owner, coffeeSale("   "), "")
	require.NoError(t, err)
	assert.Equal(t, domain.PlaceholderBuyer, blank.Sale.BuyerName)
	other, err := svc.SaveSale(ctx, owner, coffeeSale(""), "")
	require.NoError(t, err)
	assert.Equal(t, blank.Sale.CustomerID, other.Sale.CustomerID)

	elsewhere, err := svc.SaveSale(ctx, "owner-b", coffeeSale("Budi Santoso"), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.Sale.CustomerID, elsewhere.Sale.CustomerID)

	customers, err := svc.ListCustomers(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, customers, 2)
}

func TestTotalInvariantAcrossLines(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)

	result, err := svc.SaveSale(context.Background(), owner, domain.SaleInput{
		BuyerName: "Ana",
		Items: []domain.LineItem{
			{ProductID: coffee, Qty: 2},
			{ProductID: tea, Qty: 3},
			{ProductID: "SKU-CROISSANT-01", Qty: 1},
		},
		PaymentMethod: domain.PaymentCard,
	}, "")
	require.NoError(t, err)

	sum := int64(0)
	for _, line := range result.Sale.Items {
		sum += line.UnitPriceCents * int64(line.Qty)
	}
	assert.Equal(t, sum, result.Sale.TotalCents)
	assert.Equal(t, int64(2*20000+3*12000+18500), result.Sale.TotalCents)
	assert.Equal(t, 48, stockOf(t, repo, coffee))
	assert.Equal(t, 47, stockOf(t, repo, tea))
}

func TestDirectOrderStatusTransitionsAreSymmetric(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, owner, domain.OrderInput{
		CustomerName: "Citra",
		Items:        []domain.LineItem{{ProductID: coffee, Qty: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, created.Order.Status)
	assert.Empty(t, created.Order.SaleID)
	assert.Equal(t, 50, stockOf(t, repo, coffee))

	steps := []struct {
		status string
		stock  int
	}{
		{domain.OrderStatusPaid, 47},
		{domain.OrderStatusPaid, 47},
		{domain.OrderStatusCanceled, 50},
		{domain.OrderStatusPaid, 47},
		{domain.OrderStatusPending, 50},
		{domain.OrderStatusCanceled, 50},
	}
	for _, step := range steps {
		res, err := svc.UpdateOrderStatus(ctx, owner, created.Order.ID, step.status)
		require.NoError(t, err)
		assert.Equal(t, step.status, res.Order.Status)
		assert.Equal(t, step.stock, stockOf(t, repo, coffee), "after moving to %s", step.status)
	}
}

func TestPendingToCanceledNeverTouchesStock(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, owner, domain.OrderInput{Items: []domain.LineItem{{ProductID: tea, Qty: 4}}})
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, owner, created.Order.ID, domain.OrderStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, tea))
}

func TestPaidDirectOrderHoldsStockUntilDeleted(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.CreateOrder(ctx, owner, domain.OrderInput{
		Items:         []domain.LineItem{{ProductID: tea, Qty: 5}},
		Status:        domain.OrderStatusPaid,
		PaymentMethod: domain.PaymentTransfer,
	})
	require.NoError(t, err)
	assert.Equal(t, 45, stockOf(t, repo, tea))

	_, err = svc.DeleteOrder(ctx, owner, created.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, tea))

	orders, err := svc.ListOrders(ctx, owner, "", 0)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestLinkedOrderStatusFollowsSaleStock(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	_, err = svc.DeleteOrder(ctx, owner, saved.OrderID)
	require.ErrorIs(t, err, ErrLinkedOrder)

	_, err = svc.UpdateOrderStatus(ctx, owner, saved.OrderID, domain.OrderStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Empty(t, incomes)

	_, err = svc.UpdateOrderStatus(ctx, owner, saved.OrderID, domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, 48, stockOf(t, repo, coffee))
	incomes, err = repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, int64(40000), incomes[0].AmountCents)

	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
}

func TestCanceledSaleDeleteDoesNotRestoreTwice(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)
	_, err = svc.UpdateOrderStatus(ctx, owner, saved.OrderID, domain.OrderStatusCanceled)
	require.NoError(t, err)

	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
}

func TestAmendSaleCorrectsStockDifferentially(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	amended, err := svc.SaveSale(ctx, owner, domain.SaleInput{
		BuyerName:         "Ana",
		Items:             []domain.LineItem{{ProductID: coffee, Qty: 1}, {ProductID: tea, Qty: 1}},
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: 40000,
	}, saved.Sale.ID)
	require.NoError(t, err)
	assert.False(t, amended.Partial)
	assert.Equal(t, saved.Sale.ID, amended.Sale.ID)
	assert.Equal(t, int64(32000), amended.Sale.TotalCents)
	assert.Equal(t, int64(8000), amended.Sale.ChangeCents)
	assert.Equal(t, 49, stockOf(t, repo, coffee))
	assert.Equal(t, 49, stockOf(t, repo, tea))

	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, int64(32000), incomes[0].AmountCents)

	order, err := repo.FindOrderBySaleID(ctx, owner, xid.Strip(saved.Sale.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(32000), order.TotalCents)
	assert.Len(t, order.Items, 2)
}

func TestAmendSaleStatusTransitions(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	canceled := coffeeSale("Ana")
	canceled.Status = domain.OrderStatusCanceled
	_, err = svc.SaveSale(ctx, owner, canceled, saved.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))

	order, err := repo.FindOrderBySaleID(ctx, owner, xid.Strip(saved.Sale.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, order.Status)
	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Empty(t, incomes)

	_, err = svc.SaveSale(ctx, owner, canceled, saved.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))

	_, err = svc.SaveSale(ctx, owner, coffeeSale("Ana"), xid.Strip(saved.Sale.ID))
	require.NoError(t, err)
	assert.Equal(t, 48, stockOf(t, repo, coffee))
	incomes, err = repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Len(t, incomes, 1)

	pending := coffeeSale("Ana")
	pending.Status = domain.OrderStatusPending
	_, err = svc.SaveSale(ctx, owner, pending, saved.Sale.ID)
	require.ErrorIs(t, err, ErrInvalidSale)
	assert.Equal(t, 48, stockOf(t, repo, coffee))
}

func TestAmendKeepsLinesWhoseRestoreFailed(t *testing.T) {
	repo := &flakyRepo{Repository: memory.NewSeeded()}
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)
	require.Equal(t, 48, stockOf(t, repo, coffee))

	repo.failAdjust = map[string]bool{coffee: true}
	canceled := coffeeSale("Ana")
	canceled.Status = domain.OrderStatusCanceled
	amended, err := svc.SaveSale(ctx, owner, canceled, saved.Sale.ID)
	require.NoError(t, err)
	assert.True(t, amended.Partial)
	require.Len(t, amended.Sale.Stranded, 1)
	assert.True(t, amended.Sale.Stranded[0].StockApplied)
	assert.Equal(t, 48, stockOf(t, repo, coffee))

	stored, err := repo.GetSale(ctx, owner, xid.Strip(saved.Sale.ID))
	require.NoError(t, err)
	require.Len(t, stored.Stranded, 1)

	repo.failAdjust = nil
	repaired, err := svc.RepairSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired.LinesRestored)
	assert.False(t, repaired.AlreadyInSync)
	assert.Equal(t, 50, stockOf(t, repo, coffee))

	again, err := svc.RepairSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyInSync)

	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
}

func TestAmendPaidSaleStrandedLinesReleasedOnDelete(t *testing.T) {
	repo := &flakyRepo{Repository: memory.NewSeeded()}
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	repo.failAdjust = map[string]bool{coffee: true}
	amended, err := svc.SaveSale(ctx, owner, domain.SaleInput{
		BuyerName:         "Ana",
		Items:             []domain.LineItem{{ProductID: tea, Qty: 1}},
		PaymentMethod:     domain.PaymentCash,
		CashReceivedCents: 12000,
	}, saved.Sale.ID)
	require.NoError(t, err)
	assert.True(t, amended.Partial)
	assert.Equal(t, 48, stockOf(t, repo, coffee))
	assert.Equal(t, 49, stockOf(t, repo, tea))

	repo.failAdjust = nil
	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
	assert.Equal(t, 50, stockOf(t, repo, tea))
}

func TestAmendUnknownSale(t *testing.T) {
	svc := newTestService(memory.NewSeeded())

	_, err := svc.SaveSale(context.Background(), owner, coffeeSale("Ana"), "POS-does-not-exist")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.SaveSale(context.Background(), owner, coffeeSale("Ana"), "ORDER-abc")
	require.ErrorIs(t, err, ErrInvalidSale)
}

func TestSaveSaleReportsPartialSuccess(t *testing.T) {
	repo := &flakyRepo{
		Repository:       memory.NewSeeded(),
		failCreateOrder:  true,
		failCreateIncome: true,
	}
	svc := newTestService(repo)
	ctx := context.Background()

	result, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)
	assert.True(t, result.Partial)
	assert.Len(t, result.Warnings, 2)
	assert.Empty(t, result.OrderID)
	assert.Empty(t, result.IncomeID)
	assert.Equal(t, 48, stockOf(t, repo, coffee))

	_, err = repo.GetSale(ctx, owner, xid.Strip(result.Sale.ID))
	require.NoError(t, err)

	repo.failCreateOrder = false
	repo.failCreateIncome = false

	repaired, err := svc.RepairSale(ctx, owner, result.Sale.ID)
	require.NoError(t, err)
	assert.True(t, repaired.OrderCreated)
	assert.True(t, repaired.IncomeCreated)
	assert.Zero(t, repaired.LinesConsumed)
	assert.False(t, repaired.AlreadyInSync)
	assert.Equal(t, 48, stockOf(t, repo, coffee))

	again, err := svc.RepairSale(ctx, owner, result.Sale.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyInSync)

	orders, err := repo.ListOrders(ctx, owner, "", 10)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	incomes, err := repo.ListIncomes(ctx, owner, 10)
	require.NoError(t, err)
	assert.Len(t, incomes, 1)
}

func TestRepairConsumesLinesThatFailedEarlier(t *testing.T) {
	repo := &flakyRepo{
		Repository: memory.NewSeeded(),
		failAdjust: map[string]bool{tea: true},
	}
	svc := newTestService(repo)
	ctx := context.Background()

	result, err := svc.SaveSale(ctx, owner, domain.SaleInput{
		Items:         []domain.LineItem{{ProductID: coffee, Qty: 1}, {ProductID: tea, Qty: 2}},
		PaymentMethod: domain.PaymentEwallet,
	}, "")
	require.NoError(t, err)
	assert.True(t, result.Partial)
	assert.Equal(t, 49, stockOf(t, repo, coffee))
	assert.Equal(t, 50, stockOf(t, repo, tea))

	repo.failAdjust = nil
	repaired, err := svc.RepairSale(ctx, owner, result.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repaired.LinesConsumed)
	assert.Equal(t, 49, stockOf(t, repo, coffee))
	assert.Equal(t, 48, stockOf(t, repo, tea))

	again, err := svc.RepairSale(ctx, owner, result.Sale.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyInSync)
	assert.Equal(t, 48, stockOf(t, repo, tea))

	_, err = svc.DeleteSale(ctx, owner, result.Sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, stockOf(t, repo, coffee))
	assert.Equal(t, 50, stockOf(t, repo, tea))
}

func TestDeleteSaleSurvivesMirrorFailures(t *testing.T) {
	repo := &flakyRepo{Repository: memory.NewSeeded()}
	svc := newTestService(repo)
	ctx := context.Background()

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)

	repo.failAdjust = map[string]bool{coffee: true}
	deleted, err := svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)
	assert.Len(t, deleted.Warnings, 1)
	assert.Equal(t, 48, stockOf(t, repo, coffee))

	_, err = repo.GetSale(ctx, owner, xid.Strip(saved.Sale.ID))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListRecentUsesDisplayIDsAndCache(t *testing.T) {
	repo := memory.NewSeeded()
	history := &recordingHistory{}
	svc := New(repo, history, Options{HistoryLimit: 2})
	clock := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	ctx := context.Background()

	var ids []string
	for _, buyer := range []string{"A", "B", "C"} {
		res, err := svc.SaveSale(ctx, owner, coffeeSale(buyer), "")
		require.NoError(t, err)
		ids = append(ids, res.Sale.ID)
	}
	assert.Equal(t, 3, history.sets)

	recent, err := svc.ListRecent(ctx, owner, 0)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[2], recent[0].ID)
	assert.Equal(t, ids[1], recent[1].ID)

	cached := history.entries[owner]
	require.Len(t, cached, 3)
	assert.Equal(t, xid.Strip(ids[2]), cached[0].ID)

	for _, sale := range recent {
		_, err := repo.GetSale(ctx, owner, xid.Strip(sale.ID))
		require.NoError(t, err)
	}

	all, err := svc.ListRecent(ctx, owner, 500)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.DeleteSale(ctx, owner, ids[2])
	require.NoError(t, err)
	recent, err = svc.ListRecent(ctx, owner, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[1], recent[0].ID)
}

func TestCreateProductRequiresAdmin(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	req := domain.ProductCreateRequest{ID: "sku-new-01", Name: "Matcha", Category: "beverage", PriceCents: 28000, InitialStock: 7}

	_, err := svc.CreateProduct(WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"}), req)
	require.ErrorIs(t, err, ErrForbidden)

	product, err := svc.CreateProduct(WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"}), req)
	require.NoError(t, err)
	assert.Equal(t, "SKU-NEW-01", product.ID)
	assert.Equal(t, 7, stockOf(t, repo, "SKU-NEW-01"))
}

func TestWritesAreAudited(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})

	saved, err := svc.SaveSale(ctx, owner, coffeeSale("Ana"), "")
	require.NoError(t, err)
	_, err = svc.DeleteSale(ctx, owner, saved.Sale.ID)
	require.NoError(t, err)

	logs, err := repo.ListAuditLogs(context.Background(), owner, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "sale_delete", logs[0].Action)
	assert.Equal(t, "sale_create", logs[1].Action)
	assert.Equal(t, "cashier", logs[0].ActorUsername)
}
