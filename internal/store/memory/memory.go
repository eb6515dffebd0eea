package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
)

type saleEntry struct {
	sale domain.Sale
	seq  int64
}

type Store struct {
	mu              sync.RWMutex
	seq             int64
	products        map[string]domain.Product
	customersByID   map[string]domain.Customer
	salesByID       map[string]saleEntry
	ordersByID      map[string]domain.Order
	incomesByID     map[string]domain.Income
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD;
// when unset, dev defaults are used and a warning is printed.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// New returns an empty store with no products and no users.
func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		customersByID:   make(map[string]domain.Customer),
		salesByID:       make(map[string]saleEntry),
		ordersByID:      make(map[string]domain.Order),
		incomesByID:     make(map[string]domain.Income),
		auditLogs:       make([]domain.AuditLog, 0, 64),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	for _, p := range []domain.Product{
		{ID: "SKU-COFFEE-01", Name: "Coffee", Category: "beverage", PriceCents: 20000, Stock: 50},
		{ID: "SKU-TEA-01", Name: "Iced Tea", Category: "beverage", PriceCents: 12000, Stock: 50},
		{ID: "SKU-CROISSANT-01", Name: "Croissant", Category: "bakery", PriceCents: 18500, Stock: 30},
		{ID: "SKU-BAGEL-01", Name: "Bagel", Category: "bakery", PriceCents: 15000, Stock: 30},
		{ID: "SKU-BEANS-01", Name: "Coffee Beans 250g", Category: "retail", PriceCents: 95000, Stock: 12},
		{ID: "SKU-MUG-01", Name: "Ceramic Mug", Category: "retail", PriceCents: 65000, Stock: 8},
	} {
		p.CreatedAt = now
		s.products[p.ID] = p
	}
	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})
	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidRecord
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidRecord
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return 0, store.ErrNotFound
	}
	product.Stock += delta
	s.products[productID] = product
	return product.Stock, nil
}

func (s *Store) FindCustomerByName(_ context.Context, ownerID string, name string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Customer
	for _, c := range s.customersByID {
		if c.OwnerID != ownerID || c.Name != name {
			continue
		}
		// Oldest wins when a race produced duplicates.
		if found == nil || c.CreatedAt.Before(found.CreatedAt) {
			match := c
			found = &match
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.ID == "" || customer.OwnerID == "" || customer.Name == "" {
		return nil, store.ErrInvalidRecord
	}
	if _, exists := s.customersByID[customer.ID]; exists {
		return nil, store.ErrInvalidRecord
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(_ context.Context, ownerID string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0)
	for _, c := range s.customersByID {
		if c.OwnerID == ownerID {
			customers = append(customers, c)
		}
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return cmpString(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" || sale.OwnerID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if _, exists := s.salesByID[sale.ID]; exists {
		return nil, store.ErrInvalidRecord
	}
	now := time.Now().UTC()
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = now
	}
	sale.UpdatedAt = sale.CreatedAt
	sale = cloneSale(sale)
	s.seq++
	s.salesByID[sale.ID] = saleEntry{sale: sale, seq: s.seq}

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) GetSale(_ context.Context, ownerID string, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.salesByID[id]
	if !exists || entry.sale.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	sale := cloneSale(entry.sale)
	return &sale, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.salesByID[sale.ID]
	if !exists || entry.sale.OwnerID != sale.OwnerID {
		return nil, store.ErrNotFound
	}
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	sale.CreatedAt = entry.sale.CreatedAt
	sale.UpdatedAt = time.Now().UTC()
	entry.sale = cloneSale(sale)
	s.salesByID[sale.ID] = entry

	updated := cloneSale(sale)
	return &updated, nil
}

func (s *Store) DeleteSale(_ context.Context, ownerID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.salesByID[id]
	if !exists || entry.sale.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(s.salesByID, id)
	return nil
}

func (s *Store) ListRecentSales(_ context.Context, ownerID string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]saleEntry, 0)
	for _, entry := range s.salesByID {
		if entry.sale.OwnerID == ownerID {
			entries = append(entries, entry)
		}
	}
	slices.SortFunc(entries, func(a, b saleEntry) int {
		if a.sale.CreatedAt.Equal(b.sale.CreatedAt) {
			return int(b.seq - a.seq)
		}
		if a.sale.CreatedAt.After(b.sale.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	sales := make([]domain.Sale, 0, len(entries))
	for _, entry := range entries {
		sales = append(sales, cloneSale(entry.sale))
	}
	return sales, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" || order.OwnerID == "" || !domain.IsOrderStatus(order.Status) {
		return nil, store.ErrInvalidRecord
	}
	if _, exists := s.ordersByID[order.ID]; exists {
		return nil, store.ErrInvalidRecord
	}
	if order.SaleID != "" {
		for _, existing := range s.ordersByID {
			if existing.SaleID == order.SaleID {
				return nil, store.ErrInvalidRecord
			}
		}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt
	order.Items = cloneItems(order.Items)
	s.ordersByID[order.ID] = order

	created := order
	created.Items = cloneItems(order.Items)
	return &created, nil
}

func (s *Store) GetOrder(_ context.Context, ownerID string, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists || order.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	order.Items = cloneItems(order.Items)
	return &order, nil
}

func (s *Store) FindOrderBySaleID(_ context.Context, ownerID string, saleID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, order := range s.ordersByID {
		if order.OwnerID == ownerID && order.SaleID == saleID && saleID != "" {
			order.Items = cloneItems(order.Items)
			return &order, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.ordersByID[order.ID]
	if !exists || existing.OwnerID != order.OwnerID {
		return nil, store.ErrNotFound
	}
	if !domain.IsOrderStatus(order.Status) {
		return nil, store.ErrInvalidRecord
	}
	order.CreatedAt = existing.CreatedAt
	order.SaleID = existing.SaleID
	order.UpdatedAt = time.Now().UTC()
	order.Items = cloneItems(order.Items)
	s.ordersByID[order.ID] = order

	updated := order
	updated.Items = cloneItems(order.Items)
	return &updated, nil
}

func (s *Store) DeleteOrder(_ context.Context, ownerID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists || order.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(s.ordersByID, id)
	return nil
}

func (s *Store) ListOrders(_ context.Context, ownerID string, status string, limit int) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0)
	for _, order := range s.ordersByID {
		if order.OwnerID != ownerID {
			continue
		}
		if status != "" && order.Status != status {
			continue
		}
		order.Items = cloneItems(order.Items)
		orders = append(orders, order)
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) CreateIncome(_ context.Context, income domain.Income) (*domain.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if income.ID == "" || income.OwnerID == "" {
		return nil, store.ErrInvalidRecord
	}
	if _, exists := s.incomesByID[income.ID]; exists {
		return nil, store.ErrInvalidRecord
	}
	if income.Date.IsZero() {
		income.Date = time.Now().UTC()
	}
	s.incomesByID[income.ID] = income
	created := income
	return &created, nil
}

func (s *Store) FindIncomeBySaleID(_ context.Context, ownerID string, saleID string) (*domain.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, income := range s.incomesByID {
		if income.OwnerID == ownerID && income.SaleID == saleID && saleID != "" {
			return &income, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindIncomeByMatch(_ context.Context, match domain.IncomeMatch) (*domain.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Income
	for _, income := range s.incomesByID {
		if income.OwnerID != match.OwnerID || income.Type != match.Type || income.SaleID != "" {
			continue
		}
		if income.AmountCents != match.AmountCents || income.Description != match.Description {
			continue
		}
		if found == nil || income.Date.Before(found.Date) {
			candidate := income
			found = &candidate
		}
	}
	if found == nil {
		return nil, store.ErrNotFound
	}
	return found, nil
}

func (s *Store) UpdateIncome(_ context.Context, income domain.Income) (*domain.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.incomesByID[income.ID]
	if !exists || existing.OwnerID != income.OwnerID {
		return nil, store.ErrNotFound
	}
	s.incomesByID[income.ID] = income
	updated := income
	return &updated, nil
}

func (s *Store) DeleteIncome(_ context.Context, ownerID string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	income, exists := s.incomesByID[id]
	if !exists || income.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(s.incomesByID, id)
	return nil
}

func (s *Store) ListIncomes(_ context.Context, ownerID string, limit int) ([]domain.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incomes := make([]domain.Income, 0)
	for _, income := range s.incomesByID {
		if income.OwnerID == ownerID {
			incomes = append(incomes, income)
		}
	}
	slices.SortFunc(incomes, func(a, b domain.Income) int {
		if a.Date.Equal(b.Date) {
			return cmpString(b.ID, a.ID)
		}
		if a.Date.After(b.Date) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(incomes) > limit {
		incomes = incomes[:limit]
	}
	return incomes, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, ownerID string, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 64)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if ownerID != "" && entry.OwnerID != ownerID {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidRecord
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneSale(sale domain.Sale) domain.Sale {
	sale.Items = cloneItems(sale.Items)
	sale.Stranded = cloneItems(sale.Stranded)
	return sale
}

func cloneItems(items []domain.LineItem) []domain.LineItem {
	if items == nil {
		return nil
	}
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out
}
