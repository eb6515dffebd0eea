package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, price_cents, stock, created_at
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = p.CreatedAt.UTC()
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidRecord
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price_cents, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, product.ID, product.Name, product.Category, product.PriceCents, product.Stock, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, price_cents, stock, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	var stock int
	err := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
		RETURNING stock
	`, productID, delta).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, store.ErrNotFound
		}
		return 0, err
	}
	return stock, nil
}

func (s *Store) FindCustomerByName(ctx context.Context, ownerID string, name string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at
		FROM customers
		WHERE owner_id = $1 AND name = $2
		ORDER BY created_at ASC
		LIMIT 1
	`, ownerID, name).Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.ID == "" || customer.OwnerID == "" || customer.Name == "" {
		return nil, store.ErrInvalidRecord
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, owner_id, name, created_at)
		VALUES ($1,$2,$3,$4)
	`, customer.ID, customer.OwnerID, customer.Name, customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) ListCustomers(ctx context.Context, ownerID string) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at
		FROM customers
		WHERE owner_id = $1
		ORDER BY name ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

const saleColumns = `id, owner_id, customer_id, buyer_name, items, stranded_items, total_cents, payment_method,
	cash_received_cents, change_cents, created_at, updated_at`

func scanSale(row rowScanner) (*domain.Sale, error) {
	var sale domain.Sale
	var rawItems, rawStranded []byte
	if err := row.Scan(
		&sale.ID, &sale.OwnerID, &sale.CustomerID, &sale.BuyerName, &rawItems, &rawStranded, &sale.TotalCents, &sale.PaymentMethod,
		&sale.CashReceivedCents, &sale.ChangeCents, &sale.CreatedAt, &sale.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawItems, &sale.Items); err != nil {
		return nil, fmt.Errorf("decode sale %s items: %w", sale.ID, err)
	}
	if len(rawStranded) > 0 {
		if err := json.Unmarshal(rawStranded, &sale.Stranded); err != nil {
			return nil, fmt.Errorf("decode sale %s stranded items: %w", sale.ID, err)
		}
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	sale.UpdatedAt = sale.UpdatedAt.UTC()
	return &sale, nil
}

func encodeSaleLines(sale domain.Sale) ([]byte, []byte, error) {
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, nil, err
	}
	stranded := []byte("[]")
	if len(sale.Stranded) > 0 {
		if stranded, err = json.Marshal(sale.Stranded); err != nil {
			return nil, nil, err
		}
	}
	return items, stranded, nil
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.OwnerID == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	items, stranded, err := encodeSaleLines(sale)
	if err != nil {
		return nil, err
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	sale.UpdatedAt = sale.CreatedAt

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, sale.ID, sale.OwnerID, sale.CustomerID, sale.BuyerName, items, stranded, sale.TotalCents, sale.PaymentMethod,
		sale.CashReceivedCents, sale.ChangeCents, sale.CreatedAt, sale.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) GetSale(ctx context.Context, ownerID string, id string) (*domain.Sale, error) {
	sale, err := scanSale(s.db.QueryRowContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE owner_id = $1 AND id = $2
	`, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	items, stranded, err := encodeSaleLines(sale)
	if err != nil {
		return nil, err
	}

	updated, err := scanSale(s.db.QueryRowContext(ctx, `
		UPDATE sales
		SET customer_id = $3, buyer_name = $4, items = $5, stranded_items = $10, total_cents = $6, payment_method = $7,
			cash_received_cents = $8, change_cents = $9, updated_at = now()
		WHERE owner_id = $1 AND id = $2
		RETURNING `+saleColumns,
		sale.OwnerID, sale.ID, sale.CustomerID, sale.BuyerName, items, sale.TotalCents, sale.PaymentMethod,
		sale.CashReceivedCents, sale.ChangeCents, stranded))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteSale(ctx context.Context, ownerID string, id string) error {
	return s.deleteOwned(ctx, "sales", ownerID, id)
}

func (s *Store) ListRecentSales(ctx context.Context, ownerID string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

const orderColumns = `id, owner_id, customer_id, items, total_cents, status, payment_method,
	proof_of_payment, COALESCE(sale_id, ''), created_at, updated_at`

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var rawItems []byte
	if err := row.Scan(
		&order.ID, &order.OwnerID, &order.CustomerID, &rawItems, &order.TotalCents, &order.Status, &order.PaymentMethod,
		&order.ProofOfPayment, &order.SaleID, &order.CreatedAt, &order.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(rawItems, &order.Items); err != nil {
		return nil, fmt.Errorf("decode order %s items: %w", order.ID, err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if order.ID == "" || order.OwnerID == "" || !domain.IsOrderStatus(order.Status) {
		return nil, store.ErrInvalidRecord
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, owner_id, customer_id, items, total_cents, status, payment_method,
			proof_of_payment, sale_id, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, order.ID, order.OwnerID, order.CustomerID, items, order.TotalCents, order.Status, order.PaymentMethod,
		order.ProofOfPayment, nullIfEmpty(order.SaleID), order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := order
	return &created, nil
}

func (s *Store) GetOrder(ctx context.Context, ownerID string, id string) (*domain.Order, error) {
	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE owner_id = $1 AND id = $2
	`, ownerID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Store) FindOrderBySaleID(ctx context.Context, ownerID string, saleID string) (*domain.Order, error) {
	if saleID == "" {
		return nil, store.ErrNotFound
	}
	order, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE owner_id = $1 AND sale_id = $2
	`, ownerID, saleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *Store) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if !domain.IsOrderStatus(order.Status) {
		return nil, store.ErrInvalidRecord
	}
	items, err := json.Marshal(order.Items)
	if err != nil {
		return nil, err
	}

	updated, err := scanOrder(s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET customer_id = $3, items = $4, total_cents = $5, status = $6, payment_method = $7,
			proof_of_payment = $8, updated_at = now()
		WHERE owner_id = $1 AND id = $2
		RETURNING `+orderColumns,
		order.OwnerID, order.ID, order.CustomerID, items, order.TotalCents, order.Status, order.PaymentMethod,
		order.ProofOfPayment))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteOrder(ctx context.Context, ownerID string, id string) error {
	return s.deleteOwned(ctx, "orders", ownerID, id)
}

func (s *Store) ListOrders(ctx context.Context, ownerID string, status string, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE owner_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, ownerID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, limit)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

const incomeColumns = `id, owner_id, type, amount_cents, amount, currency, category, description,
	COALESCE(sale_id, ''), date`

func scanIncome(row rowScanner) (*domain.Income, error) {
	var income domain.Income
	if err := row.Scan(
		&income.ID, &income.OwnerID, &income.Type, &income.AmountCents, &income.Amount, &income.Currency,
		&income.Category, &income.Description, &income.SaleID, &income.Date,
	); err != nil {
		return nil, err
	}
	income.Date = income.Date.UTC()
	return &income, nil
}

func (s *Store) CreateIncome(ctx context.Context, income domain.Income) (*domain.Income, error) {
	if income.ID == "" || income.OwnerID == "" {
		return nil, store.ErrInvalidRecord
	}
	if income.Date.IsZero() {
		income.Date = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incomes (id, owner_id, type, amount_cents, amount, currency, category, description, sale_id, date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, income.ID, income.OwnerID, income.Type, income.AmountCents, income.Amount, income.Currency,
		income.Category, income.Description, nullIfEmpty(income.SaleID), income.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := income
	return &created, nil
}

func (s *Store) FindIncomeBySaleID(ctx context.Context, ownerID string, saleID string) (*domain.Income, error) {
	if saleID == "" {
		return nil, store.ErrNotFound
	}
	income, err := scanIncome(s.db.QueryRowContext(ctx, `
		SELECT `+incomeColumns+`
		FROM incomes
		WHERE owner_id = $1 AND sale_id = $2
		ORDER BY date ASC
		LIMIT 1
	`, ownerID, saleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return income, nil
}

func (s *Store) FindIncomeByMatch(ctx context.Context, match domain.IncomeMatch) (*domain.Income, error) {
	income, err := scanIncome(s.db.QueryRowContext(ctx, `
		SELECT `+incomeColumns+`
		FROM incomes
		WHERE owner_id = $1 AND type = $2 AND amount_cents = $3 AND description = $4
			AND (sale_id IS NULL OR sale_id = '')
		ORDER BY date ASC
		LIMIT 1
	`, match.OwnerID, match.Type, match.AmountCents, match.Description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return income, nil
}

func (s *Store) UpdateIncome(ctx context.Context, income domain.Income) (*domain.Income, error) {
	updated, err := scanIncome(s.db.QueryRowContext(ctx, `
		UPDATE incomes
		SET type = $3, amount_cents = $4, amount = $5, currency = $6, category = $7, description = $8,
			sale_id = $9, date = $10
		WHERE owner_id = $1 AND id = $2
		RETURNING `+incomeColumns,
		income.OwnerID, income.ID, income.Type, income.AmountCents, income.Amount, income.Currency,
		income.Category, income.Description, nullIfEmpty(income.SaleID), income.Date))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteIncome(ctx context.Context, ownerID string, id string) error {
	return s.deleteOwned(ctx, "incomes", ownerID, id)
}

func (s *Store) ListIncomes(ctx context.Context, ownerID string, limit int) ([]domain.Income, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+incomeColumns+`
		FROM incomes
		WHERE owner_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := make([]domain.Income, 0, limit)
	for rows.Next() {
		income, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, *income)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return incomes, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		return store.ErrInvalidRecord
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, owner_id, actor_username, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.OwnerID, entry.ActorUsername, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, actor_username, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE $1 = '' OR owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.OwnerID, &entry.ActorUsername, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,true,$4,now())
	`, user.Username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRecord
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidRecord
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// deleteOwned removes one row keyed by (owner_id, id). table is always a
// package constant, never caller input.
func (s *Store) deleteOwned(ctx context.Context, table string, ownerID string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
