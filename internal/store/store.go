package store

import (
	"context"
	"errors"

	"catatkas/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Repository is the storage collaborator of the sale engine. Every call is an
// independent round trip; nothing here spans more than one record kind.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// AdjustStock adds delta to the product's stock in a single atomic step and
	// returns the resulting quantity.
	AdjustStock(ctx context.Context, productID string, delta int) (int, error)

	FindCustomerByName(ctx context.Context, ownerID string, name string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	ListCustomers(ctx context.Context, ownerID string) ([]domain.Customer, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, ownerID string, id string) (*domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	DeleteSale(ctx context.Context, ownerID string, id string) error
	ListRecentSales(ctx context.Context, ownerID string, limit int) ([]domain.Sale, error)

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrder(ctx context.Context, ownerID string, id string) (*domain.Order, error)
	FindOrderBySaleID(ctx context.Context, ownerID string, saleID string) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	DeleteOrder(ctx context.Context, ownerID string, id string) error
	ListOrders(ctx context.Context, ownerID string, status string, limit int) ([]domain.Order, error)

	CreateIncome(ctx context.Context, income domain.Income) (*domain.Income, error)
	FindIncomeBySaleID(ctx context.Context, ownerID string, saleID string) (*domain.Income, error)
	FindIncomeByMatch(ctx context.Context, match domain.IncomeMatch) (*domain.Income, error)
	UpdateIncome(ctx context.Context, income domain.Income) (*domain.Income, error)
	DeleteIncome(ctx context.Context, ownerID string, id string) error
	ListIncomes(ctx context.Context, ownerID string, limit int) ([]domain.Income, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
