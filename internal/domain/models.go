package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	InitialStock int    `json:"initial_stock"`
}

type Customer struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LineItem captures a product reference and quantity, with price and name
// denormalized at the moment of sale. StockApplied is true while Qty is
// subtracted from the product's stock.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name,omitempty"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
	Qty            int    `json:"qty"`
	StockApplied   bool   `json:"stock_applied"`
}

func (l LineItem) SubtotalCents() int64 {
	return l.UnitPriceCents * int64(l.Qty)
}

type Sale struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	CustomerID        string     `json:"customer_id"`
	BuyerName         string     `json:"buyer_name"`
	Items             []LineItem `json:"items"`
	// Stranded keeps replaced lines whose stock could not be released yet.
	// Every entry still has StockApplied set.
	Stranded          []LineItem `json:"stranded_items,omitempty"`
	TotalCents        int64      `json:"total_cents"`
	PaymentMethod     string     `json:"payment_method"`
	CashReceivedCents int64      `json:"cash_received_cents"`
	ChangeCents       int64      `json:"change_cents"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type SaleInput struct {
	BuyerName         string     `json:"buyer_name"`
	Items             []LineItem `json:"items"`
	TotalCents        int64      `json:"total_cents,omitempty"`
	PaymentMethod     string     `json:"payment_method"`
	CashReceivedCents int64      `json:"cash_received_cents"`
	Status            string     `json:"status,omitempty"`
}

type SaveResult struct {
	Sale     Sale     `json:"sale"`
	OrderID  string   `json:"order_id,omitempty"`
	IncomeID string   `json:"income_id,omitempty"`
	Partial  bool     `json:"partial"`
	Warnings []string `json:"warnings,omitempty"`
}

type DeleteResult struct {
	SaleID   string   `json:"sale_id"`
	Warnings []string `json:"warnings,omitempty"`
}

type RepairResult struct {
	SaleID        string   `json:"sale_id"`
	OrderCreated  bool     `json:"order_created"`
	IncomeCreated bool     `json:"income_created"`
	LinesConsumed int      `json:"lines_consumed"`
	LinesRestored int      `json:"lines_restored"`
	AlreadyInSync bool     `json:"already_in_sync"`
	Warnings      []string `json:"warnings,omitempty"`
}

type Order struct {
	ID             string     `json:"id"`
	OwnerID        string     `json:"owner_id"`
	CustomerID     string     `json:"customer_id"`
	Items          []LineItem `json:"items"`
	TotalCents     int64      `json:"total_cents"`
	Status         string     `json:"status"`
	PaymentMethod  string     `json:"payment_method"`
	ProofOfPayment string     `json:"proof_of_payment,omitempty"`
	SaleID         string     `json:"sale_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type OrderInput struct {
	CustomerName   string     `json:"customer_name"`
	Items          []LineItem `json:"items"`
	Status         string     `json:"status"`
	PaymentMethod  string     `json:"payment_method"`
	ProofOfPayment string     `json:"proof_of_payment,omitempty"`
}

type OrderResult struct {
	Order    Order    `json:"order"`
	Partial  bool     `json:"partial"`
	Warnings []string `json:"warnings,omitempty"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type Income struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Type        string          `json:"type"`
	AmountCents int64           `json:"amount_cents"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	SaleID      string          `json:"sale_id,omitempty"`
	Date        time.Time       `json:"date"`
}

// IncomeMatch is the content-equality key used for income rows written
// without a SaleID.
type IncomeMatch struct {
	OwnerID     string
	Type        string
	AmountCents int64
	Description string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	ActorUsername string    `json:"actor_username"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusCanceled = "canceled"
)

const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentQRIS     = "qris"
	PaymentTransfer = "transfer"
	PaymentEwallet  = "ewallet"
)

const (
	IncomeTypeIncome  = "income"
	IncomeCategoryPOS = "POS Sales"
	PlaceholderBuyer  = "POS Customer"
	DefaultCurrency   = "IDR"
)

func IsOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCanceled:
		return true
	default:
		return false
	}
}
