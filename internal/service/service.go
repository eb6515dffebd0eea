package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"catatkas/backend/internal/cache"
	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

var (
	ErrInvalidSale        = errors.New("invalid sale")
	ErrInvalidOrder       = errors.New("invalid order")
	ErrCustomerResolution = errors.New("customer resolution failed")
	ErrPrimaryWrite       = errors.New("primary write failed")
	ErrLinkedOrder        = errors.New("order belongs to a POS sale")
	ErrForbidden          = errors.New("admin role required")
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	defaultOrderLimit   = 50
	maxOrderLimit       = 200
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Currency     string
	HistoryTTL   time.Duration
	HistoryLimit int
}

type Service struct {
	repo         store.Repository
	history      cache.HistoryCache
	currency     string
	historyTTL   time.Duration
	historyLimit int
	now          func() time.Time
}

func New(repo store.Repository, history cache.HistoryCache, opts Options) *Service {
	if history == nil {
		history = cache.NoopHistoryCache{}
	}
	if opts.Currency == "" {
		opts.Currency = domain.DefaultCurrency
	}
	if opts.HistoryTTL <= 0 {
		opts.HistoryTTL = 5 * time.Minute
	}
	if opts.HistoryLimit < 1 || opts.HistoryLimit > maxHistoryLimit {
		opts.HistoryLimit = defaultHistoryLimit
	}

	return &Service{
		repo:         repo,
		history:      history,
		currency:     strings.ToUpper(opts.Currency),
		historyTTL:   opts.HistoryTTL,
		historyLimit: opts.HistoryLimit,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *Service) logAudit(ctx context.Context, ownerID string, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New(xid.KindAudit).StorageKey(),
		OwnerID:       ownerID,
		ActorUsername: actor.Username,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// warnings collects secondary-write failures. Each one is logged under tag
// and kept for the caller as a user-facing caveat.
type warnings struct {
	tag  string
	list []string
}

func (w *warnings) add(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[%s] WARN: %s", w.tag, msg)
	w.list = append(w.list, msg)
}

func (w *warnings) empty() bool {
	return len(w.list) == 0
}

func requireOwner(ownerID string) error {
	if strings.TrimSpace(ownerID) == "" {
		return fmt.Errorf("%w: owner id is required", store.ErrInvalidRecord)
	}
	return nil
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentQRIS, domain.PaymentTransfer, domain.PaymentEwallet:
		return true
	default:
		return false
	}
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func clampLimit(limit int, fallback int, max int) int {
	if limit < 1 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func displaySale(sale domain.Sale) domain.Sale {
	sale.ID = xid.ApplyPrefix(xid.KindSale, sale.ID)
	sale.Items = append([]domain.LineItem(nil), sale.Items...)
	return sale
}

func displayOrder(order domain.Order) domain.Order {
	order.ID = xid.ApplyPrefix(xid.KindOrder, order.ID)
	order.SaleID = xid.ApplyPrefix(xid.KindSale, order.SaleID)
	order.Items = append([]domain.LineItem(nil), order.Items...)
	return order
}
