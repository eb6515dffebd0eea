package service

import (
	"context"
	"fmt"
	"strings"

	"catatkas/backend/internal/domain"
	"catatkas/backend/internal/store"
	"catatkas/backend/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, ErrForbidden
	}

	req.ID = strings.ToUpper(strings.TrimSpace(req.ID))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.ID == "" || req.Name == "" || req.PriceCents < 1 || req.InitialStock < 0 {
		return domain.Product{}, store.ErrInvalidRecord
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		ID:         req.ID,
		Name:       req.Name,
		Category:   req.Category,
		PriceCents: req.PriceCents,
		Stock:      req.InitialStock,
		CreatedAt:  s.now(),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "", "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, created.Stock))
	return *created, nil
}

func (s *Service) ListCustomers(ctx context.Context, ownerID string) ([]domain.Customer, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx, ownerID)
}

func (s *Service) ListIncomes(ctx context.Context, ownerID string, limit int) ([]domain.Income, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	incomes, err := s.repo.ListIncomes(ctx, ownerID, clampLimit(limit, 50, 200))
	if err != nil {
		return nil, err
	}
	for i := range incomes {
		incomes[i].SaleID = xid.ApplyPrefix(xid.KindSale, incomes[i].SaleID)
	}
	return incomes, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, ownerID string, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, ErrForbidden
	}
	return s.repo.ListAuditLogs(ctx, ownerID, clampLimit(limit, 100, 500))
}
