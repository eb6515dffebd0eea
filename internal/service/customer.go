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

// resolveCustomer maps a free-text buyer name to a customer id for the owner,
// creating the customer on first use. It returns the id and the normalized
// name that was matched. Concurrent first uses of one name may create two
// customers; lookups then settle on the oldest.
func (s *Service) resolveCustomer(ctx context.Context, ownerID string, displayName string) (string, string, error) {
	name := strings.Join(strings.Fields(displayName), " ")
	if name == "" {
		name = domain.PlaceholderBuyer
	}

	existing, err := s.repo.FindCustomerByName(ctx, ownerID, name)
	if err == nil {
		return existing.ID, existing.Name, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", "", fmt.Errorf("%w: lookup %q: %w", ErrCustomerResolution, name, err)
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New(xid.KindCustomer).StorageKey(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: s.now(),
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: create %q: %w", ErrCustomerResolution, name, err)
	}
	return created.ID, created.Name, nil
}
