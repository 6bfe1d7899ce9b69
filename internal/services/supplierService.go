package services

import (
	"context"
	"errors"

	"supplierhub/internal/apperrors"
	"supplierhub/internal/models"
	"supplierhub/internal/repositories"
)

// SupplierService serves the read-only supplier views of a signed-in user.
type SupplierService interface {
	// MySupplier returns the user's supplier profile, or nil if the user has
	// none or the reference is dangling.
	MySupplier(ctx context.Context, user *models.User) (*models.Supplier, error)
	PublicUser(ctx context.Context, user *models.User) models.PublicUser
}

type supplierService struct {
	suppliers repositories.SupplierRepository
}

func NewSupplierService(suppliers repositories.SupplierRepository) SupplierService {
	return &supplierService{suppliers: suppliers}
}

func (s *supplierService) MySupplier(ctx context.Context, user *models.User) (*models.Supplier, error) {
	if user.SupplierID == nil {
		return nil, nil
	}
	supplier, err := s.suppliers.FindByID(ctx, *user.SupplierID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.Internal("Failed to fetch supplier data", err)
	}
	return supplier, nil
}

func (s *supplierService) PublicUser(ctx context.Context, user *models.User) models.PublicUser {
	return newPublicUser(ctx, s.suppliers, user)
}
