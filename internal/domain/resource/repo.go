package resource

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrResourceNotFound = errors.New("resource not found")
	ErrNotAvailable     = errors.New("resource is not available")
	ErrNotAssigned      = errors.New("resource is not assigned")
)

type Repository interface {
	Create(ctx context.Context, r *HospitalResource) error
	GetByID(ctx context.Context, id uuid.UUID) (*HospitalResource, error)
	Update(ctx context.Context, r *HospitalResource) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*HospitalResource, int, error)
}
