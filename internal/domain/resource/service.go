package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TxRunner runs fn inside a database transaction carried on the context
// passed to fn.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	resources Repository
	tx        TxRunner
}

func NewService(resources Repository, tx TxRunner) *Service {
	return &Service{resources: resources, tx: tx}
}

func (s *Service) Create(ctx context.Context, r *HospitalResource) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidType(r.Type) {
		return fmt.Errorf("invalid resource type: %s", r.Type)
	}
	if r.Status == "" {
		r.Status = StatusAvailable
	}
	if !ValidStatus(r.Status) {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	return s.resources.Create(ctx, r)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*HospitalResource, error) {
	return s.resources.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, r *HospitalResource) error {
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !ValidType(r.Type) {
		return fmt.Errorf("invalid resource type: %s", r.Type)
	}
	if !ValidStatus(r.Status) {
		return fmt.Errorf("invalid status: %s", r.Status)
	}
	return s.resources.Update(ctx, r)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.resources.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*HospitalResource, int, error) {
	return s.resources.List(ctx, f, limit, offset)
}

// Assign gives an available resource to a patient and marks it occupied.
// The status check and the update share one transaction.
func (s *Service) Assign(ctx context.Context, id, patientID uuid.UUID) (*HospitalResource, error) {
	var out *HospitalResource
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.resources.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusAvailable {
			return ErrNotAvailable
		}
		now := time.Now().UTC()
		r.Status = StatusOccupied
		r.AssignedToPatientID = &patientID
		r.AssignedAt = &now
		if err := s.resources.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Release frees an occupied resource and makes it available again.
func (s *Service) Release(ctx context.Context, id uuid.UUID) (*HospitalResource, error) {
	var out *HospitalResource
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.resources.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusOccupied {
			return ErrNotAssigned
		}
		r.Status = StatusAvailable
		r.AssignedToPatientID = nil
		r.AssignedAt = nil
		if err := s.resources.Update(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
