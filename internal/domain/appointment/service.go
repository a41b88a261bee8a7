package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	appts Repository
}

func NewService(appts Repository) *Service {
	return &Service{appts: appts}
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if err := validate(a); err != nil {
		return err
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = DefaultDurationMinutes
	}
	a.Status = StatusScheduled
	if err := s.checkConflict(ctx, a); err != nil {
		return err
	}
	return s.appts.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, a *Appointment) error {
	if err := validate(a); err != nil {
		return err
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = DefaultDurationMinutes
	}
	if !ValidStatus(a.Status) {
		return fmt.Errorf("invalid status: %s", a.Status)
	}
	if blocksSlot(a.Status) {
		if err := s.checkConflict(ctx, a); err != nil {
			return err
		}
	}
	return s.appts.Update(ctx, a)
}

// UpdateStatus moves an appointment through its lifecycle
// (Scheduled, Completed, Cancelled, No-Show).
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("invalid status: %s", status)
	}
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Status = status
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appts.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.List(ctx, f, limit, offset)
}

func (s *Service) checkConflict(ctx context.Context, a *Appointment) error {
	overlapping, err := s.appts.ListForDoctor(ctx, a.DoctorID, a.StartTime, a.EndTime(), a.ID)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	for _, other := range overlapping {
		if a.ConflictsWith(other) {
			return ErrSlotConflict
		}
	}
	return nil
}

func validate(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.StartTime.IsZero() {
		return fmt.Errorf("start_time is required")
	}
	return nil
}
