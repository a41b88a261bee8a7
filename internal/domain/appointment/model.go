package appointment

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusScheduled = "Scheduled"
	StatusCompleted = "Completed"
	StatusCancelled = "Cancelled"
	StatusNoShow    = "No-Show"
)

const DefaultDurationMinutes = 30

// Appointment books a patient with a doctor for a time slot.
type Appointment struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	DoctorID        uuid.UUID `json:"doctor_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EndTime returns the scheduled end of the slot.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// ConflictsWith reports whether two appointments for the same doctor
// overlap in time. Cancelled and no-show slots never conflict.
func (a *Appointment) ConflictsWith(other *Appointment) bool {
	if a.DoctorID != other.DoctorID {
		return false
	}
	if !blocksSlot(a.Status) || !blocksSlot(other.Status) {
		return false
	}
	return a.StartTime.Before(other.EndTime()) && other.StartTime.Before(a.EndTime())
}

func blocksSlot(status string) bool {
	return status == StatusScheduled || status == StatusCompleted
}

// ValidStatus reports whether s is a recognized appointment status.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Filter narrows appointment listings.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	From      *time.Time
	To        *time.Time
	Status    string
}
