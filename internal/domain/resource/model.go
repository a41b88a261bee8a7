package resource

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeRoom      = "Room"
	TypeEquipment = "Equipment"
	TypeBed       = "Bed"
)

const (
	StatusAvailable   = "Available"
	StatusOccupied    = "Occupied"
	StatusMaintenance = "Maintenance"
)

// HospitalResource is a bookable asset: a room, a bed or a piece of
// equipment.
type HospitalResource struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Type                string     `json:"type"`
	Location            string     `json:"location,omitempty"`
	Status              string     `json:"status"`
	AssignedToPatientID *uuid.UUID `json:"assigned_to_patient_id,omitempty"`
	AssignedAt          *time.Time `json:"assigned_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ValidType reports whether t is a recognized resource type.
func ValidType(t string) bool {
	switch t {
	case TypeRoom, TypeEquipment, TypeBed:
		return true
	}
	return false
}

// ValidStatus reports whether s is a recognized resource status.
func ValidStatus(s string) bool {
	switch s {
	case StatusAvailable, StatusOccupied, StatusMaintenance:
		return true
	}
	return false
}

// Filter narrows resource listings.
type Filter struct {
	Type   string
	Status string
}
