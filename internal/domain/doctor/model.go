package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a practicing clinician. License numbers are unique across
// the hospital.
type Doctor struct {
	ID             uuid.UUID `json:"id"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Specialization string    `json:"specialization"`
	LicenseNumber  string    `json:"license_number"`
	Department     string    `json:"department,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
