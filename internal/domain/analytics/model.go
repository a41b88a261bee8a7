package analytics

import (
	"time"

	"github.com/google/uuid"
)

// DoctorUtilizationReport aggregates a doctor's appointment outcomes over
// a period. Worked hours assume a 30 minute average visit; a check-in
// system would supply real figures.
type DoctorUtilizationReport struct {
	DoctorID                  uuid.UUID `json:"doctor_id"`
	DoctorName                string    `json:"doctor_name"`
	Specialization            string    `json:"specialization"`
	Department                string    `json:"department,omitempty"`
	PeriodStart               time.Time `json:"period_start"`
	PeriodEnd                 time.Time `json:"period_end"`
	TotalAppointments         int       `json:"total_appointments"`
	CompletedAppointments     int       `json:"completed_appointments"`
	CancelledAppointments     int       `json:"cancelled_appointments"`
	NoShowAppointments        int       `json:"no_show_appointments"`
	CompletionRate            float64   `json:"completion_rate"`
	NoShowRate                float64   `json:"no_show_rate"`
	AverageAppointmentsPerDay float64   `json:"average_appointments_per_day"`
	TotalScheduledHours       float64   `json:"total_scheduled_hours"`
	ActualWorkedHours         float64   `json:"actual_worked_hours"`
	UtilizationRate           float64   `json:"utilization_rate"`
}

// AppointmentTrendsReport breaks appointment volume down by status,
// specialization, day of week and time period.
type AppointmentTrendsReport struct {
	PeriodStart                  time.Time      `json:"period_start"`
	PeriodEnd                    time.Time      `json:"period_end"`
	TotalAppointments            int            `json:"total_appointments"`
	AppointmentsByStatus         map[string]int `json:"appointments_by_status"`
	AppointmentsBySpecialization map[string]int `json:"appointments_by_specialization"`
	AppointmentsByDayOfWeek      map[string]int `json:"appointments_by_day_of_week"`
	AppointmentsByTimePeriod     map[string]int `json:"appointments_by_time_period"`
	AverageWaitTime              float64        `json:"average_wait_time"`
	PeakHours                    []int          `json:"peak_hours"`
	BusiestDays                  []string       `json:"busiest_days"`
}

// ResourceUsageReport summarizes the resource fleet. Utilization figures
// are static estimates pending real usage tracking.
type ResourceUsageReport struct {
	PeriodStart               time.Time          `json:"period_start"`
	PeriodEnd                 time.Time          `json:"period_end"`
	ResourcesByType           map[string]int     `json:"resources_by_type"`
	TotalUtilizationHours     float64            `json:"total_utilization_hours"`
	AverageOccupancyRate      float64            `json:"average_occupancy_rate"`
	UtilizationByResourceType map[string]float64 `json:"utilization_by_resource_type"`
	PeakUsageHours            []int              `json:"peak_usage_hours"`
	UnderutilizedResources    []map[string]any   `json:"underutilized_resources"`
	OverutilizedResources     []map[string]any   `json:"overutilized_resources"`
	MaintenanceHours          float64            `json:"maintenance_hours"`
	AvailabilityRate          float64            `json:"availability_rate"`
}

// AgeGroup buckets an age at the given reference time into the reporting
// bands 0-18, 19-35, 36-50, 51-65, 65+.
func AgeGroup(dateOfBirth, at time.Time) string {
	age := int(at.Sub(dateOfBirth).Hours() / 24 / 365)
	switch {
	case age <= 18:
		return "0-18"
	case age <= 35:
		return "19-35"
	case age <= 50:
		return "36-50"
	case age <= 65:
		return "51-65"
	default:
		return "65+"
	}
}

// TimePeriod maps an hour of day onto Morning, Afternoon, Evening or Night.
func TimePeriod(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return "Morning"
	case hour >= 12 && hour < 17:
		return "Afternoon"
	case hour >= 17 && hour < 21:
		return "Evening"
	default:
		return "Night"
	}
}
