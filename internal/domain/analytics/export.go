package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/resource"
)

// Export data types accepted by ExportData and the ETL endpoints.
const (
	ExportAppointments = "appointments"
	ExportResources    = "resources"
	ExportDoctors      = "doctors"
	ExportAll          = "all"
)

// ValidExportType reports whether t names an exportable data type.
func ValidExportType(t string) bool {
	switch t {
	case ExportAppointments, ExportResources, ExportDoctors, ExportAll:
		return true
	}
	return false
}

// ExportData flattens operational data into warehouse tables. It
// implements the warehouse data source contract: the result maps table
// name to rows.
func (s *Service) ExportData(ctx context.Context, dataType string, start, end time.Time) (map[string][]map[string]any, error) {
	out := make(map[string][]map[string]any)

	if dataType == ExportAppointments || dataType == ExportAll {
		rows, err := s.exportAppointments(ctx, start, end)
		if err != nil {
			return nil, err
		}
		out["appointments"] = rows
	}
	if dataType == ExportResources || dataType == ExportAll {
		rows, err := s.exportResourceUtilization(ctx, start, end)
		if err != nil {
			return nil, err
		}
		out["resource_utilization"] = rows
	}
	if dataType == ExportDoctors || dataType == ExportAll {
		rows, err := s.exportDoctorPerformance(ctx, start, end)
		if err != nil {
			return nil, err
		}
		out["doctor_performance"] = rows
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("validation failed: unknown data type %q", dataType)
	}
	return out, nil
}

func (s *Service) exportAppointments(ctx context.Context, start, end time.Time) ([]map[string]any, error) {
	appts, err := s.collectAppointments(ctx, appointment.Filter{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("export appointments: %w", err)
	}
	doctors, err := s.collectDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("export appointments: %w", err)
	}

	patientCache := make(map[uuid.UUID]*patient.Patient)
	rows := make([]map[string]any, 0, len(appts))
	for _, a := range appts {
		row := map[string]any{
			"appointment_id":       a.ID.String(),
			"patient_id":           a.PatientID.String(),
			"doctor_id":            a.DoctorID.String(),
			"appointment_datetime": a.StartTime.UTC().Format(time.RFC3339),
			"duration":             a.DurationMinutes,
			"status":               a.Status,
			"notes":                a.Notes,
			"show_status":          showStatus(a.Status),
		}
		if a.Status == appointment.StatusCompleted {
			row["wait_time"] = mockAverageWaitMinutes
		}
		if p, err := s.lookupPatient(ctx, patientCache, a.PatientID); err == nil {
			row["patient_age_group"] = AgeGroup(p.DateOfBirth, a.StartTime)
			row["patient_gender"] = p.Gender
		}
		if d, ok := doctors[a.DoctorID]; ok {
			row["doctor_specialization"] = d.Specialization
			row["doctor_department"] = d.Department
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Service) lookupPatient(ctx context.Context, cache map[uuid.UUID]*patient.Patient, id uuid.UUID) (*patient.Patient, error) {
	if p, ok := cache[id]; ok {
		return p, nil
	}
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache[id] = p
	return p, nil
}

func (s *Service) exportResourceUtilization(ctx context.Context, start, end time.Time) ([]map[string]any, error) {
	resources, err := s.collectResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("export resource utilization: %w", err)
	}

	startDay := start.UTC().Truncate(24 * time.Hour)
	endDay := end.UTC().Truncate(24 * time.Hour)

	var rows []map[string]any
	for _, r := range resources {
		for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
			assignments := 0
			occupiedHours := 0.0
			maintenanceHours := 0.0
			switch r.Status {
			case resource.StatusOccupied:
				assignments = 1
				occupiedHours = mockOccupiedHoursPerDay
			case resource.StatusMaintenance:
				maintenanceHours = mockMaintenanceHoursPerDay
			}
			const availableHours = 24.0
			rows = append(rows, map[string]any{
				"resource_id":          r.ID.String(),
				"resource_name":        r.Name,
				"resource_type":        r.Type,
				"location":             r.Location,
				"date":                 day.Format("2006-01-02"),
				"total_assignments":    assignments,
				"total_occupied_hours": occupiedHours,
				"occupancy_rate":       occupiedHours / availableHours,
				"maintenance_hours":    maintenanceHours,
				"availability_rate":    (availableHours - maintenanceHours) / availableHours,
			})
		}
	}
	return rows, nil
}

func (s *Service) exportDoctorPerformance(ctx context.Context, start, end time.Time) ([]map[string]any, error) {
	appts, err := s.collectAppointments(ctx, appointment.Filter{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("export doctor performance: %w", err)
	}
	doctors, err := s.collectDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("export doctor performance: %w", err)
	}

	type key struct {
		doctorID uuid.UUID
		day      string
	}
	type tally struct {
		total, completed, cancelled, noShow, scheduledMinutes int
	}
	byDay := make(map[key]*tally)
	for _, a := range appts {
		k := key{a.DoctorID, a.StartTime.UTC().Format("2006-01-02")}
		t := byDay[k]
		if t == nil {
			t = &tally{}
			byDay[k] = t
		}
		t.total++
		t.scheduledMinutes += a.DurationMinutes
		switch a.Status {
		case appointment.StatusCompleted:
			t.completed++
		case appointment.StatusCancelled:
			t.cancelled++
		case appointment.StatusNoShow:
			t.noShow++
		}
	}

	var rows []map[string]any
	for k, t := range byDay {
		d, ok := doctors[k.doctorID]
		if !ok {
			continue
		}
		workedMinutes := t.completed * appointment.DefaultDurationMinutes
		utilization := 0.0
		if t.scheduledMinutes > 0 {
			utilization = float64(workedMinutes) / float64(t.scheduledMinutes)
		}
		rows = append(rows, map[string]any{
			"doctor_id":               k.doctorID.String(),
			"doctor_name":             d.FirstName + " " + d.LastName,
			"specialization":          d.Specialization,
			"department":              d.Department,
			"date":                    k.day,
			"total_appointments":      t.total,
			"completed_appointments":  t.completed,
			"cancelled_appointments":  t.cancelled,
			"no_show_appointments":    t.noShow,
			"total_scheduled_minutes": t.scheduledMinutes,
			"actual_worked_minutes":   workedMinutes,
			"utilization_rate":        utilization,
		})
	}
	return rows, nil
}

func showStatus(status string) string {
	switch status {
	case appointment.StatusCompleted:
		return "Show"
	case appointment.StatusNoShow:
		return "No-Show"
	default:
		return "Scheduled"
	}
}
