package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/domain/appointment"
	"github.com/hms/hms/internal/domain/doctor"
	"github.com/hms/hms/internal/domain/patient"
	"github.com/hms/hms/internal/domain/resource"
)

// Static estimates standing in for data the hospital does not capture yet
// (check-in times, per-hour resource usage).
const (
	mockAverageWaitMinutes     = 15
	mockOccupiedHoursPerDay    = 8.0
	mockMaintenanceHoursPerDay = 4.0
	mockAverageOccupancyRate   = 0.65
	mockAvailabilityRate       = 0.92
	averageVisitHours          = 0.5
)

const collectPageSize = 500

// Service computes reports over the operational repositories. It is a
// read model: it never writes.
type Service struct {
	patients  patient.Repository
	doctors   doctor.Repository
	appts     appointment.Repository
	resources resource.Repository
	logger    zerolog.Logger
}

func NewService(patients patient.Repository, doctors doctor.Repository, appts appointment.Repository, resources resource.Repository, logger zerolog.Logger) *Service {
	return &Service{
		patients:  patients,
		doctors:   doctors,
		appts:     appts,
		resources: resources,
		logger:    logger.With().Str("component", "analytics").Logger(),
	}
}

func (s *Service) collectAppointments(ctx context.Context, f appointment.Filter) ([]*appointment.Appointment, error) {
	var all []*appointment.Appointment
	for offset := 0; ; offset += collectPageSize {
		page, total, err := s.appts.List(ctx, f, collectPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			return all, nil
		}
	}
}

func (s *Service) collectDoctors(ctx context.Context) (map[uuid.UUID]*doctor.Doctor, error) {
	byID := make(map[uuid.UUID]*doctor.Doctor)
	for offset := 0; ; offset += collectPageSize {
		page, total, err := s.doctors.List(ctx, "", collectPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, d := range page {
			byID[d.ID] = d
		}
		if len(byID) >= total || len(page) == 0 {
			return byID, nil
		}
	}
}

func (s *Service) collectResources(ctx context.Context) ([]*resource.HospitalResource, error) {
	var all []*resource.HospitalResource
	for offset := 0; ; offset += collectPageSize {
		page, total, err := s.resources.List(ctx, resource.Filter{}, collectPageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(all) >= total || len(page) == 0 {
			return all, nil
		}
	}
}

// DoctorUtilization reports per-doctor appointment outcomes for the period.
// Pass uuid.Nil to cover every doctor.
func (s *Service) DoctorUtilization(ctx context.Context, start, end time.Time, doctorID uuid.UUID) ([]DoctorUtilizationReport, error) {
	f := appointment.Filter{From: &start, To: &end}
	if doctorID != uuid.Nil {
		f.DoctorID = &doctorID
	}
	appts, err := s.collectAppointments(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("doctor utilization: %w", err)
	}
	doctors, err := s.collectDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("doctor utilization: %w", err)
	}

	type tally struct {
		total, completed, cancelled, noShow int
		scheduledMinutes                    int
	}
	byDoctor := make(map[uuid.UUID]*tally)
	for _, a := range appts {
		t := byDoctor[a.DoctorID]
		if t == nil {
			t = &tally{}
			byDoctor[a.DoctorID] = t
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

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}

	var reports []DoctorUtilizationReport
	for id, t := range byDoctor {
		d, ok := doctors[id]
		if !ok {
			continue
		}
		scheduledHours := float64(t.scheduledMinutes) / 60.0
		workedHours := float64(t.completed) * averageVisitHours
		r := DoctorUtilizationReport{
			DoctorID:                  id,
			DoctorName:                d.FirstName + " " + d.LastName,
			Specialization:            d.Specialization,
			Department:                d.Department,
			PeriodStart:               start,
			PeriodEnd:                 end,
			TotalAppointments:         t.total,
			CompletedAppointments:     t.completed,
			CancelledAppointments:     t.cancelled,
			NoShowAppointments:        t.noShow,
			AverageAppointmentsPerDay: float64(t.total) / float64(days),
			TotalScheduledHours:       scheduledHours,
			ActualWorkedHours:         workedHours,
		}
		if t.total > 0 {
			r.CompletionRate = float64(t.completed) / float64(t.total)
			r.NoShowRate = float64(t.noShow) / float64(t.total)
		}
		if scheduledHours > 0 {
			r.UtilizationRate = workedHours / scheduledHours
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].DoctorName < reports[j].DoctorName })
	return reports, nil
}

// AppointmentTrends breaks down appointment volume over the period.
func (s *Service) AppointmentTrends(ctx context.Context, start, end time.Time) (*AppointmentTrendsReport, error) {
	appts, err := s.collectAppointments(ctx, appointment.Filter{From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("appointment trends: %w", err)
	}
	doctors, err := s.collectDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("appointment trends: %w", err)
	}

	report := &AppointmentTrendsReport{
		PeriodStart:                  start,
		PeriodEnd:                    end,
		TotalAppointments:            len(appts),
		AppointmentsByStatus:         map[string]int{},
		AppointmentsBySpecialization: map[string]int{},
		AppointmentsByDayOfWeek:      map[string]int{},
		AppointmentsByTimePeriod:     map[string]int{"Morning": 0, "Afternoon": 0, "Evening": 0, "Night": 0},
		AverageWaitTime:              mockAverageWaitMinutes,
	}

	byHour := map[int]int{}
	for _, a := range appts {
		report.AppointmentsByStatus[a.Status]++
		if d, ok := doctors[a.DoctorID]; ok {
			report.AppointmentsBySpecialization[d.Specialization]++
		}
		report.AppointmentsByDayOfWeek[a.StartTime.UTC().Weekday().String()]++
		hour := a.StartTime.UTC().Hour()
		byHour[hour]++
		report.AppointmentsByTimePeriod[TimePeriod(hour)]++
	}

	maxCount := 0
	for _, count := range byHour {
		if count > maxCount {
			maxCount = count
		}
	}
	for hour, count := range byHour {
		if count == maxCount {
			report.PeakHours = append(report.PeakHours, hour)
		}
	}
	sort.Ints(report.PeakHours)

	type dayCount struct {
		day   string
		count int
	}
	var days []dayCount
	for day, count := range report.AppointmentsByDayOfWeek {
		days = append(days, dayCount{day, count})
	}
	sort.Slice(days, func(i, j int) bool {
		if days[i].count != days[j].count {
			return days[i].count > days[j].count
		}
		return days[i].day < days[j].day
	})
	for i, d := range days {
		if i == 3 {
			break
		}
		report.BusiestDays = append(report.BusiestDays, d.day)
	}
	return report, nil
}

// ResourceUsage summarizes the resource fleet for the period.
func (s *Service) ResourceUsage(ctx context.Context, start, end time.Time) (*ResourceUsageReport, error) {
	resources, err := s.collectResources(ctx)
	if err != nil {
		return nil, fmt.Errorf("resource usage: %w", err)
	}

	byType := map[string]int{}
	for _, r := range resources {
		byType[r.Type]++
	}
	total := len(resources)
	days := end.Sub(start).Hours() / 24
	if days < 1 {
		days = 1
	}

	return &ResourceUsageReport{
		PeriodStart:           start,
		PeriodEnd:             end,
		ResourcesByType:       byType,
		TotalUtilizationHours: float64(total) * mockOccupiedHoursPerDay * days,
		AverageOccupancyRate:  mockAverageOccupancyRate,
		UtilizationByResourceType: map[string]float64{
			resource.TypeRoom:      0.70,
			resource.TypeEquipment: 0.60,
			resource.TypeBed:       0.65,
		},
		PeakUsageHours: []int{9, 10, 11, 14, 15, 16},
		UnderutilizedResources: []map[string]any{
			{"resource_id": "mock-id-1", "resource_name": "CT Scanner 2", "utilization_rate": 0.30},
			{"resource_id": "mock-id-2", "resource_name": "Operating Room 5", "utilization_rate": 0.25},
		},
		OverutilizedResources: []map[string]any{
			{"resource_id": "mock-id-3", "resource_name": "MRI Machine 1", "utilization_rate": 0.95},
			{"resource_id": "mock-id-4", "resource_name": "ICU Bed 3", "utilization_rate": 0.90},
		},
		MaintenanceHours: float64(total) * 2.0 * days,
		AvailabilityRate: mockAvailabilityRate,
	}, nil
}

// DashboardSummary condenses the week's utilization and resource reports
// into the shape the dashboard expects.
func (s *Service) DashboardSummary(ctx context.Context) (map[string]any, error) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -mondayOffset(today.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	utilization, err := s.DoctorUtilization(ctx, weekStart, today.AddDate(0, 0, 1), uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	usage, err := s.ResourceUsage(ctx, weekStart, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}

	todayEnd := today.AddDate(0, 0, 1)
	todayAppts, err := s.collectAppointments(ctx, appointment.Filter{From: &today, To: &todayEnd})
	if err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}

	weekTotal := 0
	completionSum := 0.0
	utilizationSum := 0.0
	noShowAlert := false
	high, low := 0, 0
	for _, r := range utilization {
		weekTotal += r.TotalAppointments
		completionSum += r.CompletionRate
		utilizationSum += r.UtilizationRate
		if r.UtilizationRate > 0.8 {
			high++
		}
		if r.UtilizationRate < 0.5 {
			low++
		}
		if r.NoShowRate > 0.15 {
			noShowAlert = true
		}
	}
	totalDoctors := len(utilization)
	avgCompletion, avgUtilization := 0.0, 0.0
	if totalDoctors > 0 {
		avgCompletion = completionSum / float64(totalDoctors)
		avgUtilization = utilizationSum / float64(totalDoctors)
	}

	totalResources := 0
	for _, n := range usage.ResourcesByType {
		totalResources += n
	}

	alerts := []map[string]any{}
	if usage.AverageOccupancyRate < 0.5 {
		alerts = append(alerts, map[string]any{
			"type":     "low_utilization",
			"message":  "resources have utilization below 30%",
			"severity": "warning",
		})
	}
	if noShowAlert {
		alerts = append(alerts, map[string]any{
			"type":     "high_no_show",
			"message":  "No-show rate above 15% this week",
			"severity": "warning",
		})
	}

	return map[string]any{
		"date_generated": now.Format(time.RFC3339),
		"period": map[string]any{
			"today":       today.Format("2006-01-02"),
			"week_start":  weekStart.Format("2006-01-02"),
			"month_start": monthStart.Format("2006-01-02"),
		},
		"appointments": map[string]any{
			"today_total":     len(todayAppts),
			"week_total":      weekTotal,
			"completion_rate": avgCompletion,
		},
		"doctors": map[string]any{
			"total_active":        totalDoctors,
			"average_utilization": avgUtilization,
			"high_performers":     high,
			"low_performers":      low,
		},
		"resources": map[string]any{
			"total_resources":   totalResources,
			"average_occupancy": usage.AverageOccupancyRate,
			"availability_rate": usage.AvailabilityRate,
			"resources_by_type": usage.ResourcesByType,
		},
		"alerts": alerts,
	}, nil
}

func mondayOffset(d time.Weekday) int {
	if d == time.Sunday {
		return 6
	}
	return int(d) - 1
}
