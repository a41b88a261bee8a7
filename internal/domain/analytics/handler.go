package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hms/hms/internal/platform/auth"
)

type Handler struct {
	svc *Service
	etl *ETLControl
}

func NewHandler(svc *Service, etl *ETLControl) *Handler {
	return &Handler{svc: svc, etl: etl}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	reports := api.Group("/analytics", auth.RequireRole(auth.RoleAdmin, auth.RoleDoctor, auth.RoleStaff))
	reports.GET("/doctor-utilization", h.DoctorUtilization)
	reports.GET("/appointment-trends", h.AppointmentTrends)
	reports.GET("/resource-usage", h.ResourceUsage)
	reports.GET("/dashboard-summary", h.DashboardSummary)

	admin := api.Group("/analytics", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/export-data", h.ExportData)
	admin.POST("/trigger-etl", h.TriggerETL)
	admin.POST("/etl-job/:id/:action", h.ManageETLJob)

	ops := api.Group("/analytics", auth.RequireRole(auth.RoleAdmin, auth.RoleStaff))
	ops.GET("/etl-status", h.ETLStatus)
}

// dateRange reads start_date/end_date query params, defaulting to the
// trailing 30 days when absent.
func dateRange(c echo.Context) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if v := c.QueryParam("start_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid start_date")
		}
		start = t
	}
	if v := c.QueryParam("end_date"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "invalid end_date")
		}
		end = t
	}
	return start, end, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func (h *Handler) DoctorUtilization(c echo.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	doctorID := uuid.Nil
	if v := c.QueryParam("doctor_id"); v != "" {
		doctorID, err = uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
	}
	reports, err := h.svc.DoctorUtilization(c.Request().Context(), start, end, doctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reports)
}

func (h *Handler) AppointmentTrends(c echo.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	report, err := h.svc.AppointmentTrends(c.Request().Context(), start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) ResourceUsage(c echo.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	report, err := h.svc.ResourceUsage(c.Request().Context(), start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) DashboardSummary(c echo.Context) error {
	summary, err := h.svc.DashboardSummary(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *Handler) ExportData(c echo.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	dataType := c.QueryParam("data_type")
	if dataType == "" {
		dataType = ExportAll
	}
	if !ValidExportType(dataType) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid data_type, must be one of appointments, resources, doctors, all")
	}
	exports, err := h.svc.ExportData(c.Request().Context(), dataType, start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	counts := make(map[string]int, len(exports))
	for name, rows := range exports {
		counts[name] = len(rows)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data_type":     dataType,
		"start_date":    start.Format(time.RFC3339),
		"end_date":      end.Format(time.RFC3339),
		"record_counts": counts,
		"data":          exports,
	})
}

func (h *Handler) TriggerETL(c echo.Context) error {
	start, end, err := dateRange(c)
	if err != nil {
		return err
	}
	dataType := c.QueryParam("data_type")
	if dataType == "" {
		dataType = ExportAll
	}
	run, err := h.etl.TriggerManualETL(c.Request().Context(), dataType, start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp := map[string]any{
		"message":       "ETL job completed",
		"job_id":        run.JobID,
		"status":        run.Status,
		"start_time":    run.StartTime.Format(time.RFC3339),
		"end_time":      run.EndTime.Format(time.RFC3339),
		"data_exports":  run.DataExports,
		"pipeline_runs": run.PipelineRuns,
	}
	if run.Error != "" {
		resp["message"] = "ETL job failed"
		resp["error"] = run.Error
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) ETLStatus(c echo.Context) error {
	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = n
	}
	return c.JSON(http.StatusOK, h.etl.Status(limit))
}

func (h *Handler) ManageETLJob(c echo.Context) error {
	jobID := c.Param("id")
	action := c.Param("action")
	if !h.etl.Manage(jobID, action) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown job id or action")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message":   "job " + action + " applied",
		"job_id":    jobID,
		"action":    action,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
