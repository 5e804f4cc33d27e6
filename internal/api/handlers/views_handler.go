package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/api/dto"
	"github.com/ahmedelhadi17776/worklog/internal/domain/calendar"
	"github.com/ahmedelhadi17776/worklog/internal/domain/dashboard"
	"github.com/ahmedelhadi17776/worklog/internal/domain/report"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ViewsHandler serves the read-only aggregate views: dashboard, reports and calendar
type ViewsHandler struct {
	dashboard dashboard.Service
	reports   report.Service
	calendar  calendar.Service
	logger    *zap.Logger
}

func NewViewsHandler(dashboard dashboard.Service, reports report.Service, calendar calendar.Service, logger *zap.Logger) *ViewsHandler {
	return &ViewsHandler{dashboard: dashboard, reports: reports, calendar: calendar, logger: logger}
}

// Dashboard godoc
// @Summary Task counts, overdue tasks and today's minutes
// @Tags dashboard
// @Security BearerAuth
// @Success 200 {object} dashboard.Summary
// @Router /api/dashboard [get]
func (h *ViewsHandler) Dashboard(c *gin.Context) {
	summary, err := h.dashboard.GetSummary(c.Request.Context(), callerOf(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// Report godoc
// @Summary Status distribution, project completion and productivity
// @Tags reports
// @Security BearerAuth
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param project_id query string false "Project"
// @Param approved_only query bool false "Only approved time"
// @Success 200 {object} report.Report
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/reports [get]
func (h *ViewsHandler) Report(c *gin.Context) {
	q, ok := bindQuery[dto.ReportQuery](c)
	if !ok {
		return
	}
	r, err := h.reports.Generate(c.Request.Context(), callerOf(c), q.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": r})
}

// ExportReport sends the report as an Excel workbook
func (h *ViewsHandler) ExportReport(c *gin.Context) {
	q, ok := bindQuery[dto.ReportQuery](c)
	if !ok {
		return
	}
	buf, err := h.reports.Export(c.Request.Context(), callerOf(c), q.Filter())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	name := fmt.Sprintf("report-%s.xlsx", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// CalendarMonth godoc
// @Summary Tasks bucketed by due day for one month
// @Tags calendar
// @Security BearerAuth
// @Param year query int true "Year"
// @Param month query int true "Month 1-12"
// @Success 200 {object} calendar.Month
// @Router /api/calendar [get]
func (h *ViewsHandler) CalendarMonth(c *gin.Context) {
	q, ok := bindQuery[dto.CalendarQuery](c)
	if !ok {
		return
	}
	month, err := h.calendar.Month(c.Request.Context(), callerOf(c), q.Year, q.Month)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": month})
}

func (h *ViewsHandler) CalendarDay(c *gin.Context) {
	q, ok := bindQuery[dto.CalendarDayQuery](c)
	if !ok {
		return
	}
	day, err := h.calendar.Day(c.Request.Context(), callerOf(c), q.Date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": day})
}
