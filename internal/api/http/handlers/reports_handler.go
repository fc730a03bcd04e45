package handlers

import (
	"bytes"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/export"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ReportsHandler serves derived report exports and the summary view.
type ReportsHandler struct {
	reports *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{reports: reportService}
}

// Summary GET /api/summary.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.reports.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.SummaryResponse{
		Total:          summary.Total,
		Resolved:       summary.Resolved,
		PendingUnder:   summary.PendingUnderSLA,
		PendingOverSLA: summary.PendingOverSLA,
	})
}

// CSV GET /api/reports.csv.
func (h *ReportsHandler) CSV(c *fiber.Ctx) error {
	rows, err := h.reports.BuildReport(c.UserContext(), service.ComplaintListFilter{})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="complaints_report.csv"`)
	return c.Send(buf.Bytes())
}

// XLSX GET /api/reports.xlsx.
func (h *ReportsHandler) XLSX(c *fiber.Ctx) error {
	rows, err := h.reports.BuildReport(c.UserContext(), service.ComplaintListFilter{})
	if err != nil {
		return err
	}

	workbook, err := export.BuildWorkbook(rows)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	buf, err := workbook.WriteToBuffer()
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="complaints_report.xlsx"`)
	return c.Send(buf.Bytes())
}
