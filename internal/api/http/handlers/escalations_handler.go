package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/service"
)

// EscalationsHandler serves escalation records.
type EscalationsHandler struct {
	service *service.ComplaintService
}

// NewEscalationsHandler constructs handler.
func NewEscalationsHandler(complaintService *service.ComplaintService) *EscalationsHandler {
	return &EscalationsHandler{service: complaintService}
}

// List GET /api/escalations.
func (h *EscalationsHandler) List(c *fiber.Ctx) error {
	recentOnly := c.Query("recent") != ""
	records, err := h.service.ListEscalations(c.UserContext(), recentOnly)
	if err != nil {
		return err
	}

	items := make([]dto.EscalationResponse, 0, len(records))
	for _, record := range records {
		items = append(items, dto.EscalationResponse{
			ID:           record.ID,
			ComplaintID:  record.ComplaintID,
			EscalatedAt:  record.EscalatedAt,
			LoggedAt:     record.LoggedAt,
			AssignedTo:   record.AssignedTo,
			CustomerName: record.CustomerName,
			IssueType:    record.IssueType,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
