package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/service"
	apperrors "github.com/spec-kit/complaint-service/pkg/util"
)

// ComplaintsHandler manages complaint intake and transitions.
type ComplaintsHandler struct {
	service          *service.ComplaintService
	defaultListLimit int
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaintService *service.ComplaintService, defaultListLimit int) *ComplaintsHandler {
	return &ComplaintsHandler{service: complaintService, defaultListLimit: defaultListLimit}
}

// Create POST /api/complaints.
func (h *ComplaintsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateComplaintRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	complaint, err := h.service.Create(c.UserContext(), service.ComplaintCreateInput{
		CustomerName: req.CustomerName,
		MeterNo:      req.MeterNo,
		MeterType:    req.MeterType,
		IssueType:    req.IssueType,
		Description:  req.Description,
		AssignedTo:   req.AssignedTo,
		Supervisor:   req.Supervisor,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": complaintResponse(complaint, time.Now().UTC())})
}

// List GET /api/complaints.
func (h *ComplaintsHandler) List(c *fiber.Ctx) error {
	filter := h.parseListQuery(c)
	complaints, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return err
	}

	asOf := time.Now().UTC()
	items := make([]dto.ComplaintResponse, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintResponse(&complaints[i], asOf))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus POST /api/complaints/:id/status.
func (h *ComplaintsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	id := c.Params("id")
	var complaint *domain.Complaint
	var err error

	switch req.Action {
	case "progress":
		complaint, err = h.service.MarkInProgress(c.UserContext(), id)
	case "resolve":
		complaint, err = h.service.Resolve(c.UserContext(), id)
	default:
		return apperrors.NewValidationError("invalid action", map[string]any{"action": req.Action})
	}
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"data": complaintResponse(complaint, time.Now().UTC())})
}

func (h *ComplaintsHandler) parseListQuery(c *fiber.Ctx) service.ComplaintListFilter {
	filter := service.ComplaintListFilter{Limit: h.defaultListLimit}

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		filter.SearchTerm = &q
	}
	if statusStr := strings.TrimSpace(c.Query("status")); statusStr != "" {
		status := domain.ComplaintStatus(statusStr)
		filter.Status = &status
	}
	if assignedTo := strings.TrimSpace(c.Query("assignedTo")); assignedTo != "" {
		filter.AssignedTo = &assignedTo
	}
	if from := parseDate(c.Query("dateFrom"), false); from != nil {
		filter.LoggedFrom = from
	}
	if to := parseDate(c.Query("dateTo"), true); to != nil {
		filter.LoggedTo = to
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}
	return filter
}

// parseDate accepts YYYY-MM-DD or RFC3339; endOfDay pushes a bare date to its
// last instant so dateTo is inclusive.
func parseDate(val string, endOfDay bool) *time.Time {
	if val == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}

func complaintResponse(complaint *domain.Complaint, asOf time.Time) dto.ComplaintResponse {
	return dto.ComplaintResponse{
		ID:           complaint.ID,
		ComplaintID:  complaint.ComplaintID,
		CustomerName: complaint.CustomerName,
		MeterNo:      complaint.MeterNo,
		MeterType:    complaint.MeterType,
		IssueType:    complaint.IssueType,
		Description:  complaint.Description,
		AssignedTo:   complaint.AssignedTo,
		Supervisor:   complaint.Supervisor,
		Status:       complaint.Status,
		DaysPending:  service.PendingDays(*complaint, asOf),
		LoggedAt:     complaint.LoggedAt,
		ResolvedAt:   complaint.ResolvedAt,
	}
}
