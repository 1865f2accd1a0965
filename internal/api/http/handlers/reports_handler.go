package handlers

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/integrity-watch/report-service/internal/api/dto"
	"github.com/integrity-watch/report-service/internal/domain"
	"github.com/integrity-watch/report-service/internal/repository"
	"github.com/integrity-watch/report-service/internal/service"
	"github.com/integrity-watch/report-service/internal/validation"
	apperrors "github.com/integrity-watch/report-service/pkg/util/errorutil"
)

const evidenceField = "evidence"

// ReportsHandler manages report endpoints.
type ReportsHandler struct {
	reports   *service.ReportService
	validator *validation.Validator
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService, v *validation.Validator) *ReportsHandler {
	return &ReportsHandler{reports: reportService, validator: v}
}

// Create POST /api/reports. Accepts JSON or multipart with evidence files.
func (h *ReportsHandler) Create(c *fiber.Ctx) error {
	var (
		req   dto.CreateReportRequest
		files []*multipart.FileHeader
	)
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid multipart payload", nil)
		}
		if req, err = reportFromForm(form); err != nil {
			return err
		}
		files = form.File[evidenceField]
	} else if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return err
	}

	report, err := h.reports.Create(c.UserContext(), optionalUser(c), service.CreateReportInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        domain.ReportCategory(req.Category),
		Priority:        domain.ReportPriority(req.Priority),
		IsAnonymous:     req.IsAnonymous,
		Location:        req.Location.ToDomain(),
		IncidentDate:    req.IncidentDate,
		EstimatedAmount: req.EstimatedAmount,
		InvolvedParties: req.InvolvedParties,
	}, files)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, report)
}

// List GET /api/reports.
func (h *ReportsHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	q, err := parseReportQuery(c)
	if err != nil {
		return err
	}
	page, err := h.reports.List(c.UserContext(), user, q)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": page.Items, "meta": dto.NewMeta(page.Page, page.Limit, page.Total)})
}

// MyStats GET /api/reports/my/stats.
func (h *ReportsHandler) MyStats(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.reports.MyStats(c.UserContext(), user)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, stats)
}

// Track GET /api/reports/track/:code.
func (h *ReportsHandler) Track(c *fiber.Ctx) error {
	tracked, err := h.reports.Track(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, tracked)
}

// Get GET /api/reports/:id.
func (h *ReportsHandler) Get(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	report, err := h.reports.Get(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, report)
}

// Update PUT /api/reports/:id.
func (h *ReportsHandler) Update(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	var req dto.UpdateReportRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	in := service.UpdateReportInput{
		Title:           req.Title,
		Description:     req.Description,
		IncidentDate:    req.IncidentDate,
		EstimatedAmount: req.EstimatedAmount,
		InvolvedParties: req.InvolvedParties,
	}
	if req.Category != nil {
		category := domain.ReportCategory(*req.Category)
		in.Category = &category
	}
	if req.Priority != nil {
		priority := domain.ReportPriority(*req.Priority)
		in.Priority = &priority
	}
	if req.Location != nil {
		loc := req.Location.ToDomain()
		in.Location = &loc
	}
	report, err := h.reports.Update(c.UserContext(), user, id, in)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, report)
}

// Delete DELETE /api/reports/:id.
func (h *ReportsHandler) Delete(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	if err := h.reports.Delete(c.UserContext(), user, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UpdateStatus PATCH /api/reports/:id/status.
func (h *ReportsHandler) UpdateStatus(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	report, err := h.reports.UpdateStatus(c.UserContext(), user, id, domain.ReportStatus(req.Status), req.Comment)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, report)
}

// Assign PATCH /api/reports/:id/assign.
func (h *ReportsHandler) Assign(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	officerID, err := service.ParseID(req.OfficerID, "officerId")
	if err != nil {
		return err
	}
	report, err := h.reports.Assign(c.UserContext(), user, id, officerID)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, report)
}

// Resolve POST /api/reports/:id/resolve.
func (h *ReportsHandler) Resolve(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	report, err := h.reports.Resolve(c.UserContext(), user, id, domain.ResolutionOutcome(req.Outcome), req.Summary)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, report)
}

// AddNote POST /api/reports/:id/notes.
func (h *ReportsHandler) AddNote(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	var req dto.ContentRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	note, err := h.reports.AddNote(c.UserContext(), user, id, req.Content)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, note)
}

// ListMessages GET /api/reports/:id/messages.
func (h *ReportsHandler) ListMessages(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	messages, err := h.reports.ListMessages(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, messages)
}

// AddMessage POST /api/reports/:id/messages.
func (h *ReportsHandler) AddMessage(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	var req dto.ContentRequest
	if err := bind(c, h.validator, &req); err != nil {
		return err
	}
	msg, err := h.reports.AddMessage(c.UserContext(), user, id, req.Content)
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, msg)
}

// AddEvidence POST /api/reports/:id/evidence.
func (h *ReportsHandler) AddEvidence(c *fiber.Ctx) error {
	user, id, err := h.target(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("multipart payload with evidence files required", nil)
	}
	items, err := h.reports.AddEvidence(c.UserContext(), user, id, form.File[evidenceField])
	if err != nil {
		return err
	}
	return data(c, http.StatusCreated, items)
}

func (h *ReportsHandler) target(c *fiber.Ctx) (*domain.User, primitive.ObjectID, error) {
	user, err := currentUser(c)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	id, err := pathID(c)
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	return user, id, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// reportFromForm reads a multipart submission. location and involvedParties may be JSON
// encoded; flat address, city and state fields are accepted as well.
func reportFromForm(form *multipart.Form) (dto.CreateReportRequest, error) {
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	req := dto.CreateReportRequest{
		Title:       value("title"),
		Description: value("description"),
		Category:    value("category"),
		Priority:    value("priority"),
	}
	invalid := func(field string) error {
		return apperrors.NewValidationError("invalid form field", map[string]any{field: "malformed value"})
	}

	if raw := value("isAnonymous"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return req, invalid("isAnonymous")
		}
		req.IsAnonymous = b
	}
	if raw := value("location"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Location); err != nil {
			return req, invalid("location")
		}
	} else {
		req.Location = dto.ReportLocationRequest{Address: value("address"), City: value("city"), State: value("state")}
	}
	if raw := value("involvedParties"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.InvolvedParties); err != nil {
			return req, invalid("involvedParties")
		}
	}
	if raw := value("incidentDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return req, invalid("incidentDate")
		}
		req.IncidentDate = &t
	}
	if raw := value("estimatedAmount"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, invalid("estimatedAmount")
		}
		req.EstimatedAmount = &amount
	}
	return req, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

func parseReportQuery(c *fiber.Ctx) (service.ReportQuery, error) {
	q := service.ReportQuery{
		Category: domain.ReportCategory(c.Query("category")),
		Priority: domain.ReportPriority(c.Query("priority")),
		Search:   c.Query("search"),
		State:    c.Query("state"),
		City:     c.Query("city"),
		Sort:     repository.ReportSort(c.Query("sort")),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 20),
	}
	for _, s := range splitList(c.Query("status")) {
		q.Statuses = append(q.Statuses, domain.ReportStatus(s))
	}
	if raw := c.Query("assignedTo"); raw != "" {
		id, err := service.ParseID(raw, "assignedTo")
		if err != nil {
			return q, err
		}
		q.AssignedTo = &id
	}
	if raw := c.Query("from"); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return q, apperrors.NewValidationError("invalid date filter", map[string]any{"from": raw})
		}
		q.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		before, err := parseUpperBound(raw)
		if err != nil {
			return q, apperrors.NewValidationError("invalid date filter", map[string]any{"to": raw})
		}
		q.Before = &before
	}
	return q, nil
}

// parseUpperBound turns an inclusive "to" into an exclusive bound. A bare date covers the whole
// day; a timestamp covers its millisecond, the precision createdAt is stored with.
func parseUpperBound(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Truncate(time.Millisecond).Add(time.Millisecond), nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, err
	}
	return day.AddDate(0, 0, 1), nil
}
