package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/integrity-watch/report-service/internal/service"
)

// AnalyticsHandler serves dashboard statistics.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Overview GET /api/analytics/overview.
func (h *AnalyticsHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.analytics.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, overview)
}

// Categories GET /api/analytics/categories.
func (h *AnalyticsHandler) Categories(c *fiber.Ctx) error {
	buckets, err := h.analytics.ByCategory(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, buckets)
}

// Statuses GET /api/analytics/statuses.
func (h *AnalyticsHandler) Statuses(c *fiber.Ctx) error {
	buckets, err := h.analytics.ByStatus(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, buckets)
}

// Priorities GET /api/analytics/priorities.
func (h *AnalyticsHandler) Priorities(c *fiber.Ctx) error {
	buckets, err := h.analytics.ByPriority(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, buckets)
}

// Locations GET /api/analytics/locations?limit=.
func (h *AnalyticsHandler) Locations(c *fiber.Ctx) error {
	buckets, err := h.analytics.ByLocation(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, buckets)
}

// Trends GET /api/analytics/trends?days=.
func (h *AnalyticsHandler) Trends(c *fiber.Ctx) error {
	points, err := h.analytics.Trends(c.UserContext(), c.QueryInt("days", 0))
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, points)
}

// Officers GET /api/analytics/officers.
func (h *AnalyticsHandler) Officers(c *fiber.Ctx) error {
	stats, err := h.analytics.OfficerPerformance(c.UserContext())
	if err != nil {
		return err
	}
	return data(c, http.StatusOK, stats)
}
