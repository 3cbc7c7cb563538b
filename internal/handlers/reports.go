package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tunebox/internal/services"
)

// ReportHandler serves the aggregate rating reports
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reports: reports,
	}
}

// ArtistRatings handles GET /artist-rating
func (h *ReportHandler) ArtistRatings(c *fiber.Ctx) error {
	rows, err := h.reports.ArtistRatings()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// SongRatings handles GET /song-rating
func (h *ReportHandler) SongRatings(c *fiber.Ctx) error {
	rows, err := h.reports.SongRatings()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// UserRatings handles GET /user-rating
func (h *ReportHandler) UserRatings(c *fiber.Ctx) error {
	rows, err := h.reports.UserRatings()
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}
