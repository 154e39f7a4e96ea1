package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"linker/internal/modectx"
	"linker/internal/modeswitch"
)

// Context endpoints operate on the caller's per-mode navigation state. They
// always act on the mode the session is currently in; the snapshot taken at
// a mode switch is what carries state across the boundary.

type snapshotRequest struct {
	Location string `json:"location"`
	Path     string `json:"path"`
	Offset   int    `json:"offset"`
}

// SnapshotContext records the caller's current location and scroll position.
func (s *Server) SnapshotContext(c *fiber.Ctx) error {
	var req snapshotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctrl := s.modeService.Controller(currentUserID(c))
	ctrl.SnapshotContext(modeswitch.Location{
		Location: req.Location,
		Path:     req.Path,
		Offset:   req.Offset,
	})
	return c.SendStatus(fiber.StatusNoContent)
}

// GetContext returns the active mode's navigation context.
func (s *Server) GetContext(c *fiber.Ctx) error {
	ctrl := s.modeService.Controller(currentUserID(c))
	return c.JSON(ctrl.CurrentContext())
}

type draftRequest struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// SaveDraft stores an unsaved post body in the active mode's context.
func (s *Server) SaveDraft(c *fiber.Ctx) error {
	var req draftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Body) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Draft body is required",
		})
	}

	ctrl := s.modeService.Controller(currentUserID(c))
	ctrl.PushDraft(modectx.Draft{ID: req.ID, Body: req.Body})
	return c.SendStatus(fiber.StatusNoContent)
}

// ListDrafts returns the active mode's drafts.
func (s *Server) ListDrafts(c *fiber.Ctx) error {
	ctrl := s.modeService.Controller(currentUserID(c))
	return c.JSON(fiber.Map{"drafts": ctrl.Drafts()})
}

type searchRequest struct {
	Term string `json:"term"`
}

// RecordSearch appends a search term to the active mode's history.
func (s *Server) RecordSearch(c *fiber.Ctx) error {
	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	ctrl := s.modeService.Controller(currentUserID(c))
	ctrl.PushSearch(req.Term)
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSearches returns the active mode's search history.
func (s *Server) ListSearches(c *fiber.Ctx) error {
	ctrl := s.modeService.Controller(currentUserID(c))
	return c.JSON(fiber.Map{"searches": ctrl.SearchHistory()})
}

type viewedRequest struct {
	ContentID string `json:"content_id"`
}

// MarkViewed records a content item as seen in the active mode.
func (s *Server) MarkViewed(c *fiber.Ctx) error {
	var req viewedRequest
	if err := c.BodyParser(&req); err != nil || req.ContentID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content_id is required",
		})
	}

	ctrl := s.modeService.Controller(currentUserID(c))
	ctrl.MarkViewed(req.ContentID)
	return c.SendStatus(fiber.StatusNoContent)
}
