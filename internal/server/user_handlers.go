package server

import (
	"github.com/gofiber/fiber/v2"

	"linker/internal/models"
	"linker/internal/service"
)

// GetMyProfile returns the authenticated user's professional profile.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetUserByID(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

type updateProfileRequest struct {
	Username string `json:"username"`
	Headline string `json:"headline"`
	Avatar   string `json:"avatar"`
}

// UpdateMyProfile updates the professional profile fields.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := s.userService.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:   currentUserID(c),
		Username: req.Username,
		Headline: req.Headline,
		Avatar:   req.Avatar,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetMyVerification returns the account's verification status.
func (s *Server) GetMyVerification(c *fiber.Ctx) error {
	status, err := s.userService.VerificationStatus(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// RequestVerification moves an unverified or expired account to pending.
func (s *Server) RequestVerification(c *fiber.Ctx) error {
	status, err := s.userService.RequestVerification(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": status})
}

// AdminListUsers returns a page of accounts. Admin only.
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	page := parsePagination(c)
	users, err := s.userRepo.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users, "limit": page.Limit, "offset": page.Offset})
}

// DeleteMyAccount removes the caller's account and every persona they own.
// Deleting the active persona forces the session back to professional mode
// before the account row goes.
func (s *Server) DeleteMyAccount(c *fiber.Ctx) error {
	userID := currentUserID(c)

	personas, err := s.personaService.List(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	for _, p := range personas {
		if err := s.personaService.Delete(c.UserContext(), userID, p.PersonaID); err != nil && !models.IsCode(err, models.CodeNotFound) {
			return respondError(c, err)
		}
	}

	if err := s.userRepo.Delete(c.UserContext(), userID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type setVerificationRequest struct {
	Status models.VerificationStatus `json:"status"`
}

// AdminSetVerification sets a user's verification status. Admin only.
func (s *Server) AdminSetVerification(c *fiber.Ctx) error {
	targetID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	var req setVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := s.userService.SetVerification(c.UserContext(), targetID, req.Status); err != nil {
		return respondError(c, err)
	}

	s.publishUserEvent(c.UserContext(), targetID, eventVerificationUpdated, fiber.Map{
		"status": req.Status,
	})
	return c.JSON(fiber.Map{"status": req.Status})
}
