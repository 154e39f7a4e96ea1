package server

import (
	"github.com/gofiber/fiber/v2"
)

type personaRequest struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ListPersonas returns the caller's anonymous personas.
func (s *Server) ListPersonas(c *fiber.Ctx) error {
	personas, err := s.personaService.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"personas": personas})
}

// CreatePersona creates a new anonymous persona for the caller.
func (s *Server) CreatePersona(c *fiber.Ctx) error {
	var req personaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	persona, err := s.personaService.Create(c.UserContext(), currentUserID(c), req.DisplayName, req.AvatarURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(persona)
}

// UpdatePersona changes a persona's display name or avatar. Only the owner
// can update; anyone else sees a 404.
func (s *Server) UpdatePersona(c *fiber.Ctx) error {
	var req personaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	persona, err := s.personaService.Update(c.UserContext(), currentUserID(c), c.Params("id"), req.DisplayName, req.AvatarURL)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(persona)
}

// DeletePersona removes a persona. If the persona is active in an anonymous
// session anywhere, that session is forced back to professional mode.
func (s *Server) DeletePersona(c *fiber.Ctx) error {
	if err := s.personaService.Delete(c.UserContext(), currentUserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
