package server

import (
	"github.com/gofiber/fiber/v2"

	"linker/internal/modeswitch"
)

type switchRequest struct {
	From modeswitch.Location `json:"from"`
}

// SwitchPersona enters anonymous mode under the persona in the route. The
// request body carries where the user currently is in professional mode so
// that position survives the round trip.
func (s *Server) SwitchPersona(c *fiber.Ctx) error {
	var req switchRequest
	// An empty body is fine: the snapshot then keeps the previous location.
	_ = c.BodyParser(&req)

	result, err := s.modeService.Switch(c.UserContext(), currentUserID(c), c.Params("id"), req.From)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// ExitAnonymous returns the session to professional mode.
func (s *Server) ExitAnonymous(c *fiber.Ctx) error {
	var req switchRequest
	_ = c.BodyParser(&req)

	target, err := s.modeService.Exit(c.UserContext(), currentUserID(c), req.From)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"target_path": target})
}

// GetMode reports the session's current mode and, when anonymous, the active
// persona.
func (s *Server) GetMode(c *fiber.Ctx) error {
	return c.JSON(s.modeService.Status(c.UserContext(), currentUserID(c)))
}

// GetAnonymousSession confirms a persona credential is still live and
// returns the persona it identifies. Credential-scoped: no account identity
// is involved.
func (s *Server) GetAnonymousSession(c *fiber.Ctx) error {
	personaID, _ := c.Locals("personaID").(string)
	persona, err := s.personaRepo.GetByPersonaID(c.UserContext(), personaID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"persona_id":   persona.PersonaID,
		"display_name": persona.DisplayName,
		"avatar_url":   persona.AvatarURL,
	})
}

// GetFeatureFlags returns the caller's evaluated feature flags.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"flags": s.featureFlags.Snapshot(currentUserID(c))})
}
