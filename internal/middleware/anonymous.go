package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// CredentialValidator verifies a persona credential and returns the persona
// public ID it identifies.
type CredentialValidator interface {
	Validate(ctx context.Context, tokenString string) (string, error)
}

// AnonymousScope returns a middleware that enforces a persona credential on
// anonymous-scoped routes. Account tokens carry a different audience and are
// rejected. The resolved persona ID is stored in locals under "personaID";
// no account identity is attached to the request.
func AnonymousScope(validator CredentialValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Persona credential required",
			})
		}

		personaID, err := validator.Validate(c.UserContext(), tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or revoked persona credential",
			})
		}

		c.Locals("personaID", personaID)
		return c.Next()
	}
}
