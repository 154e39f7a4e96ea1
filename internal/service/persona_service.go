// Package service contains the business logic layer between HTTP handlers
// and repositories.
package service

import (
	"context"
	"strings"

	"linker/internal/models"
	"linker/internal/notifications"
	"linker/internal/repository"
)

const (
	maxDisplayNameLength = 50
	maxPersonasPerUser   = 5
)

// PersonaRemovedHandler receives persona deletion events. The mode switch
// registry subscribes with one of these so a deleted active persona forces
// the owner's session back to professional mode.
type PersonaRemovedHandler func(ctx context.Context, userID uint, personaID string)

// PersonaService provides persona CRUD business logic and emits persona
// lifecycle events on deletion.
type PersonaService struct {
	personas repository.PersonaRepository
	notifier *notifications.Notifier
	onRemove []PersonaRemovedHandler
}

// NewPersonaService returns a new PersonaService. notifier may be nil.
func NewPersonaService(personas repository.PersonaRepository, notifier *notifications.Notifier) *PersonaService {
	return &PersonaService{personas: personas, notifier: notifier}
}

// OnPersonaRemoved registers a handler called after every successful
// deletion. Registration is not synchronized; wire handlers during startup.
func (s *PersonaService) OnPersonaRemoved(fn PersonaRemovedHandler) {
	s.onRemove = append(s.onRemove, fn)
}

// List returns the user's personas.
func (s *PersonaService) List(ctx context.Context, userID uint) ([]models.Persona, error) {
	return s.personas.ListByUser(ctx, userID)
}

// Get returns one of the user's personas.
func (s *PersonaService) Get(ctx context.Context, userID uint, personaID string) (*models.Persona, error) {
	return s.personas.GetOwned(ctx, userID, personaID)
}

// Create validates and stores a new persona for the user.
func (s *PersonaService) Create(ctx context.Context, userID uint, displayName, avatarURL string) (*models.Persona, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, models.NewValidationError("Display name is required")
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, models.NewValidationError("Display name is too long")
	}

	count, err := s.personas.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= maxPersonasPerUser {
		return nil, models.NewValidationError("Persona limit reached")
	}

	persona := &models.Persona{
		UserID:      userID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}
	if err := s.personas.Create(ctx, persona); err != nil {
		return nil, err
	}
	return persona, nil
}

// Update edits a persona's display name and avatar.
func (s *PersonaService) Update(ctx context.Context, userID uint, personaID, displayName, avatarURL string) (*models.Persona, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, models.NewValidationError("Display name is required")
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, models.NewValidationError("Display name is too long")
	}

	persona := &models.Persona{
		PersonaID:   personaID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
	}
	if err := s.personas.Update(ctx, userID, persona); err != nil {
		return nil, err
	}
	return s.personas.GetOwned(ctx, userID, personaID)
}

// Delete removes a persona and notifies subscribers. Deleting the caller's
// active persona forces their session out of anonymous mode via the
// registered handlers; the deletion itself never fails on that account.
func (s *PersonaService) Delete(ctx context.Context, userID uint, personaID string) error {
	if err := s.personas.Delete(ctx, userID, personaID); err != nil {
		return err
	}

	for _, fn := range s.onRemove {
		fn(ctx, userID, personaID)
	}

	if s.notifier != nil {
		// Cross-instance fan-out; local handlers already ran above.
		_ = s.notifier.PublishPersonaEvent(ctx, notifications.PersonaEvent{
			Type:      notifications.EventPersonaRemoved,
			UserID:    userID,
			PersonaID: personaID,
		})
	}
	return nil
}
