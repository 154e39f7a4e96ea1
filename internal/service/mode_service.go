package service

import (
	"context"
	"encoding/json"
	"time"

	"linker/internal/featureflags"
	"linker/internal/modeswitch"
	"linker/internal/models"
	"linker/internal/notifications"
)

// SwitchResult is what a successful entry into anonymous mode hands back
// to the client.
type SwitchResult struct {
	Token      string          `json:"token"`
	Persona    *models.Persona `json:"persona"`
	TargetPath string          `json:"target_path"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

// ModeStatus describes the session's current mode.
type ModeStatus struct {
	Mode    models.Mode     `json:"mode"`
	Persona *models.Persona `json:"persona,omitempty"`
}

// ModeService binds the mode switch registry to the feature-flag gate and
// the realtime notifier.
type ModeService struct {
	registry *modeswitch.Registry
	flags    *featureflags.Manager
	notifier *notifications.Notifier
}

// NewModeService returns a ModeService and wires mode-change events to the
// owner's notification channel.
func NewModeService(registry *modeswitch.Registry, flags *featureflags.Manager, notifier *notifications.Notifier) *ModeService {
	s := &ModeService{registry: registry, flags: flags, notifier: notifier}
	registry.OnModeChange(s.publishChange)
	return s
}

// Switch enters anonymous mode under the given persona.
func (s *ModeService) Switch(ctx context.Context, userID uint, personaID string, from modeswitch.Location) (*SwitchResult, error) {
	if !s.flags.AnonymousModeAvailable(userID) {
		return nil, models.NewValidationError("Anonymous mode is not available for your account yet")
	}

	res, err := s.registry.Controller(userID).EnterAnonymous(ctx, personaID, from)
	if err != nil {
		return nil, err
	}

	// The persona and credential come from the transition itself, not from
	// the controller afterwards: a racing forced exit must not strip them
	// out of an otherwise successful response.
	result := &SwitchResult{TargetPath: res.TargetPath, Persona: res.Persona}
	if res.Credential != nil {
		result.Token = res.Credential.Token
		result.ExpiresAt = res.Credential.ExpiresAt
	}
	return result, nil
}

// Exit leaves anonymous mode. Always allowed; a no-op in professional mode.
func (s *ModeService) Exit(ctx context.Context, userID uint, from modeswitch.Location) (string, error) {
	return s.registry.Controller(userID).ExitAnonymous(ctx, from)
}

// Status returns the session's current mode and active persona.
func (s *ModeService) Status(ctx context.Context, userID uint) ModeStatus {
	ctrl := s.registry.Controller(userID)
	return ModeStatus{Mode: ctrl.CurrentMode(), Persona: ctrl.ActivePersona()}
}

// Controller exposes the user's controller for context operations.
func (s *ModeService) Controller(userID uint) *modeswitch.Controller {
	return s.registry.Controller(userID)
}

// HandlePersonaRemoved forwards persona deletions to the registry. Wire this
// into the PersonaService and the cross-instance event subscriber.
func (s *ModeService) HandlePersonaRemoved(ctx context.Context, userID uint, personaID string) {
	s.registry.HandlePersonaRemoved(ctx, userID, personaID)
}

func (s *ModeService) publishChange(change modeswitch.ModeChange) {
	if s.notifier == nil {
		return
	}

	eventType := notifications.EventModeChanged
	if change.Forced {
		eventType = notifications.EventForcedExit
	}
	payload, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"payload": map[string]interface{}{
			"from":       change.From,
			"to":         change.To,
			"persona_id": change.PersonaID,
			"forced":     change.Forced,
		},
	})
	if err != nil {
		return
	}
	_ = s.notifier.PublishUser(context.Background(), change.UserID, string(payload))
}
