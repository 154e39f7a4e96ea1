// Package modeswitch orchestrates transitions between the professional and
// anonymous modes of a session: verification gating, persona resolution,
// context snapshot/restore ordering and persona credential exchange.
package modeswitch

import (
	"context"
	"sync"

	"linker/internal/modectx"
	"linker/internal/models"
	"linker/internal/observability"
	"linker/internal/token"
)

// Verifier gates entry into anonymous mode on account verification.
type Verifier interface {
	RequireVerified(ctx context.Context, userID uint) error
}

// CredentialIssuer is the credential exchange the controller drives during
// transitions.
type CredentialIssuer interface {
	Issue(ctx context.Context, personaID string) (*token.Credential, error)
	Revoke(ctx context.Context, tokenString string) error
}

// PersonaResolver resolves a persona owned by a given user.
type PersonaResolver interface {
	GetOwned(ctx context.Context, userID uint, personaID string) (*models.Persona, error)
}

// Location carries the client's current position when a transition or
// snapshot is requested. Zero fields leave the stored context untouched.
type Location struct {
	Location string `json:"location"`
	Path     string `json:"path"`
	Offset   int    `json:"offset"`
}

// ModeChange describes a completed transition, delivered to the registered
// change listener after the controller's lock is released.
type ModeChange struct {
	UserID    uint
	From      models.Mode
	To        models.Mode
	PersonaID string
	Forced    bool
}

// Controller is the two-state mode machine for one logical session. All
// operations are serialized by an internal mutex; the context cache is only
// touched under that lock.
type Controller struct {
	mu sync.Mutex

	userID        uint
	mode          models.Mode
	activePersona *models.Persona
	credential    *token.Credential

	contexts *modectx.Cache
	personas PersonaResolver
	verifier Verifier
	issuer   CredentialIssuer

	logger   *observability.ModeLogger
	onChange func(ModeChange)
}

func newController(userID uint, deps registryDeps) *Controller {
	return &Controller{
		userID:   userID,
		mode:     models.ModeProfessional,
		contexts: modectx.NewCache(deps.professionalRoot, deps.anonymousRoot),
		personas: deps.personas,
		verifier: deps.verifier,
		issuer:   deps.issuer,
		logger:   deps.logger,
		onChange: deps.onChange,
	}
}

// EnterResult is the outcome of a transition into anonymous mode, captured
// atomically with the state flip. Callers must read the persona and
// credential from here, not from the controller afterwards: a forced exit
// may land between the transition and the read.
type EnterResult struct {
	TargetPath string
	Persona    *models.Persona
	Credential *token.Credential
}

// EnterAnonymous transitions the session into anonymous mode under the given
// persona and returns the navigation target together with the active persona
// and credential. Entering while already anonymous is a no-op that returns
// the current session unchanged.
func (c *Controller) EnterAnonymous(ctx context.Context, personaID string, from Location) (*EnterResult, error) {
	c.mu.Lock()

	if c.mode == models.ModeAnonymous {
		result := c.enterResultLocked()
		c.mu.Unlock()
		observability.RecordModeSwitch("enter", "noop")
		return result, nil
	}

	if err := c.verifier.RequireVerified(ctx, c.userID); err != nil {
		c.mu.Unlock()
		observability.RecordModeSwitch("enter", "verification_required")
		c.logger.LogTransition(ctx, c.userID, string(models.ModeProfessional), string(models.ModeAnonymous), "verification_required")
		return nil, err
	}

	persona, err := c.personas.GetOwned(ctx, c.userID, personaID)
	if err != nil {
		c.mu.Unlock()
		observability.RecordModeSwitch("enter", "not_found")
		return nil, err
	}

	// Outgoing context is captured before the credential exchange starts.
	// If the exchange fails the snapshot is harmless to keep; a retry
	// overwrites it.
	c.contexts.Snapshot(models.ModeProfessional, from.Location, from.Path, from.Offset)

	cred, err := c.issuer.Issue(ctx, persona.PersonaID)
	if err != nil {
		// Roll back: state, active persona and credential are untouched.
		c.mu.Unlock()
		observability.RecordModeSwitch("enter", "credential_failed")
		c.logger.LogTransition(ctx, c.userID, string(models.ModeProfessional), string(models.ModeAnonymous), "credential_failed")
		return nil, err
	}

	c.mode = models.ModeAnonymous
	c.activePersona = persona
	c.credential = cred
	result := c.enterResultLocked()

	change := ModeChange{
		UserID:    c.userID,
		From:      models.ModeProfessional,
		To:        models.ModeAnonymous,
		PersonaID: persona.PersonaID,
	}
	c.mu.Unlock()

	observability.RecordModeSwitch("enter", "ok")
	observability.AnonymousSessionsActive.Inc()
	c.logger.LogTransition(ctx, c.userID, string(models.ModeProfessional), string(models.ModeAnonymous), "ok")
	c.notify(change)

	return result, nil
}

// enterResultLocked copies the anonymous session into an EnterResult. Caller
// holds c.mu.
func (c *Controller) enterResultLocked() *EnterResult {
	result := &EnterResult{
		TargetPath: c.contexts.Restore(models.ModeAnonymous).LastLocation,
	}
	if c.activePersona != nil {
		p := *c.activePersona
		result.Persona = &p
	}
	if c.credential != nil {
		cred := *c.credential
		result.Credential = &cred
	}
	return result
}

// ExitAnonymous transitions the session back to professional mode, revoking
// the persona credential. Exiting while already professional is a no-op.
// Exiting is never gated on verification.
func (c *Controller) ExitAnonymous(ctx context.Context, from Location) (string, error) {
	return c.exit(ctx, from, "", false)
}

// ForceExit ends the anonymous session if (and only if) the given persona is
// currently active. Used when the active persona is deleted. It converges
// with a concurrent user-initiated exit: whichever runs second observes
// professional mode and no-ops.
func (c *Controller) ForceExit(ctx context.Context, personaID string) {
	// Best effort: the deletion caller never sees a transition error.
	_, _ = c.exit(ctx, Location{}, personaID, true)
}

func (c *Controller) exit(ctx context.Context, from Location, onlyPersonaID string, forced bool) (string, error) {
	c.mu.Lock()

	if c.mode == models.ModeProfessional {
		target := c.contexts.Restore(models.ModeProfessional).LastLocation
		c.mu.Unlock()
		if !forced {
			observability.RecordModeSwitch("exit", "noop")
		}
		return target, nil
	}

	// A forced exit only applies to the persona that was deleted; an exit
	// that already happened (or a switch to another persona) wins.
	if onlyPersonaID != "" && (c.activePersona == nil || c.activePersona.PersonaID != onlyPersonaID) {
		target := c.contexts.Restore(c.mode).LastLocation
		c.mu.Unlock()
		return target, nil
	}

	c.contexts.Snapshot(models.ModeAnonymous, from.Location, from.Path, from.Offset)

	if err := c.issuer.Revoke(ctx, c.credential.Token); err != nil && !forced {
		// Roll back: the session stays anonymous, credential intact.
		c.mu.Unlock()
		observability.RecordModeSwitch("exit", "credential_failed")
		c.logger.LogTransition(ctx, c.userID, string(models.ModeAnonymous), string(models.ModeProfessional), "credential_failed")
		return "", err
	}

	personaID := c.activePersona.PersonaID
	c.mode = models.ModeProfessional
	c.activePersona = nil
	c.credential = nil
	target := c.contexts.Restore(models.ModeProfessional).LastLocation

	change := ModeChange{
		UserID:    c.userID,
		From:      models.ModeAnonymous,
		To:        models.ModeProfessional,
		PersonaID: personaID,
		Forced:    forced,
	}
	c.mu.Unlock()

	observability.AnonymousSessionsActive.Dec()
	if forced {
		c.logger.LogForcedExit(ctx, c.userID, personaID)
		observability.RecordModeSwitch("exit", "forced")
	} else {
		observability.RecordModeSwitch("exit", "ok")
		c.logger.LogTransition(ctx, c.userID, string(models.ModeAnonymous), string(models.ModeProfessional), "ok")
	}
	c.notify(change)

	return target, nil
}

func (c *Controller) notify(change ModeChange) {
	if c.onChange != nil {
		c.onChange(change)
	}
}

// CurrentMode returns the session's current mode.
func (c *Controller) CurrentMode() models.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// ActivePersona returns a copy of the active persona, or nil in
// professional mode.
func (c *Controller) ActivePersona() *models.Persona {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activePersona == nil {
		return nil
	}
	p := *c.activePersona
	return &p
}

// ActiveCredential returns a copy of the active persona credential, or nil
// in professional mode.
func (c *Controller) ActiveCredential() *token.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.credential == nil {
		return nil
	}
	cred := *c.credential
	return &cred
}

// SnapshotContext records the client's position in the current mode's
// context slot.
func (c *Controller) SnapshotContext(from Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts.Snapshot(c.mode, from.Location, from.Path, from.Offset)
}

// CurrentContext restores the current mode's context.
func (c *Controller) CurrentContext() modectx.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contexts.Restore(c.mode)
}

// RestoreContext restores the named mode's context without transitioning.
func (c *Controller) RestoreContext(mode models.Mode) modectx.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contexts.Restore(mode)
}

// PushDraft appends a draft to the current mode's context.
func (c *Controller) PushDraft(draft modectx.Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts.PushDraft(c.mode, draft)
}

// Drafts returns the current mode's drafts.
func (c *Controller) Drafts() []modectx.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contexts.Drafts(c.mode)
}

// PushSearch appends a search term to the current mode's history.
func (c *Controller) PushSearch(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts.PushSearch(c.mode, term)
}

// SearchHistory returns the current mode's search history.
func (c *Controller) SearchHistory() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contexts.SearchHistory(c.mode)
}

// MarkViewed records viewed content in the current mode.
func (c *Controller) MarkViewed(contentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts.MarkViewed(c.mode, contentID)
}

// Viewed returns the current mode's viewed-content set.
func (c *Controller) Viewed() modectx.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contexts.Viewed(c.mode)
}
