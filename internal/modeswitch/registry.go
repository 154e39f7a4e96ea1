package modeswitch

import (
	"context"
	"sync"

	"linker/internal/observability"
)

type registryDeps struct {
	personas         PersonaResolver
	verifier         Verifier
	issuer           CredentialIssuer
	professionalRoot string
	anonymousRoot    string
	logger           *observability.ModeLogger
	onChange         func(ModeChange)
}

// Registry hands out one Controller per user, created lazily, and fans
// persona-removed events out to the affected controller.
type Registry struct {
	mu          sync.Mutex
	controllers map[uint]*Controller
	deps        registryDeps
}

// NewRegistry returns a Registry wiring controllers to the given
// collaborators and per-mode default roots.
func NewRegistry(personas PersonaResolver, verifier Verifier, issuer CredentialIssuer, professionalRoot, anonymousRoot string) *Registry {
	return &Registry{
		controllers: make(map[uint]*Controller),
		deps: registryDeps{
			personas:         personas,
			verifier:         verifier,
			issuer:           issuer,
			professionalRoot: professionalRoot,
			anonymousRoot:    anonymousRoot,
			logger:           observability.NewModeLogger(),
		},
	}
}

// OnModeChange registers a listener invoked after every completed
// transition. Must be called before controllers are created.
func (r *Registry) OnModeChange(fn func(ModeChange)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps.onChange = fn
	for _, c := range r.controllers {
		c.onChange = fn
	}
}

// Controller returns the user's controller, creating it on first use.
func (r *Registry) Controller(userID uint) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[userID]
	if !ok {
		c = newController(userID, r.deps)
		r.controllers[userID] = c
	}
	return c
}

// HandlePersonaRemoved forces the owner's session out of anonymous mode if
// the removed persona is currently active. Unknown users are ignored; no
// controller is created just to receive the event.
func (r *Registry) HandlePersonaRemoved(ctx context.Context, userID uint, personaID string) {
	r.mu.Lock()
	c, ok := r.controllers[userID]
	r.mu.Unlock()
	if !ok {
		return
	}
	c.ForceExit(ctx, personaID)
}
