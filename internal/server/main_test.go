package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"

	"linker/internal/config"
	"linker/internal/featureflags"
	"linker/internal/models"
	"linker/internal/modeswitch"
	"linker/internal/notifications"
	"linker/internal/service"
	"linker/internal/token"
	"linker/internal/verification"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) SetVerificationStatus(ctx context.Context, id uint, status models.VerificationStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]models.User), args.Error(1)
}

// MockPersonaRepository is a mock of the PersonaRepository interface
type MockPersonaRepository struct {
	mock.Mock
}

func (m *MockPersonaRepository) ListByUser(ctx context.Context, userID uint) ([]models.Persona, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Persona), args.Error(1)
}

func (m *MockPersonaRepository) GetByPersonaID(ctx context.Context, personaID string) (*models.Persona, error) {
	args := m.Called(ctx, personaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Persona), args.Error(1)
}

func (m *MockPersonaRepository) GetOwned(ctx context.Context, userID uint, personaID string) (*models.Persona, error) {
	args := m.Called(ctx, userID, personaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Persona), args.Error(1)
}

func (m *MockPersonaRepository) Create(ctx context.Context, persona *models.Persona) error {
	args := m.Called(ctx, persona)
	return args.Error(0)
}

func (m *MockPersonaRepository) Update(ctx context.Context, userID uint, persona *models.Persona) error {
	args := m.Called(ctx, userID, persona)
	return args.Error(0)
}

func (m *MockPersonaRepository) Delete(ctx context.Context, userID uint, personaID string) error {
	args := m.Called(ctx, userID, personaID)
	return args.Error(0)
}

func (m *MockPersonaRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// newTestServer wires a Server from mock repositories without touching the
// database or Redis. Routes under test are registered by each test.
func newTestServer(userRepo *MockUserRepository, personaRepo *MockPersonaRepository, flags string) *Server {
	cfg := &config.Config{
		JWTSecret:        "test_secret_0123456789_0123456789",
		ProfessionalHome: "/feed",
		AnonymousHome:    "/anonymous",
		PersonaTokenTTL:  time.Hour,
		FeatureFlags:     flags,
	}

	verifier := verification.NewService(userRepo)
	issuer := token.NewIssuer(cfg.JWTSecret, cfg.PersonaTokenTTL, nil)
	registry := modeswitch.NewRegistry(personaRepo, verifier, issuer, cfg.ProfessionalHome, cfg.AnonymousHome)
	notifier := notifications.NewNotifier(nil)

	s := &Server{
		config:       cfg,
		userRepo:     userRepo,
		personaRepo:  personaRepo,
		notifier:     notifier,
		hub:          notifications.NewHub(),
		featureFlags: featureflags.NewManager(flags),
		issuer:       issuer,
		verifier:     verifier,
	}
	s.userService = service.NewUserService(userRepo, verifier)
	s.personaService = service.NewPersonaService(personaRepo, notifier)
	s.modeService = service.NewModeService(registry, s.featureFlags, notifier)
	s.personaService.OnPersonaRemoved(s.modeService.HandlePersonaRemoved)

	s.app = fiber.New()
	return s
}

// asUser simulates the auth middleware for protected-route tests.
func asUser(id uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		return c.Next()
	}
}
