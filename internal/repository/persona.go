package repository

import (
	"context"
	"errors"
	"strings"

	"linker/internal/cache"
	"linker/internal/models"

	"gorm.io/gorm"
)

// PersonaRepository defines persistence operations for anonymous personas.
// Reads and writes that take a userID are ownership-scoped: a persona
// belonging to another user is reported as not found, never as forbidden.
type PersonaRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.Persona, error)
	GetByPersonaID(ctx context.Context, personaID string) (*models.Persona, error)
	GetOwned(ctx context.Context, userID uint, personaID string) (*models.Persona, error)
	Create(ctx context.Context, persona *models.Persona) error
	Update(ctx context.Context, userID uint, persona *models.Persona) error
	Delete(ctx context.Context, userID uint, personaID string) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type personaRepository struct {
	db *gorm.DB
}

// NewPersonaRepository returns a new PersonaRepository implementation.
func NewPersonaRepository(db *gorm.DB) PersonaRepository {
	return &personaRepository{db: db}
}

func (r *personaRepository) ListByUser(ctx context.Context, userID uint) ([]models.Persona, error) {
	var personas []models.Persona
	key := cache.PersonaListKey(userID)

	err := cache.CacheAside(ctx, key, &personas, cache.PersonaListTTL, func() error {
		if err := readDB(r.db).WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at ASC").
			Find(&personas).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return personas, nil
}

func (r *personaRepository) GetByPersonaID(ctx context.Context, personaID string) (*models.Persona, error) {
	var persona models.Persona
	if err := readDB(r.db).WithContext(ctx).
		Where("persona_id = ?", personaID).
		First(&persona).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Persona", personaID)
		}
		return nil, models.NewInternalError(err)
	}
	return &persona, nil
}

func (r *personaRepository) GetOwned(ctx context.Context, userID uint, personaID string) (*models.Persona, error) {
	var persona models.Persona
	if err := readDB(r.db).WithContext(ctx).
		Where("persona_id = ? AND user_id = ?", personaID, userID).
		First(&persona).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Persona", personaID)
		}
		return nil, models.NewInternalError(err)
	}
	return &persona, nil
}

func (r *personaRepository) Create(ctx context.Context, persona *models.Persona) error {
	// The column is NOT NULL but "" satisfies that; reject it here so a
	// caller bypassing the service layer cannot store a blank name.
	if strings.TrimSpace(persona.DisplayName) == "" {
		return models.NewValidationError("Display name is required")
	}
	if err := r.db.WithContext(ctx).Create(persona).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Persona already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidatePersonaList(ctx, persona.UserID)
	return nil
}

func (r *personaRepository) Update(ctx context.Context, userID uint, persona *models.Persona) error {
	res := r.db.WithContext(ctx).
		Model(&models.Persona{}).
		Where("persona_id = ? AND user_id = ?", persona.PersonaID, userID).
		Updates(map[string]interface{}{
			"display_name": persona.DisplayName,
			"avatar_url":   persona.AvatarURL,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Persona", persona.PersonaID)
	}
	cache.InvalidatePersonaList(ctx, userID)
	return nil
}

func (r *personaRepository) Delete(ctx context.Context, userID uint, personaID string) error {
	res := r.db.WithContext(ctx).
		Where("persona_id = ? AND user_id = ?", personaID, userID).
		Delete(&models.Persona{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Persona", personaID)
	}
	cache.InvalidatePersonaList(ctx, userID)
	return nil
}

func (r *personaRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := readDB(r.db).WithContext(ctx).
		Model(&models.Persona{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}
