// Package verification gates anonymous persona features behind account
// verification.
package verification

import (
	"context"

	"linker/internal/cache"
	"linker/internal/models"
	"linker/internal/repository"
)

// Service resolves and enforces a user's verification status.
type Service struct {
	users repository.UserRepository
}

// NewService returns a verification Service backed by the given repository.
func NewService(users repository.UserRepository) *Service {
	return &Service{users: users}
}

// Status returns the user's current verification status. Results are cached
// briefly; status changes propagate within cache.VerificationTTL.
func (s *Service) Status(ctx context.Context, userID uint) (models.VerificationStatus, error) {
	var status models.VerificationStatus
	key := cache.VerificationKey(userID)

	err := cache.CacheAside(ctx, key, &status, cache.VerificationTTL, func() error {
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		status = user.VerificationStatus
		if !status.Valid() {
			// Legacy rows may carry unknown values; treat them as unverified
			// rather than failing the request.
			status = models.VerificationUnverified
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// RequireVerified returns nil if the user is verified, and a
// verification-required error carrying the current status otherwise.
func (s *Service) RequireVerified(ctx context.Context, userID uint) error {
	status, err := s.Status(ctx, userID)
	if err != nil {
		return err
	}
	if status != models.VerificationVerified {
		return models.NewVerificationRequiredError(status)
	}
	return nil
}
