package service

import (
	"context"

	"linker/internal/models"
	"linker/internal/repository"
	"linker/internal/verification"
)

type UserService struct {
	userRepo repository.UserRepository
	verifier *verification.Service
}

type UpdateProfileInput struct {
	UserID   uint
	Username string
	Headline string
	Avatar   string
}

func NewUserService(userRepo repository.UserRepository, verifier *verification.Service) *UserService {
	return &UserService{userRepo: userRepo, verifier: verifier}
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxHeadlineLen = 120
	const maxUsernameLen = 30

	if in.Username != "" {
		if len(in.Username) > maxUsernameLen {
			return nil, models.NewValidationError("Username too long (max 30 characters)")
		}
		user.Username = in.Username
	}
	if in.Headline != "" {
		if len(in.Headline) > maxHeadlineLen {
			return nil, models.NewValidationError("Headline too long (max 120 characters)")
		}
		user.Headline = in.Headline
	}
	if in.Avatar != "" {
		user.Avatar = in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// VerificationStatus returns the user's current verification status.
func (s *UserService) VerificationStatus(ctx context.Context, userID uint) (models.VerificationStatus, error) {
	return s.verifier.Status(ctx, userID)
}

// RequestVerification moves an unverified or expired account to pending.
// Requesting while pending or verified changes nothing.
func (s *UserService) RequestVerification(ctx context.Context, userID uint) (models.VerificationStatus, error) {
	status, err := s.verifier.Status(ctx, userID)
	if err != nil {
		return "", err
	}

	switch status {
	case models.VerificationVerified, models.VerificationPending:
		return status, nil
	}

	if err := s.userRepo.SetVerificationStatus(ctx, userID, models.VerificationPending); err != nil {
		return "", err
	}
	return models.VerificationPending, nil
}

// SetVerification sets a user's verification status directly. Admin only;
// the handler enforces the caller's role.
func (s *UserService) SetVerification(ctx context.Context, targetID uint, status models.VerificationStatus) error {
	if !status.Valid() {
		return models.NewValidationError("Unknown verification status: " + string(status))
	}
	return s.userRepo.SetVerificationStatus(ctx, targetID, status)
}
