package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"linker/internal/models"
)

func TestGetMyProfile(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{
		ID: 1, Username: "alice", VerificationStatus: models.VerificationVerified,
	}, nil)

	s := newTestServer(userRepo, new(MockPersonaRepository), "")
	s.app.Get("/me", asUser(1), s.GetMyProfile)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var user models.User
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, models.VerificationVerified, user.VerificationStatus)
}

func TestUpdateMyProfile(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{ID: 1, Username: "alice"}, nil)
	userRepo.On("Update", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
		return u.Headline == "Staff Engineer"
	})).Return(nil)

	s := newTestServer(userRepo, new(MockPersonaRepository), "")
	s.app.Put("/me", asUser(1), s.UpdateMyProfile)

	body, _ := json.Marshal(map[string]string{"headline": "Staff Engineer"})
	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	userRepo.AssertExpectations(t)
}

func TestRequestVerification(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{
		ID: 1, VerificationStatus: models.VerificationUnverified,
	}, nil)
	userRepo.On("SetVerificationStatus", mock.Anything, uint(1), models.VerificationPending).Return(nil)

	s := newTestServer(userRepo, new(MockPersonaRepository), "")
	s.app.Post("/verification", asUser(1), s.RequestVerification)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/verification", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "pending", out["status"])
	userRepo.AssertExpectations(t)
}

func TestAdminSetVerification(t *testing.T) {
	t.Run("Forbidden For Non-Admin", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.User{ID: 2, IsAdmin: false}, nil)

		s := newTestServer(userRepo, new(MockPersonaRepository), "")
		s.app.Post("/users/:id/verify", asUser(2), s.AdminRequired, s.AdminSetVerification)

		body, _ := json.Marshal(map[string]string{"status": "verified"})
		req := httptest.NewRequest(http.MethodPost, "/users/5/verify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Admin Sets Verified", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{ID: 1, IsAdmin: true}, nil)
		userRepo.On("SetVerificationStatus", mock.Anything, uint(5), models.VerificationVerified).Return(nil)

		s := newTestServer(userRepo, new(MockPersonaRepository), "")
		s.app.Post("/users/:id/verify", asUser(1), s.AdminRequired, s.AdminSetVerification)

		body, _ := json.Marshal(map[string]string{"status": "verified"})
		req := httptest.NewRequest(http.MethodPost, "/users/5/verify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		userRepo.AssertExpectations(t)
	})

	t.Run("Rejects Unknown Status", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{ID: 1, IsAdmin: true}, nil)

		s := newTestServer(userRepo, new(MockPersonaRepository), "")
		s.app.Post("/users/:id/verify", asUser(1), s.AdminRequired, s.AdminSetVerification)

		body, _ := json.Marshal(map[string]string{"status": "golden"})
		req := httptest.NewRequest(http.MethodPost, "/users/5/verify", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.app.Test(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAdminListUsers(t *testing.T) {
	t.Run("Forbidden For Non-Admin", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(2)).Return(&models.User{ID: 2, IsAdmin: false}, nil)

		s := newTestServer(userRepo, new(MockPersonaRepository), "")
		s.app.Get("/users", asUser(2), s.AdminRequired, s.AdminListUsers)

		resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/users", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("Admin Pages Through Accounts", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{ID: 1, IsAdmin: true}, nil)
		userRepo.On("List", mock.Anything, 2, 4).Return([]models.User{
			{ID: 5, Username: "carol"}, {ID: 6, Username: "dave"},
		}, nil)

		s := newTestServer(userRepo, new(MockPersonaRepository), "")
		s.app.Get("/users", asUser(1), s.AdminRequired, s.AdminListUsers)

		resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/users?limit=2&offset=4", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Users  []models.User `json:"users"`
			Limit  int           `json:"limit"`
			Offset int           `json:"offset"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Len(t, out.Users, 2)
		assert.Equal(t, 2, out.Limit)
		assert.Equal(t, 4, out.Offset)
		userRepo.AssertExpectations(t)
	})
}

func TestDeleteMyAccount(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(verifiedUser(1), nil)
	userRepo.On("Delete", mock.Anything, uint(1)).Return(nil)

	personaRepo := new(MockPersonaRepository)
	personaRepo.On("ListByUser", mock.Anything, uint(1)).Return([]models.Persona{
		{ID: 10, PersonaID: "p1", UserID: 1, DisplayName: "Night Owl"},
	}, nil)
	personaRepo.On("GetOwned", mock.Anything, uint(1), "p1").Return(&models.Persona{
		ID: 10, PersonaID: "p1", UserID: 1, DisplayName: "Night Owl",
	}, nil)
	personaRepo.On("Delete", mock.Anything, uint(1), "p1").Return(nil)

	s := newTestServer(userRepo, personaRepo, "")
	registerModeRoutes(s, 1)
	s.app.Delete("/users/me", asUser(1), s.DeleteMyAccount)

	// The account's persona is active; deleting the account must force the
	// session back to professional mode along the way.
	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/personas/p1/switch", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = s.app.Test(httptest.NewRequest(http.MethodDelete, "/users/me", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, models.ModeProfessional, s.modeService.Controller(1).CurrentMode())
	userRepo.AssertExpectations(t)
	personaRepo.AssertExpectations(t)
}
