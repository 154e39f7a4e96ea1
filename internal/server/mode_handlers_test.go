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
	"linker/internal/service"
)

func verifiedUser(id uint) *models.User {
	return &models.User{ID: id, Username: "alice", VerificationStatus: models.VerificationVerified}
}

func registerModeRoutes(s *Server, userID uint) {
	s.app.Post("/personas/:id/switch", asUser(userID), s.SwitchPersona)
	s.app.Post("/personas/exit", asUser(userID), s.ExitAnonymous)
	s.app.Get("/mode", asUser(userID), s.GetMode)
}

func TestSwitchPersona_FullCycle(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(verifiedUser(1), nil)
	personaRepo := new(MockPersonaRepository)
	personaRepo.On("GetOwned", mock.Anything, uint(1), "p1").Return(&models.Persona{
		ID: 10, PersonaID: "p1", UserID: 1, DisplayName: "Night Owl",
	}, nil)

	s := newTestServer(userRepo, personaRepo, "")
	registerModeRoutes(s, 1)

	// Enter anonymous mode carrying the professional position along.
	body, _ := json.Marshal(map[string]interface{}{
		"from": map[string]interface{}{"location": "/feed/post/42", "path": "/feed", "offset": 120},
	})
	req := httptest.NewRequest(http.MethodPost, "/personas/p1/switch", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result service.SwitchResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "/anonymous", result.TargetPath)
	require.NotNil(t, result.Persona)
	assert.Equal(t, "Night Owl", result.Persona.DisplayName)

	// Mode endpoint now reports anonymous with the active persona.
	modeResp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/mode", nil))
	require.NoError(t, err)
	defer func() { _ = modeResp.Body.Close() }()

	var status service.ModeStatus
	require.NoError(t, json.NewDecoder(modeResp.Body).Decode(&status))
	assert.Equal(t, models.ModeAnonymous, status.Mode)
	require.NotNil(t, status.Persona)
	assert.Equal(t, "p1", status.Persona.PersonaID)

	// Exit restores the professional location captured at entry.
	exitResp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/personas/exit", nil))
	require.NoError(t, err)
	defer func() { _ = exitResp.Body.Close() }()
	require.Equal(t, http.StatusOK, exitResp.StatusCode)

	var exit map[string]string
	require.NoError(t, json.NewDecoder(exitResp.Body).Decode(&exit))
	assert.Equal(t, "/feed/post/42", exit["target_path"])
}

func TestSwitchPersona_RequiresVerification(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(&models.User{
		ID: 1, VerificationStatus: models.VerificationPending,
	}, nil)

	s := newTestServer(userRepo, new(MockPersonaRepository), "")
	registerModeRoutes(s, 1)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/personas/p1/switch", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	var out models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, models.CodeVerificationRequired, out.Code)
	assert.Equal(t, "/settings/verification", out.Action)
}

func TestSwitchPersona_UnknownPersona(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(verifiedUser(1), nil)
	personaRepo := new(MockPersonaRepository)
	personaRepo.On("GetOwned", mock.Anything, uint(1), "ghost").
		Return(nil, models.NewNotFoundError("Persona", "ghost"))

	s := newTestServer(userRepo, personaRepo, "")
	registerModeRoutes(s, 1)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/personas/ghost/switch", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSwitchPersona_KillSwitch(t *testing.T) {
	s := newTestServer(new(MockUserRepository), new(MockPersonaRepository), "anonymous_mode=off")
	registerModeRoutes(s, 1)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/personas/p1/switch", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Flag off never reaches verification or the persona store, and the
	// session stays professional.
	modeResp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/mode", nil))
	require.NoError(t, err)
	defer func() { _ = modeResp.Body.Close() }()

	var status service.ModeStatus
	require.NoError(t, json.NewDecoder(modeResp.Body).Decode(&status))
	assert.Equal(t, models.ModeProfessional, status.Mode)
}

func TestExitAnonymous_WhileProfessional(t *testing.T) {
	s := newTestServer(new(MockUserRepository), new(MockPersonaRepository), "")
	registerModeRoutes(s, 1)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/personas/exit", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var exit map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&exit))
	assert.Equal(t, "/feed", exit["target_path"])
}

func TestDeletePersona_ForcesExit(t *testing.T) {
	userRepo := new(MockUserRepository)
	userRepo.On("GetByID", mock.Anything, uint(1)).Return(verifiedUser(1), nil)
	personaRepo := new(MockPersonaRepository)
	personaRepo.On("GetOwned", mock.Anything, uint(1), "p1").Return(&models.Persona{
		ID: 10, PersonaID: "p1", UserID: 1, DisplayName: "Night Owl",
	}, nil)
	personaRepo.On("Delete", mock.Anything, uint(1), "p1").Return(nil)

	s := newTestServer(userRepo, personaRepo, "")
	registerModeRoutes(s, 1)
	s.app.Delete("/personas/:id", asUser(1), s.DeletePersona)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodPost, "/personas/p1/switch", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	delResp, err := s.app.Test(httptest.NewRequest(http.MethodDelete, "/personas/p1", nil))
	require.NoError(t, err)
	_ = delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)

	modeResp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/mode", nil))
	require.NoError(t, err)
	defer func() { _ = modeResp.Body.Close() }()

	var status service.ModeStatus
	require.NoError(t, json.NewDecoder(modeResp.Body).Decode(&status))
	assert.Equal(t, models.ModeProfessional, status.Mode)
	assert.Nil(t, status.Persona)
}

func TestGetFeatureFlags(t *testing.T) {
	s := newTestServer(new(MockUserRepository), new(MockPersonaRepository), "anonymous_mode=on,dark_theme=off")
	s.app.Get("/flags", asUser(1), s.GetFeatureFlags)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/flags", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Flags map[string]bool `json:"flags"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Flags["anonymous_mode"])
	assert.False(t, out.Flags["dark_theme"])
}
