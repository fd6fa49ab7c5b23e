package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/middleware"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/services"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/utils"
)

// AuthHandler exposes the session lifecycle: login, register, logout,
// operator profile, secure relay control, and the backend data purge.
type AuthHandler struct {
	console *services.Console
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(console *services.Console) *AuthHandler {
	return &AuthHandler{console: console}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Greeting string      `json:"greeting,omitempty"`
	User     interface{} `json:"user,omitempty"`
	View     string      `json:"view"`
}

// Login authenticates the operator against the backend and establishes
// the console session.
//
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Username is required")
		return
	}

	greeting, err := h.console.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		middleware.IncrementAuthAttempts("failed")
		utils.RespondWithError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	middleware.IncrementAuthAttempts("success")

	utils.RespondWithSuccess(w, r, sessionResponse{
		Greeting: greeting,
		User:     h.console.Session.User(),
		View:     string(h.console.Views.Current()),
	})
}

// Register creates an operator identity and establishes the session.
//
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Username and email are required")
		return
	}

	greeting, err := h.console.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		middleware.IncrementAuthAttempts("failed")
		utils.RespondWithError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	middleware.IncrementAuthAttempts("success")

	utils.RespondWithSuccess(w, r, sessionResponse{
		Greeting: greeting,
		User:     h.console.Session.User(),
		View:     string(h.console.Views.Current()),
	})
}

// Logout tears the session down. Always succeeds locally.
//
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	msg := h.console.Logout(r.Context())
	utils.RespondWithMessage(w, r, http.StatusOK, msg)
}

// Profile returns the current operator and relay state.
//
// GET /api/user/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := h.console.Session.User()
	if user == nil {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "No active session")
		return
	}

	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"user":         user,
		"relayActive":  h.console.Session.RelayActive(),
		"relayAddress": h.console.Session.RelayAddress(),
		"claims":       h.console.Session.Claims(),
	})
}

// ActivateRelay brings the secure relay up and returns its address.
//
// POST /api/user/relay/activate
func (h *AuthHandler) ActivateRelay(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.Authenticated() {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "No active session")
		return
	}

	address, err := h.console.Session.ActivateRelay(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Relay activation failed")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Secure Relay activation failed")
		return
	}

	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"relayActive":  true,
		"relayAddress": address,
	})
}

// DeactivateRelay tears the secure relay down.
//
// POST /api/user/relay/deactivate
func (h *AuthHandler) DeactivateRelay(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.Authenticated() {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "No active session")
		return
	}

	if err := h.console.Session.DeactivateRelay(r.Context()); err != nil {
		log.Error().Err(err).Msg("Relay deactivation failed")
		utils.RespondWithError(w, r, http.StatusInternalServerError, "Secure Relay deactivation failed")
		return
	}

	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"relayActive": false,
	})
}

// Purge erases all operator data on the backend and clears local
// collections.
//
// POST /api/user/purge-my-data
func (h *AuthHandler) Purge(w http.ResponseWriter, r *http.Request) {
	if !h.console.Session.Authenticated() {
		utils.RespondWithError(w, r, http.StatusUnauthorized, "No active session")
		return
	}

	msg, err := h.console.Purge(r.Context())
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithMessage(w, r, http.StatusOK, msg)
}
