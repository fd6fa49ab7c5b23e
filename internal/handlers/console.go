package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/middleware"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/services"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/utils"
)

// ConsoleHandler exposes the view controller, the threat feed, and the
// console's error and alert logs.
type ConsoleHandler struct {
	console *services.Console
}

// NewConsoleHandler creates the console handler.
func NewConsoleHandler(console *services.Console) *ConsoleHandler {
	return &ConsoleHandler{console: console}
}

type viewResponse struct {
	View          string `json:"view"`
	Transitioning bool   `json:"transitioning"`
}

// CurrentView returns the active view and transition state.
//
// GET /api/view
func (h *ConsoleHandler) CurrentView(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, viewResponse{
		View:          string(h.console.Views.Current()),
		Transitioning: h.console.Views.Transitioning(),
	})
}

type navigateRequest struct {
	View models.View `json:"view"`
}

// Navigate requests a view switch. Unknown view ids are rejected before
// they reach the controller.
//
// POST /api/view/navigate
func (h *ConsoleHandler) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.View.Valid() {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Unknown view id")
		return
	}

	h.console.Views.Navigate(req.View)
	middleware.IncrementViewTransitions(string(req.View))

	utils.RespondWithSuccess(w, r, viewResponse{
		View:          string(h.console.Views.Current()),
		Transitioning: h.console.Views.Transitioning(),
	})
}

// ThreatEvents returns the threat feed, newest first.
//
// GET /api/threat-feed
func (h *ConsoleHandler) ThreatEvents(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"events":  h.console.Threats.Events(),
		"running": h.console.Threats.Running(),
	})
}

// ClearThreatEvents empties the threat feed without stopping it.
//
// DELETE /api/threat-feed
func (h *ConsoleHandler) ClearThreatEvents(w http.ResponseWriter, r *http.Request) {
	h.console.Threats.Clear()
	utils.RespondWithMessage(w, r, http.StatusOK, "Threat feed cleared")
}

// Errors returns the accumulated error log.
//
// GET /api/errors
func (h *ConsoleHandler) Errors(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"errorLog": h.console.ErrorLog(),
	})
}

// ClearErrors empties the error log.
//
// DELETE /api/errors
func (h *ConsoleHandler) ClearErrors(w http.ResponseWriter, r *http.Request) {
	h.console.ClearErrors()
	utils.RespondWithMessage(w, r, http.StatusOK, "Error log cleared")
}

// Alerts returns pending operator notices, oldest first.
//
// GET /api/alerts
func (h *ConsoleHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"alerts": h.console.Alerts(),
	})
}

// ClearAlerts drops all pending operator notices.
//
// DELETE /api/alerts
func (h *ConsoleHandler) ClearAlerts(w http.ResponseWriter, r *http.Request) {
	h.console.ClearAlerts()
	utils.RespondWithMessage(w, r, http.StatusOK, "Alerts cleared")
}
