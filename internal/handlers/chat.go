package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/middleware"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/services"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/utils"
)

// ChatHandler exposes the AI uplink: the transcript, sends, provider
// selection and sub-configs, and the architect blueprint.
type ChatHandler struct {
	console *services.Console
}

// NewChatHandler creates the chat handler.
func NewChatHandler(console *services.Console) *ChatHandler {
	return &ChatHandler{console: console}
}

type transcriptResponse struct {
	Messages []models.ChatMessage `json:"messages"`
	Error    string               `json:"error,omitempty"`
	Pending  bool                 `json:"pending"`
}

func (h *ChatHandler) transcript() transcriptResponse {
	return transcriptResponse{
		Messages: h.console.Chat.Messages(),
		Error:    h.console.Chat.Error(),
		Pending:  h.console.Chat.Pending(),
	}
}

// Messages returns the chat transcript and the chat-level error state.
//
// GET /api/chat/messages
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, h.transcript())
}

type sendRequest struct {
	Input        string                       `json:"input"`
	ImageData    *models.ChatMessageImageData `json:"imageData,omitempty"`
	AgentMode    models.AiAgentMode           `json:"agentMode,omitempty"`
	SelectedCode string                       `json:"selectedCode,omitempty"`
}

// Send runs one chat turn. Empty sends and sends while another turn is in
// flight are rejected without touching the transcript.
//
// POST /api/chat/send
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AgentMode != "" && !req.AgentMode.Valid() {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Unknown agent mode")
		return
	}

	reply, err := h.console.Chat.SendMessage(r.Context(), req.Input, req.ImageData, req.AgentMode, req.SelectedCode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage):
			middleware.IncrementChatSends("rejected")
			utils.RespondWithError(w, r, http.StatusBadRequest, "Directive is empty")
		case errors.Is(err, services.ErrSendInFlight):
			middleware.IncrementChatSends("rejected")
			utils.RespondWithError(w, r, http.StatusConflict, "A directive is already being processed")
		default:
			middleware.IncrementChatSends("backend_error")
			utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		}
		return
	}

	if h.console.Chat.Error() != "" {
		middleware.IncrementChatSends("backend_error")
	} else {
		middleware.IncrementChatSends("success")
	}

	utils.RespondWithSuccess(w, r, map[string]interface{}{
		"reply":      reply,
		"transcript": h.transcript(),
	})
}

// Clear resets the transcript to a fresh welcome.
//
// POST /api/chat/clear
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.console.Chat.ClearHistory()
	utils.RespondWithSuccess(w, r, h.transcript())
}

// Provider returns the active provider configuration.
//
// GET /api/chat/provider
func (h *ChatHandler) Provider(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithSuccess(w, r, h.console.Chat.ProviderConfig())
}

type selectProviderRequest struct {
	Provider models.AiProviderID `json:"provider"`
}

// SelectProvider switches the active AI uplink. If an AI-bearing view is
// active the welcome message is reconciled immediately.
//
// PUT /api/chat/provider
func (h *ChatHandler) SelectProvider(w http.ResponseWriter, r *http.Request) {
	var req selectProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.console.Chat.SelectProvider(req.Provider); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Unknown AI provider")
		return
	}

	if h.console.Views.Current().AiBearing() {
		h.console.Chat.ReconcileWelcome()
	}

	utils.RespondWithSuccess(w, r, h.console.Chat.ProviderConfig())
}

// ConfigureLocalLlm updates the local LLM sub-config.
//
// PUT /api/chat/provider/local-llm
func (h *ChatHandler) ConfigureLocalLlm(w http.ResponseWriter, r *http.Request) {
	var cfg models.LocalLlmConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if cfg.BaseURL == "" || cfg.ModelName == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Base URL and model name are required")
		return
	}

	h.console.Chat.SetLocalLlmConfig(cfg)
	utils.RespondWithSuccess(w, r, h.console.Chat.ProviderConfig())
}

// ConfigureHuggingFace updates the Hugging Face sub-config.
//
// PUT /api/chat/provider/huggingface
func (h *ChatHandler) ConfigureHuggingFace(w http.ResponseWriter, r *http.Request) {
	var cfg models.HuggingFaceConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if cfg.ModelID == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Model ID is required")
		return
	}

	h.console.Chat.SetHuggingFaceConfig(cfg)
	utils.RespondWithSuccess(w, r, h.console.Chat.ProviderConfig())
}

// GenerateBlueprint builds a new architect blueprint from technology
// selections and installs it as the active one.
//
// POST /api/architect/blueprint
func (h *ChatHandler) GenerateBlueprint(w http.ResponseWriter, r *http.Request) {
	var selections models.TechSelections
	if err := json.NewDecoder(r.Body).Decode(&selections); err != nil {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if selections.ProjectName == "" {
		utils.RespondWithError(w, r, http.StatusBadRequest, "Project name is required")
		return
	}

	blueprint, err := h.console.Chat.GenerateBlueprint(r.Context(), selections)
	if err != nil {
		utils.RespondWithError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondWithSuccess(w, r, blueprint)
}

// Blueprint returns the active blueprint.
//
// GET /api/architect/blueprint
func (h *ChatHandler) Blueprint(w http.ResponseWriter, r *http.Request) {
	blueprint := h.console.Chat.Blueprint()
	if blueprint == nil {
		utils.RespondWithError(w, r, http.StatusNotFound, "No active blueprint")
		return
	}
	utils.RespondWithSuccess(w, r, blueprint)
}
