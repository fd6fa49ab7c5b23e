package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/api"
	"github.com/Krypt-Cyber/ckryptbit.xyz/internal/models"
	"github.com/Krypt-Cyber/ckryptbit.xyz/pkg/config"
)

// Chat orchestrator sentinel errors.
var (
	// ErrEmptyMessage is returned when a send carries neither text nor image.
	ErrEmptyMessage = errors.New("empty chat message")

	// ErrSendInFlight is returned when a send starts while another is still
	// awaiting its response. Sends are serialized per conversation.
	ErrSendInFlight = errors.New("chat send already in flight")

	// ErrNoBlueprint is returned when file operations arrive without an
	// active blueprint to apply them to.
	ErrNoBlueprint = errors.New("no active blueprint")

	// ErrUnknownProvider is returned for provider ids outside the supported
	// set.
	ErrUnknownProvider = errors.New("unknown AI provider")
)

// loadingContent is the placeholder text shown while a send is in flight.
const loadingContent = "Engaging Backend AI Matrix..."

// ChatService orchestrates the AI uplink: provider selection, the ephemeral
// message transcript, send serialization, and the active blueprint.
//
// Exactly one provider is active at a time; sub-configs for inactive
// providers are retained so switching back restores them, but only the
// active provider's sub-config is transmitted.
//
// Loading placeholders are correlated by message id. A resolving send
// replaces its own placeholder in place and never touches any other entry,
// so overlapping resolutions cannot clobber each other.
type ChatService struct {
	mu     sync.Mutex
	client *api.Client

	provider models.AiProviderID
	localCfg models.LocalLlmConfig
	hfCfg    models.HuggingFaceConfig

	messages  []models.ChatMessage
	pendingID string // placeholder id of the in-flight send, "" when idle
	lastError string

	blueprint *models.ParsedBlueprint
}

// NewChatService creates the chat orchestrator with provider defaults from
// configuration.
func NewChatService(client *api.Client, cfg *config.AIConfig) *ChatService {
	return &ChatService{
		client:   client,
		provider: cfg.DefaultProvider,
		localCfg: models.LocalLlmConfig{
			BaseURL:   cfg.LocalLlmBaseURL,
			ModelName: cfg.LocalLlmModel,
		},
		hfCfg: models.HuggingFaceConfig{
			ModelID: cfg.HuggingFaceModel,
		},
	}
}

// SelectProvider switches the active AI uplink. Switching does not clear
// the transcript; the caller triggers welcome reconciliation when an
// AI-bearing view is active.
func (c *ChatService) SelectProvider(id models.AiProviderID) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}

	c.mu.Lock()
	c.provider = id
	c.mu.Unlock()

	log.Info().Str("provider", string(id)).Msg("AI uplink switched")
	return nil
}

// SetLocalLlmConfig updates the local LLM sub-config. The values are
// retained even while another provider is active.
func (c *ChatService) SetLocalLlmConfig(cfg models.LocalLlmConfig) {
	c.mu.Lock()
	c.localCfg = cfg
	c.mu.Unlock()
}

// SetHuggingFaceConfig updates the Hugging Face sub-config.
func (c *ChatService) SetHuggingFaceConfig(cfg models.HuggingFaceConfig) {
	c.mu.Lock()
	c.hfCfg = cfg
	c.mu.Unlock()
}

// ProviderConfig returns the tagged union describing the active provider.
// Only the sub-config matching the active kind is populated.
func (c *ChatService) ProviderConfig() models.AiProviderConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providerConfigLocked()
}

func (c *ChatService) providerConfigLocked() models.AiProviderConfig {
	cfg := models.AiProviderConfig{Kind: c.provider}
	switch c.provider {
	case models.ProviderLocalLLM:
		local := c.localCfg
		cfg.LocalLlm = &local
	case models.ProviderHuggingFace:
		hf := c.hfCfg
		cfg.HuggingFace = &hf
	}
	return cfg
}

// welcomeMessage builds the synthetic uplink greeting for the active
// provider.
func (c *ChatService) welcomeMessage() models.ChatMessage {
	name := c.provider.DisplayName()
	return models.ChatMessage{
		ID:             uuid.NewString(),
		Sender:         models.SenderAI,
		Content:        fmt.Sprintf("Uplink established with: %s (via Backend Proxy). System Online. Awaiting directives...", name),
		Timestamp:      time.Now().UTC(),
		IsWelcome:      true,
		AiProviderName: name,
	}
}

// ReconcileWelcome ensures the transcript's terminal entry is the welcome
// greeting for the active provider. Called on entry to an AI-bearing view
// and on provider change while one is active.
//
// Rules, in order: an empty transcript or one whose last entry is not a
// welcome gains a fresh welcome appended; a terminal welcome whose text
// differs from the freshly computed one (provider changed) is replaced in
// place; otherwise nothing changes. Calling this repeatedly with an
// unchanged provider never grows the transcript.
func (c *ChatService) ReconcileWelcome() {
	c.mu.Lock()
	defer c.mu.Unlock()

	welcome := c.welcomeMessage()

	if len(c.messages) == 0 || !c.messages[len(c.messages)-1].IsWelcome {
		c.messages = append(c.messages, welcome)
		return
	}

	if c.messages[len(c.messages)-1].Content != welcome.Content {
		c.messages[len(c.messages)-1] = welcome
	}
}

// Messages returns a snapshot of the transcript.
func (c *ChatService) Messages() []models.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Error returns the last chat-level error message, or "".
func (c *ChatService) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Pending reports whether a send is awaiting its response.
func (c *ChatService) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingID != ""
}

// SendMessage runs one chat turn: it appends the operator message and a
// loading placeholder, relays the turn to the backend AI proxy, and
// replaces the placeholder (matched by id) with the final AI message.
//
// The operator message is appended before the network call starts, so user
// messages always precede their AI response in transcript order. A second
// send while one is in flight is rejected with ErrSendInFlight and leaves
// the transcript unchanged. On backend failure the placeholder is replaced
// with an alert-flavored AI message and the chat-level error is set.
//
// File operations in the response are applied to the active blueprint; when
// no blueprint is active they are logged and dropped.
func (c *ChatService) SendMessage(ctx context.Context, input string, image *models.ChatMessageImageData, agentMode models.AiAgentMode, selectedCode string) (*models.ChatMessage, error) {
	if strings.TrimSpace(input) == "" && image == nil {
		return nil, ErrEmptyMessage
	}
	if agentMode == "" {
		agentMode = models.ModeDefault
	}

	c.mu.Lock()
	if c.pendingID != "" {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}

	// History carries prior operator-authored messages only, captured
	// before this turn's message is appended.
	var history []models.ChatMessage
	for _, m := range c.messages {
		if m.Sender == models.SenderUser && !m.IsLoading {
			history = append(history, m)
		}
	}

	providerName := c.provider.DisplayName()
	now := time.Now().UTC()

	userMsg := models.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    models.SenderUser,
		Content:   input,
		Timestamp: now,
		ImageData: image,
	}
	placeholder := models.ChatMessage{
		ID:             uuid.NewString(),
		Sender:         models.SenderAI,
		Content:        loadingContent,
		Timestamp:      now,
		IsLoading:      true,
		AiProviderName: providerName,
	}

	c.messages = append(c.messages, userMsg, placeholder)
	c.pendingID = placeholder.ID
	c.lastError = ""

	providerCfg := c.providerConfigLocked()
	c.mu.Unlock()

	req := models.ChatRequest{
		UserInput:          input,
		ChatHistory:        history,
		ImageData:          image,
		AgentMode:          agentMode,
		SelectedCode:       selectedCode,
		SelectedAiProvider: providerCfg.Kind,
		LocalLlmConfig:     providerCfg.LocalLlm,
		HuggingFaceConfig:  providerCfg.HuggingFace,
	}

	resp, err := c.client.SendChatMessage(ctx, req)

	final := models.ChatMessage{
		ID:             placeholder.ID,
		Sender:         models.SenderAI,
		Timestamp:      time.Now().UTC(),
		AiProviderName: providerName,
	}

	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Unknown AI Proxy error. Uplink potentially compromised."
		}
		final.Content = fmt.Sprintf("BACKEND AI PROXY SYSTEM ALERT: %s", msg)

		c.mu.Lock()
		c.lastError = msg
		c.resolvePlaceholderLocked(placeholder.ID, final)
		c.mu.Unlock()
		return &final, nil
	}

	switch {
	case resp.Message != "":
		final.Content = resp.Message
	case resp.Type == "fileOperation":
		final.Content = "File system operation directive received and processed by blueprint."
	default:
		final.Content = "No explicit textual response from AI matrix."
	}
	final.GroundingSource = resp.GroundingSources

	c.mu.Lock()
	c.resolvePlaceholderLocked(placeholder.ID, final)
	c.mu.Unlock()

	if resp.Type == "fileOperation" && len(resp.FileOps) > 0 {
		if err := c.ApplyFileOps(resp.FileOps); err != nil {
			log.Warn().Err(err).Msg("File operations received but not applied")
		}
	}

	return &final, nil
}

// resolvePlaceholderLocked replaces the placeholder with the given id in
// place. A placeholder removed by ClearHistory before its send resolved is
// simply gone; the late resolution is a no-op.
func (c *ChatService) resolvePlaceholderLocked(id string, final models.ChatMessage) {
	if c.pendingID == id {
		c.pendingID = ""
	}
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i] = final
			return
		}
	}
	log.Debug().Str("message_id", id).Msg("Placeholder gone before send resolved")
}

// ClearHistory resets the transcript to a single fresh welcome for the
// active provider and clears the error and pending state. A send still in
// flight resolves into nothing.
func (c *ChatService) ClearHistory() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = []models.ChatMessage{c.welcomeMessage()}
	c.lastError = ""
	c.pendingID = ""
}

// GenerateBlueprint asks the AI proxy to build a blueprint from technology
// selections and installs it as the active blueprint.
func (c *ChatService) GenerateBlueprint(ctx context.Context, selections models.TechSelections) (*models.ParsedBlueprint, error) {
	blueprint, err := c.client.GenerateBlueprint(ctx, selections)
	if err != nil {
		return nil, fmt.Errorf("generate blueprint: %w", err)
	}

	c.mu.Lock()
	c.blueprint = blueprint
	c.mu.Unlock()

	log.Info().
		Int("files", len(blueprint.SuggestedFiles)).
		Msg("Blueprint generated")
	return blueprint, nil
}

// Blueprint returns the active blueprint, or nil when none is loaded.
func (c *ChatService) Blueprint() *models.ParsedBlueprint {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.blueprint == nil {
		return nil
	}
	snapshot := *c.blueprint
	snapshot.SuggestedFiles = make([]models.BlueprintFile, len(c.blueprint.SuggestedFiles))
	copy(snapshot.SuggestedFiles, c.blueprint.SuggestedFiles)
	return &snapshot
}

// ApplyFileOps applies AI-directed file operations to the active blueprint.
// Operations apply in list order, each against the result of the previous.
// Files are matched by name; there is no stable index.
//
// Semantics:
//   - create: append when the name is new, otherwise overwrite content and
//     language (upsert, not strict create)
//   - update: merge into the existing file, where absent content preserves
//     the prior body; a missing file falls back to create
//   - delete: remove the first file with a matching name, no-op otherwise
func (c *ChatService) ApplyFileOps(ops []models.FileOperation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.blueprint == nil {
		return ErrNoBlueprint
	}

	files := c.blueprint.SuggestedFiles
	for _, op := range ops {
		idx := -1
		for i := range files {
			if files[i].Name == op.FileName {
				idx = i
				break
			}
		}

		switch op.Action {
		case models.FileOpCreate:
			if idx == -1 {
				files = append(files, models.BlueprintFile{
					Name:     op.FileName,
					Language: orDefault(op.Language, "plaintext"),
					Content:  deref(op.Content),
				})
			} else {
				if op.Content != nil {
					files[idx].Content = *op.Content
				}
				if op.Language != "" {
					files[idx].Language = op.Language
				}
			}

		case models.FileOpUpdate:
			if idx != -1 {
				if op.Content != nil {
					files[idx].Content = *op.Content
				}
			} else {
				files = append(files, models.BlueprintFile{
					Name:     op.FileName,
					Language: orDefault(op.Language, "plaintext"),
					Content:  deref(op.Content),
				})
			}

		case models.FileOpDelete:
			if idx != -1 {
				files = append(files[:idx], files[idx+1:]...)
			}
		}
	}

	c.blueprint.SuggestedFiles = files
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
