package models

import "time"

// AiProviderID identifies one of the three AI uplink variants the console
// can route chat traffic through.
type AiProviderID string

// Supported AI providers.
const (
	ProviderGemini      AiProviderID = "gemini"
	ProviderLocalLLM    AiProviderID = "local_llm"
	ProviderHuggingFace AiProviderID = "huggingface"
)

// Valid reports whether the id names a known provider.
func (p AiProviderID) Valid() bool {
	switch p {
	case ProviderGemini, ProviderLocalLLM, ProviderHuggingFace:
		return true
	}
	return false
}

// DisplayName returns the operator-facing name of the provider.
func (p AiProviderID) DisplayName() string {
	switch p {
	case ProviderGemini:
		return "Google Gemini API"
	case ProviderLocalLLM:
		return "Local LLM (User-Defined)"
	case ProviderHuggingFace:
		return "Hugging Face Hub (Text Gen.)"
	}
	return "AI Matrix"
}

// LocalLlmConfig configures the user-defined local LLM provider.
type LocalLlmConfig struct {
	BaseURL   string `json:"baseUrl"`
	ModelName string `json:"modelName"`
}

// HuggingFaceConfig configures the Hugging Face Hub provider.
type HuggingFaceConfig struct {
	ModelID string `json:"modelId"`
	APIKey  string `json:"apiKey,omitempty"`
}

// AiProviderConfig is a tagged union: exactly one provider is active, and
// only the sub-config matching Kind is meaningful. Sub-configs for inactive
// providers are retained by the chat orchestrator but never transmitted.
type AiProviderConfig struct {
	Kind        AiProviderID       `json:"kind"`
	LocalLlm    *LocalLlmConfig    `json:"localLlm,omitempty"`
	HuggingFace *HuggingFaceConfig `json:"huggingFace,omitempty"`
}

// ChatSender distinguishes operator messages from AI messages.
type ChatSender string

// Chat message senders.
const (
	SenderUser ChatSender = "user"
	SenderAI   ChatSender = "ai"
)

// ChatMessageImageData is an inline image attachment on a chat message.
type ChatMessageImageData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
	FileName string `json:"fileName,omitempty"`
}

// GroundingSource is a web source cited by a grounded AI response.
type GroundingSource struct {
	URI   string `json:"uri"`
	Title string `json:"title,omitempty"`
}

// ChatMessage is one entry of the ephemeral chat transcript. Messages are
// in-memory only and do not survive a console restart; the welcome entry is
// resynthesized on view entry instead.
//
// Loading placeholders carry IsLoading=true and are replaced in place (by
// ID) when their request resolves.
type ChatMessage struct {
	ID              string                `json:"id"`
	Sender          ChatSender            `json:"sender"`
	Content         string                `json:"content"`
	Timestamp       time.Time             `json:"timestamp"`
	IsLoading       bool                  `json:"isLoading,omitempty"`
	IsWelcome       bool                  `json:"isWelcome,omitempty"`
	ImageData       *ChatMessageImageData `json:"imageData,omitempty"`
	GroundingSource []GroundingSource     `json:"groundingSources,omitempty"`
	AiProviderName  string                `json:"aiProviderName,omitempty"`
}

// AiAgentMode selects the backend system-prompt variant for a chat send.
type AiAgentMode string

// Supported agent modes.
const (
	ModeDefault        AiAgentMode = "default"
	ModeExplainCode    AiAgentMode = "explain_code"
	ModeGenerateDocs   AiAgentMode = "generate_docs"
	ModeRefactorCode   AiAgentMode = "refactor_code"
	ModeGenerateTests  AiAgentMode = "generate_tests"
	ModeCommandOracle  AiAgentMode = "command_oracle"
	ModeResearchOracle AiAgentMode = "research_oracle"
	ModeThreatBriefing AiAgentMode = "threat_intel_briefing"
)

// Valid reports whether the mode is one of the supported agent modes.
func (m AiAgentMode) Valid() bool {
	switch m {
	case ModeDefault, ModeExplainCode, ModeGenerateDocs, ModeRefactorCode,
		ModeGenerateTests, ModeCommandOracle, ModeResearchOracle, ModeThreatBriefing:
		return true
	}
	return false
}

// FileOperationAction is the verb of a blueprint file operation.
type FileOperationAction string

// Blueprint file operation verbs.
const (
	FileOpCreate FileOperationAction = "create"
	FileOpUpdate FileOperationAction = "update"
	FileOpDelete FileOperationAction = "delete"
)

// FileOperation is a single AI-directed mutation of the active blueprint's
// file list. Content is a pointer so that an update without content can
// preserve the prior file body.
type FileOperation struct {
	Action   FileOperationAction `json:"action"`
	FileName string              `json:"fileName"`
	Content  *string             `json:"content,omitempty"`
	Language string              `json:"language,omitempty"`
}

// AiChatResponse is the structured reply of the backend AI proxy.
type AiChatResponse struct {
	Type             string            `json:"type"` // "textResponse" or "fileOperation"
	Message          string            `json:"message,omitempty"`
	FileOps          []FileOperation   `json:"fileOps,omitempty"`
	GroundingSources []GroundingSource `json:"groundingSources,omitempty"`
}

// ChatRequest is the payload of a backend chat call. History carries prior
// operator-authored messages only (no placeholders, no AI replies).
type ChatRequest struct {
	UserInput          string                `json:"userInput"`
	ChatHistory        []ChatMessage         `json:"chatHistory"`
	ImageData          *ChatMessageImageData `json:"imageData,omitempty"`
	AgentMode          AiAgentMode           `json:"agentMode"`
	SelectedCode       string                `json:"selectedCode,omitempty"`
	SelectedAiProvider AiProviderID          `json:"selectedAiProvider"`
	LocalLlmConfig     *LocalLlmConfig       `json:"localLlmConfig,omitempty"`
	HuggingFaceConfig  *HuggingFaceConfig    `json:"huggingFaceConfig,omitempty"`
}

// BlueprintFile is one generated file stub inside a blueprint.
type BlueprintFile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// ParsedBlueprint is a named collection of generated file stubs produced by
// the AI proxy and editable in the workspace view. Files have no stable
// index; operations match by file name.
type ParsedBlueprint struct {
	Overview       string          `json:"overview"`
	SuggestedFiles []BlueprintFile `json:"suggestedFiles"`
	NextSteps      []string        `json:"nextSteps,omitempty"`
}

// TechSelections is the operator's technology picks sent to the blueprint
// generator.
type TechSelections struct {
	ProjectName    string `json:"projectName"`
	Frontend       string `json:"FRONTEND,omitempty"`
	UILibrary      string `json:"UI_LIBRARY,omitempty"`
	Backend        string `json:"BACKEND,omitempty"`
	Database       string `json:"DATABASE,omitempty"`
	AiProviderName string `json:"AI_PROVIDER_NAME,omitempty"`
	Deployment     string `json:"DEPLOYMENT,omitempty"`
}

// ThreatSeverity grades synthetic threat feed events.
type ThreatSeverity string

// Threat feed severities.
const (
	SeverityInfo     ThreatSeverity = "INFO"
	SeverityLow      ThreatSeverity = "LOW"
	SeverityMedium   ThreatSeverity = "MEDIUM"
	SeverityHigh     ThreatSeverity = "HIGH"
	SeverityCritical ThreatSeverity = "CRITICAL"
)

// ThreatIntelEvent is one synthetic entry of the decorative threat feed.
// Details carries severity-specific simulated metadata (IPs, resources,
// attempt counts) and has no schema beyond what the generator emits.
type ThreatIntelEvent struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Severity  ThreatSeverity         `json:"severity"`
	Source    string                 `json:"source"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
