package llm

import "encoding/json"

// Role represents the role of a message sender in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a single message in a conversation. Tool-result
// messages carry the ToolCallID of the call they answer.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall // assistant messages that requested tools
}

// ToolDef declares a tool the model may call. Parameters is a JSON Schema
// object describing the arguments.
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall is one tool invocation proposed by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// CompletionRequest contains the parameters for an LLM completion request.
// ToolsAllowed gates whether Tools are sent at all: the retrieval gate can
// disable tools for a turn without the caller rebuilding the request.
type CompletionRequest struct {
	Model        string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	JSONMode     bool
	Tools        []ToolDef
	ToolsAllowed bool
}

// CompletionResponse contains the result of an LLM completion request.
type CompletionResponse struct {
	Content      string
	ToolCalls    []ToolCall
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}
