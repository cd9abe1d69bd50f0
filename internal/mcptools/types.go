package mcptools

// --- MCP Tool Types for the bridge server mode (-serve-mcp) ---

// ChatInput is the input for the chat MCP tool.
type ChatInput struct {
	UserInput string `json:"user_input" jsonschema:"the message to send to the agent"`
	ThreadID  string `json:"thread_id,omitempty" jsonschema:"conversation thread identifier (default: a fresh one)"`
}

// ChatOutput is the result of the chat MCP tool.
type ChatOutput struct {
	ThreadID string `json:"threadId"`
	// Messages holds every streamed chunk in arrival order.
	Messages []any `json:"messages"`
	// Text is the text carried by the chunks, concatenated.
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// AgentCardInput is the input for the agent_card MCP tool.
type AgentCardInput struct{}

// AgentCardOutput summarizes the remote agent's card.
type AgentCardOutput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Version     string         `json:"version"`
	URL         string         `json:"url"`
	Streaming   bool           `json:"streaming"`
	Skills      []SkillSummary `json:"skills"`
}

// SkillSummary is a brief overview of one agent skill.
type SkillSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
