package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/a2abridge/internal/a2a"
	"github.com/dusk-indust/a2abridge/internal/relay"
)

// Relay is the part of *relay.Relay the tools use.
type Relay interface {
	Collect(ctx context.Context, q relay.Query) ([]relay.Event, error)
	BaseURL() string
}

// BridgeService holds the relay and card resolver used by MCP tool handlers.
type BridgeService struct {
	relay    Relay
	resolver relay.Resolver
}

// NewBridgeService creates a BridgeService.
func NewBridgeService(r Relay, resolver relay.Resolver) *BridgeService {
	return &BridgeService{relay: r, resolver: resolver}
}

// Chat sends one message to the agent and returns the whole streamed reply.
// A failed exchange is reported in the output's error field, after whatever
// chunks arrived before it.
func (s *BridgeService) Chat(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ChatInput,
) (*mcp.CallToolResult, ChatOutput, error) {
	if strings.TrimSpace(input.UserInput) == "" {
		return nil, ChatOutput{}, errors.New("user_input is required")
	}

	q := relay.EnsureThreadID(relay.Query{Text: input.UserInput, ThreadID: input.ThreadID})
	events, err := s.relay.Collect(ctx, q)
	if err != nil {
		return nil, ChatOutput{}, fmt.Errorf("chat: %w", err)
	}

	out := ChatOutput{ThreadID: q.ThreadID, Messages: []any{}}
	var text strings.Builder
	for _, ev := range events {
		if ev.Kind == relay.KindError {
			out.Error = ev.ErrorText()
			continue
		}
		var msg any
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			return nil, ChatOutput{}, fmt.Errorf("chat: decode chunk: %w", err)
		}
		out.Messages = append(out.Messages, msg)
		text.WriteString(chunkText(ev.Data))
	}
	out.Text = text.String()
	return nil, out, nil
}

// AgentCard resolves and summarizes the remote agent's card.
func (s *BridgeService) AgentCard(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ AgentCardInput,
) (*mcp.CallToolResult, AgentCardOutput, error) {
	card, err := s.resolver.ResolveCard(ctx, s.relay.BaseURL())
	if err != nil {
		return nil, AgentCardOutput{}, err
	}

	out := AgentCardOutput{
		Name:        card.Name,
		Description: card.Description,
		Version:     card.Version,
		URL:         card.JSONRPCEndpoint(),
		Streaming:   card.Capabilities.Streaming,
		Skills:      make([]SkillSummary, 0, len(card.Skills)),
	}
	for _, sk := range card.Skills {
		out.Skills = append(out.Skills, SkillSummary{ID: sk.ID, Name: sk.Name, Description: sk.Description})
	}
	return nil, out, nil
}

// chunkText extracts the text an artifact or message chunk carries. Status
// updates contribute nothing so progress notes are not mixed into the reply.
func chunkText(data json.RawMessage) string {
	var resp a2a.JSONRPCResponse
	if err := json.Unmarshal(data, &resp); err != nil || len(resp.Result) == 0 {
		return ""
	}
	result, err := a2a.DecodeResult(resp.Result)
	if err != nil || result.StatusUpdate != nil {
		return ""
	}
	return result.Text()
}
