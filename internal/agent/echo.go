package agent

import (
	"context"
	"errors"
	"time"

	"github.com/dusk-indust/a2abridge/internal/a2a"
)

// EchoCard returns the card of the echo agent served at url.
func EchoCard(url, version string) a2a.AgentCard {
	return a2a.AgentCard{
		Name:               "echo",
		Description:        "Development agent that streams the user's message back",
		URL:                url,
		Version:            version,
		ProtocolVersion:    "0.3.0",
		PreferredTransport: "JSONRPC",
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
		DefaultInputModes:  []string{"text/plain"},
		DefaultOutputModes: []string{"text/plain"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "echo",
				Name:        "Echo",
				Description: "Echoes the input back",
				Tags:        []string{"development"},
				Examples:    []string{"hello"},
			},
		},
	}
}

// NewEchoAgent creates an agent that answers every message with an artifact
// holding the message's text. A positive delay is waited out before replying
// so streaming clients can observe the working state.
func NewEchoAgent(card a2a.AgentCard, delay time.Duration) *BaseAgent {
	return NewBaseAgent(card, func(ctx context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error) {
		text := msg.Text()
		if text == "" {
			return nil, errors.New("message has no text")
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		return []a2a.Artifact{
			{
				ArtifactID: task.ID + "-echo",
				Name:       "echo",
				Parts:      []a2a.Part{a2a.TextPart(text)},
			},
		}, nil
	})
}
