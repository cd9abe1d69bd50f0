// Package agent hosts A2A agents the bridge can talk to during development
// and in tests.
package agent

import (
	"context"
	"net/http"

	"github.com/dusk-indust/a2abridge/internal/a2a"
)

// Agent is an A2A agent with its own HTTP server.
type Agent interface {
	a2a.Handler

	// Card returns the agent's A2A Agent Card.
	Card() a2a.AgentCard

	// Routes returns the agent's HTTP handler mounted under prefix.
	Routes(prefix string) http.Handler

	// Start launches the agent's HTTP server on addr, mounted under prefix.
	Start(ctx context.Context, addr, prefix string) error

	// Stop gracefully shuts down the agent.
	Stop(ctx context.Context) error
}
