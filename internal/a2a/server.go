package a2a

import (
	"context"
	"net/http"
)

// Handler processes incoming A2A requests for an agent.
type Handler interface {
	// HandleSendMessage processes a message and returns the reply.
	HandleSendMessage(ctx context.Context, req MessageSendParams) (*Result, error)

	// HandleStreamMessage processes a message, calling emit for every
	// result in order. Returning stops the stream. emit fails once the
	// client has gone away.
	HandleStreamMessage(ctx context.Context, req MessageSendParams, emit func(*Result) error) error
}

// Server is the HTTP server that exposes an A2A agent.
type Server struct {
	card    AgentCard
	handler Handler
	http    *http.Server
}

// NewServer creates an A2A server for the given agent.
func NewServer(card AgentCard, handler Handler) *Server {
	return &Server{
		card:    card,
		handler: handler,
	}
}
