package mcptools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const shutdownGrace = 5 * time.Second

// NewBridgeMCPServer creates an MCP server with the chat and agent_card
// tools registered. version is reported to clients on initialize.
func NewBridgeMCPServer(svc *BridgeService, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "a2abridge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "chat",
		Description: "Send a message to the configured A2A agent and return its streamed reply. Pass thread_id to continue a conversation.",
	}, svc.Chat)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "agent_card",
		Description: "Fetch the configured A2A agent's card: name, version, endpoint, streaming support and skills.",
	}, svc.AgentCard)

	return server
}

// RunStdio serves on stdin/stdout until stdin closes or ctx is done.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler exposes server over the streamable HTTP transport. Every
// session shares the same server and so the same relay.
func HTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return server }, nil)
}

// RunHTTP serves HTTPHandler on addr until ctx is done, then drains open
// sessions for up to shutdownGrace.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	srv := &http.Server{Addr: addr, Handler: HTTPHandler(server)}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
