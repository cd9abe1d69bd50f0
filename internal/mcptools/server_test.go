package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/a2abridge/internal/a2a"
	"github.com/dusk-indust/a2abridge/internal/agent"
	"github.com/dusk-indust/a2abridge/internal/ident"
	"github.com/dusk-indust/a2abridge/internal/relay"
)

type fakeRelay struct {
	events []relay.Event
	err    error
	seen   []relay.Query
}

func (f *fakeRelay) Collect(_ context.Context, q relay.Query) ([]relay.Event, error) {
	f.seen = append(f.seen, q)
	return f.events, f.err
}

func (f *fakeRelay) BaseURL() string { return "http://agent.test/a2a" }

type fakeResolver struct {
	card *a2a.AgentCard
	err  error
}

func (f *fakeResolver) ResolveCard(context.Context, string) (*a2a.AgentCard, error) {
	return f.card, f.err
}

// setupServerClient wires an MCP server and client together using in-memory
// transports.
func setupServerClient(t *testing.T, svc *BridgeService) *mcp.ClientSession {
	t.Helper()

	server := NewBridgeMCPServer(svc, "1.2.3")
	st, ct := mcp.NewInMemoryTransports()

	ctx := context.Background()

	_, err := server.Connect(ctx, st, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, ct, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
	})

	return session
}

func callChat(t *testing.T, session *mcp.ClientSession, args ChatInput) (*mcp.CallToolResult, ChatOutput) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "chat",
		Arguments: args,
	})
	require.NoError(t, err)

	var out ChatOutput
	if result.StructuredContent != nil {
		raw, err := json.Marshal(result.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return result, out
}

func chunkJSON(t *testing.T, r *a2a.Result) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(r)
	require.NoError(t, err)
	raw, err := json.Marshal(a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: "req", Result: data})
	require.NoError(t, err)
	return raw
}

func TestMCPListTools(t *testing.T) {
	session := setupServerClient(t, NewBridgeService(&fakeRelay{}, &fakeResolver{}))

	result, err := session.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	names := make([]string, len(result.Tools))
	for i, tool := range result.Tools {
		names[i] = tool.Name
	}
	sort.Strings(names)
	assert.Equal(t, []string{"agent_card", "chat"}, names)
}

func TestMCPServerReportsVersion(t *testing.T) {
	session := setupServerClient(t, NewBridgeService(&fakeRelay{}, &fakeResolver{}))

	info := session.InitializeResult()
	require.NotNil(t, info)
	require.NotNil(t, info.ServerInfo)
	assert.Equal(t, "a2abridge", info.ServerInfo.Name)
	assert.Equal(t, "1.2.3", info.ServerInfo.Version)
}

func TestMCPChat(t *testing.T) {
	fr := &fakeRelay{events: []relay.Event{
		{Kind: relay.KindMessage, Data: chunkJSON(t, a2a.NewStatusResult(a2a.TaskStatusUpdateEvent{
			TaskID: "t1",
			Status: a2a.TaskStatus{State: a2a.TaskStateWorking, Message: &a2a.Message{Role: a2a.RoleAgent, Parts: []a2a.Part{a2a.TextPart("thinking")}}},
		}))},
		{Kind: relay.KindMessage, Data: chunkJSON(t, a2a.NewArtifactResult(a2a.TaskArtifactUpdateEvent{
			TaskID:   "t1",
			Artifact: a2a.Artifact{ArtifactID: "a", Parts: []a2a.Part{a2a.TextPart("X is a node")}},
		}))},
	}}
	session := setupServerClient(t, NewBridgeService(fr, &fakeResolver{}))

	result, out := callChat(t, session, ChatInput{UserInput: "what is X?", ThreadID: "thread-1"})
	require.False(t, result.IsError)

	assert.Equal(t, "thread-1", out.ThreadID)
	assert.Len(t, out.Messages, 2)
	assert.Equal(t, "X is a node", out.Text)
	assert.Empty(t, out.Error)

	require.Len(t, fr.seen, 1)
	assert.Equal(t, relay.Query{Text: "what is X?", ThreadID: "thread-1"}, fr.seen[0])
}

func TestMCPChat_GeneratesThreadID(t *testing.T) {
	fr := &fakeRelay{}
	session := setupServerClient(t, NewBridgeService(fr, &fakeResolver{}))

	result, out := callChat(t, session, ChatInput{UserInput: "hello"})
	require.False(t, result.IsError)
	assert.True(t, ident.Validate(out.ThreadID))
	assert.Empty(t, out.Messages)
}

func TestMCPChat_ErrorEvent(t *testing.T) {
	fr := &fakeRelay{events: []relay.Event{
		{Kind: relay.KindError, Data: json.RawMessage(`{"error":"a2a: resolve agent card: connection refused"}`)},
	}}
	session := setupServerClient(t, NewBridgeService(fr, &fakeResolver{}))

	result, out := callChat(t, session, ChatInput{UserInput: "hello"})
	require.False(t, result.IsError)
	assert.Empty(t, out.Messages)
	assert.Contains(t, out.Error, "connection refused")
}

func TestMCPChat_EmptyInput(t *testing.T) {
	fr := &fakeRelay{}
	session := setupServerClient(t, NewBridgeService(fr, &fakeResolver{}))

	result, _ := callChat(t, session, ChatInput{UserInput: "   "})
	assert.True(t, result.IsError)
	assert.Empty(t, fr.seen)
}

func TestMCPChat_Canceled(t *testing.T) {
	fr := &fakeRelay{err: context.Canceled}
	session := setupServerClient(t, NewBridgeService(fr, &fakeResolver{}))

	result, _ := callChat(t, session, ChatInput{UserInput: "hello"})
	assert.True(t, result.IsError)
}

func TestMCPAgentCard(t *testing.T) {
	card := agent.EchoCard("http://agent.test/a2a/", "2.0.0")
	session := setupServerClient(t, NewBridgeService(&fakeRelay{}, &fakeResolver{card: &card}))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "agent_card",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out AgentCardOutput
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "echo", out.Name)
	assert.Equal(t, "2.0.0", out.Version)
	assert.Equal(t, "http://agent.test/a2a/", out.URL)
	assert.True(t, out.Streaming)
	require.Len(t, out.Skills, 1)
	assert.Equal(t, "echo", out.Skills[0].ID)
}

func TestMCPAgentCard_ResolutionFailure(t *testing.T) {
	res := &fakeResolver{err: &a2a.ResolutionError{URL: "http://agent.test/a2a", Err: errors.New("HTTP 404: not found")}}
	session := setupServerClient(t, NewBridgeService(&fakeRelay{}, res))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "agent_card",
		Arguments: map[string]any{},
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

// TestMCPCallUnknownTool verifies that calling a non-existent tool returns an
// error.
func TestMCPCallUnknownTool(t *testing.T) {
	session := setupServerClient(t, NewBridgeService(&fakeRelay{}, &fakeResolver{}))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "nonexistent_tool",
		Arguments: map[string]any{},
	})

	// The MCP SDK may return an error at the protocol level or set IsError on
	// the result. Accept either behavior.
	if err != nil {
		return
	}

	require.NotNil(t, result)
	assert.True(t, result.IsError, "calling an unknown tool should set IsError")
}

func TestMCPChat_EchoAgent(t *testing.T) {
	ts := httptest.NewUnstartedServer(nil)
	base := "http://" + ts.Listener.Addr().String() + "/a2a"
	ts.Config.Handler = agent.NewEchoAgent(agent.EchoCard(base+"/", "test"), 0).Routes("/a2a")
	ts.Start()
	defer ts.Close()

	client := a2a.NewHTTPClient()
	r, err := relay.New(relay.Config{BaseURL: base, Resolver: client, Dispatchers: relay.A2ADispatchers(client)})
	require.NoError(t, err)
	session := setupServerClient(t, NewBridgeService(r, client))

	result, out := callChat(t, session, ChatInput{UserInput: "ping"})
	require.False(t, result.IsError)
	assert.Len(t, out.Messages, 3)
	assert.Equal(t, "ping", out.Text)
	assert.Empty(t, out.Error)
}

func TestRunHTTP_StopsOnCancel(t *testing.T) {
	server := NewBridgeMCPServer(NewBridgeService(&fakeRelay{}, &fakeResolver{}), "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- RunHTTP(ctx, server, "127.0.0.1:0") }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunHTTP did not return after cancel")
	}
}

func TestRunHTTP_ListenError(t *testing.T) {
	server := NewBridgeMCPServer(NewBridgeService(&fakeRelay{}, &fakeResolver{}), "")
	assert.Error(t, RunHTTP(context.Background(), server, "127.0.0.1:99999"))
}
