package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedHandler replies with a fixed result and streams a fixed script.
type scriptedHandler struct {
	reply  *Result
	script []*Result
	failAt int // stream error after this many results, -1 for never

	mu      sync.Mutex
	lastReq MessageSendParams
}

func (h *scriptedHandler) record(req MessageSendParams) {
	h.mu.Lock()
	h.lastReq = req
	h.mu.Unlock()
}

func (h *scriptedHandler) last() MessageSendParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastReq
}

func (h *scriptedHandler) HandleSendMessage(_ context.Context, req MessageSendParams) (*Result, error) {
	h.record(req)
	if h.reply == nil {
		return nil, errors.New("no reply configured")
	}
	return h.reply, nil
}

func (h *scriptedHandler) HandleStreamMessage(_ context.Context, req MessageSendParams, emit func(*Result) error) error {
	h.record(req)
	for i, r := range h.script {
		if i == h.failAt {
			return errors.New("agent crashed")
		}
		if err := emit(r); err != nil {
			return err
		}
	}
	return nil
}

func newTestServer(t *testing.T, h Handler) (*httptest.Server, *Dispatcher) {
	t.Helper()
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		NewServer(testCard(ts.URL+"/"), h).Routes().ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	client := NewHTTPClient()
	card, err := client.ResolveCard(context.Background(), ts.URL)
	require.NoError(t, err)
	d, err := NewDispatcher(client, card)
	require.NoError(t, err)
	return ts, d
}

func TestServer_AgentCard(t *testing.T) {
	ts, d := newTestServer(t, &scriptedHandler{failAt: -1})

	assert.Equal(t, "kgraph", d.Card().Name)
	assert.Equal(t, ts.URL+"/", d.Endpoint())
	assert.True(t, d.Card().Capabilities.Streaming)
}

func TestServer_SendMessage(t *testing.T) {
	h := &scriptedHandler{reply: NewMessageResult(Message{MessageID: "r1", Role: RoleAgent, Parts: []Part{TextPart("pong")}}), failAt: -1}
	_, d := newTestServer(t, h)

	result, err := d.SendOnce(context.Background(), NewEnvelope("thread-9", "ping"), "req-1")
	require.NoError(t, err)

	assert.Equal(t, KindMessage, result.Kind)
	assert.Equal(t, "pong", result.Text())
	last := h.last()
	assert.Equal(t, "thread-9", last.Message.MessageID)
	assert.Equal(t, "ping", last.Message.Text())
}

func TestServer_SendMessageHandlerError(t *testing.T) {
	_, d := newTestServer(t, &scriptedHandler{failAt: -1})

	_, err := d.SendOnce(context.Background(), NewEnvelope("t", "ping"), "req-1")
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, ErrCodeInternal, rpcErr.Code)
	assert.Equal(t, "no reply configured", rpcErr.Message)
}

func TestServer_StreamMessage(t *testing.T) {
	h := &scriptedHandler{
		failAt: -1,
		script: []*Result{
			NewStatusResult(TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: TaskStatus{State: TaskStateWorking}}),
			NewArtifactResult(TaskArtifactUpdateEvent{TaskID: "t1", ContextID: "c1", Artifact: Artifact{ArtifactID: "a", Parts: []Part{TextPart("pong")}}}),
			NewStatusResult(TaskStatusUpdateEvent{TaskID: "t1", ContextID: "c1", Status: TaskStatus{State: TaskStateCompleted}, Final: true}),
		},
	}
	_, d := newTestServer(t, h)

	s, err := d.SendStreaming(context.Background(), NewEnvelope("t", "ping"), "req-2")
	require.NoError(t, err)
	defer s.Close()

	chunks, err := collect(t, s)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, KindStatusUpdate, chunks[0].Result.Kind)
	assert.Equal(t, "pong", chunks[1].Result.Text())
	assert.True(t, chunks[2].Result.Final())
}

func TestServer_StreamMessageHandlerError(t *testing.T) {
	h := &scriptedHandler{
		failAt: 1,
		script: []*Result{
			NewStatusResult(TaskStatusUpdateEvent{TaskID: "t1", Status: TaskStatus{State: TaskStateWorking}}),
			NewStatusResult(TaskStatusUpdateEvent{TaskID: "t1", Status: TaskStatus{State: TaskStateCompleted}, Final: true}),
		},
	}
	_, d := newTestServer(t, h)

	s, err := d.SendStreaming(context.Background(), NewEnvelope("t", "ping"), "req-2")
	require.NoError(t, err)
	defer s.Close()

	chunks, err := collect(t, s)
	require.NoError(t, err)
	require.Len(t, chunks, 2, "the handler failure arrives as a trailing error chunk")
	assert.NotNil(t, chunks[0].Result)
	require.NotNil(t, chunks[1].Err)
	assert.Equal(t, ErrCodeInternal, chunks[1].Err.Code)
	assert.Equal(t, "agent crashed", chunks[1].Err.Message)
}

func TestServer_JSONRPCErrors(t *testing.T) {
	ts, _ := newTestServer(t, &scriptedHandler{failAt: -1})

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{not json`, ErrCodeParse},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"message/send"}`, ErrCodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"tasks/resubscribe"}`, ErrCodeMethodNotFound},
		{"no parts", `{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"kind":"message","messageId":"m","role":"user","parts":[]}}}`, ErrCodeInvalidParams},
		{"bad params", `{"jsonrpc":"2.0","id":1,"method":"message/stream","params":[1]}`, ErrCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			data, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			var rpcResp JSONRPCResponse
			require.NoError(t, json.Unmarshal(data, &rpcResp))
			require.NotNil(t, rpcResp.Error)
			assert.Equal(t, tt.code, rpcResp.Error.Code)
		})
	}
}

func TestServer_StartStop(t *testing.T) {
	srv := NewServer(testCard("http://127.0.0.1/"), &scriptedHandler{failAt: -1})
	require.NoError(t, srv.Stop(context.Background()))

	require.NoError(t, srv.Start(context.Background(), "127.0.0.1:0", nil))
	require.NoError(t, srv.Stop(context.Background()))
}
