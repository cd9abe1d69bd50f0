package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Dispatcher sends messages to the agent described by one card, either as
// a single request/response exchange or as a server-streamed exchange.
type Dispatcher struct {
	client   *HTTPClient
	card     *AgentCard
	endpoint string
}

// NewDispatcher binds client to card. It fails with *CapabilityError if the
// card is missing or does not name an absolute http(s) endpoint.
func NewDispatcher(client *HTTPClient, card *AgentCard) (*Dispatcher, error) {
	if client == nil {
		return nil, &CapabilityError{Reason: "no transport"}
	}
	if card == nil {
		return nil, &CapabilityError{Reason: "no agent card"}
	}
	endpoint := card.JSONRPCEndpoint()
	if endpoint == "" {
		return nil, &CapabilityError{Reason: fmt.Sprintf("agent %q declares no endpoint", card.Name)}
	}
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &CapabilityError{Reason: fmt.Sprintf("agent %q endpoint %q is not an absolute http(s) url", card.Name, endpoint)}
	}
	return &Dispatcher{client: client, card: card, endpoint: endpoint}, nil
}

// Card returns the card the dispatcher is bound to.
func (d *Dispatcher) Card() *AgentCard { return d.card }

// Endpoint returns the JSON-RPC endpoint URL.
func (d *Dispatcher) Endpoint() string { return d.endpoint }

// SendOnce sends env via message/send and decodes the reply. A JSON-RPC
// error reply is returned as *RPCError.
func (d *Dispatcher) SendOnce(ctx context.Context, env Envelope, requestID string) (*Result, error) {
	const method = MethodSendMessage

	httpReq, err := d.newRequest(ctx, method, env, requestID, "application/json")
	if err != nil {
		return nil, err
	}

	resp, err := d.client.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportError{Method: method, StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
	}
	respBody, err := readReply(method, resp.Body, d.client.maxReply)
	if err != nil {
		return nil, err
	}

	result, _, err := decodeResponse(method, requestID, respBody)
	return result, err
}

// SendStreaming sends env via message/stream and returns the chunk stream.
// The caller must Close the stream. Cancelling ctx also tears it down.
func (d *Dispatcher) SendStreaming(ctx context.Context, env Envelope, requestID string) (*Stream, error) {
	const method = MethodStreamMessage

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := d.newRequest(ctx, method, env, requestID, "text/event-stream")
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := d.client.http.Do(httpReq)
	if err != nil {
		cancel()
		return nil, &TransportError{Method: method, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel()
		return nil, &TransportError{Method: method, StatusCode: resp.StatusCode, Err: errors.New(snippet(body))}
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch mediaType {
	case "text/event-stream":
		return newSSEStream(method, requestID, resp.Body, cancel), nil
	case "application/json":
		return newSingleStream(method, requestID, resp.Body, cancel, d.client.maxReply), nil
	}
	resp.Body.Close()
	cancel()
	return nil, &ProtocolError{Method: method, Err: fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))}
}

// newRequest builds the JSON-RPC POST carrying env.
func (d *Dispatcher) newRequest(ctx context.Context, method string, env Envelope, requestID, accept string) (*http.Request, error) {
	body, err := encodeRequest(method, requestID, MessageSendParams{Message: env.Message()})
	if err != nil {
		return nil, &ProtocolError{Method: method, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	return httpReq, nil
}

// decodeResponse parses one JSON-RPC response and its result. It returns the
// compacted raw response alongside the decoded result. For an error reply
// it returns the raw response and an *RPCError.
func decodeResponse(method, requestID string, data []byte) (*Result, json.RawMessage, error) {
	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, nil, &ProtocolError{Method: method, Err: fmt.Errorf("decode response: %w", err)}
	}
	if rpcResp.JSONRPC != JSONRPCVersion {
		return nil, nil, &ProtocolError{Method: method, Err: fmt.Errorf("unsupported jsonrpc version %q", rpcResp.JSONRPC)}
	}
	if !matchesID(rpcResp.ID, requestID) {
		return nil, nil, &ProtocolError{Method: method, Err: fmt.Errorf("response id %v does not match request %s", rpcResp.ID, requestID)}
	}

	var raw bytes.Buffer
	if err := json.Compact(&raw, data); err != nil {
		return nil, nil, &ProtocolError{Method: method, Err: err}
	}
	if rpcResp.Error != nil {
		return nil, raw.Bytes(), rpcError(method, rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, nil, &ProtocolError{Method: method, Err: errors.New("response has neither result nor error")}
	}

	result, err := DecodeResult(rpcResp.Result)
	if err != nil {
		return nil, nil, &ProtocolError{Method: method, Err: err}
	}
	return result, raw.Bytes(), nil
}

// readReply reads a whole JSON reply, refusing bodies over limit bytes.
func readReply(method string, body io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("read response: %w", err)}
	}
	if int64(len(data)) > limit {
		return nil, &ProtocolError{Method: method, Err: fmt.Errorf("response exceeds %d bytes", limit)}
	}
	return data, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	if s == "" {
		return "empty response body"
	}
	return s
}
