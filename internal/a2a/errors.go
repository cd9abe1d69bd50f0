package a2a

import (
	"encoding/json"
	"fmt"
)

// ResolutionError reports that the agent card could not be fetched or was
// unusable.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("a2a: resolve agent card %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// CapabilityError reports an agent card that cannot back a dispatcher.
type CapabilityError struct {
	Reason string
}

func (e *CapabilityError) Error() string {
	return "a2a: invalid agent card: " + e.Reason
}

// TransportError reports a network-level failure or a non-success HTTP
// status during an exchange.
type TransportError struct {
	Method     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("a2a: %s: HTTP %d: %v", e.Method, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("a2a: %s: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError reports a reply that arrived intact but is not a
// recognized A2A message.
type ProtocolError struct {
	Method string
	Err    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("a2a: %s: protocol error: %v", e.Method, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// RPCError represents a JSON-RPC error returned by a remote agent.
type RPCError struct {
	Method  string
	Code    int
	Message string
	Data    json.RawMessage
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("a2a: %s: rpc error %d: %s (data: %s)", e.Method, e.Code, e.Message, string(e.Data))
	}
	return fmt.Sprintf("a2a: %s: rpc error %d: %s", e.Method, e.Code, e.Message)
}

func rpcError(method string, e *JSONRPCError) *RPCError {
	return &RPCError{
		Method:  method,
		Code:    e.Code,
		Message: e.Message,
		Data:    e.Data,
	}
}
