package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/dusk-indust/a2abridge/internal/sse"
)

// Routes returns the agent's HTTP handler: the card at the well-known path
// and JSON-RPC on POST /.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+DefaultCardPath, s.handleAgentCard)
	mux.HandleFunc("POST /{$}", s.handleJSONRPC)
	return mux
}

// Start listens on addr and serves in a background goroutine. It returns
// once the listener is bound.
func (s *Server) Start(ctx context.Context, addr string, h http.Handler) error {
	if h == nil {
		h = s.Routes()
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("a2a: listen %s: %w", addr, err)
	}
	s.http = &http.Server{
		Handler:     h,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	go s.http.Serve(ln)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// handleAgentCard serves the agent card as JSON at the well-known endpoint.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(s.card); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleJSONRPC processes incoming JSON-RPC 2.0 requests and dispatches them
// to the appropriate handler method.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONRPCError(w, nil, ErrCodeParse, "Parse error: "+err.Error())
		return
	}
	if req.JSONRPC != JSONRPCVersion {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidRequest, "Invalid request: jsonrpc must be \"2.0\"")
		return
	}

	ctx := r.Context()

	switch req.Method {
	case MethodSendMessage:
		s.dispatchSendMessage(ctx, w, &req)
	case MethodStreamMessage:
		s.dispatchStreamMessage(ctx, w, &req)
	default:
		writeJSONRPCError(w, req.ID, ErrCodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}

// dispatchSendMessage unmarshals params and calls HandleSendMessage.
func (s *Server) dispatchSendMessage(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	params, ok := decodeSendParams(w, req)
	if !ok {
		return
	}

	result, err := s.handler.HandleSendMessage(ctx, params)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInternal, err.Error())
		return
	}

	writeJSONRPCResult(w, req.ID, result)
}

// dispatchStreamMessage answers message/stream with one SSE frame per
// result. Handler failures after the stream opened become an error frame.
func (s *Server) dispatchStreamMessage(ctx context.Context, w http.ResponseWriter, req *JSONRPCRequest) {
	params, ok := decodeSendParams(w, req)
	if !ok {
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeUnsupportedOperation, err.Error())
		return
	}
	sw.Init()

	emit := func(result *Result) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := marshalResponse(req.ID, result)
		if err != nil {
			return err
		}
		return sw.WriteEvent("", data)
	}

	if err := s.handler.HandleStreamMessage(ctx, params, emit); err != nil && !errors.Is(err, context.Canceled) {
		data, _ := json.Marshal(JSONRPCResponse{
			JSONRPC: JSONRPCVersion,
			ID:      req.ID,
			Error:   &JSONRPCError{Code: ErrCodeInternal, Message: err.Error()},
		})
		sw.WriteEvent("", data)
	}
}

func decodeSendParams(w http.ResponseWriter, req *JSONRPCRequest) (MessageSendParams, bool) {
	var params MessageSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: "+err.Error())
		return params, false
	}
	if len(params.Message.Parts) == 0 {
		writeJSONRPCError(w, req.ID, ErrCodeInvalidParams, "Invalid params: message has no parts")
		return params, false
	}
	return params, true
}

func marshalResponse(id any, result *Result) ([]byte, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  data,
	})
}

// writeJSONRPCResult writes a successful JSON-RPC response.
func writeJSONRPCResult(w http.ResponseWriter, id any, result *Result) {
	data, err := marshalResponse(id, result)
	if err != nil {
		writeJSONRPCError(w, id, ErrCodeInternal, "Failed to marshal result: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// writeJSONRPCError writes a JSON-RPC error response.
func writeJSONRPCError(w http.ResponseWriter, id any, code int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
