package a2a

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"

	"github.com/dusk-indust/a2abridge/internal/sse"
)

// Chunk is one unit of a streamed response: a complete JSON-RPC response
// whose result is a task, message, status update or artifact update, or a
// JSON-RPC error reply.
type Chunk struct {
	// Raw is the compacted JSON-RPC response exactly as received.
	Raw json.RawMessage

	// Result is the decoded result object. It is nil for an error chunk.
	Result *Result

	// Err is set for an error chunk.
	Err *RPCError
}

// MarshalJSON returns the chunk as received.
func (c Chunk) MarshalJSON() ([]byte, error) {
	if len(c.Raw) == 0 {
		return []byte("null"), nil
	}
	return c.Raw, nil
}

// Stream is a lazy, non-restartable sequence of chunks. Each Next call
// reads exactly one chunk from the wire; nothing is prefetched. Stream is
// not safe for concurrent use, except that Close may be called at any time.
type Stream struct {
	method    string
	requestID string
	body      io.ReadCloser
	cancel    context.CancelFunc

	dec    *sse.Decoder // nil for a plain JSON reply
	limit  int64        // size bound for a plain JSON reply
	err    error        // sticky terminal error, io.EOF once exhausted
	count  int
	closed sync.Once
}

func newSSEStream(method, requestID string, body io.ReadCloser, cancel context.CancelFunc) *Stream {
	return &Stream{
		method:    method,
		requestID: requestID,
		body:      body,
		cancel:    cancel,
		dec:       sse.NewDecoder(body),
	}
}

// newSingleStream serves a non-streamed JSON reply as a one-chunk stream.
func newSingleStream(method, requestID string, body io.ReadCloser, cancel context.CancelFunc, limit int64) *Stream {
	return &Stream{
		method:    method,
		requestID: requestID,
		body:      body,
		cancel:    cancel,
		limit:     limit,
	}
}

// Next returns the next chunk. It returns io.EOF once the agent closes the
// stream, *TransportError if the connection fails and *ProtocolError for an
// unrecognized chunk. A JSON-RPC error chunk is not a failure: it comes back
// as a Chunk with Err set and the stream stays readable. Any error is final;
// later calls return it again.
func (s *Stream) Next() (Chunk, error) {
	if s.err != nil {
		return Chunk{}, s.err
	}

	var data []byte
	if s.dec == nil {
		if s.count > 0 {
			return s.fail(io.EOF)
		}
		b, err := readReply(s.method, s.body, s.limit)
		if err != nil {
			return s.fail(err)
		}
		data = b
	} else {
		frame, err := s.dec.Next()
		if errors.Is(err, io.EOF) {
			return s.fail(io.EOF)
		}
		if err != nil {
			return s.fail(&TransportError{Method: s.method, Err: err})
		}
		data = []byte(frame.Data)
	}

	result, raw, err := decodeResponse(s.method, s.requestID, data)
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		s.count++
		return Chunk{Raw: raw, Err: rpcErr}, nil
	}
	if err != nil {
		return s.fail(err)
	}
	s.count++
	return Chunk{Raw: raw, Result: result}, nil
}

// Count returns the number of chunks delivered so far.
func (s *Stream) Count() int { return s.count }

// Close aborts the exchange and releases the connection. It is idempotent.
func (s *Stream) Close() error {
	var err error
	s.closed.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

func (s *Stream) fail(err error) (Chunk, error) {
	s.err = err
	return Chunk{}, err
}
