// Package relay turns one chat query into an A2A exchange and re-publishes
// the agent's streamed chunks as outbound events.
//
// A run resolves the agent card, probes the agent with a one-shot send,
// opens the streamed exchange and forwards every chunk as a message event.
// Any failure along the way becomes exactly one terminal error event. The
// relay pulls the next chunk only after the sink has accepted the previous
// event, so a slow caller slows the upstream read instead of buffering.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/dusk-indust/a2abridge/internal/a2a"
	"github.com/dusk-indust/a2abridge/internal/ident"
)

// Kind tags an outbound event.
type Kind string

const (
	KindMessage Kind = "message"
	KindError   Kind = "error"
)

// Event is one outbound unit. Message data is the chunk JSON as received;
// error data is {"error": "<text>"}.
type Event struct {
	Kind Kind
	Data json.RawMessage
}

// ErrorText returns the text of an error event, or "" for other events.
func (e Event) ErrorText() string {
	if e.Kind != KindError {
		return ""
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Data, &body); err != nil {
		return ""
	}
	return body.Error
}

func errorEvent(err error) Event {
	data, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{err.Error()})
	return Event{Kind: KindError, Data: data}
}

// Sink receives events in order. Send blocks until the event is delivered;
// an error means the caller is gone and the run stops.
type Sink interface {
	Send(Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event) error

// Send calls f(ev).
func (f SinkFunc) Send(ev Event) error { return f(ev) }

// Query is one chat turn.
type Query struct {
	Text string

	// ThreadID correlates the turn. Empty means a fresh identifier is
	// generated for the run.
	ThreadID string
}

// EnsureThreadID returns q with a ThreadID, generating one if it is empty.
func EnsureThreadID(q Query) Query {
	if q.ThreadID == "" {
		q.ThreadID = ident.NewString()
	}
	return q
}

// Resolver fetches the agent card from a base URL.
type Resolver interface {
	ResolveCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error)
}

// Dispatcher sends an envelope to one agent over both channels.
type Dispatcher interface {
	SendOnce(ctx context.Context, env a2a.Envelope, requestID string) (*a2a.Result, error)
	SendStreaming(ctx context.Context, env a2a.Envelope, requestID string) (ChunkStream, error)
}

// ChunkStream is a pull-based sequence of chunks. Next returns io.EOF once
// exhausted. Close releases the underlying exchange and is idempotent.
type ChunkStream interface {
	Next() (a2a.Chunk, error)
	Close() error
}

// DispatcherFactory binds a Dispatcher to a resolved card.
type DispatcherFactory func(card *a2a.AgentCard) (Dispatcher, error)

// A2ADispatchers returns a factory of HTTP dispatchers sharing client.
func A2ADispatchers(client *a2a.HTTPClient) DispatcherFactory {
	return func(card *a2a.AgentCard) (Dispatcher, error) {
		d, err := a2a.NewDispatcher(client, card)
		if err != nil {
			return nil, err
		}
		return httpDispatcher{d}, nil
	}
}

type httpDispatcher struct {
	*a2a.Dispatcher
}

func (d httpDispatcher) SendStreaming(ctx context.Context, env a2a.Envelope, requestID string) (ChunkStream, error) {
	s, err := d.Dispatcher.SendStreaming(ctx, env, requestID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Config holds the collaborators of a Relay.
type Config struct {
	// BaseURL is the agent address the card is resolved from.
	BaseURL string

	Resolver    Resolver
	Dispatchers DispatcherFactory

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Registerer receives the relay metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// Relay runs chat queries against one agent. It holds no per-run state and
// is safe for concurrent use.
type Relay struct {
	baseURL     string
	resolver    Resolver
	dispatchers DispatcherFactory
	log         *zap.Logger
	metrics     *metrics
}

// New creates a Relay.
func New(cfg Config) (*Relay, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("relay: base url is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("relay: resolver is required")
	}
	if cfg.Dispatchers == nil {
		return nil, errors.New("relay: dispatcher factory is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	return &Relay{
		baseURL:     cfg.BaseURL,
		resolver:    cfg.Resolver,
		dispatchers: cfg.Dispatchers,
		log:         logger.With(zap.String("component", "relay")),
		metrics:     m,
	}, nil
}

// BaseURL returns the agent address the relay talks to.
func (r *Relay) BaseURL() string { return r.baseURL }

// Run relays q to the agent and sends the resulting events to sink.
//
// Failures of the exchange are reported to sink as a single error event and
// Run returns nil. Run returns an error only when sink.Send fails or ctx
// ends, in which case no further events are sent.
func (r *Relay) Run(ctx context.Context, q Query, sink Sink) error {
	q = EnsureThreadID(q)
	start := time.Now()
	log := r.log.With(zap.String("thread_id", q.ThreadID))

	st := StageStart
	sinkErr, cause := r.guard(ctx, q, sink, &st, log)

	switch {
	case sinkErr != nil:
		r.metrics.finish(outcomeCanceled, start)
		log.Info("caller stopped receiving", zap.Stringer("stage", st), zap.Error(sinkErr))
		return sinkErr

	case cause != nil && ctx.Err() != nil:
		r.metrics.finish(outcomeCanceled, start)
		log.Info("relay canceled", zap.Stringer("stage", st), zap.Error(cause))
		return ctx.Err()

	case cause != nil:
		r.metrics.fail(st)
		r.metrics.finish(outcomeFailed, start)
		log.Error("relay failed", zap.Stringer("stage", st), zap.Error(cause))
		st.move(StageFailed, log)
		return r.emit(sink, errorEvent(cause))
	}

	r.metrics.finish(outcomeDone, start)
	return nil
}

// sinkPanic carries a panic raised by the caller's sink through guard.
type sinkPanic struct{ value any }

// guard runs the exchange, converting a panic into a failure of the stage
// it happened in. Panics raised by the sink belong to the caller and are
// re-raised unchanged.
func (r *Relay) guard(ctx context.Context, q Query, sink Sink, st *Stage, log *zap.Logger) (sinkErr, cause error) {
	defer func() {
		if p := recover(); p != nil {
			if sp, ok := p.(sinkPanic); ok {
				panic(sp.value)
			}
			sinkErr = nil
			cause = fmt.Errorf("relay: internal error: %v", p)
		}
	}()
	return r.exchange(ctx, q, sink, st, log)
}

// exchange performs the resolve, probe and stream steps. A sink failure is
// returned as sinkErr; anything else that stops the run is cause.
func (r *Relay) exchange(ctx context.Context, q Query, sink Sink, st *Stage, log *zap.Logger) (sinkErr, cause error) {
	st.move(StageResolving, log)
	card, err := r.resolver.ResolveCard(ctx, r.baseURL)
	if err != nil {
		return nil, err
	}
	log.Info("agent card resolved", zap.String("agent", card.Name), zap.String("agent_version", card.Version))

	st.move(StageBinding, log)
	d, err := r.dispatchers(card)
	if err != nil {
		return nil, err
	}
	env := a2a.NewEnvelope(q.ThreadID, q.Text)

	st.move(StageDispatchingOnce, log)
	res, err := d.SendOnce(ctx, env, ident.NewString())
	var rpcErr *a2a.RPCError
	switch {
	case errors.As(err, &rpcErr):
		// The agent answered; a refusal of message/send does not stop the stream.
		log.Debug("one-shot reply was an error", zap.Int("code", rpcErr.Code), zap.String("message", rpcErr.Message))
	case err != nil:
		return nil, err
	default:
		log.Debug("one-shot reply", zap.String("kind", res.Kind), zap.Bool("final", res.Final()))
	}

	st.move(StageStreaming, log)
	stream, err := d.SendStreaming(ctx, env, ident.NewString())
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := 0
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			st.move(StageDone, log)
			log.Info("stream complete", zap.Int("chunks", chunks))
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if chunk.Err != nil {
			log.Debug("error chunk relayed", zap.Int("code", chunk.Err.Code), zap.String("message", chunk.Err.Message))
		}
		if err := r.deliver(sink, Event{Kind: KindMessage, Data: chunk.Raw}); err != nil {
			return err, nil
		}
		chunks++
	}
}

// deliver is emit for use inside guard: a sink panic is tagged so guard
// passes it through.
func (r *Relay) deliver(sink Sink, ev Event) error {
	defer func() {
		if p := recover(); p != nil {
			panic(sinkPanic{p})
		}
	}()
	return r.emit(sink, ev)
}

func (r *Relay) emit(sink Sink, ev Event) error {
	if err := sink.Send(ev); err != nil {
		return err
	}
	r.metrics.events.WithLabelValues(string(ev.Kind)).Inc()
	return nil
}
