package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dusk-indust/a2abridge/internal/a2a"
	"github.com/dusk-indust/a2abridge/internal/ident"
)

// Compile-time interface check.
var _ Agent = (*BaseAgent)(nil)

// ProcessFunc is the function concrete agents implement to handle
// incoming messages. It receives the task (in WORKING state) and the message,
// and returns artifacts to attach to the completed task.
type ProcessFunc func(ctx context.Context, task *a2a.Task, msg a2a.Message) ([]a2a.Artifact, error)

// BaseAgent provides the task lifecycle shared by simple agents: a task is
// created in WORKING state, the ProcessFunc runs, and the task completes with
// the returned artifacts or fails with the returned error. Streamed requests
// see the same lifecycle as status and artifact updates.
type BaseAgent struct {
	server  *a2a.Server
	card    a2a.AgentCard
	process ProcessFunc
	now     func() time.Time
}

// NewBaseAgent creates a BaseAgent with the given card and process function.
func NewBaseAgent(card a2a.AgentCard, process ProcessFunc) *BaseAgent {
	b := &BaseAgent{
		card:    card,
		process: process,
		now:     time.Now,
	}
	b.server = a2a.NewServer(card, b)
	return b
}

// Card returns the agent's A2A Agent Card.
func (b *BaseAgent) Card() a2a.AgentCard {
	return b.card
}

// Routes returns the agent's HTTP handler. A non-empty prefix such as
// "/a2a" mounts the card and the JSON-RPC endpoint beneath it.
func (b *BaseAgent) Routes(prefix string) http.Handler {
	h := b.server.Routes()
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return h
	}
	return http.StripPrefix(prefix, h)
}

// Start launches the agent's HTTP server on the given address.
func (b *BaseAgent) Start(ctx context.Context, addr, prefix string) error {
	return b.server.Start(ctx, addr, b.Routes(prefix))
}

// Stop gracefully shuts down the agent.
func (b *BaseAgent) Stop(ctx context.Context) error {
	return b.server.Stop(ctx)
}

// HandleTask runs the process function for task and returns it in its final
// state. On failure the failed task is returned alongside the error.
func (b *BaseAgent) HandleTask(ctx context.Context, task a2a.Task, msg a2a.Message) (*a2a.Task, error) {
	task.Kind = a2a.KindTask
	task.Status = b.status(a2a.TaskStateWorking, nil)

	artifacts, err := b.process(ctx, &task, msg)
	if err != nil {
		task.Status = b.status(a2a.TaskStateFailed, agentMessage(task, err.Error()))
		return &task, err
	}

	task.Status = b.status(a2a.TaskStateCompleted, nil)
	task.Artifacts = artifacts
	return &task, nil
}

// --- a2a.Handler implementation ---

// HandleSendMessage creates a task from the incoming message and processes it.
func (b *BaseAgent) HandleSendMessage(ctx context.Context, req a2a.MessageSendParams) (*a2a.Result, error) {
	task, err := b.HandleTask(ctx, newTask(req.Message), req.Message)
	if err != nil {
		return nil, err
	}
	return a2a.NewTaskResult(*task), nil
}

// HandleStreamMessage reports the task lifecycle as it happens: a working
// status, one artifact update per artifact, then a final status.
func (b *BaseAgent) HandleStreamMessage(ctx context.Context, req a2a.MessageSendParams, emit func(*a2a.Result) error) error {
	task := newTask(req.Message)
	update := func(state a2a.TaskState, msg *a2a.Message, final bool) error {
		return emit(a2a.NewStatusResult(a2a.TaskStatusUpdateEvent{
			TaskID:    task.ID,
			ContextID: task.ContextID,
			Status:    b.status(state, msg),
			Final:     final,
		}))
	}

	if err := update(a2a.TaskStateWorking, nil, false); err != nil {
		return err
	}

	artifacts, err := b.process(ctx, &task, req.Message)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return update(a2a.TaskStateFailed, agentMessage(task, err.Error()), true)
	}

	for i, art := range artifacts {
		if err := emit(a2a.NewArtifactResult(a2a.TaskArtifactUpdateEvent{
			TaskID:    task.ID,
			ContextID: task.ContextID,
			Artifact:  art,
			LastChunk: i == len(artifacts)-1,
		})); err != nil {
			return fmt.Errorf("emit artifact %s: %w", art.ArtifactID, err)
		}
	}

	return update(a2a.TaskStateCompleted, nil, true)
}

func (b *BaseAgent) status(state a2a.TaskState, msg *a2a.Message) a2a.TaskStatus {
	return a2a.TaskStatus{
		State:     state,
		Message:   msg,
		Timestamp: b.now().UTC().Format(time.RFC3339),
	}
}

// newTask starts a task for msg, continuing the sender's context if given.
func newTask(msg a2a.Message) a2a.Task {
	contextID := msg.ContextID
	if contextID == "" {
		contextID = ident.NewString()
	}
	return a2a.Task{
		Kind:      a2a.KindTask,
		ID:        ident.NewString(),
		ContextID: contextID,
	}
}

func agentMessage(task a2a.Task, text string) *a2a.Message {
	return &a2a.Message{
		Kind:      a2a.KindMessage,
		MessageID: ident.NewString(),
		ContextID: task.ContextID,
		TaskID:    task.ID,
		Role:      a2a.RoleAgent,
		Parts:     []a2a.Part{a2a.TextPart(text)},
	}
}
