package a2a

import (
	"encoding/json"
	"fmt"
	"strings"
)

// --- Enums ---

// TaskState represents the lifecycle state of an A2A task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateUnknown       TaskState = "unknown"
)

// IsTerminal returns true if the task state is a final state.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled, TaskStateRejected:
		return true
	}
	return false
}

// IsInterrupted returns true if the task is paused waiting on the client.
func (s TaskState) IsInterrupted() bool {
	return s == TaskStateInputRequired || s == TaskStateAuthRequired
}

// Role identifies the sender of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Kind discriminates the objects that can appear as a JSON-RPC result.
const (
	KindTask           = "task"
	KindMessage        = "message"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// Part kinds.
const (
	PartKindText = "text"
	PartKindData = "data"
	PartKindFile = "file"
)

// --- Core Types ---

// Task is the primary unit of work in A2A.
type Task struct {
	Kind      string          `json:"kind"`
	ID        string          `json:"id"`
	ContextID string          `json:"contextId"`
	Status    TaskStatus      `json:"status"`
	Artifacts []Artifact      `json:"artifacts,omitempty"`
	History   []Message       `json:"history,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// TaskStatus tracks the current state and when it changed. Timestamp is
// kept as the ISO 8601 text the agent sent.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// Message is a unit of communication between client and agent.
type Message struct {
	Kind             string          `json:"kind"`
	MessageID        string          `json:"messageId"`
	ContextID        string          `json:"contextId,omitempty"`
	TaskID           string          `json:"taskId,omitempty"`
	Role             Role            `json:"role"`
	Parts            []Part          `json:"parts"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	Extensions       []string        `json:"extensions,omitempty"`
	ReferenceTaskIDs []string        `json:"referenceTaskIds,omitempty"`
}

// Text concatenates the text parts of the message.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return partsText(m.Parts)
}

// Part carries content within a message or artifact.
type Part struct {
	Kind     string          `json:"kind"`
	Text     string          `json:"text,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	File     *FileContent    `json:"file,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// FileContent is either inline base64 bytes or a URI.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// TextPart creates a Part with text content.
func TextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// DataPart creates a Part with structured JSON data.
func DataPart(v any) (Part, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Part{}, err
	}
	return Part{Kind: PartKindData, Data: data}, nil
}

// Artifact is an output produced by an agent for a task.
type Artifact struct {
	ArtifactID  string          `json:"artifactId"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Parts       []Part          `json:"parts"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Extensions  []string        `json:"extensions,omitempty"`
}

// --- Agent Card Types ---

// AgentCard is the self-describing manifest for an A2A agent.
type AgentCard struct {
	Name                 string            `json:"name"`
	Description          string            `json:"description"`
	URL                  string            `json:"url,omitempty"`
	Version              string            `json:"version"`
	ProtocolVersion      string            `json:"protocolVersion,omitempty"`
	PreferredTransport   string            `json:"preferredTransport,omitempty"`
	AdditionalInterfaces []AgentInterface  `json:"additionalInterfaces,omitempty"`
	SupportedInterfaces  []AgentInterface  `json:"supportedInterfaces,omitempty"`
	Provider             *AgentProvider    `json:"provider,omitempty"`
	DocumentationURL     string            `json:"documentationUrl,omitempty"`
	IconURL              string            `json:"iconUrl,omitempty"`
	Capabilities         AgentCapabilities `json:"capabilities"`
	DefaultInputModes    []string          `json:"defaultInputModes"`
	DefaultOutputModes   []string          `json:"defaultOutputModes"`
	Skills               []AgentSkill      `json:"skills"`
}

// AgentInterface declares a protocol binding endpoint. Older cards name the
// binding "transport", newer ones "protocolBinding".
type AgentInterface struct {
	URL             string `json:"url"`
	Transport       string `json:"transport,omitempty"`
	ProtocolBinding string `json:"protocolBinding,omitempty"`
	ProtocolVersion string `json:"protocolVersion,omitempty"`
}

func (i AgentInterface) binding() string {
	if i.ProtocolBinding != "" {
		return i.ProtocolBinding
	}
	return i.Transport
}

// AgentProvider identifies the service provider.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentCapabilities declares which optional A2A features the agent supports.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitempty"`
	PushNotifications      bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentSkill declares a distinct capability of an agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// JSONRPCEndpoint picks the URL to send JSON-RPC calls to: the card's
// primary url, else the first interface bound to JSONRPC, else the first
// interface with any url.
func (c *AgentCard) JSONRPCEndpoint() string {
	if c.URL != "" {
		return c.URL
	}
	ifaces := append(append([]AgentInterface{}, c.AdditionalInterfaces...), c.SupportedInterfaces...)
	for _, i := range ifaces {
		if i.URL != "" && strings.EqualFold(i.binding(), "JSONRPC") {
			return i.URL
		}
	}
	for _, i := range ifaces {
		if i.URL != "" {
			return i.URL
		}
	}
	return ""
}

// --- Streaming Types ---

// TaskStatusUpdateEvent is sent when a task's status changes.
type TaskStatusUpdateEvent struct {
	Kind      string          `json:"kind"`
	TaskID    string          `json:"taskId"`
	ContextID string          `json:"contextId"`
	Status    TaskStatus      `json:"status"`
	Final     bool            `json:"final"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent is sent when an artifact is produced or updated.
type TaskArtifactUpdateEvent struct {
	Kind      string          `json:"kind"`
	TaskID    string          `json:"taskId"`
	ContextID string          `json:"contextId"`
	Artifact  Artifact        `json:"artifact"`
	Append    bool            `json:"append,omitempty"`
	LastChunk bool            `json:"lastChunk,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// --- Request Types ---

// MessageSendParams is the params object of message/send and message/stream.
type MessageSendParams struct {
	Message       Message            `json:"message"`
	Configuration *SendMessageConfig `json:"configuration,omitempty"`
	Metadata      json.RawMessage    `json:"metadata,omitempty"`
}

// SendMessageConfig controls message handling behavior.
type SendMessageConfig struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	HistoryLength       *int     `json:"historyLength,omitempty"`
	Blocking            bool     `json:"blocking,omitempty"`
}

// Envelope is the logical message the bridge sends: one user turn in a
// thread. Both dispatch channels send the same envelope.
type Envelope struct {
	ThreadID string
	Role     Role
	Parts    []Part
}

// NewEnvelope builds a user envelope with a single text part.
func NewEnvelope(threadID, text string) Envelope {
	return Envelope{
		ThreadID: threadID,
		Role:     RoleUser,
		Parts:    []Part{TextPart(text)},
	}
}

// Message renders the envelope as an A2A message. The thread identifier is
// carried as the message id.
func (e Envelope) Message() Message {
	return Message{
		Kind:      KindMessage,
		MessageID: e.ThreadID,
		Role:      e.Role,
		Parts:     e.Parts,
	}
}

// --- Results ---

// Result is the decoded result of a message/send call or one streamed
// chunk. Exactly one of the pointers is set, matching Kind.
type Result struct {
	Kind           string
	Task           *Task
	Message        *Message
	StatusUpdate   *TaskStatusUpdateEvent
	ArtifactUpdate *TaskArtifactUpdateEvent
}

// NewStatusResult wraps a status update.
func NewStatusResult(ev TaskStatusUpdateEvent) *Result {
	ev.Kind = KindStatusUpdate
	return &Result{Kind: KindStatusUpdate, StatusUpdate: &ev}
}

// NewArtifactResult wraps an artifact update.
func NewArtifactResult(ev TaskArtifactUpdateEvent) *Result {
	ev.Kind = KindArtifactUpdate
	return &Result{Kind: KindArtifactUpdate, ArtifactUpdate: &ev}
}

// NewTaskResult wraps a task.
func NewTaskResult(t Task) *Result {
	t.Kind = KindTask
	return &Result{Kind: KindTask, Task: &t}
}

// NewMessageResult wraps an agent message.
func NewMessageResult(m Message) *Result {
	m.Kind = KindMessage
	return &Result{Kind: KindMessage, Message: &m}
}

// DecodeResult decodes a JSON-RPC result object by its kind.
func DecodeResult(raw json.RawMessage) (*Result, error) {
	var head struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	r := &Result{Kind: head.Kind}
	var target any
	switch head.Kind {
	case KindTask:
		r.Task = &Task{}
		target = r.Task
	case KindMessage:
		r.Message = &Message{}
		target = r.Message
	case KindStatusUpdate:
		r.StatusUpdate = &TaskStatusUpdateEvent{}
		target = r.StatusUpdate
	case KindArtifactUpdate:
		r.ArtifactUpdate = &TaskArtifactUpdateEvent{}
		target = r.ArtifactUpdate
	case "":
		return nil, fmt.Errorf("decode result: missing kind")
	default:
		return nil, fmt.Errorf("decode result: unrecognized kind %q", head.Kind)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode %s: %w", head.Kind, err)
	}
	return r, nil
}

// MarshalJSON encodes whichever object the result holds.
func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Task != nil:
		return json.Marshal(r.Task)
	case r.Message != nil:
		return json.Marshal(r.Message)
	case r.StatusUpdate != nil:
		return json.Marshal(r.StatusUpdate)
	case r.ArtifactUpdate != nil:
		return json.Marshal(r.ArtifactUpdate)
	}
	return nil, fmt.Errorf("a2a: empty result")
}

// Final reports whether the result ends the exchange: a direct message
// reply, a final status update, or a task in a terminal or interrupted state.
func (r *Result) Final() bool {
	switch {
	case r.Message != nil:
		return true
	case r.StatusUpdate != nil:
		return r.StatusUpdate.Final || r.StatusUpdate.Status.State.IsTerminal()
	case r.Task != nil:
		return r.Task.Status.State.IsTerminal() || r.Task.Status.State.IsInterrupted()
	}
	return false
}

// Text returns the human-readable text carried by the result, if any.
func (r *Result) Text() string {
	switch {
	case r.Message != nil:
		return r.Message.Text()
	case r.StatusUpdate != nil:
		return r.StatusUpdate.Status.Message.Text()
	case r.ArtifactUpdate != nil:
		return partsText(r.ArtifactUpdate.Artifact.Parts)
	case r.Task != nil:
		var b strings.Builder
		for _, a := range r.Task.Artifacts {
			b.WriteString(partsText(a.Parts))
		}
		return b.String()
	}
	return ""
}

func partsText(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Kind == PartKindText || (p.Kind == "" && p.Text != "") {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}
