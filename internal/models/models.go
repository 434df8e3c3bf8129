// Package models defines core data structures shared across Centaur components.
package models

import (
	"encoding/json"
	"time"
)

// ConversationStatus represents the position of a chat in the assistant workflow.
type ConversationStatus string

// Conversation status constants. The set is closed; transitions happen only
// through the assistant engine and are validated against the transition table.
const (
	// StatusIdle means no request is in flight for the chat.
	StatusIdle ConversationStatus = "idle"
	// StatusProcessing means the assistant is awaiting clarification from the user.
	StatusProcessing ConversationStatus = "processing"
	// StatusFeedback means the assistant is awaiting a like/dislike reaction.
	StatusFeedback ConversationStatus = "feedback"
)

// validTransitions is the closed transition table for conversation statuses.
// Entering Idle is allowed from every status because it doubles as a reset
// (a fresh thread is allocated on every transition into Idle).
var validTransitions = map[ConversationStatus][]ConversationStatus{
	StatusIdle:       {StatusIdle, StatusProcessing},
	StatusProcessing: {StatusIdle, StatusProcessing, StatusFeedback},
	StatusFeedback:   {StatusIdle, StatusProcessing},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to ConversationStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Conversation tracks per-chat assistant state. Exactly one conversation
// exists per chat id; the thread id is the provider-held message history
// handle. A chat owns at most one live thread at a time.
type Conversation struct {
	ChatID    int64              `json:"chat_id"`
	Status    ConversationStatus `json:"status"`
	ThreadID  string             `json:"thread_id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Contact is one read-only record from the contact data source.
// All fields are plain text; missing cells are normalized to empty strings.
type Contact struct {
	Name             string `json:"name"`
	Department       string `json:"department"`
	Position         string `json:"position"`
	Responsibilities string `json:"responsibilities"` // comma-joined, multi-value
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Location         string `json:"location"`
	Description      string `json:"description"`
	Programs         string `json:"programs"` // comma-joined, multi-value, may be absent
}

// RunStatus represents the state of an assistant provider run.
type RunStatus string

// Run status constants mirroring the provider's run lifecycle.
const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
	RunStatusIncomplete     RunStatus = "incomplete"
)

// Terminal reports whether the run status ends polling.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusRequiresAction, RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete:
		return true
	}
	return false
}

// ToolCall is a provider-issued request to execute a named function with
// JSON-encoded arguments and feed the result back into the run.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolOutput carries the result of one resolved tool call back to the provider.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// Run describes one provider execution cycle over a thread.
type Run struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	Status    RunStatus  `json:"status"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"` // populated when Status is requires_action
}
