package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jkonratt/centaur/internal/models"
	"github.com/jkonratt/centaur/internal/store"
)

// Sentinel errors surfaced by the engine. The transport maps all of them to a
// user-visible retry message instead of propagating the fault.
var (
	// ErrUnknownTool means the provider demanded a tool this deployment does
	// not support. This is a configuration fault and is not retried.
	ErrUnknownTool = errors.New("unsupported tool requested")
	// ErrRunFailed means a run ended in a non-completed terminal state.
	ErrRunFailed = errors.New("assistant run did not complete")
	// ErrToolRoundsExceeded means the provider kept demanding tool calls past
	// the per-turn round cap.
	ErrToolRoundsExceeded = errors.New("tool resolution rounds exceeded")
)

// Defaults for turn bounding.
const (
	// DefaultTurnTimeout bounds all provider round-trips of one turn.
	DefaultTurnTimeout = 2 * time.Minute
	// DefaultMaxToolRounds caps tool resolution rounds per turn. The provider
	// loop is otherwise unbounded.
	DefaultMaxToolRounds = 8
)

// Instruction templates for instruction-scoped runs. Every reply, whether it
// originates from a user message or an injected instruction, flows through
// the same run-resolution loop.
const (
	greetInstructionTemplate    = "Greet the user named %s in the language with the code %s and briefly offer your help with finding the right contact person."
	feedbackInstruction         = "Ask the user briefly whether the suggested contact person was helpful. The question must be answerable with yes or no."
	positiveFeedbackInstruction = "Thank the user warmly for the positive feedback and offer further help."
	negativeFeedbackInstruction = "Apologize that the suggestion did not help and ask a clarifying question to narrow down the right contact person."
)

// ToolExecutor resolves one provider tool call into its output string.
type ToolExecutor interface {
	Name() string
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// EngineOpts holds configuration options for the engine.
type EngineOpts struct {
	TurnTimeout   time.Duration
	MaxToolRounds int
}

// EngineOption defines a configuration option for the engine.
type EngineOption func(*EngineOpts)

// WithTurnTimeout bounds the provider round-trips of a single turn.
func WithTurnTimeout(d time.Duration) EngineOption {
	return func(o *EngineOpts) {
		o.TurnTimeout = d
	}
}

// WithMaxToolRounds caps tool resolution rounds per turn.
func WithMaxToolRounds(n int) EngineOption {
	return func(o *EngineOpts) {
		o.MaxToolRounds = n
	}
}

// Engine is the per-chat conversation state machine. It drives a
// single-outstanding-turn protocol against the assistant provider and
// resolves tool calls through registered executors. Conversations are kept in
// the injected store; concurrent events for the same chat serialize on a
// per-chat lock while distinct chats proceed independently.
type Engine struct {
	provider      ProviderClient
	store         store.Store
	tools         map[string]ToolExecutor
	turnTimeout   time.Duration
	maxToolRounds int

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

// NewEngine creates the conversation engine with its provider, conversation
// store and tool executors.
func NewEngine(provider ProviderClient, st store.Store, tools []ToolExecutor, opts ...EngineOption) *Engine {
	cfg := EngineOpts{
		TurnTimeout:   DefaultTurnTimeout,
		MaxToolRounds: DefaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	toolMap := make(map[string]ToolExecutor, len(tools))
	for _, t := range tools {
		toolMap[t.Name()] = t
	}
	slog.Debug("NewEngine created", "tools", len(toolMap), "turnTimeout", cfg.TurnTimeout, "maxToolRounds", cfg.MaxToolRounds)

	return &Engine{
		provider:      provider,
		store:         st,
		tools:         toolMap,
		turnTimeout:   cfg.TurnTimeout,
		maxToolRounds: cfg.MaxToolRounds,
		chatLocks:     make(map[int64]*sync.Mutex),
	}
}

// lockChat acquires the per-chat lock, creating it on first contact.
func (e *Engine) lockChat(chatID int64) func() {
	e.mu.Lock()
	lock, ok := e.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		e.chatLocks[chatID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// turnContext bounds every provider round-trip of one turn.
func (e *Engine) turnContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.turnTimeout)
}

// EnsureConversation creates an Idle conversation with a fresh thread for the
// chat if none exists. Idempotent.
func (e *Engine) EnsureConversation(ctx context.Context, chatID int64) error {
	unlock := e.lockChat(chatID)
	defer unlock()

	ctx, cancel := e.turnContext(ctx)
	defer cancel()

	_, err := e.ensureConversation(ctx, chatID)
	return err
}

// ensureConversation loads or creates the conversation. Callers must hold the
// chat lock.
func (e *Engine) ensureConversation(ctx context.Context, chatID int64) (*models.Conversation, error) {
	conv, err := e.store.GetConversation(chatID)
	if err != nil {
		slog.Error("Engine.ensureConversation: store lookup failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	threadID, err := e.provider.CreateThread(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	conv = &models.Conversation{
		ChatID:    chatID,
		Status:    models.StatusIdle,
		ThreadID:  threadID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.SaveConversation(*conv); err != nil {
		slog.Error("Engine.ensureConversation: save failed", "error", err, "chatID", chatID)
		return nil, fmt.Errorf("failed to save conversation: %w", err)
	}
	slog.Info("Engine.ensureConversation: conversation created", "chatID", chatID, "threadID", threadID)
	return conv, nil
}

// transition moves the conversation to a new status, validated against the
// transition table, and persists it. Callers must hold the chat lock.
func (e *Engine) transition(conv *models.Conversation, to models.ConversationStatus) error {
	if !models.CanTransition(conv.Status, to) {
		slog.Error("Engine.transition: invalid transition", "chatID", conv.ChatID, "from", conv.Status, "to", to)
		return fmt.Errorf("invalid status transition: %s -> %s", conv.Status, to)
	}
	from := conv.Status
	conv.Status = to
	conv.UpdatedAt = time.Now()
	if err := e.store.SaveConversation(*conv); err != nil {
		conv.Status = from
		slog.Error("Engine.transition: save failed", "error", err, "chatID", conv.ChatID)
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	slog.Debug("Engine.transition: status changed", "chatID", conv.ChatID, "from", from, "to", to)
	return nil
}

// resetToIdle allocates a fresh thread and moves the conversation to Idle,
// discarding the previous thread handle. Callers must hold the chat lock.
func (e *Engine) resetToIdle(ctx context.Context, conv *models.Conversation) error {
	threadID, err := e.provider.CreateThread(ctx)
	if err != nil {
		return err
	}
	oldThread := conv.ThreadID
	conv.ThreadID = threadID
	if err := e.transition(conv, models.StatusIdle); err != nil {
		conv.ThreadID = oldThread
		return err
	}
	slog.Debug("Engine.resetToIdle: thread replaced", "chatID", conv.ChatID, "threadID", threadID)
	return nil
}

// ProcessRequest handles a user text turn for the chat and returns the
// assistant reply. A chat seen for the first time is implicitly created Idle,
// then transitioned to Processing. Starting a new request while awaiting
// feedback silently re-enters processing.
func (e *Engine) ProcessRequest(ctx context.Context, chatID int64, text string) (string, error) {
	unlock := e.lockChat(chatID)
	defer unlock()

	ctx, cancel := e.turnContext(ctx)
	defer cancel()

	turnID := uuid.NewString()
	slog.Debug("Engine.ProcessRequest: turn started", "chatID", chatID, "turnID", turnID, "textLength", len(text))

	conv, err := e.ensureConversation(ctx, chatID)
	if err != nil {
		return "", err
	}
	if conv.Status != models.StatusProcessing {
		if err := e.transition(conv, models.StatusProcessing); err != nil {
			return "", err
		}
	}

	if err := e.provider.PostMessage(ctx, conv.ThreadID, text); err != nil {
		return "", err
	}

	reply, err := e.runAndResolve(ctx, turnID, conv.ThreadID, "")
	if err != nil {
		slog.Error("Engine.ProcessRequest: turn failed", "error", err, "chatID", chatID, "turnID", turnID)
		return "", err
	}
	slog.Info("Engine.ProcessRequest: turn completed", "chatID", chatID, "turnID", turnID, "replyLength", len(reply))
	return reply, nil
}

// Greet forces the conversation to Idle with a fresh thread and issues an
// instruction-scoped greeting run addressing the user by name in the given
// language.
func (e *Engine) Greet(ctx context.Context, chatID int64, displayName, languageCode string) (string, error) {
	unlock := e.lockChat(chatID)
	defer unlock()

	ctx, cancel := e.turnContext(ctx)
	defer cancel()

	conv, err := e.ensureConversation(ctx, chatID)
	if err != nil {
		return "", err
	}
	if err := e.resetToIdle(ctx, conv); err != nil {
		return "", err
	}

	instruction := fmt.Sprintf(greetInstructionTemplate, displayName, languageCode)
	return e.runAndResolve(ctx, uuid.NewString(), conv.ThreadID, instruction)
}

// AskForFeedback issues an instruction-scoped run prompting for yes/no
// satisfaction. It does not change the conversation status; callers drive the
// Feedback transition through SetFeedback.
func (e *Engine) AskForFeedback(ctx context.Context, chatID int64) (string, error) {
	unlock := e.lockChat(chatID)
	defer unlock()

	ctx, cancel := e.turnContext(ctx)
	defer cancel()

	conv, err := e.ensureConversation(ctx, chatID)
	if err != nil {
		return "", err
	}
	return e.runAndResolve(ctx, uuid.NewString(), conv.ThreadID, feedbackInstruction)
}

// SetFeedback transitions the conversation to Feedback.
func (e *Engine) SetFeedback(ctx context.Context, chatID int64) error {
	unlock := e.lockChat(chatID)
	defer unlock()

	ctx, cancel := e.turnContext(ctx)
	defer cancel()

	conv, err := e.ensureConversation(ctx, chatID)
	if err != nil {
		return err
	}
	return e.transition(conv, models.StatusFeedback)
}

// PositiveFeedback closes the request: the conversation resets to Idle with a
// fresh thread and a closing thank-you run produces the reply.
func (e *Engine) PositiveFeedback(ctx context.Context, chatID int64) (string, error) {
	unlock := e.lockChat(chatID)
	defer unlock()

	ctx, cancel := e.turnContext(ctx)
	defer cancel()

	conv, err := e.ensureConversation(ctx, chatID)
	if err != nil {
		return "", err
	}
	if err := e.resetToIdle(ctx, conv); err != nil {
		return "", err
	}
	return e.runAndResolve(ctx, uuid.NewString(), conv.ThreadID, positiveFeedbackInstruction)
}

// NegativeFeedback re-enters Processing on the same thread and produces an
// apology-and-reclarify reply.
func (e *Engine) NegativeFeedback(ctx context.Context, chatID int64) (string, error) {
	unlock := e.lockChat(chatID)
	defer unlock()

	ctx, cancel := e.turnContext(ctx)
	defer cancel()

	conv, err := e.ensureConversation(ctx, chatID)
	if err != nil {
		return "", err
	}
	if conv.Status != models.StatusProcessing {
		if err := e.transition(conv, models.StatusProcessing); err != nil {
			return "", err
		}
	}
	return e.runAndResolve(ctx, uuid.NewString(), conv.ThreadID, negativeFeedbackInstruction)
}

// runAndResolve submits the thread for a run and drives it to completion:
// poll to a terminal state, resolve any demanded tool calls, submit the
// outputs together and continue on the resulting run. The loop is bounded by
// the per-turn round cap.
func (e *Engine) runAndResolve(ctx context.Context, turnID, threadID, instructions string) (string, error) {
	run, err := e.provider.CreateRun(ctx, threadID, instructions)
	if err != nil {
		return "", err
	}

	for round := 0; ; round++ {
		run, err = e.provider.PollRun(ctx, threadID, run.ID)
		if err != nil {
			return "", err
		}

		switch run.Status {
		case models.RunStatusCompleted:
			return e.provider.LatestAssistantMessage(ctx, threadID)

		case models.RunStatusRequiresAction:
			if round >= e.maxToolRounds {
				slog.Error("Engine.runAndResolve: tool round cap exceeded", "turnID", turnID, "threadID", threadID, "rounds", round)
				return "", fmt.Errorf("%w after %d rounds", ErrToolRoundsExceeded, round)
			}
			outputs, err := e.resolveToolCalls(ctx, turnID, run.ToolCalls)
			if err != nil {
				return "", err
			}
			run, err = e.provider.SubmitToolOutputs(ctx, threadID, run.ID, outputs)
			if err != nil {
				return "", err
			}

		default:
			slog.Error("Engine.runAndResolve: run ended abnormally", "turnID", turnID, "threadID", threadID, "runID", run.ID, "status", run.Status)
			return "", fmt.Errorf("%w: run %s ended with status %s", ErrRunFailed, run.ID, run.Status)
		}
	}
}

// resolveToolCalls executes every demanded tool call. An unsupported tool
// name aborts the turn.
func (e *Engine) resolveToolCalls(ctx context.Context, turnID string, calls []models.ToolCall) ([]models.ToolOutput, error) {
	outputs := make([]models.ToolOutput, 0, len(calls))
	for _, call := range calls {
		tool, ok := e.tools[call.Name]
		if !ok {
			slog.Error("Engine.resolveToolCalls: unsupported tool", "turnID", turnID, "tool", call.Name)
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
		}
		result, err := tool.Execute(ctx, call.Arguments)
		if err != nil {
			slog.Error("Engine.resolveToolCalls: tool execution failed", "error", err, "turnID", turnID, "tool", call.Name)
			return nil, fmt.Errorf("tool %s failed: %w", call.Name, err)
		}
		slog.Debug("Engine.resolveToolCalls: tool resolved", "turnID", turnID, "tool", call.Name, "outputLength", len(result))
		outputs = append(outputs, models.ToolOutput{ToolCallID: call.ID, Output: result})
	}
	return outputs, nil
}
