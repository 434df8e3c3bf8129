// Package assistant implements the conversation state machine and its client
// for the hosted assistant provider.
//
// The provider is consumed through the narrow ProviderClient interface so the
// engine can be exercised against mocks; the production implementation wraps
// the OpenAI Assistants API (threads, runs, tool outputs).
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jkonratt/centaur/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// DefaultModel is the assistant model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// defaultPollInterval is the delay between run status polls.
const defaultPollInterval = time.Second

// ProviderClient is the contract the engine consumes. Every operation is a
// blocking network round-trip and must honor context cancellation.
type ProviderClient interface {
	// CreateThread allocates a fresh provider-held message history and
	// returns its opaque handle.
	CreateThread(ctx context.Context) (string, error)

	// PostMessage appends a user turn to the thread.
	PostMessage(ctx context.Context, threadID, text string) error

	// CreateRun starts a run over the thread. A non-empty instructions value
	// overrides the assistant instructions for this run only.
	CreateRun(ctx context.Context, threadID, instructions string) (*models.Run, error)

	// PollRun polls the run until it reaches a terminal state or the context
	// expires.
	PollRun(ctx context.Context, threadID, runID string) (*models.Run, error)

	// SubmitToolOutputs feeds resolved tool call results back into the run.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (*models.Run, error)

	// LatestAssistantMessage returns the text of the newest assistant message
	// on the thread.
	LatestAssistantMessage(ctx context.Context, threadID string) (string, error)
}

// Opts holds configuration options for the OpenAI provider.
type Opts struct {
	APIKey           string
	Model            string
	InstructionsFile string
	PollInterval     time.Duration
}

// Option defines a configuration option for the OpenAI provider.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel sets the assistant model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithInstructionsFile sets the path of the assistant instruction file.
func WithInstructionsFile(path string) Option {
	return func(o *Opts) {
		o.InstructionsFile = path
	}
}

// WithPollInterval sets the delay between run status polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *Opts) {
		o.PollInterval = d
	}
}

// OpenAIProvider implements ProviderClient over the OpenAI Assistants API.
type OpenAIProvider struct {
	client       openai.Client
	assistantID  string
	pollInterval time.Duration
}

// NewOpenAIProvider creates the provider and registers the hosted assistant
// once, with the given tool schema attached.
func NewOpenAIProvider(ctx context.Context, toolDef shared.FunctionDefinitionParam, opts ...Option) (*OpenAIProvider, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewOpenAIProvider invoked", "model", cfg.Model, "instructionsFile", cfg.InstructionsFile, "apiKey_set", cfg.APIKey != "")

	if cfg.APIKey == "" {
		slog.Error("OpenAIProvider API key not set")
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	instructions := ""
	if cfg.InstructionsFile != "" {
		content, err := os.ReadFile(cfg.InstructionsFile)
		if err != nil {
			slog.Error("OpenAIProvider failed to read instructions file", "error", err, "file", cfg.InstructionsFile)
			return nil, fmt.Errorf("failed to read instructions file: %w", err)
		}
		instructions = string(content)
	}

	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))

	assistantParams := openai.BetaAssistantNewParams{
		Model: shared.ChatModel(cfg.Model),
		Tools: []openai.AssistantToolUnionParam{
			{OfFunction: &openai.FunctionToolParam{Function: toolDef}},
		},
	}
	if instructions != "" {
		assistantParams.Instructions = param.NewOpt(instructions)
	}

	created, err := client.Beta.Assistants.New(ctx, assistantParams)
	if err != nil {
		slog.Error("OpenAIProvider failed to create assistant", "error", err, "model", cfg.Model)
		return nil, fmt.Errorf("failed to create assistant: %w", err)
	}
	slog.Info("OpenAIProvider assistant created", "assistantID", created.ID, "model", cfg.Model)

	return &OpenAIProvider{
		client:       client,
		assistantID:  created.ID,
		pollInterval: cfg.PollInterval,
	}, nil
}

// CreateThread allocates a fresh thread.
func (p *OpenAIProvider) CreateThread(ctx context.Context) (string, error) {
	thread, err := p.client.Beta.Threads.New(ctx, openai.BetaThreadNewParams{})
	if err != nil {
		slog.Error("OpenAIProvider CreateThread failed", "error", err)
		return "", fmt.Errorf("failed to create thread: %w", err)
	}
	slog.Debug("OpenAIProvider CreateThread succeeded", "threadID", thread.ID)
	return thread.ID, nil
}

// PostMessage appends a user turn to the thread.
func (p *OpenAIProvider) PostMessage(ctx context.Context, threadID, text string) error {
	_, err := p.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRoleUser,
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: param.NewOpt(text),
		},
	})
	if err != nil {
		slog.Error("OpenAIProvider PostMessage failed", "error", err, "threadID", threadID)
		return fmt.Errorf("failed to post message: %w", err)
	}
	return nil
}

// CreateRun starts a run over the thread.
func (p *OpenAIProvider) CreateRun(ctx context.Context, threadID, instructions string) (*models.Run, error) {
	params := openai.BetaThreadRunNewParams{AssistantID: p.assistantID}
	if instructions != "" {
		params.Instructions = param.NewOpt(instructions)
	}
	run, err := p.client.Beta.Threads.Runs.New(ctx, threadID, params)
	if err != nil {
		slog.Error("OpenAIProvider CreateRun failed", "error", err, "threadID", threadID)
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	slog.Debug("OpenAIProvider CreateRun succeeded", "threadID", threadID, "runID", run.ID)
	return convertRun(run), nil
}

// PollRun polls the run until a terminal state is reached or the context
// expires. Providers may hang, so callers must bound the context.
func (p *OpenAIProvider) PollRun(ctx context.Context, threadID, runID string) (*models.Run, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		run, err := p.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
		if err != nil {
			slog.Error("OpenAIProvider PollRun get failed", "error", err, "threadID", threadID, "runID", runID)
			return nil, fmt.Errorf("failed to poll run: %w", err)
		}
		converted := convertRun(run)
		if converted.Status.Terminal() {
			slog.Debug("OpenAIProvider PollRun reached terminal state", "threadID", threadID, "runID", runID, "status", converted.Status)
			return converted, nil
		}

		select {
		case <-ctx.Done():
			slog.Warn("OpenAIProvider PollRun context expired", "threadID", threadID, "runID", runID, "lastStatus", converted.Status)
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// SubmitToolOutputs feeds resolved tool results back into the run.
func (p *OpenAIProvider) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []models.ToolOutput) (*models.Run, error) {
	params := openai.BetaThreadRunSubmitToolOutputsParams{}
	for _, out := range outputs {
		params.ToolOutputs = append(params.ToolOutputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: param.NewOpt(out.ToolCallID),
			Output:     param.NewOpt(out.Output),
		})
	}
	run, err := p.client.Beta.Threads.Runs.SubmitToolOutputs(ctx, threadID, runID, params)
	if err != nil {
		slog.Error("OpenAIProvider SubmitToolOutputs failed", "error", err, "threadID", threadID, "runID", runID)
		return nil, fmt.Errorf("failed to submit tool outputs: %w", err)
	}
	slog.Debug("OpenAIProvider SubmitToolOutputs succeeded", "threadID", threadID, "runID", runID, "outputs", len(outputs))
	return convertRun(run), nil
}

// LatestAssistantMessage returns the text of the newest assistant message.
func (p *OpenAIProvider) LatestAssistantMessage(ctx context.Context, threadID string) (string, error) {
	page, err := p.client.Beta.Threads.Messages.List(ctx, threadID, openai.BetaThreadMessageListParams{
		Limit: param.NewOpt(int64(1)),
		Order: openai.BetaThreadMessageListParamsOrderDesc,
	})
	if err != nil {
		slog.Error("OpenAIProvider LatestAssistantMessage list failed", "error", err, "threadID", threadID)
		return "", fmt.Errorf("failed to list messages: %w", err)
	}
	if len(page.Data) == 0 {
		slog.Error("OpenAIProvider LatestAssistantMessage found no messages", "threadID", threadID)
		return "", fmt.Errorf("no messages on thread %s", threadID)
	}

	var text string
	for _, block := range page.Data[0].Content {
		if block.Type == "text" {
			text += block.Text.Value
		}
	}
	if text == "" {
		slog.Error("OpenAIProvider LatestAssistantMessage message has no text content", "threadID", threadID)
		return "", fmt.Errorf("latest message on thread %s has no text content", threadID)
	}
	return text, nil
}

// convertRun maps an SDK run to the internal wire type.
func convertRun(run *openai.Run) *models.Run {
	converted := &models.Run{
		ID:       run.ID,
		ThreadID: run.ThreadID,
		Status:   models.RunStatus(run.Status),
	}
	if converted.Status == models.RunStatusRequiresAction {
		for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
			converted.ToolCalls = append(converted.ToolCalls, models.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
	}
	return converted
}
