package reflex

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/example/speckit/internal/core/retry"
	"github.com/example/speckit/internal/ports/secondary"
)

// Runner implements secondary.AgentRunner against the local OpenAI-compatible
// endpoint. The routing decision hands the Implement stage to this runner
// when the probe reports the configured model loaded.
type Runner struct {
	client openai.Client
	model  string
}

// NewRunner creates a runner for the endpoint the probe watches.
func NewRunner(endpoint, model string) *Runner {
	return &Runner{
		client: openai.NewClient(
			option.WithBaseURL(endpoint+"/v1"),
			option.WithAPIKey("reflex"),
		),
		model: model,
	}
}

// Name identifies the runner for routing decisions and telemetry.
func (r *Runner) Name() string {
	return "reflex"
}

// Run executes one completion against the local endpoint. Transport failures
// classify as retryable so the executor's retry loop applies.
func (r *Runner) Run(ctx context.Context, req secondary.AgentRequest) (*secondary.AgentResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := r.model
	if req.Model != "" {
		model = req.Model
	}

	start := time.Now()
	resp, err := r.client.Chat.Completions.New(runCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	})
	elapsed := time.Since(start)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, retry.TimeoutError(req.Timeout)
		}
		return nil, retry.NewAgentError(fmt.Sprintf("reflex completion failed: %v", err), "")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, retry.EmptyOutputError(req.Agent)
	}

	return &secondary.AgentResult{
		Content:      resp.Choices[0].Message.Content,
		ModelVersion: resp.Model,
		TokensIn:     int(resp.Usage.PromptTokens),
		TokensOut:    int(resp.Usage.CompletionTokens),
		Duration:     elapsed,
	}, nil
}
