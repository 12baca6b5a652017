// Package httpagent contains cloud API implementations of the agent runner
// port for agents driven over HTTP rather than a local CLI.
package httpagent

import (
	"context"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/example/speckit/internal/core/retry"
	"github.com/example/speckit/internal/ports/secondary"
)

const defaultMaxTokens = 8192

// AnthropicRunner implements secondary.AgentRunner against the Anthropic
// Messages API.
type AnthropicRunner struct {
	agent  string
	client anthropic.Client
}

// NewAnthropicRunner creates a cloud runner for a named agent. An empty
// apiKey falls back to the SDK's environment lookup.
func NewAnthropicRunner(agent, apiKey, baseURL string) *AnthropicRunner {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicRunner{agent: agent, client: anthropic.NewClient(opts...)}
}

// Name identifies the runner for routing decisions and telemetry.
func (r *AnthropicRunner) Name() string {
	return r.agent
}

// Run sends the prompt as a single user message and returns the collected
// text blocks. API failures are returned raw for the executor to classify.
func (r *AnthropicRunner) Run(ctx context.Context, req secondary.AgentRequest) (*secondary.AgentResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := r.client.Messages.New(runCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, retry.TimeoutError(req.Timeout)
	}
	if err != nil {
		return nil, err
	}

	var buf strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			buf.WriteString(text.Text)
		}
	}
	if strings.TrimSpace(buf.String()) == "" {
		return nil, retry.EmptyOutputError(req.Agent)
	}

	return &secondary.AgentResult{
		Content:      buf.String(),
		ModelVersion: string(msg.Model),
		TokensIn:     int(msg.Usage.InputTokens),
		TokensOut:    int(msg.Usage.OutputTokens),
		Duration:     time.Since(start),
	}, nil
}
