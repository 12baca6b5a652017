package app

import (
	"context"
	"fmt"
	"time"

	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/secondary"
)

// cannedRunner produces deterministic stage output without calling a model.
// It replaces the resolved runner when a run starts in HAL mock mode.
type cannedRunner struct {
	agent spec.Agent
}

func (r *cannedRunner) Name() string {
	return string(r.agent)
}

func (r *cannedRunner) Run(ctx context.Context, req secondary.AgentRequest) (*secondary.AgentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := fmt.Sprintf("# %s\n\nCanned %s output for %s.\n", req.Stage, req.Agent, req.SpecID)
	return &secondary.AgentResult{
		Content:      content,
		ModelVersion: "canned",
		TokensIn:     len(req.Prompt) / 4,
		TokensOut:    len(content) / 4,
		Duration:     time.Millisecond,
	}, nil
}
