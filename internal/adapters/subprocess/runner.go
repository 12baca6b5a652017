// Package subprocess contains the agent runner that drives a local agent CLI
// over a framed stdout event stream.
package subprocess

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/example/speckit/internal/core/retry"
	"github.com/example/speckit/internal/ports/secondary"
)

// Command resolves the argv used to launch an agent binary for a model.
type Command func(agent, model string) (name string, args []string)

// Runner implements secondary.AgentRunner over a child process. The prompt is
// written to stdin, stdin is closed, and a framed JSON event stream is read
// from stdout until done or error.
type Runner struct {
	agent   string
	command Command
}

// NewRunner creates a subprocess runner for a named agent.
func NewRunner(agent string, command Command) *Runner {
	return &Runner{agent: agent, command: command}
}

// Name identifies the runner for routing decisions and telemetry.
func (r *Runner) Name() string {
	return r.agent
}

// frame is one line of the agent's stdout stream.
type frame struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Message  string `json:"message,omitempty"`
	Model    string `json:"model,omitempty"`
	Metadata *struct {
		InputTokens  *int `json:"input_tokens,omitempty"`
		OutputTokens *int `json:"output_tokens,omitempty"`
	} `json:"metadata,omitempty"`
}

// Run executes the agent and blocks until the stream terminates, the process
// exits, or the timeout expires.
func (r *Runner) Run(ctx context.Context, req secondary.AgentRequest) (*secondary.AgentResult, error) {
	name, args := r.command(req.Agent, req.Model)

	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout: %w", err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	// Write the prompt and close stdin so the agent sees EOF.
	writeErr := make(chan error, 1)
	go func() {
		_, err := io.WriteString(stdin, req.Prompt)
		if cerr := stdin.Close(); err == nil {
			err = cerr
		}
		writeErr <- err
	}()

	content, tokensIn, tokensOut, modelVersion, streamErr := readStream(runCtx, stdout)

	waitErr := cmd.Wait()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		return nil, retry.TimeoutError(req.Timeout)
	}
	if runCtx.Err() != nil {
		return nil, runCtx.Err()
	}
	if err := <-writeErr; err != nil && streamErr == nil && waitErr == nil {
		return nil, fmt.Errorf("failed to write prompt: %w", err)
	}
	if streamErr != nil {
		return nil, &ProcessError{Agent: req.Agent, Message: streamErr.Error(), Stderr: stderr.String()}
	}
	if waitErr != nil {
		return nil, &ProcessError{Agent: req.Agent, Message: waitErr.Error(), Stderr: stderr.String()}
	}
	if strings.TrimSpace(content) == "" {
		return nil, retry.EmptyOutputError(req.Agent)
	}

	if modelVersion == "" {
		modelVersion = req.Model
	}
	return &secondary.AgentResult{
		Content:      content,
		ModelVersion: modelVersion,
		TokensIn:     tokensIn,
		TokensOut:    tokensOut,
		Duration:     duration,
		Stderr:       stderr.String(),
	}, nil
}

// readStream consumes frames until done, error, or EOF. Malformed lines are
// skipped.
func readStream(ctx context.Context, stdout io.Reader) (content string, tokensIn, tokensOut int, model string, err error) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)

	var buf strings.Builder
	for scanner.Scan() {
		if ctx.Err() != nil {
			return buf.String(), tokensIn, tokensOut, model, ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var f frame
		if jsonErr := json.Unmarshal(line, &f); jsonErr != nil {
			continue
		}

		switch f.Type {
		case "start":
			if f.Model != "" {
				model = f.Model
			}
		case "delta":
			buf.WriteString(f.Text)
		case "metadata":
			if f.Metadata != nil {
				if f.Metadata.InputTokens != nil {
					tokensIn = *f.Metadata.InputTokens
				}
				if f.Metadata.OutputTokens != nil {
					tokensOut = *f.Metadata.OutputTokens
				}
			}
		case "done":
			return buf.String(), tokensIn, tokensOut, model, nil
		case "error":
			msg := f.Message
			if msg == "" {
				msg = "agent reported an error"
			}
			return buf.String(), tokensIn, tokensOut, model, fmt.Errorf("%s", msg)
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return buf.String(), tokensIn, tokensOut, model, fmt.Errorf("reading stream: %w", scanErr)
	}
	// EOF without done: treat like done and let the empty-output check decide.
	return buf.String(), tokensIn, tokensOut, model, nil
}

// ProcessError carries the message and captured stderr of a failed invocation
// for retry classification.
type ProcessError struct {
	Agent   string
	Message string
	Stderr  string
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("agent %s failed: %s: %s", e.Agent, e.Message, strings.TrimSpace(e.Stderr))
	}
	return fmt.Sprintf("agent %s failed: %s", e.Agent, e.Message)
}
