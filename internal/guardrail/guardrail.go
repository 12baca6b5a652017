// Package guardrail runs the fast preflight checks before every stage and
// emits their telemetry to the evidence directory.
package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/secondary"
)

// AllowDirtyEnv skips the clean-tree check when set to "1".
const AllowDirtyEnv = "SPEC_OPS_ALLOW_DIRTY"

// CheckStatus is the outcome of one check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusWarn CheckStatus = "warn"
	StatusFail CheckStatus = "fail"
)

// Check is one telemetry check entry.
type Check struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// Telemetry is the JSON contract written per guardrail invocation.
type Telemetry struct {
	SchemaVersion string   `json:"schemaVersion"`
	Command       string   `json:"command"`
	SpecID        string   `json:"specId"`
	SessionID     string   `json:"sessionId"`
	Timestamp     string   `json:"timestamp"`
	Success       bool     `json:"success"`
	Stage         string   `json:"stage"`
	Checks        []Check  `json:"checks"`
	Warnings      []string `json:"warnings"`
	Errors        []string `json:"errors"`
	Artifacts     []struct {
		Path string `json:"path"`
	} `json:"artifacts"`
}

// Guardrail validates a spec before a stage runs.
type Guardrail struct {
	workspace secondary.WorkspaceAdapter
}

// New creates a guardrail over a workspace.
func New(workspace secondary.WorkspaceAdapter) *Guardrail {
	return &Guardrail{workspace: workspace}
}

// Run executes the preflight checks for a stage and writes telemetry to the
// evidence directory. The returned telemetry's Success is false when any
// check failed; warnings never block.
func (g *Guardrail) Run(ctx context.Context, command, specID, sessionID string, stage spec.Stage) (*Telemetry, error) {
	tel := &Telemetry{
		SchemaVersion: "guardrail@1.0",
		Command:       command,
		SpecID:        specID,
		SessionID:     sessionID,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Stage:         string(stage),
		Warnings:      []string{},
		Errors:        []string{},
	}

	tel.addCheck(g.checkSpecID(specID))
	tel.addCheck(g.checkSpecDir(ctx, specID))
	tel.addCheck(g.checkSpecFile(ctx, specID))
	tel.addCheck(g.checkCleanTree(ctx))
	if pre := stage.Precondition(); pre != "" {
		tel.addCheck(g.checkPrecondition(ctx, specID, stage, pre))
	}

	tel.Success = true
	for _, c := range tel.Checks {
		if c.Status == StatusFail {
			tel.Success = false
			tel.Errors = append(tel.Errors, fmt.Sprintf("%s: %s", c.Name, c.Message))
		}
		if c.Status == StatusWarn {
			tel.Warnings = append(tel.Warnings, fmt.Sprintf("%s: %s", c.Name, c.Message))
		}
	}

	if err := g.writeTelemetry(ctx, tel); err != nil {
		return tel, err
	}
	return tel, nil
}

func (t *Telemetry) addCheck(c Check) {
	t.Checks = append(t.Checks, c)
}

func (g *Guardrail) checkSpecID(specID string) Check {
	if _, err := spec.ParseID(specID); err != nil {
		return Check{Name: "spec_id_format", Status: StatusFail, Message: err.Error()}
	}
	return Check{Name: "spec_id_format", Status: StatusPass}
}

func (g *Guardrail) checkSpecDir(ctx context.Context, specID string) Check {
	if _, err := g.workspace.FindSpecDir(ctx, specID); err != nil {
		return Check{Name: "spec_dir_present", Status: StatusFail, Message: err.Error()}
	}
	return Check{Name: "spec_dir_present", Status: StatusPass}
}

func (g *Guardrail) checkSpecFile(ctx context.Context, specID string) Check {
	exists, err := g.workspace.StageDocExists(ctx, specID, "spec.md")
	if err != nil {
		return Check{Name: "spec_md_present", Status: StatusFail, Message: err.Error()}
	}
	if !exists {
		return Check{Name: "spec_md_present", Status: StatusFail, Message: "spec.md not found in spec directory"}
	}
	return Check{Name: "spec_md_present", Status: StatusPass}
}

func (g *Guardrail) checkCleanTree(ctx context.Context) Check {
	if os.Getenv(AllowDirtyEnv) == "1" {
		return Check{Name: "clean_work_tree", Status: StatusWarn, Message: "skipped via " + AllowDirtyEnv}
	}
	clean, err := g.workspace.IsWorkTreeClean(ctx)
	if err != nil {
		return Check{Name: "clean_work_tree", Status: StatusWarn, Message: err.Error()}
	}
	if !clean {
		return Check{Name: "clean_work_tree", Status: StatusFail, Message: "working tree has uncommitted changes"}
	}
	return Check{Name: "clean_work_tree", Status: StatusPass}
}

func (g *Guardrail) checkPrecondition(ctx context.Context, specID string, stage spec.Stage, doc string) Check {
	name := "precondition_" + doc
	exists, err := g.workspace.StageDocExists(ctx, specID, doc)
	if err != nil {
		return Check{Name: name, Status: StatusFail, Message: err.Error()}
	}
	if !exists {
		return Check{Name: name, Status: StatusFail, Message: fmt.Sprintf("stage %s requires %s", stage, doc)}
	}
	return Check{Name: name, Status: StatusPass}
}

func (g *Guardrail) writeTelemetry(ctx context.Context, tel *Telemetry) error {
	data, err := json.MarshalIndent(tel, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode telemetry: %w", err)
	}
	filename := fmt.Sprintf("guardrail-%s-%s_%d.json",
		tel.Stage,
		time.Now().UTC().Format("20060102T150405"),
		os.Getpid(),
	)
	if _, err := g.workspace.WriteEvidence(ctx, tel.SpecID, filename, data); err != nil {
		return fmt.Errorf("failed to write guardrail telemetry: %w", err)
	}
	return nil
}
