package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/example/speckit/internal/core/intake"
	"github.com/example/speckit/internal/core/run"
	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/wire"
)

// Request carries one registry invocation. Args holds the positional
// arguments; the remaining fields come from flags or MCP tool parameters.
type Request struct {
	Args    []string
	Agent   string // stage agent override
	Hal     string // "", "live", "mock"
	From    string // auto resume stage
	Title   string
	Answers map[string]string
	Cancel  bool
}

// Result is a completed registry invocation.
type Result struct {
	Output     string
	NeedsInput bool
}

// Command is one registry entry. The CLI and the MCP server both dispatch
// through Execute.
type Command struct {
	Name         string
	Aliases      []string
	Description  string
	RequiresArgs bool
	Execute      func(ctx context.Context, req Request) (*Result, error)
}

// Registry returns the canonical command set in display order.
func Registry() []Command {
	cmds := []Command{
		{
			Name:         "speckit.new",
			Aliases:      []string{"new"},
			Description:  "Run intake and allocate a SPEC-ID",
			RequiresArgs: true,
			Execute:      executeNew,
		},
	}
	for _, stage := range spec.PipelineStages() {
		st := stage
		cmds = append(cmds, Command{
			Name:         st.CommandName(),
			Aliases:      []string{string(st)},
			Description:  fmt.Sprintf("Run the %s stage for a SPEC", st.DisplayName()),
			RequiresArgs: true,
			Execute: func(ctx context.Context, req Request) (*Result, error) {
				return executeStage(ctx, st, req)
			},
		})
	}
	cmds = append(cmds,
		Command{
			Name:         "speckit.auto",
			Aliases:      []string{"auto"},
			Description:  "Run all remaining stages in order",
			RequiresArgs: true,
			Execute:      executeAuto,
		},
		Command{
			Name:         "speckit.verify",
			Aliases:      []string{"verify"},
			Description:  "Cross-check capsule, audit rows and projections",
			RequiresArgs: true,
			Execute:      executeVerify,
		},
		Command{
			Name:         "speckit.status",
			Aliases:      []string{"status"},
			Description:  "Show per-stage progress for a SPEC",
			RequiresArgs: true,
			Execute:      executeStatus,
		},
		Command{
			Name:         "speckit.projectnew",
			Aliases:      []string{"projectnew"},
			Description:  "Run project intake and write the vision projection",
			RequiresArgs: true,
			Execute:      executeProjectNew,
		},
	)
	for _, gate := range []string{"clarify", "analyze", "checklist"} {
		g := gate
		cmds = append(cmds, Command{
			Name:         "speckit." + g,
			Aliases:      []string{g},
			Description:  fmt.Sprintf("Run the %s quality gate for a SPEC", g),
			RequiresArgs: true,
			Execute: func(ctx context.Context, req Request) (*Result, error) {
				return executeGate(ctx, g, req)
			},
		})
	}
	return cmds
}

// Lookup resolves a command by canonical name or alias.
func Lookup(name string) (*Command, bool) {
	for _, cmd := range Registry() {
		if cmd.Name == name {
			c := cmd
			return &c, true
		}
		for _, alias := range cmd.Aliases {
			if alias == name {
				c := cmd
				return &c, true
			}
		}
	}
	return nil, false
}

func parseHal(value string) (run.HalMode, error) {
	switch run.HalMode(value) {
	case run.HalNone, run.HalLive, run.HalMock:
		return run.HalMode(value), nil
	}
	return run.HalNone, fmt.Errorf("invalid hal mode %q: use live or mock", value)
}

func executeStage(ctx context.Context, stage spec.Stage, req Request) (*Result, error) {
	if len(req.Args) < 1 {
		return nil, fmt.Errorf("%s requires a SPEC-ID", stage.CommandName())
	}
	hal, err := parseHal(req.Hal)
	if err != nil {
		return nil, err
	}
	result, err := wire.PipelineService().RunStage(ctx, primary.RunStageRequest{
		SpecID:        req.Args[0],
		Stage:         stage,
		AgentOverride: req.Agent,
		HalMode:       hal,
	})
	if err != nil {
		return nil, err
	}
	return renderStageResult(result), nil
}

func executeAuto(ctx context.Context, req Request) (*Result, error) {
	if len(req.Args) < 1 {
		return nil, fmt.Errorf("speckit.auto requires a SPEC-ID")
	}
	hal, err := parseHal(req.Hal)
	if err != nil {
		return nil, err
	}
	var from spec.Stage
	if req.From != "" {
		parsed, ok := spec.ParseStage(req.From)
		if !ok || parsed.IsQuality() {
			return nil, fmt.Errorf("invalid stage %q", req.From)
		}
		from = parsed
	}
	result, err := wire.PipelineService().RunAuto(ctx, primary.RunAutoRequest{
		SpecID:    req.Args[0],
		HalMode:   hal,
		FromStage: from,
	})
	if err != nil {
		return nil, err
	}
	return renderAutoResult(result), nil
}

func executeVerify(ctx context.Context, req Request) (*Result, error) {
	if len(req.Args) < 1 {
		return nil, fmt.Errorf("speckit.verify requires a SPEC-ID")
	}
	report, err := wire.VerifyService().Verify(ctx, req.Args[0])
	if err != nil {
		return nil, err
	}
	return renderVerifyReport(report), nil
}

func executeStatus(ctx context.Context, req Request) (*Result, error) {
	if len(req.Args) < 1 {
		return nil, fmt.Errorf("speckit.status requires a SPEC-ID")
	}
	report, err := wire.VerifyService().Status(ctx, req.Args[0])
	if err != nil {
		return nil, err
	}
	return renderStatusReport(report), nil
}

func executeGate(ctx context.Context, gate string, req Request) (*Result, error) {
	if len(req.Args) < 1 {
		return nil, fmt.Errorf("speckit.%s requires a SPEC-ID", gate)
	}
	specID := req.Args[0]
	var result *primary.GateResult
	var err error
	if len(req.Answers) > 0 || req.Cancel {
		result, err = wire.QualityService().SubmitAnswers(ctx, primary.SubmitAnswersRequest{
			SpecID:  specID,
			Gate:    gate,
			Answers: req.Answers,
			Cancel:  req.Cancel,
		})
	} else {
		result, err = wire.QualityService().RunGate(ctx, primary.RunGateRequest{
			SpecID: specID,
			Gate:   gate,
		})
	}
	if err != nil {
		return nil, err
	}
	return renderGateResult(result), nil
}

func executeNew(ctx context.Context, req Request) (*Result, error) {
	if req.Title == "" && len(req.Args) > 0 {
		req.Title = strings.Join(req.Args, " ")
	}
	answers, err := answersFromMap(req.Answers)
	if err != nil {
		return nil, err
	}
	resp, err := wire.IntakeService().NewSpec(ctx, primary.NewSpecRequest{
		Kind:    "KIT",
		Title:   req.Title,
		Answers: answers,
	})
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Created %s\n", resp.SpecID)
	fmt.Fprintf(&b, "  dir:          %s\n", resp.SpecDir)
	fmt.Fprintf(&b, "  content hash: %s\n", resp.ContentHash)
	fmt.Fprintf(&b, "  answers:      %s\n", resp.AnswersURI)
	fmt.Fprintf(&b, "  brief:        %s\n", resp.BriefURI)
	return &Result{Output: b.String()}, nil
}

func executeProjectNew(ctx context.Context, req Request) (*Result, error) {
	name := req.Title
	if name == "" && len(req.Args) > 0 {
		name = strings.Join(req.Args, " ")
	}
	answers, err := answersFromMap(req.Answers)
	if err != nil {
		return nil, err
	}
	resp, err := wire.IntakeService().NewProject(ctx, primary.NewProjectRequest{
		Name:    name,
		Answers: answers,
	})
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Created project brief\n")
	fmt.Fprintf(&b, "  vision:       %s\n", resp.VisionPath)
	fmt.Fprintf(&b, "  content hash: %s\n", resp.ContentHash)
	return &Result{Output: b.String()}, nil
}

// answersFromMap converts the flat string map used by flags and MCP params
// into intake answers. List fields split on newlines.
func answersFromMap(m map[string]string) (intake.Answers, error) {
	split := func(key string) []string {
		var out []string
		for _, line := range strings.Split(m[key], "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	known := map[string]bool{
		"problem": true, "users": true, "goals": true, "non_goals": true,
		"constraints": true, "integration_points": true, "acceptance_criteria": true,
	}
	var unknown []string
	for key := range m {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return intake.Answers{}, fmt.Errorf("unknown intake fields: %s", strings.Join(unknown, ", "))
	}
	return intake.Answers{
		Problem:            strings.TrimSpace(m["problem"]),
		Users:              split("users"),
		Goals:              split("goals"),
		NonGoals:           split("non_goals"),
		Constraints:        split("constraints"),
		IntegrationPoints:  split("integration_points"),
		AcceptanceCriteria: split("acceptance_criteria"),
	}, nil
}

func renderStageResult(r *primary.StageResult) *Result {
	var b strings.Builder
	switch {
	case r.NeedsInput:
		fmt.Fprintf(&b, "%s paused: quality gate escalated\n", r.Stage.DisplayName())
		for _, line := range questionLines(r.Questions) {
			fmt.Fprintln(&b, line)
		}
		fmt.Fprintf(&b, "Answer with: speckit <gate> %s --answer ID=...\n", r.SpecID)
		return &Result{Output: b.String(), NeedsInput: true}
	case r.BlockedReason != "":
		fmt.Fprintf(&b, "%s blocked: %s\n", r.Stage.DisplayName(), r.BlockedReason)
		return &Result{Output: b.String()}
	}
	mark := "✓"
	detail := fmt.Sprintf("agent %s, %d attempt(s), %d in / %d out tokens",
		r.Agent, r.Attempts, r.TokensIn, r.TokensOut)
	if r.Degraded {
		detail += ", degraded"
	}
	fmt.Fprintf(&b, "%s %s complete (%s)\n", mark, r.Stage.DisplayName(), detail)
	if r.ProjectionPath != "" {
		fmt.Fprintf(&b, "  wrote %s\n", r.ProjectionPath)
	}
	return &Result{Output: b.String()}
}

func renderAutoResult(r *primary.AutoResult) *Result {
	var b strings.Builder
	needsInput := false
	for _, stage := range r.Stages {
		sub := renderStageResult(stage)
		b.WriteString(sub.Output)
		needsInput = needsInput || sub.NeedsInput
	}
	switch {
	case r.Done:
		fmt.Fprintf(&b, "Pipeline complete for %s (run %s)\n", r.SpecID, r.RunID)
	case r.Failed:
		fmt.Fprintf(&b, "Pipeline failed at %s: %s\n", r.FailedAt.DisplayName(), r.Reason)
	}
	return &Result{Output: b.String(), NeedsInput: needsInput}
}

func renderGateResult(r *primary.GateResult) *Result {
	var b strings.Builder
	switch r.Outcome {
	case "pass":
		fmt.Fprintf(&b, "✓ %s passed for %s\n", r.Gate, r.SpecID)
		for _, line := range questionLines(r.Questions) {
			fmt.Fprintln(&b, line)
		}
	case "escalate":
		fmt.Fprintf(&b, "%s escalated for %s:\n", r.Gate, r.SpecID)
		for _, line := range questionLines(r.Questions) {
			fmt.Fprintln(&b, line)
		}
		fmt.Fprintf(&b, "Answer with: speckit %s %s --answer ID=...\n", r.Gate, r.SpecID)
		return &Result{Output: b.String(), NeedsInput: true}
	default:
		fmt.Fprintf(&b, "%s failed for %s: %s\n", r.Gate, r.SpecID, r.Reason)
	}
	return &Result{Output: b.String()}
}

func renderVerifyReport(r *primary.VerifyReport) *Result {
	var b strings.Builder
	fmt.Fprintf(&b, "Verify %s (run %s)\n", r.SpecID, r.RunID)
	for _, check := range r.Checks {
		status := "PASS"
		if !check.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "  %-22s %s", check.Name, status)
		if check.Message != "" {
			fmt.Fprintf(&b, "  %s", check.Message)
		}
		fmt.Fprintln(&b)
	}
	if r.Passed {
		fmt.Fprintf(&b, "✓ all checks passed\n")
	} else {
		fmt.Fprintf(&b, "verification failed\n")
	}
	return &Result{Output: b.String()}
}

func renderStatusReport(r *primary.StatusReport) *Result {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tSTATE\tAGENT\tTIMESTAMP")
	for _, stage := range r.Stages {
		state := "pending"
		if stage.Complete {
			state = "complete"
			if stage.Degraded {
				state = "complete (degraded)"
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", stage.Stage, state, stage.Agent, stage.RunTimestamp)
	}
	w.Flush()
	switch {
	case r.Done:
		fmt.Fprintf(&b, "%s: done\n", r.SpecID)
	case r.Failed:
		fmt.Fprintf(&b, "%s: failed\n", r.SpecID)
	default:
		fmt.Fprintf(&b, "%s: next stage %s\n", r.SpecID, r.CurrentStage)
	}
	if r.TotalTokens > 0 {
		fmt.Fprintf(&b, "tokens: %d  est. cost: $%.2f\n", r.TotalTokens, r.TotalCostUSD)
	}
	return &Result{Output: b.String()}
}
