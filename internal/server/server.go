// Package server exposes the speckit command registry as MCP tools over
// stdio. Each canonical command becomes one tool; the handlers dispatch
// through the same registry the CLI uses.
package server

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/example/speckit/internal/cli"
	"github.com/example/speckit/internal/version"
)

const instructions = `speckit drives a six-stage multi-agent spec pipeline
(plan, tasks, implement, validate, audit, unlock). Start with speckit.new to
allocate a SPEC-ID, then speckit.auto to run the pipeline. Escalated quality
gates report their questions; answer them with the matching gate tool.`

// New creates the MCP server with every registry command registered.
func New() *server.MCPServer {
	s := server.NewMCPServer(
		"speckit",
		version.String(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, entry := range cli.Registry() {
		s.AddTool(toolDefinition(entry), toolHandler(entry))
	}
	return s
}

// ServeStdio blocks serving the stdio transport.
func ServeStdio() error {
	return server.ServeStdio(New())
}

var intakeFields = []struct {
	name, description string
}{
	{"problem", "Problem statement"},
	{"users", "Intended users, one per line"},
	{"goals", "Goals, one per line"},
	{"non_goals", "Non-goals, one per line"},
	{"constraints", "Constraints, one per line"},
	{"integration_points", "Integration points, one per line"},
	{"acceptance_criteria", "Acceptance criteria, \"<text> (verify: <method>)\", one per line"},
}

func toolDefinition(entry cli.Command) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(entry.Description)}

	switch entry.Name {
	case "speckit.new", "speckit.projectnew":
		opts = append(opts, mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Spec title or project name"),
		))
		for _, field := range intakeFields {
			opts = append(opts, mcp.WithString(field.name,
				mcp.Required(),
				mcp.Description(field.description),
			))
		}
	default:
		opts = append(opts, mcp.WithString("spec_id",
			mcp.Required(),
			mcp.Description("SPEC-ID, e.g. SPEC-KIT-001"),
		))
	}

	switch entry.Name {
	case "speckit.auto":
		opts = append(opts,
			mcp.WithString("hal",
				mcp.Description("Human-at-loop mode"),
				mcp.Enum("live", "mock"),
			),
			mcp.WithString("from",
				mcp.Description("Resume from a later stage"),
			),
		)
	case "speckit.clarify", "speckit.analyze", "speckit.checklist":
		opts = append(opts,
			mcp.WithString("answers",
				mcp.Description("Answers to escalated questions, one ID=text per line"),
			),
			mcp.WithBoolean("cancel",
				mcp.Description("Cancel the escalated gate instead of answering"),
			),
		)
	case "speckit.new", "speckit.projectnew", "speckit.verify", "speckit.status":
	default:
		// Pipeline stage tools.
		opts = append(opts,
			mcp.WithString("agent",
				mcp.Description("Override the stage's default agent"),
			),
			mcp.WithString("hal",
				mcp.Description("Human-at-loop mode"),
				mcp.Enum("live", "mock"),
			),
		)
	}
	return mcp.NewTool(entry.Name, opts...)
}

func toolHandler(entry cli.Command) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		request := cli.Request{
			Agent:  req.GetString("agent", ""),
			Hal:    req.GetString("hal", ""),
			From:   req.GetString("from", ""),
			Title:  req.GetString("title", ""),
			Cancel: req.GetBool("cancel", false),
		}
		if specID := req.GetString("spec_id", ""); specID != "" {
			request.Args = []string{specID}
		}

		switch entry.Name {
		case "speckit.new", "speckit.projectnew":
			request.Answers = map[string]string{}
			for _, field := range intakeFields {
				request.Answers[field.name] = req.GetString(field.name, "")
			}
		case "speckit.clarify", "speckit.analyze", "speckit.checklist":
			if raw := req.GetString("answers", ""); raw != "" {
				request.Answers = map[string]string{}
				for _, line := range strings.Split(raw, "\n") {
					id, text, ok := strings.Cut(line, "=")
					if !ok || strings.TrimSpace(id) == "" {
						return mcp.NewToolResultError("invalid answer line, expected ID=text: " + line), nil
					}
					request.Answers[strings.TrimSpace(id)] = strings.TrimSpace(text)
				}
			}
		}

		result, err := entry.Execute(ctx, request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		output := result.Output
		if result.NeedsInput {
			output += "\n[needs input] answer the escalated questions with this gate's answers parameter."
		}
		return mcp.NewToolResultText(output), nil
	}
}
