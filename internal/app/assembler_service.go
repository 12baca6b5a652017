package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/speckit/internal/core/artifact"
	"github.com/example/speckit/internal/core/chunk"
	"github.com/example/speckit/internal/core/playbook"
	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
	"github.com/example/speckit/internal/templates"
)

// contextFileCap bounds each file folded into ${CONTEXT}.
const contextFileCap = 20 * 1024

const truncationMarker = "\n[... truncated ...]\n"

// AssemblerService builds the per-stage prompt and persists it as a
// PromptBundle before execution.
type AssemblerService struct {
	workspace secondary.WorkspaceAdapter
	capsule   secondary.CapsuleStore
	ace       primary.PlaybookService
	logger    secondary.RunLogger
}

// NewAssemblerService creates a prompt assembler. ace may be nil when the
// playbook is disabled.
func NewAssemblerService(
	workspace secondary.WorkspaceAdapter,
	capsule secondary.CapsuleStore,
	ace primary.PlaybookService,
	logger secondary.RunLogger,
) *AssemblerService {
	return &AssemblerService{
		workspace: workspace,
		capsule:   capsule,
		ace:       ace,
		logger:    logger,
	}
}

// AssembleRequest selects the prompt to build.
type AssembleRequest struct {
	SpecID    string
	RunID     string
	Stage     spec.Stage
	Agent     spec.Agent
	AceOn     bool
	SliceSize int
	// Stage0Context and MaieuticBlock are optional extra context blocks.
	Stage0Context string
	MaieuticBlock string
}

// AssembledPrompt is the rendered prompt plus its persisted bundle.
type AssembledPrompt struct {
	Prompt       string
	BundleURI    string
	AceBulletIDs []string
}

// Assemble renders the stage prompt: expanded preamble, SPEC_ID and CONTEXT
// substitution, then the ACE section. The bundle is written to the capsule
// before the caller may execute.
func (s *AssemblerService) Assemble(ctx context.Context, req AssembleRequest) (*AssembledPrompt, error) {
	preamble, err := templates.Preamble(string(req.Stage), string(req.Agent))
	if err != nil {
		return nil, fmt.Errorf("failed to load stage preamble: %w", err)
	}

	contextBlock, err := s.buildContext(ctx, req)
	if err != nil {
		return nil, err
	}

	prompt := strings.ReplaceAll(preamble, "${SPEC_ID}", req.SpecID)
	prompt = strings.ReplaceAll(prompt, "${CONTEXT}", contextBlock)

	var bulletIDs []string
	if req.AceOn && s.ace != nil {
		if scope, ok := playbook.ScopeFor(req.Stage.CommandName()); ok {
			prompt, bulletIDs = s.injectAce(ctx, prompt, scope, req.SliceSize)
		}
	}

	bundle := artifact.PromptBundle{
		SchemaVersion:   artifact.SchemaPromptBundle,
		SpecID:          req.SpecID,
		Stage:           string(req.Stage),
		Agent:           string(req.Agent),
		TemplateVersion: templates.Version,
		Prompt:          prompt,
		Variables: map[string]string{
			"SPEC_ID": req.SpecID,
			"CONTEXT": contextBlock,
		},
		AceBulletIDs: bulletIDs,
	}
	canonical, err := artifact.Canonicalize(bundle)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize prompt bundle: %w", err)
	}
	uri, err := s.capsule.Put(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to persist prompt bundle: %w", err)
	}
	if _, err := s.capsule.EmitEvent(ctx, req.SpecID, req.RunID, "PromptAssembled", &secondary.CapsuleEventPayload{
		Stage:  string(req.Stage),
		Agent:  string(req.Agent),
		URI:    uri,
		Schema: bundle.SchemaVersion,
	}); err != nil {
		return nil, fmt.Errorf("failed to record prompt event: %w", err)
	}

	return &AssembledPrompt{Prompt: prompt, BundleURI: uri, AceBulletIDs: bulletIDs}, nil
}

// buildContext folds spec.md, prior stage artifacts, and the optional blocks
// into one context string, truncating each file at the cap.
func (s *AssemblerService) buildContext(ctx context.Context, req AssembleRequest) (string, error) {
	var parts []string

	specDoc, err := s.workspace.ReadStageDoc(ctx, req.SpecID, "spec.md")
	if err != nil {
		return "", fmt.Errorf("failed to read spec.md: %w", err)
	}
	parts = append(parts, section("spec.md", truncate(specDoc)))

	for _, prior := range spec.PipelineStages() {
		if req.Stage.Index() >= 0 && prior.Index() >= req.Stage.Index() {
			break
		}
		name := prior.ArtifactFile()
		exists, err := s.workspace.StageDocExists(ctx, req.SpecID, name)
		if err != nil || !exists {
			continue
		}
		content, err := s.workspace.ReadStageDoc(ctx, req.SpecID, name)
		if err != nil {
			continue
		}
		parts = append(parts, section(name, truncate(content)))
	}

	if req.Stage0Context != "" {
		parts = append(parts, section("stage0", truncate(req.Stage0Context)))
	}
	if req.MaieuticBlock != "" {
		parts = append(parts, section("maieutic", truncate(req.MaieuticBlock)))
	}
	return strings.Join(parts, "\n"), nil
}

// injectAce inserts the playbook section before the <task> delimiter, or
// prepends it when no delimiter exists. Best-effort.
func (s *AssemblerService) injectAce(ctx context.Context, prompt, scope string, sliceSize int) (string, []string) {
	resp, err := s.ace.Slice(ctx, primary.SliceRequest{Scope: scope, SliceSize: sliceSize})
	if err != nil {
		s.logger.LogWarn(ctx, fmt.Sprintf("playbook slice for scope %s failed: %v", scope, err))
		return prompt, nil
	}
	if resp.Section == "" {
		return prompt, nil
	}
	if idx := strings.Index(prompt, "<task>"); idx >= 0 {
		return prompt[:idx] + resp.Section + "\n" + prompt[idx:], resp.BulletIDs
	}
	return resp.Section + "\n" + prompt, resp.BulletIDs
}

func section(name, content string) string {
	return fmt.Sprintf("--- %s ---\n%s", name, content)
}

// truncate keeps the leading semantic chunk of an oversized file. Splitting
// on XML, Mermaid or line boundaries avoids cutting mid-element.
func truncate(content string) string {
	if len(content) <= contextFileCap {
		return content
	}
	parts := chunk.Split("context", content, contextFileCap)
	return parts[0].Content + truncationMarker
}
