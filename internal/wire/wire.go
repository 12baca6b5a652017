// Package wire provides dependency injection for the speckit application.
// It creates singleton services with lazy initialization.
package wire

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	capsuleadapter "github.com/example/speckit/internal/adapters/capsule"
	"github.com/example/speckit/internal/adapters/filesystem"
	"github.com/example/speckit/internal/adapters/httpagent"
	"github.com/example/speckit/internal/adapters/openaimodel"
	"github.com/example/speckit/internal/adapters/reflex"
	"github.com/example/speckit/internal/adapters/runlog"
	"github.com/example/speckit/internal/adapters/sqlite"
	"github.com/example/speckit/internal/adapters/subprocess"
	"github.com/example/speckit/internal/adapters/tmux"
	"github.com/example/speckit/internal/app"
	"github.com/example/speckit/internal/config"
	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/db"
	"github.com/example/speckit/internal/guardrail"
	"github.com/example/speckit/internal/ports/primary"
	"github.com/example/speckit/internal/ports/secondary"
)

var (
	pipelineService primary.PipelineService
	intakeService   primary.IntakeService
	qualityService  primary.QualityService
	verifyService   primary.VerifyService
	playbookService primary.PlaybookService
	configWatcher   *config.Watcher
	runLogger       secondary.RunLogger
	once            sync.Once
)

// PipelineService returns the singleton PipelineService instance.
func PipelineService() primary.PipelineService {
	once.Do(initServices)
	return pipelineService
}

// IntakeService returns the singleton IntakeService instance.
func IntakeService() primary.IntakeService {
	once.Do(initServices)
	return intakeService
}

// QualityService returns the singleton QualityService instance.
func QualityService() primary.QualityService {
	once.Do(initServices)
	return qualityService
}

// VerifyService returns the singleton VerifyService instance.
func VerifyService() primary.VerifyService {
	once.Do(initServices)
	return verifyService
}

// PlaybookService returns the singleton PlaybookService instance.
func PlaybookService() primary.PlaybookService {
	once.Do(initServices)
	return playbookService
}

// ConfigWatcher returns the watcher holding the live configuration. Callers
// that run long (auto, serve) should start it with Run.
func ConfigWatcher() *config.Watcher {
	once.Do(initServices)
	return configWatcher
}

// Config returns the current configuration snapshot.
func Config() *config.Config {
	once.Do(initServices)
	return configWatcher.Current()
}

// runnerResolver maps agents to their concrete runners.
type runnerResolver struct {
	runners map[spec.Agent]secondary.AgentRunner
}

func (r *runnerResolver) Resolve(agent spec.Agent) (secondary.AgentRunner, error) {
	runner, ok := r.runners[agent]
	if !ok {
		return nil, fmt.Errorf("unknown agent %s", agent)
	}
	return runner, nil
}

// agentCommand resolves the argv for a CLI-backed agent. An empty model uses
// the binary's default.
func agentCommand(agent, model string) (string, []string) {
	switch agent {
	case string(spec.AgentGptPro):
		args := []string{"exec", "--json", "--sandbox", "workspace-write", "--skip-git-repo-check"}
		if model != "" {
			args = append(args, "--model", model)
		}
		return "codex", args
	case string(spec.AgentGptCodex):
		args := []string{"exec", "--json", "--sandbox", "workspace-write", "--skip-git-repo-check"}
		if model == "" {
			model = "gpt-5-codex"
		}
		return "codex", append(args, "--model", model)
	case string(spec.AgentGemini):
		args := []string{"--output-format", "stream-json"}
		if model != "" {
			args = append(args, "--model", model)
		}
		return "gemini", args
	default:
		return agent, nil
	}
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	database, err := db.GetDB()
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	root, err := os.Getwd()
	if err != nil {
		log.Fatalf("failed to resolve working directory: %v", err)
	}

	// Repository adapters (secondary ports) with the injected DB.
	runRepo := sqlite.NewConsensusRunRepository(database)
	outputRepo := sqlite.NewAgentOutputRepository(database)
	playbookRepo := sqlite.NewPlaybookRepository(database)

	capsuleStore, err := capsuleadapter.NewStore("")
	if err != nil {
		log.Fatalf("failed to open capsule store: %v", err)
	}
	workspace, err := filesystem.NewWorkspaceAdapter(root)
	if err != nil {
		log.Fatalf("failed to open workspace: %v", err)
	}

	runLogger = runlog.New()

	cfg, err := config.Load(root)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// The orchestrator is assigned below; the watcher only calls busyFn
	// after Run starts, well past initServices.
	var orchestrator *app.Orchestrator
	configWatcher = config.NewWatcher(root, cfg,
		func() bool { return orchestrator != nil && orchestrator.Busy() },
		func(status config.ReloadStatus) {
			switch {
			case status.Err != nil:
				runLogger.LogWarn(context.Background(), fmt.Sprintf("config reload rejected: %v", status.Err))
			case status.Deferred:
				runLogger.LogWarn(context.Background(), "config reload deferred until the active run completes")
			case status.Applied:
				runLogger.LogWarn(context.Background(), "config reloaded")
			}
		})
	configFn := configWatcher.Current

	// Agent runners. CLI agents speak the framed stdout stream; claude goes
	// over the Anthropic API.
	runners := map[spec.Agent]secondary.AgentRunner{
		spec.AgentGptPro:   subprocess.NewRunner(string(spec.AgentGptPro), agentCommand),
		spec.AgentGptCodex: subprocess.NewRunner(string(spec.AgentGptCodex), agentCommand),
		spec.AgentGemini:   subprocess.NewRunner(string(spec.AgentGemini), agentCommand),
		spec.AgentClaude: httpagent.NewAnthropicRunner(
			string(spec.AgentClaude),
			os.Getenv("ANTHROPIC_API_KEY"),
			os.Getenv("ANTHROPIC_BASE_URL"),
		),
	}
	resolver := &runnerResolver{runners: runners}

	var reflexRunner secondary.AgentRunner
	var probe secondary.ReflexProbe
	if cfg.Reflex.Enabled {
		reflexRunner = reflex.NewRunner(cfg.Reflex.Endpoint, cfg.Reflex.Model)
		probe = reflex.NewProbe(cfg.Reflex.Endpoint)
	}

	var reflectModel secondary.ReflectModel
	if cfg.Ace.Enabled && cfg.Ace.ReflectModel != "" {
		reflectModel = openaimodel.NewReflectModel(
			cfg.Ace.ReflectModel,
			os.Getenv("OPENAI_API_KEY"),
			os.Getenv("OPENAI_BASE_URL"),
		)
	}

	var hal secondary.HalAdapter
	if tmuxAdapter, err := tmux.NewAdapter(); err == nil {
		hal = tmuxAdapter
	} else {
		runLogger.LogWarn(context.Background(), fmt.Sprintf("tmux unavailable, HAL live disabled: %v", err))
	}

	// Services (primary port implementations).
	aceService := app.NewAceService(playbookRepo, reflectModel, runLogger, cfg.Ace.ConfidenceFloor)
	executor := app.NewExecutorService(runLogger)
	assembler := app.NewAssemblerService(workspace, capsuleStore, aceService, runLogger)
	qualitySvc := app.NewQualityService(
		assembler,
		executor,
		resolver,
		capsuleStore,
		runLogger,
		cfg.Agents.Models,
		time.Duration(cfg.Pipeline.StageTimeoutSeconds)*time.Second,
	)
	orchestrator = app.NewOrchestrator(
		guardrail.New(workspace),
		qualitySvc,
		assembler,
		executor,
		resolver,
		reflexRunner,
		probe,
		capsuleStore,
		runRepo,
		outputRepo,
		workspace,
		aceService,
		hal,
		runLogger,
		configFn,
	)

	pipelineService = orchestrator
	qualityService = qualitySvc
	playbookService = aceService
	intakeService = app.NewIntakeService(capsuleStore, workspace, runRepo)
	verifyService = app.NewVerifyService(capsuleStore, runRepo, outputRepo, workspace)
}
