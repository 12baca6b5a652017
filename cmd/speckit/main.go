package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/speckit/internal/cli"
	"github.com/example/speckit/internal/server"
	"github.com/example/speckit/internal/version"
)

func main() {
	cli.SetServeFunc(server.ServeStdio)

	rootCmd := &cobra.Command{
		Use:     "speckit",
		Short:   "speckit - multi-agent spec pipeline",
		Version: version.String(),
		Long: `speckit drives a six-stage multi-agent pipeline (plan, tasks, implement,
validate, audit, unlock) over SPEC directories, with quality gates, a
content-addressed audit capsule, and an ACE playbook that learns heuristics
from completed runs.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.InitSession()
		},
	}

	// Intake
	rootCmd.AddCommand(cli.NewSpecCmd())
	rootCmd.AddCommand(cli.ProjectNewCmd())

	// Pipeline
	for _, cmd := range cli.StageCmds() {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(cli.AutoCmd())
	rootCmd.AddCommand(cli.CancelCmd())

	// Quality gates
	for _, cmd := range cli.GateCmds() {
		rootCmd.AddCommand(cmd)
	}

	// Inspection
	rootCmd.AddCommand(cli.VerifyCmd())
	rootCmd.AddCommand(cli.StatusCmd())

	// MCP surface
	rootCmd.AddCommand(cli.ServeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if cli.IsNeedsInput(err) {
			os.Exit(cli.ExitNeedsInput)
		}
		os.Exit(1)
	}
}
