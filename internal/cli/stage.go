package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/speckit/internal/core/spec"
	"github.com/example/speckit/internal/wire"
)

// StageCmds returns one cobra command per pipeline stage.
func StageCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(spec.PipelineStages()))
	for _, stage := range spec.PipelineStages() {
		st := stage
		cmd := &cobra.Command{
			Use:     fmt.Sprintf("%s SPEC-ID", st),
			Aliases: []string{st.CommandName()},
			Short:   fmt.Sprintf("Run the %s stage", st.DisplayName()),
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				agent, _ := cmd.Flags().GetString("agent")
				hal, _ := cmd.Flags().GetString("hal")
				entry, _ := Lookup(st.CommandName())
				result, err := entry.Execute(NewContext(), Request{
					Args:  args,
					Agent: agent,
					Hal:   hal,
				})
				if err != nil {
					return err
				}
				fmt.Print(result.Output)
				if result.NeedsInput {
					return &needsInputError{specID: args[0], gate: "quality gate"}
				}
				return nil
			},
		}
		cmd.Flags().String("agent", "", "Override the stage's default agent")
		cmd.Flags().String("hal", "", "Human-at-loop mode (live or mock)")
		cmds = append(cmds, cmd)
	}
	return cmds
}

// AutoCmd returns the command that runs all remaining stages.
func AutoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "auto SPEC-ID",
		Aliases: []string{"speckit.auto"},
		Short:   "Run all remaining pipeline stages in order",
		Long: `Run every incomplete stage for the SPEC in pipeline order, resuming
from persisted audit rows. Stops on a failed stage, an escalated quality
gate, or a blocked ship gate.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hal, _ := cmd.Flags().GetString("hal")
			from, _ := cmd.Flags().GetString("from")

			// Hot-reload config between stages for the lifetime of the run.
			watchCtx, stopWatch := context.WithCancel(NewContext())
			defer stopWatch()
			go wire.ConfigWatcher().Run(watchCtx)

			entry, _ := Lookup("speckit.auto")
			result, err := entry.Execute(NewContext(), Request{
				Args: args,
				Hal:  hal,
				From: from,
			})
			if err != nil {
				return err
			}
			fmt.Print(result.Output)
			if result.NeedsInput {
				return &needsInputError{specID: args[0], gate: "quality gate"}
			}
			return nil
		},
	}
	cmd.Flags().String("hal", "", "Human-at-loop mode (live or mock)")
	cmd.Flags().String("from", "", "Resume from a later stage instead of the first incomplete one")
	return cmd
}
