package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/speckit/internal/wire"
)

// CancelCmd returns the command that aborts an in-flight run.
func CancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel SPEC-ID",
		Short: "Cancel the in-flight run, preserving partial artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := wire.PipelineService().Cancel(NewContext(), args[0]); err != nil {
				return err
			}
			fmt.Printf("cancelled run for %s\n", args[0])
			return nil
		},
	}
}
