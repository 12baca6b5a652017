package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/speckit/internal/wire"
)

// VerifyCmd returns the timeline verification command.
func VerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "verify SPEC-ID",
		Aliases: []string{"speckit.verify"},
		Short:   "Cross-check capsule events, audit rows and projections",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := wire.VerifyService().Verify(NewContext(), args[0])
			if err != nil {
				return err
			}

			pass := color.New(color.FgGreen).Sprint("PASS")
			fail := color.New(color.FgRed).Sprint("FAIL")
			fmt.Printf("Verify %s (run %s)\n", report.SpecID, report.RunID)
			for _, check := range report.Checks {
				status := pass
				if !check.Passed {
					status = fail
				}
				fmt.Printf("  %-22s %s", check.Name, status)
				if check.Message != "" {
					fmt.Printf("  %s", check.Message)
				}
				fmt.Println()
			}
			if !report.Passed {
				return fmt.Errorf("verification failed for %s", report.SpecID)
			}
			color.Green("✓ all checks passed")
			return nil
		},
	}
}

// StatusCmd returns the per-stage progress command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status SPEC-ID",
		Aliases: []string{"speckit.status"},
		Short:   "Show per-stage pipeline progress",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := wire.VerifyService().Status(NewContext(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STAGE\tSTATE\tAGENT\tTIMESTAMP")
			for _, stage := range report.Stages {
				state := "pending"
				if stage.Complete {
					state = color.New(color.FgGreen).Sprint("complete")
					if stage.Degraded {
						state = color.New(color.FgYellow).Sprint("complete (degraded)")
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", stage.Stage, state, stage.Agent, stage.RunTimestamp)
			}
			w.Flush()

			switch {
			case report.Done:
				color.Green("%s: done", report.SpecID)
			case report.Failed:
				color.Red("%s: failed", report.SpecID)
			default:
				fmt.Printf("%s: next stage %s\n", report.SpecID, report.CurrentStage)
			}
			if report.TotalTokens > 0 {
				fmt.Printf("tokens: %d  est. cost: $%.2f\n", report.TotalTokens, report.TotalCostUSD)
			}
			return nil
		},
	}
}
