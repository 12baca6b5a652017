package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// GateCmds returns the standalone quality gate commands.
func GateCmds() []*cobra.Command {
	gates := []string{"clarify", "analyze", "checklist"}
	cmds := make([]*cobra.Command, 0, len(gates))
	for _, gate := range gates {
		g := gate
		cmd := &cobra.Command{
			Use:     fmt.Sprintf("%s SPEC-ID", g),
			Aliases: []string{"speckit." + g},
			Short:   fmt.Sprintf("Run the %s quality gate", g),
			Args:    cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				answerFlags, _ := cmd.Flags().GetStringArray("answer")
				cancel, _ := cmd.Flags().GetBool("cancel")
				answers, err := parseAnswerFlags(answerFlags)
				if err != nil {
					return err
				}
				entry, _ := Lookup("speckit." + g)
				result, err := entry.Execute(NewContext(), Request{
					Args:    args,
					Answers: answers,
					Cancel:  cancel,
				})
				if err != nil {
					return err
				}
				fmt.Print(result.Output)
				if result.NeedsInput {
					return &needsInputError{specID: args[0], gate: g}
				}
				return nil
			},
		}
		cmd.Flags().StringArray("answer", nil, "Answer to an escalated question, ID=text (repeatable)")
		cmd.Flags().Bool("cancel", false, "Cancel the escalated gate instead of answering")
		cmds = append(cmds, cmd)
	}
	return cmds
}

func parseAnswerFlags(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	answers := make(map[string]string, len(values))
	for _, value := range values {
		id, text, ok := strings.Cut(value, "=")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("invalid --answer %q: expected ID=text", value)
		}
		answers[strings.TrimSpace(id)] = strings.TrimSpace(text)
	}
	return answers, nil
}
