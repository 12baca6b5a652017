package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// intakeFile is the YAML shape accepted by --file.
type intakeFile struct {
	Problem            string   `yaml:"problem"`
	Users              []string `yaml:"users"`
	Goals              []string `yaml:"goals"`
	NonGoals           []string `yaml:"non_goals"`
	Constraints        []string `yaml:"constraints"`
	IntegrationPoints  []string `yaml:"integration_points"`
	AcceptanceCriteria []string `yaml:"acceptance_criteria"`
}

// intakeAnswerFlags registers the per-field intake flags on a command.
func intakeAnswerFlags(cmd *cobra.Command) {
	cmd.Flags().String("file", "", "YAML file with intake answers")
	cmd.Flags().String("problem", "", "Problem statement")
	cmd.Flags().StringArray("user", nil, "Intended user (repeatable)")
	cmd.Flags().StringArray("goal", nil, "Goal (repeatable)")
	cmd.Flags().StringArray("non-goal", nil, "Non-goal (repeatable)")
	cmd.Flags().StringArray("constraint", nil, "Constraint (repeatable)")
	cmd.Flags().StringArray("integration", nil, "Integration point (repeatable)")
	cmd.Flags().StringArray("accept", nil, "Acceptance criterion, \"<text> (verify: <method>)\" (repeatable)")
}

// collectAnswers merges --file content with per-field flags. Flags win.
func collectAnswers(cmd *cobra.Command) (map[string]string, error) {
	answers := map[string]string{}

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read intake file: %w", err)
		}
		var parsed intakeFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse intake file: %w", err)
		}
		answers["problem"] = parsed.Problem
		answers["users"] = strings.Join(parsed.Users, "\n")
		answers["goals"] = strings.Join(parsed.Goals, "\n")
		answers["non_goals"] = strings.Join(parsed.NonGoals, "\n")
		answers["constraints"] = strings.Join(parsed.Constraints, "\n")
		answers["integration_points"] = strings.Join(parsed.IntegrationPoints, "\n")
		answers["acceptance_criteria"] = strings.Join(parsed.AcceptanceCriteria, "\n")
	}

	if problem, _ := cmd.Flags().GetString("problem"); problem != "" {
		answers["problem"] = problem
	}
	lists := map[string]string{
		"user":        "users",
		"goal":        "goals",
		"non-goal":    "non_goals",
		"constraint":  "constraints",
		"integration": "integration_points",
		"accept":      "acceptance_criteria",
	}
	for flag, key := range lists {
		if values, _ := cmd.Flags().GetStringArray(flag); len(values) > 0 {
			answers[key] = strings.Join(values, "\n")
		}
	}
	return answers, nil
}

// NewSpecCmd returns the spec intake command.
func NewSpecCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "new TITLE",
		Aliases: []string{"speckit.new"},
		Short:   "Run intake and allocate a SPEC-ID",
		Long: `Validate the intake questionnaire, persist the answers and brief to the
capsule store, then write the SPEC directory projections. Answers come from
--file or the per-field flags.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := collectAnswers(cmd)
			if err != nil {
				return err
			}
			entry, _ := Lookup("speckit.new")
			result, err := entry.Execute(NewContext(), Request{
				Title:   strings.Join(args, " "),
				Answers: answers,
			})
			if err != nil {
				return err
			}
			fmt.Print(result.Output)
			return nil
		},
	}
	intakeAnswerFlags(cmd)
	return cmd
}

// ProjectNewCmd returns the project intake command.
func ProjectNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projectnew NAME",
		Aliases: []string{"speckit.projectnew"},
		Short:   "Run project intake and write memory/NL_VISION.md",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answers, err := collectAnswers(cmd)
			if err != nil {
				return err
			}
			entry, _ := Lookup("speckit.projectnew")
			result, err := entry.Execute(NewContext(), Request{
				Title:   strings.Join(args, " "),
				Answers: answers,
			})
			if err != nil {
				return err
			}
			fmt.Print(result.Output)
			return nil
		},
	}
	intakeAnswerFlags(cmd)
	return cmd
}
