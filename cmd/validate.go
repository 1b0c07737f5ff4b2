package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helix-works/skillflow/internal/skill"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <definition.yaml>",
	Short: "Validate a skill definition file",
	Long:  `Statically check a skill definition's step list and report every error and warning.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sk, err := skill.ParseDefinition(args[0])
		if err != nil {
			return err
		}

		result := skill.ValidateSteps(sk.Steps)

		for _, warning := range result.Warnings {
			fmt.Printf("warning: %s\n", warning)
		}
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e)
		}

		if !result.Valid {
			return fmt.Errorf("%s: %d error(s)", args[0], len(result.Errors))
		}

		fmt.Printf("%s: valid (%d step(s))\n", args[0], len(sk.Steps))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
