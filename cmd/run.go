package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helix-works/skillflow/internal/history"
	"github.com/helix-works/skillflow/internal/skill"
	"github.com/helix-works/skillflow/internal/tool"
	"github.com/helix-works/skillflow/internal/tracer"
)

var runInput string

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <definition.yaml>",
	Short: "Execute a skill definition locally",
	Long:  `Validate and execute a skill definition file against the built-in tool set, printing the execution result as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sk, err := skill.ParseDefinition(args[0])
		if err != nil {
			return err
		}

		input := map[string]interface{}{}
		if runInput != "" {
			if err := json.Unmarshal([]byte(runInput), &input); err != nil {
				return fmt.Errorf("failed to parse --input: %w", err)
			}
		}

		tools := tool.NewRegistry()
		if err := tool.RegisterBuiltins(tools); err != nil {
			return err
		}

		engine := skill.NewEngine(tools, tracer.NewLogTracer("standard"), skill.DefaultRetryCeiling)
		svc := skill.NewService(skill.NewRegistry(), engine, history.NewMemoryStore())

		created, err := svc.CreateSkill(sk)
		if err != nil {
			return err
		}

		result, err := svc.Execute(cmd.Context(), created.ID, "", input)
		if err != nil {
			return err
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			return err
		}

		if result.Status == skill.ExecutionStatusFailed {
			return fmt.Errorf("execution failed after %d of %d step(s)", result.StepsCompleted, result.TotalSteps)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "caller input as a JSON object")
	rootCmd.AddCommand(runCmd)
}
