package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var promptDescription string

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Inspect and edit the classifier prompts",
}

var promptGetCmd = &cobra.Command{
	Use:   "get <tool>",
	Short: "Print a tool's effective prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := toolArg(args)
		if err != nil {
			return err
		}

		p, err := apiClient.GetPrompt(context.Background(), tool)
		if err != nil {
			return err
		}
		if p.Custom != "" {
			fmt.Println("# custom prompt (overrides default)")
			fmt.Println(p.Custom)
			return nil
		}
		fmt.Println("# default prompt")
		fmt.Println(p.Default)
		return nil
	},
}

var promptSetCmd = &cobra.Command{
	Use:   "set <tool> <file>",
	Short: "Store a custom prompt for a tool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := toolArg(args[:1])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read prompt file: %w", err)
		}

		if err := apiClient.SavePrompt(context.Background(), tool, string(data), promptDescription); err != nil {
			return err
		}
		fmt.Printf("prompt for %s saved\n", tool)
		return nil
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show today's token spend",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := apiClient.UsageToday(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d tokens over %d calls, est. $%.4f\n",
			snap.Date, snap.Tokens, snap.Calls, snap.EstimatedCost)
		return nil
	},
}

func init() {
	promptSetCmd.Flags().StringVar(&promptDescription, "description", "", "note describing the change")
	promptCmd.AddCommand(promptGetCmd)
	promptCmd.AddCommand(promptSetCmd)
}
