package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// validTools are the tool names accepted by run-scoped commands.
var validTools = []string{"renamer", "categorizer", "categorizer-targeted"}

func toolArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one tool name (%v)", validTools)
	}
	for _, t := range validTools {
		if args[0] == t {
			return args[0], nil
		}
	}
	return "", fmt.Errorf("unknown tool %q (expected one of %v)", args[0], validTools)
}

var statusCmd = &cobra.Command{
	Use:   "status <tool>",
	Short: "Show the current run status of a tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := toolArg(args)
		if err != nil {
			return err
		}

		st, err := apiClient.Status(context.Background(), tool)
		if err != nil {
			return err
		}
		if st == nil {
			fmt.Printf("%s: idle\n", tool)
			return nil
		}

		p := st.Progress
		fmt.Printf("%s: %s (run %s)\n", tool, st.State, st.ID)
		fmt.Printf("  Processed: %d/%d\n", p.Processed, p.Total)
		fmt.Printf("  Updated:   %d\n", p.Updated)
		fmt.Printf("  Skipped:   %d\n", p.Skipped)
		fmt.Printf("  Errors:    %d\n", p.Errors)
		if st.CurrentItem != "" {
			fmt.Printf("  Current:   %s\n", st.CurrentItem)
		}
		if p.TokensUsed > 0 {
			fmt.Printf("  Tokens:    %d (est. $%.4f)\n", p.TokensUsed, p.EstimatedCost)
		}
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <tool>",
	Short: "Request a cooperative stop of a running tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := toolArg(args)
		if err != nil {
			return err
		}

		stopping, err := apiClient.Stop(context.Background(), tool)
		if err != nil {
			return err
		}
		if !stopping {
			fmt.Printf("%s: nothing running\n", tool)
			return nil
		}
		fmt.Printf("%s: stopping, in-flight items will finish\n", tool)
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs <tool>",
	Short: "Show the latest log lines of a tool's run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := toolArg(args)
		if err != nil {
			return err
		}

		logs, err := apiClient.Logs(context.Background(), tool)
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			fmt.Println("no log entries")
			return nil
		}
		for _, entry := range logs {
			fmt.Printf("%s [%s] %s\n", entry.Timestamp.Format("15:04:05"), entry.Level, entry.Message)
		}
		return nil
	},
}
