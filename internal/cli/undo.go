package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var undoYes bool

var undoCmd = &cobra.Command{
	Use:   "undo <tool>",
	Short: "Revert all mutations recorded by a tool's runs",
	Long: `Revert every product mutation recorded since the tool's undo log was
last cleared. The log is consumed by the revert: a second undo does
nothing.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tool, err := toolArg(args)
		if err != nil {
			return err
		}
		ctx := context.Background()

		info, err := apiClient.UndoInfo(ctx, tool)
		if err != nil {
			return err
		}
		if info.Count == 0 {
			fmt.Println("nothing to undo")
			return nil
		}

		fmt.Printf("%d mutation(s) will be reverted", info.Count)
		if len(info.Samples) > 0 {
			fmt.Printf(" (e.g. %s)", strings.Join(info.Samples, ", "))
		}
		fmt.Println()

		if !undoYes {
			fmt.Print("Continue? [y/N] ")
			line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
			answer := strings.ToLower(strings.TrimSpace(line))
			if answer != "y" && answer != "yes" {
				fmt.Println("aborted")
				return nil
			}
		}

		res, err := apiClient.Undo(ctx, tool)
		if err != nil {
			return err
		}
		fmt.Printf("reverted %d, failed %d\n", res.Reverted, res.Failed)
		return nil
	},
}

func init() {
	undoCmd.Flags().BoolVarP(&undoYes, "yes", "y", false, "skip confirmation")
}
