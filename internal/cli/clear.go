package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(flags *rootFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole session history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			n := e.tracker.Sessions.Len()
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is already empty.")
				return nil
			}
			if !yes {
				ok, err := confirm("Clear all history?",
					fmt.Sprintf("%d session(s) will be removed. This cannot be undone.", n))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			e.tracker.Sessions.Clear()
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d session(s).\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation")
	return cmd
}
