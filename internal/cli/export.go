package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/tomato/internal/export"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the session history as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q: use csv or json", format)
			}

			e, err := openEnv(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			sessions := e.tracker.Sessions.All()
			if out == "" || out == "-" {
				if format == "json" {
					return export.WriteJSON(cmd.OutOrStdout(), sessions, time.Now())
				}
				return export.WriteCSV(cmd.OutOrStdout(), sessions)
			}

			if format == "json" {
				err = export.ToJSON(sessions, out)
			} else {
				err = export.ToCSV(sessions, out)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d session(s) to %s\n", len(sessions), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	return cmd
}
