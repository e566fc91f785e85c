package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vsinha/wirecut/pkg/interfaces/cli/output"
)

func newExportCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "export <job-id> <file.xlsx>",
		Short: "Write a job's cut sheet to an Excel workbook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			job, err := app.Cutting.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			if err := output.WriteCutSheet(job, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "💾 Cut sheet saved to: %s\n", args[1])
			return nil
		},
	}
}
