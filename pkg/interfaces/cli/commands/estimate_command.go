package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

func newEstimateCmd(open appOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate <part-number> <wire-cutter-id> [quantity]",
		Short: "Estimate cutting time from recorded history",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			part := entities.PartNumber(args[0])
			cutterID, err := parseID(args[1])
			if err != nil {
				return err
			}
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			out := cmd.OutOrStdout()
			perUnit, err := app.Estimator.TimePerUnit(cmd.Context(), part, cutterID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s on cutter %d: %s minutes per unit\n", part, cutterID, perUnit)

			if len(args) == 3 {
				quantity, err := decimal.NewFromString(args[2])
				if err != nil {
					return fmt.Errorf("invalid quantity %q: %w", args[2], err)
				}
				minutes, err := app.Estimator.Estimate(cmd.Context(), part, cutterID, quantity)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s units: %s minutes\n", quantity, minutes)
			}
			return nil
		},
	}
}
