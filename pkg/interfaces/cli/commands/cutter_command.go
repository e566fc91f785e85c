package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCutterCmd(open appOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cutter",
		Short: "Manage wire cutters",
	}

	var description string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a wire cutter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			cutter, err := app.Cutting.CreateWireCutter(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wire cutter %d: %s\n", cutter.ID, cutter.Name)
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "Free text description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List wire cutters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			cutters, err := app.Store.WireCutters().List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-6s %-20s %s\n", "ID", "Name", "Description")
			for _, c := range cutters {
				fmt.Fprintf(out, "%-6d %-20s %s\n", c.ID, c.Name, c.Description)
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
