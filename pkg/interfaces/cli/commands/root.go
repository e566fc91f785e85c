package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the wirecut command tree
func NewRootCommand() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           "wirecut",
		Short:         "Track wire cutting work against ERP sales orders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", "", "Directory containing config.yaml (default ./configs or .)")

	open := func(cmd *cobra.Command) (*App, error) {
		if configDir != "" {
			return NewApp(cmd.Context(), configDir)
		}
		return NewApp(cmd.Context())
	}

	root.AddCommand(
		newSyncCmd(open),
		newServeCmd(open),
		newJobCmd(open),
		newCutterCmd(open),
		newExportCmd(open),
		newEstimateCmd(open),
	)
	return root
}

type appOpener func(cmd *cobra.Command) (*App, error)
