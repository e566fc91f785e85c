package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vsinha/wirecut/pkg/interfaces/cli/output"
)

// SyncConfig holds the options of one sync run
type SyncConfig struct {
	CSVDir string
	Format string
}

// SyncCommand runs a single reconciliation pass and prints its summary
type SyncCommand struct {
	app    *App
	config SyncConfig
	out    io.Writer
}

func NewSyncCommand(app *App, config SyncConfig, out io.Writer) *SyncCommand {
	return &SyncCommand{app: app, config: config, out: out}
}

// Execute runs the pass
func (c *SyncCommand) Execute(ctx context.Context) error {
	if err := output.CheckFormat(c.config.Format); err != nil {
		return err
	}

	source, release, err := c.app.OpenSource(c.config.CSVDir)
	if err != nil {
		return fmt.Errorf("failed to open ERP source: %w", err)
	}
	defer release()

	result, err := c.app.Engine.Run(ctx, source)
	if result != nil {
		if printErr := output.ReconcileSummary(c.out, result, c.config.Format); printErr != nil {
			return printErr
		}
	}
	if err != nil {
		return fmt.Errorf("reconcile failed: %w", err)
	}
	return nil
}

func newSyncCmd(open appOpener) *cobra.Command {
	var config SyncConfig

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile open ERP sales order items into the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			return NewSyncCommand(app, config, cmd.OutOrStdout()).Execute(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.CSVDir, "csv", "", "Read the snapshot from orders.csv and bom.csv in this directory")
	cmd.Flags().StringVar(&config.Format, "format", output.FormatText, "Output format: text, json")
	return cmd
}
