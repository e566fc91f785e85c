package commands

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vsinha/wirecut/pkg/application/dto"
	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/interfaces/cli/output"
)

func newJobCmd(open appOpener) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect and record progress on cut jobs",
	}
	cmd.PersistentFlags().StringVar(&format, "format", output.FormatText, "Output format: text, json")

	// withApp opens the app, runs fn and closes it again
	withApp := func(fn func(cmd *cobra.Command, app *App, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := output.CheckFormat(format); err != nil {
				return err
			}
			app, err := open(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			return fn(cmd, app, args)
		}
	}
	printResult := func(cmd *cobra.Command, result *dto.CutResult) error {
		return output.CutResult(cmd.OutOrStdout(), result, format)
	}

	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List cut jobs",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			var filter *entities.CutJobStatus
			if status != "" {
				parsed, err := entities.ParseCutJobStatus(status)
				if err != nil {
					return err
				}
				filter = &parsed
			}
			jobs, err := app.Cutting.ListJobs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return output.Jobs(cmd.OutOrStdout(), jobs, format)
		}),
	}
	list.Flags().StringVar(&status, "status", "", "Only jobs in this status")

	show := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job with its items and linked order items",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := app.Cutting.GetJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			return output.CutJob(cmd.OutOrStdout(), job, format)
		}),
	}

	create := &cobra.Command{
		Use:   "create <wire-cutter-id>",
		Short: "Open an empty job on a wire cutter",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			cutterID, err := parseID(args[0])
			if err != nil {
				return err
			}
			job, err := app.Cutting.CreateJob(cmd.Context(), cutterID)
			if err != nil {
				return err
			}
			return output.CutJob(cmd.OutOrStdout(), job, format)
		}),
	}

	add := &cobra.Command{
		Use:   "add <job-id> <part-number>",
		Short: "Add an item for a part to a job",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			item, err := app.Cutting.AddItem(cmd.Context(), jobID, entities.PartNumber(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added item %d for %s to job %d\n", item.ID, item.PartNumber, jobID)
			return nil
		}),
	}

	assign := &cobra.Command{
		Use:   "assign <job-item-id> <order-item-id>",
		Short: "Link a sales order item's remaining demand to a job item",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			result, err := app.Cutting.AssignOrderItem(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		}),
	}

	unassign := &cobra.Command{
		Use:   "unassign <job-item-id> <order-item-id>",
		Short: "Remove a sales order item from a job item",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			result, err := app.Cutting.UnassignOrderItem(cmd.Context(), ids[0], ids[1])
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		}),
	}

	var (
		increment bool
		minutes   string
	)
	cut := &cobra.Command{
		Use:   "cut <job-item-id> <quantity>",
		Short: "Record the quantity cut on a job item",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			itemID, err := parseID(args[0])
			if err != nil {
				return err
			}
			quantity, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			elapsed, err := decimal.NewFromString(minutes)
			if err != nil {
				return fmt.Errorf("invalid minutes %q: %w", minutes, err)
			}

			var result *dto.CutResult
			if increment {
				result, err = app.Cutting.AddQuantityCut(cmd.Context(), itemID, quantity, elapsed)
			} else {
				result, err = app.Cutting.SetQuantityCut(cmd.Context(), itemID, quantity, elapsed)
			}
			if err != nil {
				return err
			}
			return printResult(cmd, result)
		}),
	}
	cut.Flags().BoolVar(&increment, "add", false, "Add quantity to what was already cut")
	cut.Flags().StringVar(&minutes, "minutes", "0", "Minutes spent on this cut")

	itemAction := func(use, short string, fn func(app *App, cmd *cobra.Command, id uint) (*dto.CutResult, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <job-item-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				result, err := fn(app, cmd, id)
				if err != nil {
					return err
				}
				return printResult(cmd, result)
			}),
		}
	}

	voidJob := &cobra.Command{
		Use:   "void <job-id>",
		Short: "Void a job and detach its order items",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, app *App, args []string) error {
			jobID, err := parseID(args[0])
			if err != nil {
				return err
			}
			result, err := app.Cutting.VoidJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			return output.CutJob(cmd.OutOrStdout(), result.Job, format)
		}),
	}

	cmd.AddCommand(
		list, show, create, add, assign, unassign, cut, voidJob,
		itemAction("hold", "Put a job item on hold", func(app *App, cmd *cobra.Command, id uint) (*dto.CutResult, error) {
			return app.Cutting.Hold(cmd.Context(), id)
		}),
		itemAction("resume", "Take a job item off hold", func(app *App, cmd *cobra.Command, id uint) (*dto.CutResult, error) {
			return app.Cutting.Resume(cmd.Context(), id)
		}),
		itemAction("void-item", "Void a job item", func(app *App, cmd *cobra.Command, id uint) (*dto.CutResult, error) {
			return app.Cutting.VoidItem(cmd.Context(), id)
		}),
		itemAction("delete-item", "Delete a job item, detaching its order items", func(app *App, cmd *cobra.Command, id uint) (*dto.CutResult, error) {
			return app.Cutting.DeleteItem(cmd.Context(), id)
		}),
	)
	return cmd
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, len(args))
	for i, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}
