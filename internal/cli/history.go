package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/controller"
	"github.com/nhle/taskboard/internal/history"
	"github.com/nhle/taskboard/internal/model"
)

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and restore deleted tasks",
	}

	var oldest bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List deleted tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			if _, err := rt.ctl.FetchHistory(background(cmd)); err != nil {
				return writeErr(cmd, err)
			}
			order := history.NewestFirst
			if oldest {
				order = history.OldestFirst
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tCOMPLETED")
			for _, t := range rt.ctl.History().Entries(order) {
				completed := "-"
				if t.CompletedAt != nil {
					completed = humanize.Time(*t.CompletedAt)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, completed)
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVar(&oldest, "oldest", false, "Oldest first")

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Move a deleted task back onto the board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Notifications go to stderr, so failures are already reported.
			n := controller.NotifierFunc(func(note model.Notification) {
				fmt.Fprintln(cmd.ErrOrStderr(), note.Message)
			})
			rt, err := newRuntime(app, n)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer rt.Close()

			ctx := background(cmd)
			if _, err := rt.ctl.FetchHistory(ctx); err != nil {
				return writeErr(cmd, err)
			}
			task, err := rt.ctl.Restore(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s into %s\n", task.ID, task.Status)
			return nil
		},
	}

	cmd.AddCommand(list, restore)
	return cmd
}
