package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/quotedesk/internal/app"
)

func newPendingCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Inspect unsaved rows kept between sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := app.ListPending(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			return printPending(cmd.OutOrStdout(), entries, time.Now())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear <kind> <shock-id>",
		Short: "Delete the stored snapshot of one table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseShockID(args[1])
			if err != nil {
				return err
			}
			if err := app.ClearPending(cmd.Context(), *configPath, args[0], id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared %s for shock %d\n", args[0], id)
			return nil
		},
	})
	return cmd
}

func printPending(w io.Writer, entries []app.PendingEntry, now time.Time) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no pending snapshots")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tSHOCK\tROWS\tPENDING\tAGE\tNOTE")
	for _, e := range entries {
		note := ""
		switch {
		case e.Err != nil:
			note = "unreadable: " + e.Err.Error()
		case e.Stale:
			note = "expired"
		}
		age := "-"
		if !e.SavedAt.IsZero() {
			age = now.Sub(e.SavedAt).Truncate(time.Minute).String()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", e.Kind, e.ShockID, e.Rows, e.Pending, age, note)
	}
	return tw.Flush()
}
