package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bongocat/internal/apprun"
	"bongocat/internal/audit"
	"bongocat/internal/logging"
)

func newJournalCommand() *cobra.Command {
	var journalPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent lifecycle events",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := journalPath
			if path == "" {
				path = apprun.DefaultJournalPath()
			}

			j, err := audit.Open(path, "", logging.NewNop())
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer j.Close()

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No recorded events.")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.At.Local().Format(time.DateTime),
					shortSession(e.SessionID),
					e.Event,
					e.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Time", "Session", "Event", "Detail"}, rows, 1))
			return nil
		},
	}

	cmd.Flags().StringVar(&journalPath, "journal", "", "Journal database path")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events to show")
	return cmd
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
